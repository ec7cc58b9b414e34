package app

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/daydump/internal/infrastructure/logger"
)

const clientSecret = `{
  "installed": {
    "client_id": "daydump-client.apps.googleusercontent.com",
    "client_secret": "shh",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost:8085/auth/google/callback"]
  }
}`

func TestDriveAuthorizer(t *testing.T) {
	Convey("Given a Drive authorizer", t, func() {
		tempDir, err := os.MkdirTemp("", "oauth_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		secretPath := filepath.Join(tempDir, "client_secret.json")
		So(os.WriteFile(secretPath, []byte(clientSecret), 0600), ShouldBeNil)
		tokenPath := filepath.Join(tempDir, "token.json")

		auth, err := NewDriveAuthorizer(logger.Nop(), secretPath, tokenPath)
		So(err, ShouldBeNil)
		handler := auth.Handler()

		Convey("The start page redirects to Google with offline access", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/drive", nil))

			So(rec.Code, ShouldEqual, http.StatusTemporaryRedirect)
			loc, err := url.Parse(rec.Header().Get("Location"))
			So(err, ShouldBeNil)
			So(loc.Host, ShouldEqual, "accounts.google.com")
			So(loc.Query().Get("client_id"), ShouldEqual, "daydump-client.apps.googleusercontent.com")
			So(loc.Query().Get("access_type"), ShouldEqual, "offline")
			So(loc.Query().Get("state"), ShouldEqual, auth.state)
		})

		Convey("A callback with a foreign state is refused", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=other&code=x", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			_, err := os.Stat(tokenPath)
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("A callback without a code is refused", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state="+auth.state, nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})

	Convey("NewDriveAuthorizer needs a token path", t, func() {
		_, err := NewDriveAuthorizer(logger.Nop(), "client_secret.json", "")
		So(err, ShouldNotBeNil)
	})
}
