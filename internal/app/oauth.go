package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/semmidev/daydump/internal/adapter/storage"
	"github.com/semmidev/daydump/internal/infrastructure/logger"
)

// DriveAuthorizer runs the one-off OAuth consent flow for the Google Drive
// upload target and stores the resulting token for later runs.
type DriveAuthorizer struct {
	config    *oauth2.Config
	tokenFile string
	logger    *logger.Logger
	state     string
	done      chan error
}

func NewDriveAuthorizer(log *logger.Logger, clientSecretFile, tokenFile string) (*DriveAuthorizer, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if tokenFile == "" {
		return nil, errors.New("token file path cannot be empty")
	}

	cfg, err := storage.DriveOAuthConfig(clientSecretFile)
	if err != nil {
		return nil, err
	}

	return &DriveAuthorizer{
		config:    cfg,
		tokenFile: tokenFile,
		logger:    log,
		state:     fmt.Sprintf("daydump-%d", time.Now().UnixNano()),
		done:      make(chan error, 1),
	}, nil
}

func (a *DriveAuthorizer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		authURL := a.config.AuthCodeURL(a.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != a.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := a.config.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}
		if token.RefreshToken == "" {
			http.Error(w, "no refresh token returned, revoke app access and try again", http.StatusBadRequest)
			return
		}

		if err := storage.SaveDriveToken(a.tokenFile, token); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			a.finish(err)
			return
		}

		fmt.Fprintf(w, "Token saved to %s, you can close this page.\n", a.tokenFile)
		a.finish(nil)
	})

	return mux
}

func (a *DriveAuthorizer) finish(err error) {
	select {
	case a.done <- err:
	default:
	}
}

// Serve listens on addr until a token is saved, the flow fails, or ctx is
// cancelled.
func (a *DriveAuthorizer) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Infof("Google Drive OAuth server listening on %s, open http://%s/auth/google/drive", addr, addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var err error
	select {
	case err = <-a.done:
	case err = <-serveErr:
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Errorf("failed to shutdown OAuth server: %v", shutdownErr)
	}

	if err == nil {
		a.logger.Infof("Google Drive token saved to %s", a.tokenFile)
	}
	return err
}
