package compressor

import (
	"bytes"
	stdgzip "compress/gzip"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestGzipCompressor(t *testing.T) {
	Convey("Given a GzipCompressor", t, func() {
		compressor := NewGzip()

		Convey("Extension is .gz", func() {
			So(compressor.Extension(), ShouldEqual, ".gz")
		})

		Convey("Compress method", func() {
			Convey("When compressing a stream", func() {
				input := strings.Repeat("INSERT INTO `foo` VALUES (1,'2024-01-01');\n", 200)
				var out bytes.Buffer

				n, err := compressor.Compress(&out, strings.NewReader(input))

				Convey("It should produce a standard gzip stream", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, len(input))
					So(out.Len(), ShouldBeLessThan, len(input))

					reader, err := stdgzip.NewReader(&out)
					So(err, ShouldBeNil)
					var decoded bytes.Buffer
					_, err = decoded.ReadFrom(reader)
					So(err, ShouldBeNil)
					So(decoded.String(), ShouldEqual, input)
				})
			})

			Convey("When the input is empty", func() {
				var out bytes.Buffer
				n, err := compressor.Compress(&out, strings.NewReader(""))

				Convey("It should still write a valid gzip header", func() {
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)
					So(out.Len(), ShouldBeGreaterThan, 0)
				})
			})

			Convey("When the source fails", func() {
				_, err := compressor.Compress(&bytes.Buffer{}, failingReader{})

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to compress")
				})
			})

			Convey("When the destination fails", func() {
				_, err := compressor.Compress(failingWriter{}, strings.NewReader(strings.Repeat("x", 1<<20)))

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("Decompress method", func() {
			Convey("When decompressing a compressed stream", func() {
				var compressed bytes.Buffer
				_, err := compressor.Compress(&compressed, strings.NewReader("DROP TABLE IF EXISTS `foo`;"))
				So(err, ShouldBeNil)

				var out bytes.Buffer
				_, err = compressor.Decompress(&out, &compressed)

				Convey("It should round-trip the content", func() {
					So(err, ShouldBeNil)
					So(out.String(), ShouldEqual, "DROP TABLE IF EXISTS `foo`;")
				})
			})

			Convey("When the source is not gzip", func() {
				_, err := compressor.Decompress(&bytes.Buffer{}, strings.NewReader("not a gzip file"))

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to create gzip reader")
				})
			})
		})
	})
}
