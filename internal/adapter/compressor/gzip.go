package compressor

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

type GzipCompressor struct {
	level int
}

func NewGzip() *GzipCompressor {
	return &GzipCompressor{level: gzip.BestCompression}
}

func (g *GzipCompressor) Extension() string { return ".gz" }

// Compress streams src into dst as a gzip member. It returns the number of
// uncompressed bytes read.
func (g *GzipCompressor) Compress(dst io.Writer, src io.Reader) (int64, error) {
	gzipWriter, err := gzip.NewWriterLevel(dst, g.level)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	n, err := io.Copy(gzipWriter, src)
	if err != nil {
		_ = gzipWriter.Close()
		return n, fmt.Errorf("failed to compress: %w", err)
	}

	if err := gzipWriter.Close(); err != nil {
		return n, fmt.Errorf("failed to flush gzip stream: %w", err)
	}

	return n, nil
}

func (g *GzipCompressor) Decompress(dst io.Writer, src io.Reader) (int64, error) {
	gzipReader, err := gzip.NewReader(src)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	n, err := io.Copy(dst, gzipReader)
	if err != nil {
		return n, fmt.Errorf("failed to decompress: %w", err)
	}

	return n, nil
}
