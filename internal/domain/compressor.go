package domain

import "io"

type Compressor interface {
	Compress(dst io.Writer, src io.Reader) (int64, error)
	Decompress(dst io.Writer, src io.Reader) (int64, error)
	Extension() string
}
