package compression

import (
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// Writer is the subset of compress/flate.Writer-shaped writers every
// supported algorithm implements.
type Writer interface {
	io.WriteCloser
	Flush() error
}

var (
	gzipPool = sync.Pool{New: func() interface{} { w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression); return w }}
	flatePool = sync.Pool{New: func() interface{} { w, _ := flate.NewWriter(io.Discard, flate.DefaultCompression); return w }}
	brotliPool = sync.Pool{New: func() interface{} { return brotli.NewWriter(io.Discard) }}
)

// AcquireWriter returns a pooled Writer for algorithm, reset onto dst.
// Identity returns nil: callers should write dst directly in that case.
func AcquireWriter(algorithm Algorithm, dst io.Writer) Writer {
	switch algorithm {
	case Brotli:
		w := brotliPool.Get().(*brotli.Writer)
		w.Reset(dst)
		return w
	case Gzip:
		w := gzipPool.Get().(*gzip.Writer)
		w.Reset(dst)
		return w
	case Deflate:
		w := flatePool.Get().(*flate.Writer)
		w.Reset(dst)
		return w
	default:
		return nil
	}
}

// ReleaseWriter returns w to its algorithm's pool. Callers must Close w
// first so buffered bytes are flushed to its destination.
func ReleaseWriter(algorithm Algorithm, w Writer) {
	switch algorithm {
	case Brotli:
		brotliPool.Put(w)
	case Gzip:
		gzipPool.Put(w)
	case Deflate:
		flatePool.Put(w)
	}
}
