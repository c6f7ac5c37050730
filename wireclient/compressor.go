package wireclient

import (
	"io"

	"github.com/klauspost/compress/s2"
	"google.golang.org/grpc/encoding"
)

// s2CompressorName is the wire identifier gRPC negotiates via the
// grpc-encoding metadata header.
const s2CompressorName = "s2"

// s2Compressor registers klauspost/compress/s2 as a gRPC
// encoding.Compressor, giving wire frames the same fast block
// compression pkg/compression gives laura-db's on-disk pages, applied
// here to the wire protocol instead.
type s2Compressor struct{}

func (s2Compressor) Name() string { return s2CompressorName }

func (s2Compressor) Compress(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w), nil
}

func (s2Compressor) Decompress(r io.Reader) (io.Reader, error) {
	return s2.NewReader(r), nil
}

func init() {
	encoding.RegisterCompressor(s2Compressor{})
}
