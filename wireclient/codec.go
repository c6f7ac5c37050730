package wireclient

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// rawCodecName is registered as a gRPC encoding.Codec under this name
// so both client and demo server can request it explicitly, alongside
// the default "proto" codec the health-check handshake still uses.
const rawCodecName = "laura-pool-raw"

// rawCodec lets a *Conn forward arbitrary backend operations without
// a compiled .proto schema: messages are required to already be
// []byte, and are passed through unchanged. This mirrors
// grpc-ecosystem/grpc-proxy's "director" pattern, where a generic
// proxy forwards opaque byte payloads rather than typed protobuf
// messages.
type rawCodec struct{}

func (rawCodec) Name() string { return rawCodecName }

func (rawCodec) Marshal(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("wireclient: rawCodec.Marshal: expected []byte, got %T", v)
	}
	return b, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("wireclient: rawCodec.Unmarshal: expected *[]byte, got %T", v)
	}
	*p = append((*p)[:0], data...)
	return nil
}

func init() {
	encoding.RegisterCodec(rawCodec{})
}
