package grpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/encoding/proto"
	"google.golang.org/grpc/mem"
)

// wireMessage is implemented by the BoxOffice request and response types.
// Their encoding follows api/proto/boxoffice/v1/boxoffice.proto, so clients
// generated from that file interoperate with this server.
type wireMessage interface {
	marshalWire() []byte
	unmarshalWire(b []byte) error
}

// codec replaces the default "proto" codec. BoxOffice messages are encoded
// here; everything else, health checks included, goes to the stock codec.
type codec struct {
	fallback encoding.CodecV2
}

func (c codec) Marshal(v any) (mem.BufferSlice, error) {
	if m, ok := v.(wireMessage); ok {
		return mem.BufferSlice{mem.SliceBuffer(m.marshalWire())}, nil
	}
	if c.fallback == nil {
		return nil, fmt.Errorf("grpc codec: cannot marshal %T", v)
	}
	return c.fallback.Marshal(v)
}

func (c codec) Unmarshal(data mem.BufferSlice, v any) error {
	if m, ok := v.(wireMessage); ok {
		return m.unmarshalWire(data.Materialize())
	}
	if c.fallback == nil {
		return fmt.Errorf("grpc codec: cannot unmarshal %T", v)
	}
	return c.fallback.Unmarshal(data, v)
}

func (codec) Name() string {
	return proto.Name
}

func init() {
	encoding.RegisterCodecV2(codec{fallback: encoding.GetCodecV2(proto.Name)})
}
