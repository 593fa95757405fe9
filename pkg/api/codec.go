package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// CodecName is the Connect codec name for JSON payloads.
const CodecName = "json"

// Codec marshals the plain message structs of this package as JSON.
type Codec struct {
	name string
}

// Ensure Codec implements connect.Codec
var _ connect.Codec = Codec{}

func (c Codec) Name() string {
	if c.name == "" {
		return CodecName
	}
	return c.name
}

func (c Codec) Marshal(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", message, err)
	}
	return data, nil
}

func (c Codec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("unmarshal %T: %w", message, err)
	}
	return nil
}

// HandlerOption registers the codec for both JSON content types a Connect
// client may send.
func HandlerOption() connect.HandlerOption {
	return connect.WithHandlerOptions(
		connect.WithCodec(Codec{}),
		connect.WithCodec(Codec{name: CodecName + "; charset=utf-8"}),
	)
}

// ClientOption makes a Connect client speak the JSON codec.
func ClientOption() connect.ClientOption {
	return connect.WithCodec(Codec{})
}
