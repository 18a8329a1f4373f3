package wire

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// Marshaler реализуют исходящие сообщения пакета.
type Marshaler interface {
	MarshalProto() ([]byte, error)
}

// Unmarshaler реализуют входящие сообщения пакета.
type Unmarshaler interface {
	UnmarshalProto([]byte) error
}

// Codec — gRPC-кодек для сообщений пакета. Сообщения google.protobuf
// (proto.Message) проходят через стандартный proto.Marshal.
// Подключается на вызов через grpc.ForceCodec, глобально не регистрируется.
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Marshaler:
		return m.MarshalProto()
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("wire: cannot marshal %T", v)
	}
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Unmarshaler:
		return m.UnmarshalProto(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("wire: cannot unmarshal into %T", v)
	}
}

// Name совпадает с именем стандартного кодека, чтобы content-type
// оставался application/grpc+proto.
func (Codec) Name() string { return "proto" }
