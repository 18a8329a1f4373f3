// Package wire кодирует сообщения grpc.tradeapi.v1 в protobuf без
// сгенерированных стабов: только protowire и well-known types.
package wire

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

// encoder дописывает поля в буфер. Нулевые скаляры не пишутся (proto3).
type encoder struct {
	buf []byte
	err error
}

func (e *encoder) string(n protowire.Number, v string) {
	if v == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, n, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, v)
}

func (e *encoder) strings(n protowire.Number, vs []string) {
	for _, v := range vs {
		e.buf = protowire.AppendTag(e.buf, n, protowire.BytesType)
		e.buf = protowire.AppendString(e.buf, v)
	}
}

func (e *encoder) bool(n protowire.Number, v bool) {
	if !v {
		return
	}
	e.buf = protowire.AppendTag(e.buf, n, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, 1)
}

func (e *encoder) int64(n protowire.Number, v int64) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, n, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, uint64(v))
}

// int32 и enum кодируются как int64: отрицательные значения занимают 10 байт.
func (e *encoder) int32(n protowire.Number, v int32) { e.int64(n, int64(v)) }

func (e *encoder) uint32(n protowire.Number, v uint32) { e.int64(n, int64(v)) }

func (e *encoder) double(n protowire.Number, v float64) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, n, protowire.Fixed64Type)
	e.buf = protowire.AppendFixed64(e.buf, math.Float64bits(v))
}

// message пишет вложенное сообщение всегда, даже пустое: для oneof
// присутствие варианта важнее его содержимого.
func (e *encoder) message(n protowire.Number, b []byte) {
	e.buf = protowire.AppendTag(e.buf, n, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, b)
}

func (e *encoder) nested(n protowire.Number, fn func(*encoder)) {
	var sub encoder
	fn(&sub)
	if sub.err != nil && e.err == nil {
		e.err = sub.err
	}
	e.message(n, sub.buf)
}

func (e *encoder) wellKnown(n protowire.Number, m proto.Message) {
	b, err := proto.Marshal(m)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("wire: marshal %T: %w", m, err)
		}
		return
	}
	e.message(n, b)
}

func (e *encoder) timestamp(n protowire.Number, t time.Time) {
	if t.IsZero() {
		return
	}
	e.wellKnown(n, timestamppb.New(t))
}

func (e *encoder) doubleValue(n protowire.Number, v *float64) {
	if v == nil {
		return
	}
	e.wellKnown(n, wrapperspb.Double(*v))
}

func (e *encoder) stringValue(n protowire.Number, v string) {
	if v == "" {
		return
	}
	e.wellKnown(n, wrapperspb.String(v))
}

// date — google.type.Date {year=1, month=2, day=3}.
func (e *encoder) date(n protowire.Number, d tradeapi.Date) {
	if d.IsZero() {
		return
	}
	e.nested(n, func(s *encoder) {
		s.int32(1, d.Year)
		s.int32(2, d.Month)
		s.int32(3, d.Day)
	})
}

func (e *encoder) result() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.buf == nil {
		return []byte{}, nil
	}
	return e.buf, nil
}

// field — одно разобранное поле. Для varint и fixed значение лежит в u,
// для length-delimited — в b (срез исходного буфера, без копии).
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

func (f field) int64() int64 { return int64(f.u) }
func (f field) int32() int32 { return int32(f.u) }
func (f field) uint32() uint32 { return uint32(f.u) }
func (f field) bool() bool { return f.u != 0 }
func (f field) str() string { return string(f.b) }

func (f field) double() float64 {
	if f.typ != protowire.Fixed64Type {
		return 0
	}
	return math.Float64frombits(f.u)
}

func (f field) timestamp() (time.Time, error) {
	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(f.b, &ts); err != nil {
		return time.Time{}, fmt.Errorf("wire: field %d: timestamp: %w", f.num, err)
	}
	return ts.AsTime(), nil
}

func (f field) date() (tradeapi.Date, error) {
	var d tradeapi.Date
	err := walk(f.b, func(g field) error {
		switch g.num {
		case 1:
			d.Year = g.int32()
		case 2:
			d.Month = g.int32()
		case 3:
			d.Day = g.int32()
		}
		return nil
	})
	return d, err
}

// walk обходит поля сообщения по порядку. Неизвестные поля и группы
// пропускаются вызывающим кодом, ошибки разбора возвращаются.
func walk(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("wire: tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			f.u, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.u = uint64(v)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("wire: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
