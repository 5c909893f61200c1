package grpc

import (
	"time"

	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/models"
	"google.golang.org/protobuf/encoding/protowire"
)

// Proto3 encoding helpers. Zero values are omitted on write and unknown
// fields are skipped on read.

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendInt32(b []byte, num protowire.Number, v int) []byte {
	return appendInt64(b, num, int64(int32(v)))
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// appendTimestamp writes a google.protobuf.Timestamp.
func appendTimestamp(b []byte, num protowire.Number, t *time.Time) []byte {
	if t == nil {
		return b
	}
	var ts []byte
	ts = appendInt64(ts, 1, t.Unix())
	ts = appendInt32(ts, 2, t.Nanosecond())
	return appendMessage(b, num, ts)
}

func appendPackedInt32(b []byte, num protowire.Number, vs []int) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(int64(int32(v))))
	}
	return appendMessage(b, num, packed)
}

// fieldFunc consumes the value of one field and reports how many bytes it
// used. Zero means the field is not recognised and is skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n
}

func consumeInt32(typ protowire.Type, b []byte, dst *int) int {
	if typ != protowire.VarintType {
		return 0
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int(int32(v))
	}
	return n
}

func consumeMessage(typ protowire.Type, b []byte, decode func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	return n, decode(v)
}

func consumeTimestamp(typ protowire.Type, b []byte, dst **time.Time) (int, error) {
	return consumeMessage(typ, b, func(v []byte) error {
		var sec int64
		var nsec int
		if err := decodeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				return consumeInt64(typ, b, &sec), nil
			case 2:
				return consumeInt32(typ, b, &nsec), nil
			}
			return 0, nil
		}); err != nil {
			return err
		}
		t := time.Unix(sec, int64(nsec)).UTC()
		*dst = &t
		return nil
	})
}

// consumeRepeatedInt32 accepts both packed and unpacked encodings.
func consumeRepeatedInt32(typ protowire.Type, b []byte, dst *[]int) (int, error) {
	switch typ {
	case protowire.VarintType:
		var v int
		n := consumeInt32(typ, b, &v)
		if n >= 0 {
			*dst = append(*dst, v)
		}
		return n, nil
	case protowire.BytesType:
		return consumeMessage(typ, b, func(packed []byte) error {
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return protowire.ParseError(n)
				}
				*dst = append(*dst, int(int32(v)))
				packed = packed[n:]
			}
			return nil
		})
	}
	return 0, nil
}

func marshalPayment(p models.PaymentDetails) []byte {
	var b []byte
	b = appendString(b, 1, p.CardHolderName)
	b = appendString(b, 2, p.CardNumber)
	b = appendString(b, 3, p.CVV)
	b = appendInt32(b, 4, p.ExpiryMonth)
	b = appendInt32(b, 5, p.ExpiryYear)
	b = appendString(b, 6, p.BillingAddress)
	return b
}

func unmarshalPayment(b []byte, p *models.PaymentDetails) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &p.CardHolderName), nil
		case 2:
			return consumeString(typ, b, &p.CardNumber), nil
		case 3:
			return consumeString(typ, b, &p.CVV), nil
		case 4:
			return consumeInt32(typ, b, &p.ExpiryMonth), nil
		case 5:
			return consumeInt32(typ, b, &p.ExpiryYear), nil
		case 6:
			return consumeString(typ, b, &p.BillingAddress), nil
		}
		return 0, nil
	})
}
