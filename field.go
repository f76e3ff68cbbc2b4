package godbf

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// FieldContext carries the per-table settings a codec needs. It is passed
// on every call because one plan may serve tables that share a schema but
// not an encoding or a memo file.
type FieldContext struct {
	Encoding         Encoding
	DecimalSeparator byte
	Memo             MemoStore
}

// MemoStore is the overflow storage used by memo-backed fields.
type MemoStore interface {
	Get(index uint32) (MemoRecord, error)
	Add(rec MemoRecord) (uint32, error)
}

var defaultEncoding = CharmapEncoding(charmap.Windows1252)

func (fc *FieldContext) encoding() Encoding {
	if fc == nil || fc.Encoding == nil {
		return defaultEncoding
	}
	return fc.Encoding
}

func (fc *FieldContext) separator() byte {
	if fc == nil || fc.DecimalSeparator == 0 {
		return '.'
	}
	return fc.DecimalSeparator
}

func (fc *FieldContext) memo() MemoStore {
	if fc == nil {
		return nil
	}
	return fc.Memo
}

// FieldCodec converts one field's fixed width bytes to and from a Value.
// Decode receives exactly the field's bytes; Encode fills out completely.
type FieldCodec interface {
	Decode(b []byte, fc *FieldContext) (Value, error)
	Encode(v Value, fc *FieldContext, out []byte) error
}

// CodecFor selects the codec for a descriptor.
func CodecFor(d FieldDescriptor) (FieldCodec, error) {
	want := func(n uint8) error {
		if d.Length != n {
			return ErrInvalidField.New(d.Name, fmt.Sprintf("type %s must be %d bytes, got %d", d.Type, n, d.Length))
		}
		return nil
	}
	// An 8 byte binary field is a FoxPro double, not a memo reference.
	if d.Type == TypeBinary && d.Length == 8 {
		return doubleCodec{d}, nil
	}
	switch d.Type {
	case TypeInteger:
		if d.IsAutoIncrement() {
			return autoIncrementCodec{d}, want(4)
		}
		return int32Codec{d}, want(4)
	case TypeAutoIncrement:
		if d.Length != 4 && d.Length != 8 {
			return nil, ErrInvalidField.New(d.Name, "auto-increment fields are 4 or 8 bytes")
		}
		return autoIncrementCodec{d}, nil
	case TypeDouble:
		return doubleCodec{d}, want(8)
	case TypeCurrency:
		return currencyCodec{d}, want(8)
	case TypeCharacter:
		return characterCodec{d}, nil
	case TypeVariant:
		if d.Length < 2 {
			return nil, ErrInvalidField.New(d.Name, "variant fields need at least 2 bytes")
		}
		return variantCodec{d}, nil
	case TypeNumeric, TypeFloat:
		return numericCodec{field: d}, nil
	case TypeDate:
		return dateCodec{d}, want(8)
	case TypeDateTime, TypeTimestamp:
		return dateTimeCodec{d}, want(8)
	case TypeLogical:
		return logicalCodec{d}, want(1)
	case TypeNullFlags:
		return nullFlagsCodec{d}, nil
	case TypeMemo, TypeBinary, TypeBlob, TypeOLE, TypePicture:
		return newMemoCodec(d), nil
	}
	return nil, ErrInvalidField.New(d.Name, fmt.Sprintf("unknown type %q", byte(d.Type)))
}

func unsupported(v Value, d FieldDescriptor) error {
	return ErrUnsupportedValue.New(v.Kind(), d.Type, d.Name)
}

func fill(out []byte, b byte) {
	for i := range out {
		out[i] = b
	}
}
