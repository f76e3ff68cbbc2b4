package godbf

import (
	"bytes"
	"encoding/hex"
	"strings"
)

// characterCodec stores left aligned, space padded text. A blank field is
// Null, so the empty string reads back as Null.
type characterCodec struct{ field FieldDescriptor }

func (c characterCodec) Decode(b []byte, fc *FieldContext) (Value, error) {
	raw := bytes.TrimRight(b, "\x00 ")
	if len(raw) == 0 {
		return Null(), nil
	}
	if c.field.Flags&FieldBinary != 0 {
		return StringValue(string(raw)), nil
	}
	s, err := fc.encoding().Decode(raw)
	if err != nil {
		return Value{}, err
	}
	return StringValue(s), nil
}

func (c characterCodec) Encode(v Value, fc *FieldContext, out []byte) error {
	fill(out, SPACE)
	if v.IsNull() {
		return nil
	}
	s, ok := v.Text()
	if !ok {
		return unsupported(v, c.field)
	}
	raw := []byte(s)
	if c.field.Flags&FieldBinary == 0 {
		var err error
		if raw, err = fc.encoding().Encode(s); err != nil {
			return err
		}
	}
	copy(out, raw)
	return nil
}

// variantCodec stores the payload followed by its length in the last byte.
type variantCodec struct{ field FieldDescriptor }

func (c variantCodec) Decode(b []byte, fc *FieldContext) (Value, error) {
	n := int(b[len(b)-1])
	if n > len(b)-1 {
		n = len(b) - 1
	}
	s, err := fc.encoding().Decode(b[:n])
	if err != nil {
		return Value{}, err
	}
	return VariantValue(s), nil
}

func (c variantCodec) Encode(v Value, fc *FieldContext, out []byte) error {
	fill(out, NUL)
	if v.IsNull() {
		return nil
	}
	s, ok := v.Text()
	if !ok {
		return unsupported(v, c.field)
	}
	raw, err := fc.encoding().Encode(s)
	if err != nil {
		return err
	}
	n := copy(out[:len(out)-1], raw)
	out[len(out)-1] = byte(n)
	return nil
}

// nullFlagsCodec exposes the _NullFlags bitmap as upper case hex.
type nullFlagsCodec struct{ field FieldDescriptor }

func (c nullFlagsCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	return FlagsValue(strings.ToUpper(hex.EncodeToString(b))), nil
}

func (c nullFlagsCodec) Encode(v Value, _ *FieldContext, out []byte) error {
	fill(out, NUL)
	if v.IsNull() {
		return nil
	}
	s, ok := v.Text()
	if !ok {
		return unsupported(v, c.field)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ErrInvalidField.New(c.field.Name, "null flags must be hex: "+err.Error())
	}
	if len(raw) > len(out) {
		return ErrInvalidField.New(c.field.Name, "null flags wider than the field")
	}
	copy(out, raw)
	return nil
}

// logicalCodec stores one character. '?', space and NUL mean unset.
type logicalCodec struct{ field FieldDescriptor }

func (c logicalCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	switch b[0] {
	case 'T', 't', 'Y', 'y', '1':
		return BoolValue(true), nil
	case 'F', 'f', 'N', 'n', '0':
		return BoolValue(false), nil
	case '?', SPACE, NUL:
		return Null(), nil
	}
	return Value{}, ErrInvalidLogical.New(string(b[:1]))
}

func (c logicalCodec) Encode(v Value, _ *FieldContext, out []byte) error {
	switch v.Kind() {
	case KindNull:
		out[0] = '?'
	case KindBool:
		if b, _ := v.Bool(); b {
			out[0] = 'T'
		} else {
			out[0] = 'F'
		}
	default:
		return unsupported(v, c.field)
	}
	return nil
}
