package godbf

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numericCodec stores right justified digits for N and F fields. The table's
// decimal separator replaces '.' on disk. Exact codecs decode to Decimal
// values instead of Double.
type numericCodec struct {
	field FieldDescriptor
	exact bool
}

func (c numericCodec) Decode(b []byte, fc *FieldContext) (Value, error) {
	s := strings.Trim(string(b), " \x00")
	if s == "" {
		return Null(), nil
	}
	// A lone sign or separator is what some producers leave in empty fields,
	// and dBASE fills fields whose value overflowed with '*'.
	if (len(s) == 1 && (s[0] < '0' || s[0] > '9')) || strings.Trim(s, "*") == "" {
		return Null(), nil
	}
	if sep := fc.separator(); sep != '.' {
		s = strings.ReplaceAll(s, string(sep), ".")
	}
	if c.exact {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, ErrInvalidField.New(c.field.Name, fmt.Sprintf("invalid number %q", s))
		}
		return DecimalValue(d), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, ErrInvalidField.New(c.field.Name, fmt.Sprintf("invalid number %q", s))
	}
	return DoubleValue(f), nil
}

func (c numericCodec) Encode(v Value, fc *FieldContext, out []byte) error {
	fill(out, SPACE)
	var d decimal.Decimal
	switch v.Kind() {
	case KindNull:
		return nil
	case KindInt32, KindInt64:
		i, _ := v.Int64()
		d = decimal.NewFromInt(i)
	case KindDouble:
		f, _ := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return unsupported(v, c.field)
		}
		d = decimal.NewFromFloat(f)
	case KindCurrency:
		m, _ := v.Currency()
		d = m.Decimal()
	case KindDecimal:
		d, _ = v.Decimal()
	default:
		return unsupported(v, c.field)
	}
	s, ok := fitNumber(d, int32(c.field.Decimals), len(out))
	if !ok {
		return ErrInvalidField.New(c.field.Name, fmt.Sprintf("%s does not fit in %d bytes", d, len(out)))
	}
	if sep := fc.separator(); sep != '.' {
		s = strings.ReplaceAll(s, ".", string(sep))
	}
	copy(out[len(out)-len(s):], s)
	return nil
}

// fitNumber formats d with at most places decimals in width bytes. Decimals
// that do not fit are rounded away; the integer part is never cut.
func fitNumber(d decimal.Decimal, places int32, width int) (string, bool) {
	for ; places >= 0; places-- {
		if s := d.StringFixed(places); len(s) <= width {
			return s, true
		}
	}
	return "", false
}
