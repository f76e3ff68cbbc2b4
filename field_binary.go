package godbf

import (
	"math"

	"github.com/shopspring/decimal"
)

// Little endian fixed width types. They carry no padding and no null
// marker; a null value is written as zero.

type int32Codec struct{ field FieldDescriptor }

func (c int32Codec) Decode(b []byte, _ *FieldContext) (Value, error) {
	return Int32Value(int32(le.Uint32(b))), nil
}

func (c int32Codec) Encode(v Value, _ *FieldContext, out []byte) error {
	if v.IsNull() {
		fill(out, NUL)
		return nil
	}
	i, ok := v.Int64()
	if !ok || i < math.MinInt32 || i > math.MaxInt32 {
		return unsupported(v, c.field)
	}
	le.PutUint32(out, uint32(int32(i)))
	return nil
}

type autoIncrementCodec struct{ field FieldDescriptor }

func (c autoIncrementCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	if len(b) == 8 {
		return Int64Value(int64(le.Uint64(b))), nil
	}
	return Int32Value(int32(le.Uint32(b))), nil
}

func (c autoIncrementCodec) Encode(v Value, fc *FieldContext, out []byte) error {
	if len(out) == 4 {
		return int32Codec(c).Encode(v, fc, out)
	}
	if v.IsNull() {
		fill(out, NUL)
		return nil
	}
	i, ok := v.Int64()
	if !ok {
		return unsupported(v, c.field)
	}
	le.PutUint64(out, uint64(i))
	return nil
}

type doubleCodec struct{ field FieldDescriptor }

func (c doubleCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	return DoubleValue(math.Float64frombits(le.Uint64(b))), nil
}

func (c doubleCodec) Encode(v Value, _ *FieldContext, out []byte) error {
	if v.IsNull() {
		fill(out, NUL)
		return nil
	}
	f, ok := v.Float()
	if !ok {
		return unsupported(v, c.field)
	}
	le.PutUint64(out, math.Float64bits(f))
	return nil
}

// currencyCodec stores a Money amount, a 64 bit integer scaled by 10000.
type currencyCodec struct{ field FieldDescriptor }

func (c currencyCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	return CurrencyValue(Money(int64(le.Uint64(b)))), nil
}

func (c currencyCodec) Encode(v Value, _ *FieldContext, out []byte) error {
	var m Money
	switch v.Kind() {
	case KindNull:
	case KindCurrency:
		m, _ = v.Currency()
	case KindInt32, KindInt64:
		i, _ := v.Int64()
		m = MoneyFromDecimal(decimal.NewFromInt(i))
	case KindDouble:
		f, _ := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return unsupported(v, c.field)
		}
		m = MoneyFromDecimal(decimal.NewFromFloat(f))
	case KindDecimal:
		d, _ := v.Decimal()
		m = MoneyFromDecimal(d)
	default:
		return unsupported(v, c.field)
	}
	le.PutUint64(out, uint64(int64(m)))
	return nil
}
