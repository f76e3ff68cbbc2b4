package godbf

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the case held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt32
	KindInt64
	KindDouble
	KindCurrency
	KindString
	KindBool
	KindDate
	KindDateTime
	KindFlags
	KindVariant
	KindBytes
	KindDecimal
)

var kindNames = [...]string{
	KindNull:     "null",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindDouble:   "double",
	KindCurrency: "currency",
	KindString:   "string",
	KindBool:     "bool",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindFlags:    "flags",
	KindVariant:  "variant",
	KindBytes:    "bytes",
	KindDecimal:  "decimal",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Money is a fixed point amount with four implied decimal digits, the
// in-memory form of currency fields.
type Money int64

// MoneyFromDecimal rounds d to four decimal digits.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Shift(4).Round(0).IntPart())
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -4)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(4)
}

// Value is one decoded field value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
	t    time.Time
	d    decimal.Decimal
}

func Null() Value { return Value{} }
func Int32Value(v int32) Value { return Value{kind: KindInt32, i: int64(v)} }
func Int64Value(v int64) Value { return Value{kind: KindInt64, i: v} }
func DoubleValue(v float64) Value { return Value{kind: KindDouble, f: v} }
func CurrencyValue(v Money) Value { return Value{kind: KindCurrency, i: int64(v)} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }
func VariantValue(v string) Value { return Value{kind: KindVariant, s: v} }
func FlagsValue(hex string) Value { return Value{kind: KindFlags, s: hex} }
func BytesValue(v []byte) Value { return Value{kind: KindBytes, b: v} }

// DecimalValue holds an exact number for numeric and float fields.
func DecimalValue(v decimal.Decimal) Value { return Value{kind: KindDecimal, d: v} }

func DateValue(t time.Time) Value { return Value{kind: KindDate, t: truncateDay(t)} }
func DateTimeValue(t time.Time) Value {
	return Value{kind: KindDateTime, t: t.UTC().Truncate(time.Millisecond)}
}

// BoolValue returns a logical value. Unset logicals are Null.
func BoolValue(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Int32() (int32, bool) {
	return int32(v.i), v.kind == KindInt32
}

// Int64 returns the value of an Int32 or Int64.
func (v Value) Int64() (int64, bool) {
	return v.i, v.kind == KindInt32 || v.kind == KindInt64
}

func (v Value) Double() (float64, bool) {
	return v.f, v.kind == KindDouble
}

func (v Value) Currency() (Money, bool) {
	return Money(v.i), v.kind == KindCurrency
}

func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.d, v.kind == KindDecimal
}

// Text returns the string payload of String, Variant and Flags values.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindString, KindVariant, KindFlags:
		return v.s, true
	}
	return "", false
}

func (v Value) Bool() (bool, bool) {
	return v.i != 0, v.kind == KindBool
}

// Time returns the payload of Date and DateTime values.
func (v Value) Time() (time.Time, bool) {
	return v.t, v.kind == KindDate || v.kind == KindDateTime
}

func (v Value) Bytes() ([]byte, bool) {
	return v.b, v.kind == KindBytes
}

// Float converts any numeric case to float64.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt32, KindInt64:
		return float64(v.i), true
	case KindDouble:
		return v.f, true
	case KindCurrency:
		return Money(v.i).Decimal().InexactFloat64(), true
	case KindDecimal:
		return v.d.InexactFloat64(), true
	}
	return 0, false
}

// Interface returns the payload as a plain Go value, nil for Null.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt32:
		return int32(v.i)
	case KindInt64:
		return v.i
	case KindDouble:
		return v.f
	case KindCurrency:
		return Money(v.i)
	case KindString, KindVariant, KindFlags:
		return v.s
	case KindBool:
		return v.i != 0
	case KindDate, KindDateTime:
		return v.t
	case KindBytes:
		return v.b
	case KindDecimal:
		return v.d
	}
	return nil
}

// Equal reports whether both values hold the same case and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt32, KindInt64, KindCurrency, KindBool:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindString, KindVariant, KindFlags:
		return v.s == o.s
	case KindDate, KindDateTime:
		return v.t.Equal(o.t)
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	case KindDecimal:
		return v.d.Equal(o.d)
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindDateTime:
		return v.t.Format("2006-01-02 15:04:05.000")
	case KindDouble:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindBytes:
		return fmt.Sprintf("%d bytes", len(v.b))
	}
	return fmt.Sprint(v.Interface())
}

// Row is the generic record shape: one Value per field, in descriptor order.
type Row []Value
