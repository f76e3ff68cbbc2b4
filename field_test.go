package godbf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type fakeMemo struct {
	recs map[uint32]MemoRecord
	next uint32
}

func newFakeMemo() *fakeMemo {
	return &fakeMemo{recs: map[uint32]MemoRecord{}, next: 1}
}

func (m *fakeMemo) Get(index uint32) (MemoRecord, error) {
	rec, ok := m.recs[index]
	if !ok {
		return MemoRecord{}, ErrMemoOutOfRange.New(index, 1, m.next)
	}
	return rec, nil
}

func (m *fakeMemo) Add(rec MemoRecord) (uint32, error) {
	index := m.next
	m.recs[index] = rec
	m.next++
	return index, nil
}

func encodeField(t *testing.T, d FieldDescriptor, v Value, fc *FieldContext) []byte {
	t.Helper()
	c, err := CodecFor(d)
	require.NoError(t, err)
	out := make([]byte, d.Length)
	require.NoError(t, c.Encode(v, fc, out))
	return out
}

func decodeField(t *testing.T, d FieldDescriptor, b []byte, fc *FieldContext) Value {
	t.Helper()
	c, err := CodecFor(d)
	require.NoError(t, err)
	v, err := c.Decode(b, fc)
	require.NoError(t, err)
	return v
}

func TestCharacterField(t *testing.T) {
	d := FieldDescriptor{Name: "NAME", Type: TypeCharacter, Length: 10}
	out := encodeField(t, d, StringValue("AB"), nil)
	assert.Equal(t, "AB        ", string(out))
	assert.Equal(t, StringValue("AB"), decodeField(t, d, out, nil))

	assert.Equal(t, "          ", string(encodeField(t, d, Null(), nil)))
	assert.True(t, decodeField(t, d, []byte("\x00\x00        "), nil).IsNull())
	blank := encodeField(t, d, StringValue(""), nil)
	assert.Equal(t, "          ", string(blank))
	assert.Equal(t, Null(), decodeField(t, d, blank, nil))

	c, _ := CodecFor(d)
	err := c.Encode(Int32Value(1), nil, make([]byte, 10))
	assert.True(t, ErrUnsupportedValue.Is(err))
	assert.True(t, IsUnsupported(err))
}

func TestCharacterFieldEncodings(t *testing.T) {
	d := FieldDescriptor{Name: "CITY", Type: TypeCharacter, Length: 12}

	fc := &FieldContext{Encoding: CharmapEncoding(charmap.CodePage866)}
	out := encodeField(t, d, StringValue("Москва"), fc)
	assert.Equal(t, byte(0x8C), out[0])
	assert.Equal(t, StringValue("Москва"), decodeField(t, d, out, fc))

	gbk, err := NewEncoding("gbk")
	require.NoError(t, err)
	fc = &FieldContext{Encoding: gbk}
	out = encodeField(t, d, StringValue("上海"), fc)
	assert.Equal(t, "    ", string(out[8:]))
	assert.Equal(t, StringValue("上海"), decodeField(t, d, out, fc))

	_, err = NewEncoding("no-such-charset")
	assert.True(t, ErrUnknownEncoding.Is(err))
	assert.True(t, IsUnsupported(err))

	c, _ := CodecFor(d)
	fc = &FieldContext{Encoding: CharmapEncoding(charmap.CodePage866)}
	err = c.Encode(StringValue("上海"), fc, make([]byte, 12))
	assert.True(t, ErrUnencodableText.Is(err))
}

func TestCodePageEncoding(t *testing.T) {
	d := FieldDescriptor{Name: "S", Type: TypeCharacter, Length: 1}
	fc := &FieldContext{Encoding: CodePageEncoding(0x00)}
	assert.Equal(t, []byte{0xE9}, encodeField(t, d, StringValue("é"), fc))
	fc = &FieldContext{Encoding: CodePageEncoding(0x26)}
	assert.Equal(t, StringValue("Ж"), decodeField(t, d, []byte{0x86}, fc))
}

func TestNumericField(t *testing.T) {
	d := FieldDescriptor{Name: "PRICE", Type: TypeNumeric, Length: 5, Decimals: 2}
	out := encodeField(t, d, DoubleValue(3.5), nil)
	assert.Equal(t, " 3.50", string(out))
	assert.Equal(t, DoubleValue(3.5), decodeField(t, d, out, nil))

	for _, blank := range []string{"     ", "    -", "  .  ", "\x00\x00\x00\x00\x00"} {
		assert.True(t, decodeField(t, d, []byte(blank), nil).IsNull(), "%q", blank)
	}
	assert.Equal(t, "     ", string(encodeField(t, d, Null(), nil)))

	c, _ := CodecFor(d)
	_, err := c.Decode([]byte("  abc"), nil)
	assert.True(t, ErrInvalidField.Is(err))

	err = c.Encode(StringValue("1"), nil, make([]byte, 5))
	assert.True(t, ErrUnsupportedValue.Is(err))
}

func TestNumericFieldFormatting(t *testing.T) {
	d := FieldDescriptor{Name: "QTY", Type: TypeNumeric, Length: 5}
	assert.Equal(t, "   42", string(encodeField(t, d, Int32Value(42), nil)))
	assert.Equal(t, "  -42", string(encodeField(t, d, Int64Value(-42), nil)))

	narrow := FieldDescriptor{Name: "N", Type: TypeNumeric, Length: 4, Decimals: 2}
	assert.Equal(t, " 123", string(encodeField(t, narrow, DoubleValue(123.456), nil)))
	assert.Equal(t, "99.9", string(encodeField(t, narrow, DoubleValue(99.94), nil)))
	assert.Equal(t, " 100", string(encodeField(t, narrow, DoubleValue(99.96), nil)))

	c, _ := CodecFor(d)
	out := []byte("xxxxx")
	err := c.Encode(Int32Value(123456), nil, out)
	assert.True(t, ErrInvalidField.Is(err))
	assert.True(t, decodeField(t, d, []byte("*****"), nil).IsNull())

	f := FieldDescriptor{Name: "RATE", Type: TypeFloat, Length: 8, Decimals: 3}
	assert.Equal(t, "  12.346", string(encodeField(t, f, CurrencyValue(MoneyFromDecimal(decimal.RequireFromString("12.3456"))), nil)))

	fc := &FieldContext{DecimalSeparator: ','}
	out = encodeField(t, f, DoubleValue(-0.5), fc)
	assert.Equal(t, "  -0,500", string(out))
	assert.Equal(t, DoubleValue(-0.5), decodeField(t, f, out, fc))
}

func TestExactNumericField(t *testing.T) {
	d := FieldDescriptor{Name: "AMOUNT", Type: TypeNumeric, Length: 20, Decimals: 2}
	want := decimal.RequireFromString("12345678901234567.12")
	out := encodeField(t, d, DecimalValue(want), nil)
	assert.Equal(t, "12345678901234567.12", string(out))

	c := numericCodec{field: d, exact: true}
	v, err := c.Decode(out, nil)
	require.NoError(t, err)
	got, ok := v.Decimal()
	require.True(t, ok)
	assert.True(t, want.Equal(got), "%s != %s", want, got)

	f, ok := DecimalValue(want).Float()
	assert.True(t, ok)
	assert.InDelta(t, 1.2345678901234567e16, f, 4)

	fc := &FieldContext{DecimalSeparator: ','}
	v, err = c.Decode([]byte("                0,05"), fc)
	require.NoError(t, err)
	assert.True(t, DecimalValue(decimal.RequireFromString("0.05")).Equal(v))
}

func TestLogicalField(t *testing.T) {
	d := FieldDescriptor{Name: "OK", Type: TypeLogical, Length: 1}
	cases := map[byte]Value{
		'T': BoolValue(true), 't': BoolValue(true), 'Y': BoolValue(true), 'y': BoolValue(true), '1': BoolValue(true),
		'F': BoolValue(false), 'f': BoolValue(false), 'N': BoolValue(false), 'n': BoolValue(false), '0': BoolValue(false),
		'?': Null(), ' ': Null(), 0: Null(),
	}
	for b, want := range cases {
		assert.Equal(t, want, decodeField(t, d, []byte{b}, nil), "%q", b)
	}

	c, _ := CodecFor(d)
	_, err := c.Decode([]byte{'X'}, nil)
	assert.True(t, ErrInvalidLogical.Is(err))

	assert.Equal(t, "T", string(encodeField(t, d, BoolValue(true), nil)))
	assert.Equal(t, "F", string(encodeField(t, d, BoolValue(false), nil)))
	assert.Equal(t, "?", string(encodeField(t, d, Null(), nil)))
}

func TestDateField(t *testing.T) {
	d := FieldDescriptor{Name: "WHEN", Type: TypeDate, Length: 8}
	out := encodeField(t, d, DateValue(testDay), nil)
	assert.Equal(t, "20240309", string(out))
	assert.True(t, DateValue(testDay).Equal(decodeField(t, d, out, nil)))

	assert.True(t, decodeField(t, d, []byte("        "), nil).IsNull())
	assert.True(t, decodeField(t, d, []byte("00000000"), nil).IsNull())
	assert.Equal(t, "        ", string(encodeField(t, d, Null(), nil)))

	c, _ := CodecFor(d)
	_, err := c.Decode([]byte("2024-3-9"), nil)
	assert.True(t, ErrInvalidField.Is(err))
}

func TestDateTimeField(t *testing.T) {
	d := FieldDescriptor{Name: "AT", Type: TypeDateTime, Length: 8}
	at := time.Date(2024, time.March, 9, 13, 45, 30, 250_000_000, time.UTC)
	out := encodeField(t, d, DateTimeValue(at), nil)
	assert.Equal(t, uint32(julianDay(2024, 3, 9)), le.Uint32(out[:4]))
	assert.Equal(t, uint32(49530250), le.Uint32(out[4:]))

	got := decodeField(t, d, out, nil)
	tm, ok := got.Time()
	require.True(t, ok)
	assert.True(t, at.Equal(tm))

	assert.True(t, decodeField(t, d, make([]byte, 8), nil).IsNull())
}

func TestJulianDay(t *testing.T) {
	assert.Equal(t, 2440588, julianDay(1970, 1, 1))
	assert.Equal(t, 2415019, julianDay(1899, 12, 30))
	y, m, dd := civilFromJulian(2440588)
	assert.Equal(t, []int{1970, 1, 1}, []int{y, m, dd})
	y, m, dd = civilFromJulian(julianDay(2000, 2, 29))
	assert.Equal(t, []int{2000, 2, 29}, []int{y, m, dd})
}

func TestBinaryFields(t *testing.T) {
	i := FieldDescriptor{Name: "N", Type: TypeInteger, Length: 4}
	out := encodeField(t, i, Int32Value(-7), nil)
	assert.Equal(t, Int32Value(-7), decodeField(t, i, out, nil))
	assert.Equal(t, Int32Value(0), decodeField(t, i, encodeField(t, i, Null(), nil), nil))

	c, _ := CodecFor(i)
	assert.True(t, ErrUnsupportedValue.Is(c.Encode(Int64Value(1<<40), nil, make([]byte, 4))))

	for _, d := range []FieldDescriptor{
		{Name: "O", Type: TypeDouble, Length: 8},
		{Name: "B", Type: TypeBinary, Length: 8},
	} {
		out := encodeField(t, d, DoubleValue(2.25), nil)
		assert.Equal(t, DoubleValue(2.25), decodeField(t, d, out, nil))
	}

	y := FieldDescriptor{Name: "Y", Type: TypeCurrency, Length: 8}
	out = encodeField(t, y, CurrencyValue(123456), nil)
	assert.Equal(t, CurrencyValue(123456), decodeField(t, y, out, nil))
	out = encodeField(t, y, DoubleValue(1.5), nil)
	assert.Equal(t, CurrencyValue(15000), decodeField(t, y, out, nil))

	a := FieldDescriptor{Name: "ID", Type: TypeAutoIncrement, Length: 8}
	out = encodeField(t, a, Int64Value(1<<40), nil)
	assert.Equal(t, Int64Value(1<<40), decodeField(t, a, out, nil))
}

func TestMoney(t *testing.T) {
	m := MoneyFromDecimal(decimal.RequireFromString("12.34567"))
	assert.Equal(t, Money(123457), m)
	assert.Equal(t, "12.3457", m.String())
	assert.True(t, decimal.RequireFromString("12.3457").Equal(m.Decimal()))
}

func TestVariantAndFlagsFields(t *testing.T) {
	v := FieldDescriptor{Name: "V", Type: TypeVariant, Length: 10}
	out := encodeField(t, v, StringValue("hey"), nil)
	assert.Equal(t, byte(3), out[9])
	assert.Equal(t, VariantValue("hey"), decodeField(t, v, out, nil))

	f := FieldDescriptor{Name: "_NullFlags", Type: TypeNullFlags, Length: 2}
	out = encodeField(t, f, FlagsValue("0a01"), nil)
	assert.Equal(t, []byte{0x0A, 0x01}, out)
	assert.Equal(t, FlagsValue("0A01"), decodeField(t, f, out, nil))
}

func TestMemoField(t *testing.T) {
	memo := newFakeMemo()
	fc := &FieldContext{Memo: memo}

	d := FieldDescriptor{Name: "NOTES", Type: TypeMemo, Length: 10}
	out := encodeField(t, d, StringValue("hello"), fc)
	assert.Equal(t, "         1", string(out))
	assert.Equal(t, MemoText, memo.recs[1].Type)
	assert.Equal(t, StringValue("hello"), decodeField(t, d, out, fc))

	out = encodeField(t, d, Null(), fc)
	assert.Equal(t, "          ", string(out))
	assert.True(t, decodeField(t, d, out, fc).IsNull())
	assert.Equal(t, uint32(2), memo.next)

	w := FieldDescriptor{Name: "BLOB", Type: TypeBlob, Length: 4}
	out = encodeField(t, w, BytesValue([]byte{1, 2, 3}), fc)
	assert.Equal(t, uint32(2), le.Uint32(out))
	assert.Equal(t, MemoObject, memo.recs[2].Type)
	assert.Equal(t, BytesValue([]byte{1, 2, 3}), decodeField(t, w, out, fc))

	c, _ := CodecFor(d)
	_, err := c.Decode([]byte("         1"), nil)
	assert.True(t, ErrNoMemoStore.Is(err))
	_, err = c.Decode([]byte("         9"), fc)
	assert.True(t, ErrMemoOutOfRange.Is(err))
	assert.True(t, IsRangeError(err))
}

func TestCodecForRejectsBadDescriptors(t *testing.T) {
	_, err := CodecFor(FieldDescriptor{Name: "I", Type: TypeInteger, Length: 3})
	assert.True(t, ErrInvalidField.Is(err))
	_, err = CodecFor(FieldDescriptor{Name: "Z", Type: 'Z', Length: 1})
	assert.True(t, ErrInvalidField.Is(err))
	_, err = CodecFor(FieldDescriptor{Name: "V", Type: TypeVariant, Length: 1})
	assert.True(t, ErrInvalidField.Is(err))
}
