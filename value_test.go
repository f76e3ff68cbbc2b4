package godbf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueAccessors(t *testing.T) {
	i, ok := Int32Value(5).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(5), i)

	_, ok = StringValue("5").Int64()
	assert.False(t, ok)

	f, ok := CurrencyValue(12500).Float()
	assert.True(t, ok)
	assert.Equal(t, 1.25, f)

	s, ok := FlagsValue("0A").Text()
	assert.True(t, ok)
	assert.Equal(t, "0A", s)

	at := time.Date(2024, 3, 9, 10, 11, 12, 123456789, time.FixedZone("X", 3600))
	tm, ok := DateTimeValue(at).Time()
	require.True(t, ok)
	assert.Equal(t, time.UTC, tm.Location())
	assert.Equal(t, 123000000, tm.Nanosecond())

	tm, _ = DateValue(at).Time()
	assert.Equal(t, testDay, tm)

	assert.True(t, Null().IsNull())
	assert.Nil(t, Null().Interface())
	assert.Equal(t, Value{}, Null())
}

func TestValueEqualAndString(t *testing.T) {
	assert.True(t, BoolValue(false).Equal(BoolValue(false)))
	assert.False(t, Int32Value(1).Equal(Int64Value(1)))
	assert.False(t, StringValue("a").Equal(VariantValue("a")))
	assert.True(t, BytesValue([]byte{1}).Equal(BytesValue([]byte{1})))

	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "2024-03-09", DateValue(testDay).String())
	assert.Equal(t, "3.5", DoubleValue(3.5).String())
	assert.Equal(t, "1.2500", CurrencyValue(12500).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "2 bytes", BytesValue([]byte{1, 2}).String())
}

func TestVersionCatalog(t *testing.T) {
	assert.Equal(t, "FoxBASE+/dBASE III PLUS, with memo", DBaseIIIMemo.String())
	assert.Contains(t, Version(0x99).String(), "0x99")

	family, err := VisualFoxProVar.Family()
	require.NoError(t, err)
	assert.Equal(t, FamilyFoxPro, family)
	assert.Equal(t, 32, family.HeaderSize())

	family, err = DBaseII.Family()
	require.NoError(t, err)
	assert.Equal(t, 16, family.DescriptorSize())

	_, err = Version(0x99).Family()
	assert.True(t, ErrUnsupportedVersion.Is(err))

	assert.Equal(t, MemoDBT4, DBaseIVSQLTableMemo.MemoFormat())
	assert.Equal(t, MemoFPT, FoxPro2Memo.MemoFormat())
	assert.Equal(t, MemoNone, DBaseIII.MemoFormat())
	assert.Equal(t, ".fpt", MemoFPT.Extension())
	assert.Equal(t, ".dbt", MemoDBT4.Extension())
}

func TestFieldDescriptorKinds(t *testing.T) {
	assert.True(t, (&FieldDescriptor{Type: TypeBinary, Length: 10}).IsMemo())
	assert.False(t, (&FieldDescriptor{Type: TypeBinary, Length: 8}).IsMemo())
	assert.True(t, (&FieldDescriptor{Type: TypeAutoIncrement}).IsAutoIncrement())
	assert.False(t, (&FieldDescriptor{Type: TypeInteger, Flags: FieldNullable}).IsAutoIncrement())
}
