package godbf

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "20060102"

// dateCodec stores YYYYMMDD.
type dateCodec struct{ field FieldDescriptor }

func (c dateCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	s := strings.Trim(string(b), " \x00")
	if s == "" || s == "00000000" {
		return Null(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Value{}, ErrInvalidField.New(c.field.Name, fmt.Sprintf("invalid date %q", s))
	}
	return DateValue(t), nil
}

func (c dateCodec) Encode(v Value, _ *FieldContext, out []byte) error {
	if v.IsNull() {
		fill(out, SPACE)
		return nil
	}
	t, ok := v.Time()
	if !ok {
		return unsupported(v, c.field)
	}
	if y := t.Year(); y < 0 || y > 9999 {
		return unsupported(v, c.field)
	}
	copy(out, t.Format(dateLayout))
	return nil
}

// dateTimeCodec stores a Julian Day Number and the milliseconds since
// midnight, both little endian int32. JD 2415018.5 is 1899-12-30 00:00.
type dateTimeCodec struct{ field FieldDescriptor }

func (c dateTimeCodec) Decode(b []byte, _ *FieldContext) (Value, error) {
	day := int32(le.Uint32(b[0:4]))
	if day == 0 {
		return Null(), nil
	}
	ms := int32(le.Uint32(b[4:8]))
	y, m, d := civilFromJulian(int(day))
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond)
	return DateTimeValue(t), nil
}

func (c dateTimeCodec) Encode(v Value, _ *FieldContext, out []byte) error {
	if v.IsNull() {
		fill(out, NUL)
		return nil
	}
	t, ok := v.Time()
	if !ok {
		return unsupported(v, c.field)
	}
	t = t.UTC()
	y, m, d := t.Date()
	day := julianDay(y, int(m), d)
	ms := ((t.Hour()*60+t.Minute())*60+t.Second())*1000 + t.Nanosecond()/int(time.Millisecond)
	le.PutUint32(out[0:4], uint32(int32(day)))
	le.PutUint32(out[4:8], uint32(int32(ms)))
	return nil
}

// julianDay converts a proleptic Gregorian date to its Julian Day Number.
func julianDay(y, m, d int) int {
	a := (14 - m) / 12
	yy := y + 4800 - a
	mm := m + 12*a - 3
	return d + (153*mm+2)/5 + 365*yy + yy/4 - yy/100 + yy/400 - 32045
}

func civilFromJulian(j int) (y, m, d int) {
	a := j + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	dd := (4*c + 3) / 1461
	e := c - 1461*dd/4
	mm := (5*e + 2) / 153
	d = e - (153*mm+2)/5 + 1
	m = mm + 3 - 12*(mm/10)
	y = 100*b + dd - 4800 + mm/10
	return y, m, d
}
