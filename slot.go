package godbf

import (
	"math"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// fieldClass groups field types by the Go values they can hold.
type fieldClass int

const (
	classText fieldClass = iota
	classFlags
	classMemoText
	classMemoBinary
	classInteger
	classReal
	classMoney
	classLogical
	classDate
	classDateTime
)

func classOf(d FieldDescriptor) fieldClass {
	switch d.Type {
	case TypeCharacter, TypeVariant:
		return classText
	case TypeNullFlags:
		return classFlags
	case TypeMemo:
		return classMemoText
	case TypeBinary:
		if d.Length == 8 {
			return classReal
		}
		return classMemoBinary
	case TypeBlob, TypeOLE, TypePicture:
		return classMemoBinary
	case TypeInteger, TypeAutoIncrement:
		return classInteger
	case TypeCurrency:
		return classMoney
	case TypeLogical:
		return classLogical
	case TypeDate:
		return classDate
	case TypeDateTime, TypeTimestamp:
		return classDateTime
	}
	return classReal
}

// slotAdapter moves one Go slot to and from a Value. p is always a pointer
// of the type the adapter was selected for.
type slotAdapter struct {
	load  func(p any) Value
	store func(p any, v Value) error
}

var (
	valueSlot   = reflect.TypeOf((*Value)(nil))
	stringSlot  = reflect.TypeOf((*string)(nil))
	bytesSlot   = reflect.TypeOf((*[]byte)(nil))
	intSlot     = reflect.TypeOf((*int)(nil))
	int32Slot   = reflect.TypeOf((*int32)(nil))
	int64Slot   = reflect.TypeOf((*int64)(nil))
	float32Slot = reflect.TypeOf((*float32)(nil))
	float64Slot = reflect.TypeOf((*float64)(nil))
	decimalSlot = reflect.TypeOf((*decimal.Decimal)(nil))
	moneySlot   = reflect.TypeOf((*Money)(nil))
	boolSlot    = reflect.TypeOf((*bool)(nil))
	boolPtrSlot = reflect.TypeOf((**bool)(nil))
	timeSlot    = reflect.TypeOf((*time.Time)(nil))
)

func classIn(c fieldClass, set ...fieldClass) bool {
	for _, s := range set {
		if c == s {
			return true
		}
	}
	return false
}

// adapterFor selects the adapter binding slot to a field of descriptor d.
// The choice depends only on the slot type and the field class.
func adapterFor(slot reflect.Type, d FieldDescriptor) (slotAdapter, bool) {
	class := classOf(d)
	numeric := classIn(class, classInteger, classReal, classMoney)
	textNumeric := d.Type == TypeNumeric || d.Type == TypeFloat
	switch slot {
	case valueSlot:
		return slotAdapter{
			load:  func(p any) Value { return *p.(*Value) },
			store: func(p any, v Value) error { *p.(*Value) = v; return nil },
		}, true
	case stringSlot:
		if !classIn(class, classText, classFlags, classMemoText, classMemoBinary) {
			return slotAdapter{}, false
		}
		return slotAdapter{
			load:  func(p any) Value { return StringValue(*p.(*string)) },
			store: func(p any, v Value) error { *p.(*string) = textOf(v); return nil },
		}, true
	case bytesSlot:
		if !classIn(class, classText, classMemoText, classMemoBinary) {
			return slotAdapter{}, false
		}
		load := func(p any) Value { return BytesValue(*p.(*[]byte)) }
		if class == classText {
			load = func(p any) Value { return StringValue(string(*p.(*[]byte))) }
		}
		return slotAdapter{
			load: load,
			store: func(p any, v Value) error {
				if b, ok := v.Bytes(); ok {
					*p.(*[]byte) = b
				} else if s, ok := v.Text(); ok {
					*p.(*[]byte) = []byte(s)
				} else {
					*p.(*[]byte) = nil
				}
				return nil
			},
		}, true
	case intSlot, int32Slot, int64Slot:
		if !numeric {
			return slotAdapter{}, false
		}
		return intAdapter(slot), true
	case float32Slot, float64Slot:
		if !numeric {
			return slotAdapter{}, false
		}
		return floatAdapter(slot, class), true
	case decimalSlot:
		if !numeric {
			return slotAdapter{}, false
		}
		return slotAdapter{
			load: func(p any) Value {
				d := *p.(*decimal.Decimal)
				switch class {
				case classMoney:
					return CurrencyValue(MoneyFromDecimal(d))
				case classInteger:
					return Int64Value(d.IntPart())
				}
				if textNumeric {
					return DecimalValue(d)
				}
				return DoubleValue(d.InexactFloat64())
			},
			store: func(p any, v Value) error {
				*p.(*decimal.Decimal) = decimalOf(v)
				return nil
			},
		}, true
	case moneySlot:
		if !classIn(class, classMoney, classReal) {
			return slotAdapter{}, false
		}
		return slotAdapter{
			load: func(p any) Value { return CurrencyValue(*p.(*Money)) },
			store: func(p any, v Value) error {
				if m, ok := v.Currency(); ok {
					*p.(*Money) = m
				} else {
					*p.(*Money) = MoneyFromDecimal(decimalOf(v))
				}
				return nil
			},
		}, true
	case boolSlot:
		if class != classLogical {
			return slotAdapter{}, false
		}
		return slotAdapter{
			load: func(p any) Value { return BoolValue(*p.(*bool)) },
			store: func(p any, v Value) error {
				b, _ := v.Bool()
				*p.(*bool) = b
				return nil
			},
		}, true
	case boolPtrSlot:
		if class != classLogical {
			return slotAdapter{}, false
		}
		return slotAdapter{
			load: func(p any) Value {
				if b := *p.(**bool); b != nil {
					return BoolValue(*b)
				}
				return Null()
			},
			store: func(p any, v Value) error {
				if b, ok := v.Bool(); ok {
					*p.(**bool) = &b
				} else {
					*p.(**bool) = nil
				}
				return nil
			},
		}, true
	case timeSlot:
		if !classIn(class, classDate, classDateTime) {
			return slotAdapter{}, false
		}
		return slotAdapter{
			load: func(p any) Value {
				t := *p.(*time.Time)
				switch {
				case t.IsZero():
					return Null()
				case class == classDate:
					return DateValue(t)
				}
				return DateTimeValue(t)
			},
			store: func(p any, v Value) error {
				t, _ := v.Time()
				*p.(*time.Time) = t
				return nil
			},
		}, true
	}
	return slotAdapter{}, false
}

func intAdapter(slot reflect.Type) slotAdapter {
	store := func(v Value) int64 {
		if i, ok := v.Int64(); ok {
			return i
		}
		if m, ok := v.Currency(); ok {
			return m.Decimal().IntPart()
		}
		f, _ := v.Float()
		return int64(math.Round(f))
	}
	switch slot {
	case intSlot:
		return slotAdapter{
			load:  func(p any) Value { return Int64Value(int64(*p.(*int))) },
			store: func(p any, v Value) error { *p.(*int) = int(store(v)); return nil },
		}
	case int32Slot:
		return slotAdapter{
			load:  func(p any) Value { return Int32Value(*p.(*int32)) },
			store: func(p any, v Value) error { *p.(*int32) = int32(store(v)); return nil },
		}
	}
	return slotAdapter{
		load:  func(p any) Value { return Int64Value(*p.(*int64)) },
		store: func(p any, v Value) error { *p.(*int64) = store(v); return nil },
	}
}

func floatAdapter(slot reflect.Type, class fieldClass) slotAdapter {
	// Binary integer fields only accept integer values.
	value := func(f float64) Value {
		if class == classInteger {
			return Int64Value(int64(math.Round(f)))
		}
		return DoubleValue(f)
	}
	if slot == float32Slot {
		return slotAdapter{
			load: func(p any) Value { return value(float64(*p.(*float32))) },
			store: func(p any, v Value) error {
				f, _ := v.Float()
				*p.(*float32) = float32(f)
				return nil
			},
		}
	}
	return slotAdapter{
		load: func(p any) Value { return value(*p.(*float64)) },
		store: func(p any, v Value) error {
			f, _ := v.Float()
			*p.(*float64) = f
			return nil
		},
	}
}

func textOf(v Value) string {
	if s, ok := v.Text(); ok {
		return s
	}
	if b, ok := v.Bytes(); ok {
		return string(b)
	}
	return ""
}

func decimalOf(v Value) decimal.Decimal {
	switch v.Kind() {
	case KindCurrency:
		m, _ := v.Currency()
		return m.Decimal()
	case KindDecimal:
		d, _ := v.Decimal()
		return d
	case KindInt32, KindInt64:
		i, _ := v.Int64()
		return decimal.NewFromInt(i)
	case KindDouble:
		f, _ := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(f)
	}
	return decimal.Zero
}
