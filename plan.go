package godbf

import (
	"reflect"
	"strings"
)

// Status is the deletion flag stored in the first byte of every record.
type Status byte

const (
	StatusActive  Status = SPACE
	StatusDeleted Status = DELETED
)

// Deleted reports whether the record is marked deleted.
func (s Status) Deleted() bool { return s == StatusDeleted }

// Record is implemented by statically declared record types. Slots returns
// one pointer per table field, in field order.
type Record interface {
	Slots() []any
}

type shapeKind int

const (
	shapeRow shapeKind = iota
	shapeRecord
	shapeStruct
)

var (
	rowType    = reflect.TypeOf((*Row)(nil))
	recordType = reflect.TypeOf((*Record)(nil)).Elem()
)

// RecordPlan is a record shape bound to a table schema. Codec and slot
// adapter selection happen once in Bind; reading and writing a record only
// walks the precomputed slices.
type RecordPlan struct {
	fields       []FieldDescriptor
	codecs       []FieldCodec
	adapters     []slotAdapter
	shape        reflect.Type
	kind         shapeKind
	index        []int
	recordLength int
}

// Bind builds the plan for shape over fields. shape is a *Row, a Record or
// a pointer to a struct whose exported fields bind positionally. Struct
// fields tagged `dbf:"-"` are skipped; a `dbf:"NAME"` tag must match the
// field it lands on.
func Bind(fields []FieldDescriptor, shape any) (*RecordPlan, error) {
	p := &RecordPlan{
		fields:       append([]FieldDescriptor(nil), fields...),
		codecs:       make([]FieldCodec, len(fields)),
		shape:        reflect.TypeOf(shape),
		recordLength: 1,
	}
	for i, d := range fields {
		c, err := CodecFor(d)
		if err != nil {
			return nil, err
		}
		p.codecs[i] = c
		if end := int(d.Offset) + int(d.Length); end > p.recordLength {
			p.recordLength = end
		}
	}

	var slots []reflect.Type
	switch {
	case p.shape == nil:
		return nil, ErrUnsupportedShape.New("<nil>")
	case p.shape == rowType:
		p.kind = shapeRow
		return p, nil
	case p.shape.Implements(recordType):
		p.kind = shapeRecord
		for _, s := range shape.(Record).Slots() {
			slots = append(slots, reflect.TypeOf(s))
		}
	case p.shape.Kind() == reflect.Ptr && p.shape.Elem().Kind() == reflect.Struct:
		p.kind = shapeStruct
		st := p.shape.Elem()
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			tag := f.Tag.Get("dbf")
			if !f.IsExported() || tag == "-" {
				continue
			}
			if n := len(p.index); tag != "" && n < len(fields) && !strings.EqualFold(tag, fields[n].Name) {
				return nil, ErrSlotName.New(n, tag, n, fields[n].Name)
			}
			p.index = append(p.index, i)
			slots = append(slots, reflect.PointerTo(f.Type))
		}
	default:
		return nil, ErrUnsupportedShape.New(p.shape)
	}

	if len(slots) != len(fields) {
		return nil, ErrArity.New(p.shape, len(slots), len(fields))
	}
	p.adapters = make([]slotAdapter, len(slots))
	for i, st := range slots {
		a, ok := adapterFor(st, fields[i])
		if !ok {
			return nil, ErrUnsupportedSlot.New(i, st, fields[i].Type, fields[i].Name)
		}
		p.adapters[i] = a
		// Decimal slots read N and F digits without a float64 round trip.
		if st == decimalSlot && (fields[i].Type == TypeNumeric || fields[i].Type == TypeFloat) {
			p.codecs[i] = numericCodec{field: fields[i], exact: true}
		}
	}
	return p, nil
}

// Fields returns the schema the plan was bound to.
func (p *RecordPlan) Fields() []FieldDescriptor { return p.fields }

func (p *RecordPlan) field(b []byte, i int) []byte {
	d := p.fields[i]
	return b[d.Offset : d.Offset+uint32(d.Length)]
}

func (p *RecordPlan) check(b []byte, v any) error {
	if len(b) < p.recordLength {
		return ErrShortRecord.New(len(b), p.recordLength)
	}
	if t := reflect.TypeOf(v); t != p.shape {
		return ErrUnsupportedShape.New(t)
	}
	return nil
}

func (p *RecordPlan) slots(v any) ([]any, error) {
	if p.kind == shapeRecord {
		s := v.(Record).Slots()
		if len(s) != len(p.fields) {
			return nil, ErrArity.New(p.shape, len(s), len(p.fields))
		}
		return s, nil
	}
	rv := reflect.ValueOf(v).Elem()
	s := make([]any, len(p.index))
	for i, fi := range p.index {
		s[i] = rv.Field(fi).Addr().Interface()
	}
	return s, nil
}

// Read decodes the record in b into dst and returns its status.
func (p *RecordPlan) Read(b []byte, fc *FieldContext, dst any) (Status, error) {
	if err := p.check(b, dst); err != nil {
		return 0, err
	}
	status := Status(b[0])

	if p.kind == shapeRow {
		row := dst.(*Row)
		if cap(*row) < len(p.codecs) {
			*row = make(Row, len(p.codecs))
		}
		*row = (*row)[:len(p.codecs)]
		for i, c := range p.codecs {
			v, err := c.Decode(p.field(b, i), fc)
			if err != nil {
				return status, err
			}
			(*row)[i] = v
		}
		return status, nil
	}

	slots, err := p.slots(dst)
	if err != nil {
		return status, err
	}
	for i, c := range p.codecs {
		v, err := c.Decode(p.field(b, i), fc)
		if err != nil {
			return status, err
		}
		if err := p.adapters[i].store(slots[i], v); err != nil {
			return status, err
		}
	}
	return status, nil
}

// Values extracts the field values held by src.
func (p *RecordPlan) Values(src any) (Row, error) {
	if t := reflect.TypeOf(src); t != p.shape {
		return nil, ErrUnsupportedShape.New(t)
	}
	if p.kind == shapeRow {
		row := *src.(*Row)
		if len(row) != len(p.fields) {
			return nil, ErrArity.New(p.shape, len(row), len(p.fields))
		}
		return append(Row(nil), row...), nil
	}
	slots, err := p.slots(src)
	if err != nil {
		return nil, err
	}
	row := make(Row, len(slots))
	for i, s := range slots {
		row[i] = p.adapters[i].load(s)
	}
	return row, nil
}

// setValue stores v into slot i of dst.
func (p *RecordPlan) setValue(dst any, i int, v Value) error {
	if p.kind == shapeRow {
		row := *dst.(*Row)
		if i < len(row) {
			row[i] = v
		}
		return nil
	}
	slots, err := p.slots(dst)
	if err != nil {
		return err
	}
	return p.adapters[i].store(slots[i], v)
}

// WriteValues encodes vals into b, which must hold a whole record.
func (p *RecordPlan) WriteValues(b []byte, vals Row, status Status, fc *FieldContext) error {
	if len(b) < p.recordLength {
		return ErrShortRecord.New(len(b), p.recordLength)
	}
	if len(vals) != len(p.fields) {
		return ErrArity.New(p.shape, len(vals), len(p.fields))
	}
	b[0] = byte(status)
	for i, c := range p.codecs {
		if err := c.Encode(vals[i], fc, p.field(b, i)); err != nil {
			return err
		}
	}
	return nil
}

// Write encodes src into b.
func (p *RecordPlan) Write(b []byte, src any, status Status, fc *FieldContext) error {
	vals, err := p.Values(src)
	if err != nil {
		return err
	}
	return p.WriteValues(b, vals, status, fc)
}
