package godbf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	SPACE      = 0x20
	EOF        = 0x1A
	NUL        = 0x00
	TERMINATOR = 0x0D
	DELETED    = 0x2A
)

// NewHeader builds the header of a new table. It fills in default lengths
// for fixed width types, validates the descriptors and computes offsets.
// The returned descriptors are a copy of fields.
func NewHeader(version Version, fields []FieldDescriptor, lastUpdate time.Time) (*Header, []FieldDescriptor, error) {
	family, err := version.Family()
	if err != nil {
		return nil, nil, err
	}
	if len(fields) == 0 {
		return nil, nil, ErrInvalidHeader.New("a table needs at least one field")
	}
	out := make([]FieldDescriptor, len(fields))
	copy(out, fields)
	hasMemo := false
	for i := range out {
		if err := normalizeDescriptor(&out[i], family); err != nil {
			return nil, nil, err
		}
		if out[i].IsMemo() {
			hasMemo = true
		}
	}
	h := &Header{Version: version, LastUpdate: truncateDay(lastUpdate)}
	if hasMemo {
		switch family {
		case FamilyLegacy:
			return nil, nil, ErrLegacyLimit.New("memo fields")
		case FamilyFoxPro:
			h.Flags |= FlagMemo
		default:
			h.Version = version.withMemo()
			if h.Version.MemoFormat() == MemoNone {
				return nil, nil, ErrInvalidHeader.New(fmt.Sprintf("%s cannot carry memo fields", version))
			}
		}
	}
	if family == FamilyLegacy && len(out) > legacyMaxFields {
		return nil, nil, ErrLegacyLimit.New(fmt.Sprintf("more than %d fields", legacyMaxFields))
	}
	recordLength := computeOffsets(out)
	if recordLength > 0xFFFF {
		return nil, nil, ErrInvalidHeader.New(fmt.Sprintf("record length %d exceeds 65535", recordLength))
	}
	h.RecordLength = uint16(recordLength)
	h.HeaderLength = uint16(headerLength(family, len(out)))
	if family == FamilyFoxPro {
		h.Backlink = make([]byte, backlinkSize)
	}
	return h, out, nil
}

func normalizeDescriptor(d *FieldDescriptor, family Family) error {
	if d.Name == "" || len(d.Name) > fieldNameSize {
		return ErrInvalidField.New(d.Name, "names must be 1 to 10 bytes")
	}
	if !d.Type.valid() {
		return ErrInvalidField.New(d.Name, fmt.Sprintf("unknown type %q", byte(d.Type)))
	}
	fixed := map[FieldType]uint8{
		TypeInteger: 4, TypeDouble: 8, TypeCurrency: 8, TypeDate: 8,
		TypeDateTime: 8, TypeTimestamp: 8, TypeLogical: 1,
	}
	if n, ok := fixed[d.Type]; ok {
		if d.Length == 0 {
			d.Length = n
		}
		if d.Length != n {
			return ErrInvalidField.New(d.Name, fmt.Sprintf("type %s must be %d bytes", d.Type, n))
		}
	}
	switch d.Type {
	case TypeAutoIncrement:
		if d.Length == 0 {
			d.Length = 4
		}
		if d.Length != 4 && d.Length != 8 {
			return ErrInvalidField.New(d.Name, "auto-increment fields are 4 or 8 bytes")
		}
	case TypeMemo, TypeBlob, TypeOLE, TypePicture, TypeBinary:
		if d.Length == 0 {
			if family == FamilyFoxPro {
				d.Length = 4
			} else {
				d.Length = 10
			}
		}
	}
	if d.Length == 0 {
		return ErrInvalidField.New(d.Name, "length must be at least 1")
	}
	if d.Length > maxFieldLength {
		return ErrInvalidField.New(d.Name, fmt.Sprintf("length %d exceeds %d", d.Length, maxFieldLength))
	}
	if d.IsAutoIncrement() {
		if d.AutoIncrementNext == 0 {
			d.AutoIncrementNext = 1
		}
		if d.AutoIncrementStep == 0 {
			d.AutoIncrementStep = 1
		}
	}
	return nil
}

// computeOffsets assigns running offsets starting after the status byte and
// returns the record length.
func computeOffsets(fields []FieldDescriptor) uint32 {
	offset := uint32(1)
	for i := range fields {
		fields[i].Offset = offset
		offset += uint32(fields[i].Length)
	}
	return offset
}

func headerLength(family Family, fieldCount int) int {
	n := family.HeaderSize() + fieldCount*family.DescriptorSize() + 1
	if family == FamilyFoxPro {
		n += backlinkSize
	}
	return n
}

// ReadHeader parses the table header and field descriptors at the start
// of r.
func ReadHeader(r io.ReadSeeker) (*Header, []FieldDescriptor, error) {
	return readHeader(r, defaultLogger())
}

func readHeader(r io.ReadSeeker, log logrus.FieldLogger) (*Header, []FieldDescriptor, error) {
	var tag [1]byte
	if _, err := readAt(r, 0, tag[:]); err != nil {
		return nil, nil, err
	}
	version := Version(tag[0])
	family, err := version.Family()
	if err != nil {
		return nil, nil, err
	}
	if family == FamilyLegacy {
		return readLegacyHeader(r, log)
	}
	return readClassicHeader(r, version, family, log)
}

func readClassicHeader(r io.ReadSeeker, version Version, family Family, log logrus.FieldLogger) (*Header, []FieldDescriptor, error) {
	buf := make([]byte, headerSize)
	if _, err := readAt(r, 0, buf); err != nil {
		return nil, nil, err
	}
	h := &Header{
		Version:        version,
		RecordCount:    headerLayout.get(buf, "recordCount"),
		HeaderLength:   uint16(headerLayout.get(buf, "headerLength")),
		RecordLength:   uint16(headerLayout.get(buf, "recordLength")),
		Flags:          TableFlags(headerLayout.get(buf, "flags")),
		LanguageDriver: byte(headerLayout.get(buf, "languageDriver")),
	}
	h.LastUpdate = decodeUpdateDate(1900+int(headerLayout.get(buf, "year")),
		int(headerLayout.get(buf, "month")), int(headerLayout.get(buf, "day")), log)

	minLength := headerLength(family, 0)
	if int(h.HeaderLength) < minLength {
		return nil, nil, ErrInvalidHeader.New(fmt.Sprintf("header length %d is shorter than %d", h.HeaderLength, minLength))
	}
	count := (int(h.HeaderLength) - minLength) / descriptorSize
	raw := make([]byte, count*descriptorSize+1)
	if _, err := readAt(r, headerSize, raw); err != nil {
		return nil, nil, err
	}
	if raw[len(raw)-1] != TERMINATOR {
		return nil, nil, ErrMissingTerminator.New(count)
	}

	fields := make([]FieldDescriptor, count)
	for i := range fields {
		d := raw[i*descriptorSize : (i+1)*descriptorSize]
		fields[i] = FieldDescriptor{
			Name:              fieldName(d),
			Type:              FieldType(descriptorLayout.get(d, "type")),
			Length:            uint8(descriptorLayout.get(d, "length")),
			Decimals:          uint8(descriptorLayout.get(d, "decimals")),
			Flags:             FieldFlags(descriptorLayout.get(d, "flags")),
			AutoIncrementNext: descriptorLayout.get(d, "autoIncrementNext"),
			AutoIncrementStep: uint8(descriptorLayout.get(d, "autoIncrementStep")),
		}
		if !fields[i].Type.valid() {
			return nil, nil, ErrInvalidField.New(fields[i].Name, fmt.Sprintf("unknown type %q", d[11]))
		}
	}
	if recordLength := computeOffsets(fields); recordLength != uint32(h.RecordLength) {
		return nil, nil, ErrInvalidHeader.New(fmt.Sprintf("record length %d does not match field lengths %d", h.RecordLength, recordLength))
	}

	if family == FamilyFoxPro {
		h.Backlink = make([]byte, backlinkSize)
		if _, err := readAt(r, int64(h.HeaderLength)-backlinkSize, h.Backlink); err != nil {
			return nil, nil, err
		}
	}
	return h, fields, nil
}

// readLegacyHeader parses the dBASE II layout. The descriptor array has no
// length prefix; it is scanned until the 0x0D sentinel, a corrupt name or
// the 32 field limit.
func readLegacyHeader(r io.ReadSeeker, log logrus.FieldLogger) (*Header, []FieldDescriptor, error) {
	buf := make([]byte, legacyHeaderSize)
	if _, err := readAt(r, 0, buf); err != nil {
		return nil, nil, err
	}
	h := &Header{
		Version:      DBaseII,
		RecordCount:  legacyHeaderLayout.get(buf, "recordCount"),
		RecordLength: uint16(legacyHeaderLayout.get(buf, "recordLength")),
	}
	h.LastUpdate = decodeUpdateDate(1900+int(legacyHeaderLayout.get(buf, "year")),
		int(legacyHeaderLayout.get(buf, "month")), int(legacyHeaderLayout.get(buf, "day")), log)

	var fields []FieldDescriptor
	sentinel := false
	d := make([]byte, legacyDescriptorSize)
	for i := 0; i < legacyMaxFields; i++ {
		n, err := readAt(r, int64(legacyHeaderSize+i*legacyDescriptorSize), d)
		if n > 0 && d[0] == TERMINATOR {
			sentinel = true
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, nil, err
		}
		t := FieldType(legacyDescriptorLayout.get(d, "type"))
		if d[0] < SPACE || !t.valid() {
			log.WithField("descriptor", i).Warn("dbf: corrupt dBASE II descriptor, truncating field list")
			sentinel = true
			break
		}
		fields = append(fields, FieldDescriptor{
			Name:     fieldName(d),
			Type:     t,
			Length:   uint8(legacyDescriptorLayout.get(d, "length")),
			Decimals: uint8(legacyDescriptorLayout.get(d, "decimals")),
			Offset:   legacyDescriptorLayout.get(d, "offset"),
		})
	}
	if !sentinel {
		log.WithField("fields", len(fields)).Warn("dbf: dBASE II descriptor array has no terminator, assuming all fields are valid")
	}
	if len(fields) == 0 {
		return nil, nil, ErrInvalidHeader.New("dBASE II table without fields")
	}

	// Offsets are explicit on disk; fall back to the running sum when the
	// producer left them zero.
	offset := uint32(1)
	for i := range fields {
		if fields[i].Offset == 0 {
			fields[i].Offset = offset
		}
		offset = fields[i].Offset + uint32(fields[i].Length)
		if h.RecordLength != 0 && offset > uint32(h.RecordLength) {
			return nil, nil, ErrInvalidHeader.New(fmt.Sprintf("field %q ends at %d past record length %d", fields[i].Name, offset, h.RecordLength))
		}
	}
	if h.RecordLength == 0 {
		h.RecordLength = uint16(offset)
	}
	h.HeaderLength = uint16(headerLength(FamilyLegacy, len(fields)))
	return h, fields, nil
}

func fieldName(d []byte) string {
	name := d[:fieldNameSize+1]
	if i := bytes.IndexByte(name, NUL); i >= 0 {
		name = name[:i]
	}
	return string(bytes.TrimSpace(name))
}

// decodeUpdateDate clamps month and day into calendar range.
func decodeUpdateDate(year, month, day int, log logrus.FieldLogger) time.Time {
	m, d := month, day
	if m < 1 {
		m = 1
	} else if m > 12 {
		m = 12
	}
	last := time.Date(year, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d < 1 {
		d = 1
	} else if d > last {
		d = last
	}
	if m != month || d != day {
		log.WithFields(logrus.Fields{"month": month, "day": day}).Warn("dbf: clamped invalid last update date")
	}
	return time.Date(year, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func encodeUpdateYear(t time.Time) uint32 {
	y := t.Year() - 1900
	if y < 0 {
		y = 0
	} else if y > 0xFF {
		y = 0xFF
	}
	return uint32(y)
}

// WriteHeader writes the header and descriptors of h at the start of w.
func WriteHeader(w io.WriteSeeker, h *Header, fields []FieldDescriptor) error {
	buf, err := encodeHeader(h, fields)
	if err != nil {
		return err
	}
	return writeAt(w, 0, buf)
}

func encodeHeader(h *Header, fields []FieldDescriptor) ([]byte, error) {
	family, err := h.Version.Family()
	if err != nil {
		return nil, err
	}
	if want := headerLength(family, len(fields)); int(h.HeaderLength) != want {
		return nil, ErrInvalidHeader.New(fmt.Sprintf("header length %d, want %d for %d fields", h.HeaderLength, want, len(fields)))
	}
	if family == FamilyLegacy {
		return encodeLegacyHeader(h, fields)
	}

	buf := make([]byte, int(h.HeaderLength))
	headerLayout.put(buf, "version", uint32(h.Version))
	headerLayout.put(buf, "year", encodeUpdateYear(h.LastUpdate))
	headerLayout.put(buf, "month", uint32(h.LastUpdate.Month()))
	headerLayout.put(buf, "day", uint32(h.LastUpdate.Day()))
	headerLayout.put(buf, "recordCount", h.RecordCount)
	headerLayout.put(buf, "headerLength", uint32(h.HeaderLength))
	headerLayout.put(buf, "recordLength", uint32(h.RecordLength))
	headerLayout.put(buf, "flags", uint32(h.Flags))
	headerLayout.put(buf, "languageDriver", uint32(h.LanguageDriver))

	offset := uint32(1)
	for i := range fields {
		f := &fields[i]
		d := buf[headerSize+i*descriptorSize : headerSize+(i+1)*descriptorSize]
		copy(d[:fieldNameSize], f.Name)
		descriptorLayout.put(d, "type", uint32(f.Type))
		if family == FamilyFoxPro {
			descriptorLayout.put(d, "offset", offset)
		}
		descriptorLayout.put(d, "length", uint32(f.Length))
		descriptorLayout.put(d, "decimals", uint32(f.Decimals))
		descriptorLayout.put(d, "flags", uint32(f.Flags))
		if f.IsAutoIncrement() {
			descriptorLayout.put(d, "autoIncrementNext", f.AutoIncrementNext)
			descriptorLayout.put(d, "autoIncrementStep", uint32(f.AutoIncrementStep))
		}
		offset += uint32(f.Length)
	}
	if offset != uint32(h.RecordLength) {
		return nil, ErrInvalidHeader.New(fmt.Sprintf("record length %d does not match field lengths %d", h.RecordLength, offset))
	}
	end := headerSize + len(fields)*descriptorSize
	buf[end] = TERMINATOR
	if family == FamilyFoxPro {
		copy(buf[end+1:], h.Backlink)
	}
	return buf, nil
}

func encodeLegacyHeader(h *Header, fields []FieldDescriptor) ([]byte, error) {
	if h.RecordCount > 0xFFFF {
		return nil, ErrLegacyLimit.New("more than 65535 records")
	}
	if len(fields) > legacyMaxFields {
		return nil, ErrLegacyLimit.New(fmt.Sprintf("more than %d fields", legacyMaxFields))
	}
	buf := make([]byte, int(h.HeaderLength))
	legacyHeaderLayout.put(buf, "version", uint32(DBaseII))
	legacyHeaderLayout.put(buf, "recordCount", h.RecordCount)
	legacyHeaderLayout.put(buf, "month", uint32(h.LastUpdate.Month()))
	legacyHeaderLayout.put(buf, "day", uint32(h.LastUpdate.Day()))
	legacyHeaderLayout.put(buf, "year", encodeUpdateYear(h.LastUpdate))
	legacyHeaderLayout.put(buf, "recordLength", uint32(h.RecordLength))
	for i := range fields {
		f := &fields[i]
		d := buf[legacyHeaderSize+i*legacyDescriptorSize : legacyHeaderSize+(i+1)*legacyDescriptorSize]
		copy(d[:fieldNameSize], f.Name)
		legacyDescriptorLayout.put(d, "type", uint32(f.Type))
		legacyDescriptorLayout.put(d, "length", uint32(f.Length))
		legacyDescriptorLayout.put(d, "offset", f.Offset)
		legacyDescriptorLayout.put(d, "decimals", uint32(f.Decimals))
	}
	buf[legacyHeaderSize+len(fields)*legacyDescriptorSize] = TERMINATOR
	return buf, nil
}
