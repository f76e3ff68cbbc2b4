package godbf

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Version is the table format tag stored in the first byte of a DBF file.
type Version byte

const (
	DBaseII             Version = 0x02
	DBaseIII            Version = 0x03
	DBaseV              Version = 0x05
	VisualFoxPro        Version = 0x30
	VisualFoxProAutoInc Version = 0x31
	VisualFoxProVar     Version = 0x32
	DBaseIVSQLTable     Version = 0x43
	DBaseIVSQLSystem    Version = 0x63
	DBaseIIIMemo        Version = 0x83
	DBaseIVMemo         Version = 0x8B
	DBaseIVSQLTableMemo Version = 0xCB
	FoxPro2Memo         Version = 0xF5
	FoxBASE             Version = 0xFB
)

var versionNames = map[Version]string{
	DBaseII:             "dBASE II",
	DBaseIII:            "FoxBASE+/dBASE III PLUS, no memo",
	DBaseV:              "dBASE V, no memo",
	VisualFoxPro:        "Visual FoxPro",
	VisualFoxProAutoInc: "Visual FoxPro, autoincrement enabled",
	VisualFoxProVar:     "Visual FoxPro, varchar/varbinary",
	DBaseIVSQLTable:     "dBASE IV SQL table files, no memo",
	DBaseIVSQLSystem:    "dBASE IV SQL system files, no memo",
	DBaseIIIMemo:        "FoxBASE+/dBASE III PLUS, with memo",
	DBaseIVMemo:         "dBASE IV with memo",
	DBaseIVSQLTableMemo: "dBASE IV SQL table files, with memo",
	FoxPro2Memo:         "FoxPro 2.x (or earlier) with memo",
	FoxBASE:             "FoxBASE",
}

func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown version 0x%02X", byte(v))
}

// Family is the on-disk header layout a version uses.
type Family int

const (
	FamilyLegacy Family = iota
	FamilyClassic
	FamilyFoxPro
)

func (f Family) String() string {
	switch f {
	case FamilyLegacy:
		return "legacy"
	case FamilyClassic:
		return "classic"
	case FamilyFoxPro:
		return "foxpro"
	}
	return "unknown"
}

// Family returns the layout family of v, or ErrUnsupportedVersion.
func (v Version) Family() (Family, error) {
	switch v {
	case DBaseII:
		return FamilyLegacy, nil
	case VisualFoxPro, VisualFoxProAutoInc, VisualFoxProVar:
		return FamilyFoxPro, nil
	}
	if _, ok := versionNames[v]; ok {
		return FamilyClassic, nil
	}
	return 0, ErrUnsupportedVersion.New(byte(v))
}

// MemoFormat returns the memo encoding paired with v, MemoNone when the
// version has no memo file.
func (v Version) MemoFormat() MemoFormat {
	switch v {
	case DBaseIIIMemo:
		return MemoDBT3
	case DBaseIVMemo, DBaseIVSQLTableMemo:
		return MemoDBT4
	case FoxPro2Memo, VisualFoxPro, VisualFoxProAutoInc, VisualFoxProVar:
		return MemoFPT
	}
	return MemoNone
}

// withMemo maps a memo-less version to its memo-carrying sibling.
func (v Version) withMemo() Version {
	switch v {
	case DBaseIII:
		return DBaseIIIMemo
	case DBaseV:
		return DBaseIVMemo
	case DBaseIVSQLTable:
		return DBaseIVSQLTableMemo
	}
	return v
}

const (
	legacyHeaderSize     = 8
	legacyDescriptorSize = 16
	legacyMaxFields      = 32
	headerSize           = 32
	descriptorSize       = 32
	backlinkSize         = 263
	fieldNameSize        = 10
	maxFieldLength       = 254
)

// HeaderSize is the fixed header size of the layout family.
func (f Family) HeaderSize() int {
	if f == FamilyLegacy {
		return legacyHeaderSize
	}
	return headerSize
}

// DescriptorSize is the size of one on-disk field descriptor.
func (f Family) DescriptorSize() int {
	if f == FamilyLegacy {
		return legacyDescriptorSize
	}
	return descriptorSize
}

// TableFlags is the table flag byte of classic and FoxPro headers.
type TableFlags byte

const (
	FlagStructuralIndex TableFlags = 0x01
	FlagMemo            TableFlags = 0x02
	FlagDatabase        TableFlags = 0x04
)

// Header describes one table file.
type Header struct {
	Version        Version
	LastUpdate     time.Time
	RecordCount    uint32
	HeaderLength   uint16
	RecordLength   uint16
	Flags          TableFlags
	LanguageDriver byte
	// Backlink is the raw 263 byte region of Visual FoxPro tables.
	Backlink []byte
}

// HasMemo reports whether the table is paired with a memo file. Visual
// FoxPro signals it with FlagMemo, older versions with the version tag.
func (h *Header) HasMemo() bool {
	if h.Flags&FlagMemo != 0 {
		return true
	}
	switch h.Version {
	case DBaseIIIMemo, DBaseIVMemo, DBaseIVSQLTableMemo, FoxPro2Memo:
		return true
	}
	return false
}

// FieldType is the ASCII type tag of a field descriptor.
type FieldType byte

const (
	TypeAutoIncrement FieldType = '+'
	TypeBinary        FieldType = 'B'
	TypeBlob          FieldType = 'W'
	TypeCharacter     FieldType = 'C'
	TypeCurrency      FieldType = 'Y'
	TypeDate          FieldType = 'D'
	TypeDateTime      FieldType = 'T'
	TypeDouble        FieldType = 'O'
	TypeFloat         FieldType = 'F'
	TypeInteger       FieldType = 'I'
	TypeLogical       FieldType = 'L'
	TypeMemo          FieldType = 'M'
	TypeNullFlags     FieldType = '0'
	TypeNumeric       FieldType = 'N'
	TypeOLE           FieldType = 'G'
	TypePicture       FieldType = 'P'
	TypeTimestamp     FieldType = '@'
	TypeVariant       FieldType = 'V'
)

func (t FieldType) valid() bool {
	switch t {
	case TypeAutoIncrement, TypeBinary, TypeBlob, TypeCharacter, TypeCurrency, TypeDate,
		TypeDateTime, TypeDouble, TypeFloat, TypeInteger, TypeLogical, TypeMemo, TypeNullFlags,
		TypeNumeric, TypeOLE, TypePicture, TypeTimestamp, TypeVariant:
		return true
	}
	return false
}

func (t FieldType) String() string {
	return string(rune(t))
}

// FieldFlags are the Visual FoxPro descriptor flags.
type FieldFlags byte

const (
	FieldSystem        FieldFlags = 0x01
	FieldNullable      FieldFlags = 0x02
	FieldBinary        FieldFlags = 0x04
	FieldAutoIncrement FieldFlags = 0x0C
)

// FieldDescriptor is the schema of one field.
type FieldDescriptor struct {
	Name     string
	Type     FieldType
	Length   uint8
	Decimals uint8
	Flags    FieldFlags
	// Offset is the byte position inside the record. The status byte owns
	// offset 0 so the first field starts at 1.
	Offset uint32

	AutoIncrementNext uint32
	AutoIncrementStep uint8
}

// IsAutoIncrement reports whether appends assign the field a counter value.
func (d *FieldDescriptor) IsAutoIncrement() bool {
	return d.Type == TypeAutoIncrement || (d.Type == TypeInteger && d.Flags&FieldAutoIncrement == FieldAutoIncrement)
}

// IsMemo reports whether the field stores a memo block index.
func (d *FieldDescriptor) IsMemo() bool {
	switch d.Type {
	case TypeMemo, TypeBlob, TypeOLE, TypePicture:
		return true
	case TypeBinary:
		return d.Length != 8
	}
	return false
}

// byteField is one entry of an explicit on-disk layout table.
type byteField struct {
	offset int
	size   int
	order  binary.ByteOrder
}

type byteLayout map[string]byteField

func (l byteLayout) get(buf []byte, name string) uint32 {
	f, ok := l[name]
	if !ok {
		panic("godbf: unknown layout field " + name)
	}
	b := buf[f.offset : f.offset+f.size]
	switch f.size {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(f.order.Uint16(b))
	case 4:
		return f.order.Uint32(b)
	}
	panic("godbf: unsupported layout size")
}

func (l byteLayout) put(buf []byte, name string, v uint32) {
	f, ok := l[name]
	if !ok {
		panic("godbf: unknown layout field " + name)
	}
	b := buf[f.offset : f.offset+f.size]
	switch f.size {
	case 1:
		b[0] = byte(v)
	case 2:
		f.order.PutUint16(b, uint16(v))
	case 4:
		f.order.PutUint32(b, v)
	default:
		panic("godbf: unsupported layout size")
	}
}

var le = binary.LittleEndian

var legacyHeaderLayout = byteLayout{
	"version":      {0, 1, nil},
	"recordCount":  {1, 2, le},
	"month":        {3, 1, nil},
	"day":          {4, 1, nil},
	"year":         {5, 1, nil},
	"recordLength": {6, 2, le},
}

var legacyDescriptorLayout = byteLayout{
	"type":     {11, 1, nil},
	"length":   {12, 1, nil},
	"offset":   {13, 2, le},
	"decimals": {15, 1, nil},
}

var headerLayout = byteLayout{
	"version":        {0, 1, nil},
	"year":           {1, 1, nil},
	"month":          {2, 1, nil},
	"day":            {3, 1, nil},
	"recordCount":    {4, 4, le},
	"headerLength":   {8, 2, le},
	"recordLength":   {10, 2, le},
	"flags":          {28, 1, nil},
	"languageDriver": {29, 1, nil},
}

var descriptorLayout = byteLayout{
	"type":              {11, 1, nil},
	"offset":            {12, 4, le},
	"length":            {16, 1, nil},
	"decimals":          {17, 1, nil},
	"flags":             {18, 1, nil},
	"autoIncrementNext": {19, 4, le},
	"autoIncrementStep": {23, 1, nil},
}
