package godbf

import (
	"gopkg.in/src-d/go-errors.v1"
)

// Format errors: the input is structurally invalid or unsupported.
var (
	ErrUnsupportedVersion = errors.NewKind("dbf: unsupported version tag 0x%02X")
	ErrMissingTerminator  = errors.NewKind("dbf: missing 0x0D terminator after %d field descriptors")
	ErrInvalidHeader      = errors.NewKind("dbf: invalid header: %s")
	ErrInvalidField       = errors.NewKind("dbf: invalid field %q: %s")
	ErrInvalidLogical     = errors.NewKind("dbf: invalid logical value %q")
	ErrInvalidMemoHeader  = errors.NewKind("dbf: invalid memo: %s")
	ErrArity              = errors.NewKind("dbf: record shape %s has %d slots, table has %d fields")
	ErrSlotName           = errors.NewKind("dbf: slot %d is tagged %q but field %d is %q")
	ErrShortRecord        = errors.NewKind("dbf: record buffer is %d bytes, need %d")
)

// Range errors: an index outside the valid window.
var (
	ErrRecordOutOfRange = errors.NewKind("dbf: record index %d out of range [0, %d)")
	ErrMemoOutOfRange   = errors.NewKind("dbf: memo block %d out of range [%d, %d)")
)

// Unsupported operations: programming errors, not data errors.
var (
	ErrMemoOverwrite    = errors.NewKind("dbf: memo block %d cannot be written, next block is %d")
	ErrUnsupportedValue = errors.NewKind("dbf: %s value cannot be stored in %s field %q")
	ErrUnsupportedSlot  = errors.NewKind("dbf: slot %d of type %s cannot bind %s field %q")
	ErrUnsupportedShape = errors.NewKind("dbf: %s is not a record shape")
	ErrNoMemoStore      = errors.NewKind("dbf: field %q needs a memo store")
	ErrLegacyLimit      = errors.NewKind("dbf: dBASE II tables cannot hold %s")
	ErrDirty            = errors.NewKind("dbf: table has unflushed changes")
	ErrClosed           = errors.NewKind("dbf: table is closed")
	ErrUnknownEncoding  = errors.NewKind("dbf: unknown encoding %q")
	ErrUnencodableText  = errors.NewKind("dbf: %s cannot encode %q")
)

var (
	formatKinds      = []*errors.Kind{ErrUnsupportedVersion, ErrMissingTerminator, ErrInvalidHeader, ErrInvalidField, ErrInvalidLogical, ErrInvalidMemoHeader, ErrArity, ErrSlotName, ErrShortRecord}
	rangeKinds       = []*errors.Kind{ErrRecordOutOfRange, ErrMemoOutOfRange}
	unsupportedKinds = []*errors.Kind{ErrMemoOverwrite, ErrUnsupportedValue, ErrUnsupportedSlot, ErrUnsupportedShape, ErrNoMemoStore, ErrLegacyLimit, ErrDirty, ErrClosed, ErrUnknownEncoding, ErrUnencodableText}
)

func isAnyKind(err error, kinds []*errors.Kind) bool {
	for _, k := range kinds {
		if k.Is(err) {
			return true
		}
	}
	return false
}

// IsFormatError reports whether err describes structurally invalid input.
func IsFormatError(err error) bool {
	return isAnyKind(err, formatKinds)
}

// IsRangeError reports whether err is an out-of-range record or memo index.
func IsRangeError(err error) bool {
	return isAnyKind(err, rangeKinds)
}

// IsUnsupported reports whether err is an unsupported operation.
func IsUnsupported(err error) bool {
	return isAnyKind(err, unsupportedKinds)
}
