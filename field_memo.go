package godbf

import (
	"bytes"
	"fmt"
	"strconv"
)

// memoCodec stores a block index into the memo file. Four byte fields hold
// a little endian index, wider fields a right justified decimal string.
// Index 0 means no memo.
type memoCodec struct {
	field       FieldDescriptor
	binaryIndex bool
	text        bool
	memoType    MemoType
}

func newMemoCodec(d FieldDescriptor) memoCodec {
	c := memoCodec{field: d, binaryIndex: d.Length == 4, memoType: MemoObject}
	switch d.Type {
	case TypeMemo:
		c.text = true
		c.memoType = MemoText
	case TypePicture:
		c.memoType = MemoPicture
	}
	return c
}

func (c memoCodec) index(b []byte) (uint32, error) {
	if c.binaryIndex {
		return le.Uint32(b), nil
	}
	s := bytes.Trim(b, " \x00")
	if len(s) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseUint(string(s), 10, 32)
	if err != nil {
		return 0, ErrInvalidField.New(c.field.Name, fmt.Sprintf("invalid memo block %q", s))
	}
	return uint32(n), nil
}

func (c memoCodec) Decode(b []byte, fc *FieldContext) (Value, error) {
	idx, err := c.index(b)
	if err != nil || idx == 0 {
		return Value{}, err
	}
	store := fc.memo()
	if store == nil {
		return Value{}, ErrNoMemoStore.New(c.field.Name)
	}
	rec, err := store.Get(idx)
	if err != nil {
		return Value{}, err
	}
	if !c.text {
		return BytesValue(rec.Data), nil
	}
	s, err := fc.encoding().Decode(rec.Data)
	if err != nil {
		return Value{}, err
	}
	return StringValue(s), nil
}

func (c memoCodec) Encode(v Value, fc *FieldContext, out []byte) error {
	var payload []byte
	switch v.Kind() {
	case KindNull:
	case KindString, KindVariant:
		s, _ := v.Text()
		if !c.text {
			payload = []byte(s)
			break
		}
		var err error
		if payload, err = fc.encoding().Encode(s); err != nil {
			return err
		}
	case KindBytes:
		payload, _ = v.Bytes()
	default:
		return unsupported(v, c.field)
	}
	if len(payload) == 0 {
		return c.putIndex(out, 0)
	}
	store := fc.memo()
	if store == nil {
		return ErrNoMemoStore.New(c.field.Name)
	}
	idx, err := store.Add(MemoRecord{Type: c.memoType, Data: payload})
	if err != nil {
		return err
	}
	return c.putIndex(out, idx)
}

func (c memoCodec) putIndex(out []byte, idx uint32) error {
	if c.binaryIndex {
		le.PutUint32(out, idx)
		return nil
	}
	fill(out, SPACE)
	if idx == 0 {
		return nil
	}
	s := strconv.FormatUint(uint64(idx), 10)
	if len(s) > len(out) {
		return ErrInvalidField.New(c.field.Name, fmt.Sprintf("memo block %d does not fit in %d bytes", idx, len(out)))
	}
	copy(out[len(out)-len(s):], s)
	return nil
}
