package godbf

import (
	"reflect"

	"golang.org/x/sync/errgroup"
)

func (t *Table) plan(shape any) (*RecordPlan, error) {
	return t.opts.registry.Bind(t.fields, shape)
}

func (t *Table) recordOffset(index uint32) int64 {
	return int64(t.header.HeaderLength) + int64(index)*int64(t.header.RecordLength)
}

// readRecords reads n consecutive records starting at index.
func (t *Table) readRecords(index, n uint32) ([]byte, error) {
	buf := make([]byte, int(n)*int(t.header.RecordLength))
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	if _, err := readAt(t.stream, t.recordOffset(index), buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetRecord decodes record index into dst and returns its status. dst is a
// *Row, a Record or a pointer to a struct.
func (t *Table) GetRecord(index uint32, dst any) (Status, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return 0, ErrClosed.New()
	}
	if index >= t.header.RecordCount {
		return 0, ErrRecordOutOfRange.New(index, t.header.RecordCount)
	}
	plan, err := t.plan(dst)
	if err != nil {
		return 0, err
	}
	buf, err := t.readRecords(index, 1)
	if err != nil {
		return 0, err
	}
	return plan.Read(buf, &t.fc, dst)
}

// GetRecords decodes records [start, end) into dst, a pointer to a slice of
// Row, of structs or of Record implementations. The slice is resized to
// end-start elements. Decoding is split over at most workerNums goroutines.
func (t *Table) GetRecords(start, end uint32, dst any, workerNums int) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed.New()
	}
	if end > t.header.RecordCount {
		return ErrRecordOutOfRange.New(end, t.header.RecordCount)
	}
	if start > end {
		return ErrRecordOutOfRange.New(start, end)
	}

	rt := reflect.TypeOf(dst)
	if rt == nil || rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Slice {
		return ErrUnsupportedShape.New(rt)
	}
	elem := rt.Elem().Elem()
	plan, err := t.plan(reflect.New(elem).Interface())
	if err != nil {
		return err
	}

	n := int(end - start)
	rv := reflect.ValueOf(dst).Elem()
	if rv.Cap() < n {
		rv.Set(reflect.MakeSlice(rv.Type(), n, n))
	}
	rv.SetLen(n)
	if n == 0 {
		return nil
	}

	buf, err := t.readRecords(start, uint32(n))
	if err != nil {
		return err
	}
	if workerNums < 1 {
		workerNums = 1
	}
	size := int(t.header.RecordLength)
	var g errgroup.Group
	g.SetLimit(workerNums)
	for i := 0; i < n; i++ {
		record := buf[i*size : (i+1)*size]
		slot := rv.Index(i).Addr().Interface()
		g.Go(func() error {
			_, err := plan.Read(record, &t.fc, slot)
			return err
		})
	}
	return g.Wait()
}

// Cursor walks the records in order. Next returns false at the end of the
// table or on the first read error, which Err reports.
type Cursor struct {
	t      *Table
	index  int64
	record []byte
	err    error
}

// Cursor returns a cursor positioned before the first record.
func (t *Table) Cursor() *Cursor {
	return &Cursor{t: t, index: -1}
}

func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	if c.t.closed {
		c.err = ErrClosed.New()
		return false
	}
	if c.index+1 >= int64(c.t.header.RecordCount) {
		c.record = nil
		return false
	}
	c.index++
	c.record, c.err = c.t.readRecords(uint32(c.index), 1)
	return c.err == nil
}

// Index is the position of the current record.
func (c *Cursor) Index() uint32 { return uint32(c.index) }

func (c *Cursor) Status() Status {
	if len(c.record) == 0 {
		return 0
	}
	return Status(c.record[0])
}

func (c *Cursor) Deleted() bool { return c.Status().Deleted() }

// Scan decodes the current record into dst.
func (c *Cursor) Scan(dst any) error {
	if c.record == nil {
		return ErrRecordOutOfRange.New(c.index, c.t.NumRecords())
	}
	c.t.mu.RLock()
	defer c.t.mu.RUnlock()
	plan, err := c.t.plan(dst)
	if err != nil {
		return err
	}
	_, err = plan.Read(c.record, &c.t.fc, dst)
	return err
}

func (c *Cursor) Err() error { return c.err }
