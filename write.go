package godbf

// Append writes src as a new active record after the last one.
func (t *Table) Append(src any) error {
	return t.AppendWithStatus(src, StatusActive)
}

// AppendWithStatus writes src as a new record at index NumRecords. Zero or
// null auto-increment values are replaced by the field's next value, and
// written back to src. Counters only advance once the record is written.
func (t *Table) AppendWithStatus(src any, status Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed.New()
	}
	if t.header.Version == DBaseII && t.header.RecordCount >= 0xFFFF {
		return ErrLegacyLimit.New("more than 65535 records")
	}
	plan, err := t.plan(src)
	if err != nil {
		return err
	}
	vals, err := plan.Values(src)
	if err != nil {
		return err
	}
	assigned, counters := t.assignAutoIncrement(vals)

	buf := make([]byte, int(t.header.RecordLength))
	if err := plan.WriteValues(buf, vals, status, &t.fc); err != nil {
		return err
	}
	index := t.header.RecordCount
	if err := t.writeRecord(index, buf); err != nil {
		return err
	}
	for _, c := range counters {
		t.fields[c.field].AutoIncrementNext = c.next
	}
	t.header.RecordCount++
	t.touch()

	for _, i := range assigned {
		if err := plan.setValue(src, i, vals[i]); err != nil {
			return err
		}
	}
	return nil
}

type counter struct {
	field int
	next  uint32
}

// assignAutoIncrement fills zero auto-increment values in vals. It returns
// the positions it filled and the counter values to store once the record
// is written; the descriptors are left untouched.
func (t *Table) assignAutoIncrement(vals Row) ([]int, []counter) {
	var (
		assigned []int
		counters []counter
	)
	for i := range t.fields {
		f := t.fields[i]
		if !f.IsAutoIncrement() {
			continue
		}
		step := uint32(f.AutoIncrementStep)
		if step == 0 {
			step = 1
		}
		n, ok := vals[i].Int64()
		if ok && n != 0 {
			if n > 0 && uint32(n) >= f.AutoIncrementNext {
				counters = append(counters, counter{field: i, next: uint32(n) + step})
			}
			continue
		}
		if f.Length == 8 {
			vals[i] = Int64Value(int64(f.AutoIncrementNext))
		} else {
			vals[i] = Int32Value(int32(f.AutoIncrementNext))
		}
		counters = append(counters, counter{field: i, next: f.AutoIncrementNext + step})
		assigned = append(assigned, i)
	}
	return assigned, counters
}

// Put rewrites the record at index. Memo values are appended to the memo
// file again; the blocks of the previous values are not reclaimed.
func (t *Table) Put(index uint32, src any, status Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed.New()
	}
	if index >= t.header.RecordCount {
		return ErrRecordOutOfRange.New(index, t.header.RecordCount)
	}
	plan, err := t.plan(src)
	if err != nil {
		return err
	}
	buf := make([]byte, int(t.header.RecordLength))
	if err := plan.Write(buf, src, status, &t.fc); err != nil {
		return err
	}
	if err := t.writeRecord(index, buf); err != nil {
		return err
	}
	t.touch()
	return nil
}

// SetDeleted flips the deletion flag of record index without touching its
// fields.
func (t *Table) SetDeleted(index uint32, deleted bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed.New()
	}
	if index >= t.header.RecordCount {
		return ErrRecordOutOfRange.New(index, t.header.RecordCount)
	}
	status := StatusActive
	if deleted {
		status = StatusDeleted
	}
	if err := t.writeRecord(index, []byte{byte(status)}); err != nil {
		return err
	}
	t.touch()
	return nil
}

func (t *Table) writeRecord(index uint32, buf []byte) error {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	return writeAt(t.stream, t.recordOffset(index), buf)
}

func (t *Table) touch() {
	t.header.LastUpdate = truncateDay(t.opts.clock())
	t.dirty = true
}

// flushLocked rewrites the header and the end of file marker after the
// last record, then flushes the memo file.
func (t *Table) flushLocked() error {
	if t.memo != nil {
		if err := t.memo.Flush(); err != nil {
			return err
		}
	}
	if !t.dirty {
		return nil
	}
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	if err := WriteHeader(t.stream, t.header, t.fields); err != nil {
		return err
	}
	if err := writeAt(t.stream, t.recordOffset(t.header.RecordCount), []byte{EOF}); err != nil {
		return err
	}
	if err := syncStream(t.stream); err != nil {
		return err
	}
	t.dirty = false
	t.log.WithField("records", t.header.RecordCount).Debug("dbf: header written")
	return nil
}
