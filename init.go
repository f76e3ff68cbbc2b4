package godbf

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type options struct {
	encoding       Encoding
	encodingErr    error
	separator      byte
	memo           io.ReadWriteSeeker
	openMemo       func(MemoFormat) (io.ReadWriteSeeker, error)
	blockLength    uint16
	registry       *PlanRegistry
	log            logrus.FieldLogger
	clock          func() time.Time
	languageDriver byte
	closers        []io.Closer
}

// Option configures Open and Create.
type Option func(*options)

// WithEncoding sets the text encoding of character and memo fields. The
// default follows the language driver byte of the header.
func WithEncoding(e Encoding) Option {
	return func(o *options) { o.encoding = e }
}

// WithEncodingName selects the encoding by charset name, see NewEncoding.
func WithEncodingName(name string) Option {
	return func(o *options) { o.encoding, o.encodingErr = NewEncoding(name) }
}

func WithDecimalSeparator(sep byte) Option {
	return func(o *options) { o.separator = sep }
}

// WithMemo supplies the memo file stream.
func WithMemo(stream io.ReadWriteSeeker) Option {
	return func(o *options) { o.memo = stream }
}

// WithMemoBlockLength sets the block length of memo files created by
// Create. dBASE III memo files always use 512.
func WithMemoBlockLength(n uint16) Option {
	return func(o *options) { o.blockLength = n }
}

// WithRegistry shares a plan registry between tables. By default each
// table binds into its own registry.
func WithRegistry(r *PlanRegistry) Option {
	return func(o *options) { o.registry = r }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithClock sets the source of the last update date.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLanguageDriver sets the code page byte written by Create.
func WithLanguageDriver(b byte) Option {
	return func(o *options) { o.languageDriver = b }
}

func newOptions(opts []Option) (*options, error) {
	o := &options{
		separator: '.',
		log:       defaultLogger(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.encodingErr != nil {
		return nil, o.encodingErr
	}
	if o.registry == nil {
		r, err := NewPlanRegistry(defaultRegistrySize)
		if err != nil {
			return nil, err
		}
		o.registry = r
	}
	return o, nil
}

func (o *options) closeAll() {
	for _, c := range o.closers {
		_ = c.Close()
	}
}

// Open reads the table header from stream. Memo fields need WithMemo unless
// the table has no memo file.
func Open(stream io.ReadWriteSeeker, opts ...Option) (*Table, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return open(stream, o)
}

func open(stream io.ReadWriteSeeker, o *options) (*Table, error) {
	h, fields, err := readHeader(stream, o.log)
	if err != nil {
		return nil, err
	}
	t := newTable(stream, h, fields, o)
	if err := t.initMemo(false); err != nil {
		return nil, err
	}
	t.log.WithFields(logrus.Fields{
		"version": h.Version,
		"fields":  len(fields),
		"records": h.RecordCount,
	}).Debug("dbf: table opened")
	return t, nil
}

// Create writes the header of a new empty table to stream. Tables with
// memo fields need WithMemo; the memo file is created alongside.
func Create(stream io.ReadWriteSeeker, version Version, fields []FieldDescriptor, opts ...Option) (*Table, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	return create(stream, version, fields, o)
}

func create(stream io.ReadWriteSeeker, version Version, fields []FieldDescriptor, o *options) (*Table, error) {
	h, fields, err := NewHeader(version, fields, o.clock())
	if err != nil {
		return nil, err
	}
	h.LanguageDriver = o.languageDriver
	t := newTable(stream, h, fields, o)
	if err := t.initMemo(true); err != nil {
		return nil, err
	}
	t.dirty = true
	if err := t.flushLocked(); err != nil {
		return nil, err
	}
	t.log.WithFields(logrus.Fields{
		"version": h.Version,
		"fields":  len(fields),
	}).Debug("dbf: table created")
	return t, nil
}

func newTable(stream io.ReadWriteSeeker, h *Header, fields []FieldDescriptor, o *options) *Table {
	t := &Table{
		stream:  stream,
		closers: o.closers,
		header:  h,
		fields:  fields,
		opts:    o,
		log:     o.log,
		fc: FieldContext{
			Encoding:         o.encoding,
			DecimalSeparator: o.separator,
		},
	}
	if t.fc.Encoding == nil {
		t.fc.Encoding = CodePageEncoding(h.LanguageDriver)
	}
	return t
}

func (t *Table) initMemo(create bool) error {
	if !t.header.HasMemo() {
		return nil
	}
	format := t.header.Version.MemoFormat()
	if format == MemoNone {
		format = MemoFPT
	}
	stream := t.opts.memo
	if stream == nil && t.opts.openMemo != nil {
		s, err := t.opts.openMemo(format)
		if err != nil {
			return err
		}
		stream = s
		t.closers = t.opts.closers
	}
	if stream == nil {
		if create {
			for _, f := range t.fields {
				if f.IsMemo() {
					return ErrNoMemoStore.New(f.Name)
				}
			}
		}
		t.log.Warn("dbf: table has a memo file but none was supplied")
		return nil
	}
	var (
		m   *Memo
		err error
	)
	if create {
		m, err = createMemo(stream, format, t.opts.blockLength, t.log)
	} else {
		m, err = openMemo(stream, format, t.log)
	}
	if err != nil {
		return err
	}
	t.memo = m
	t.fc.Memo = m
	return nil
}

// OpenFile opens a table by name. A memo file next to it with the
// conventional extension is opened when the header asks for one.
func OpenFile(name string, opts ...Option) (*Table, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, os.O_RDWR, 0770)
	if err != nil {
		return nil, err
	}
	o.closers = append(o.closers, f)
	if o.memo == nil {
		o.openMemo = func(format MemoFormat) (io.ReadWriteSeeker, error) {
			mf, err := openSibling(name, format.Extension())
			if err != nil {
				return nil, err
			}
			o.closers = append(o.closers, mf)
			return mf, nil
		}
	}
	t, err := open(f, o)
	if err != nil {
		o.closeAll()
		return nil, err
	}
	return t, nil
}

// CreateFile creates or truncates a table by name, together with its memo
// file when fields need one.
func CreateFile(name string, version Version, fields []FieldDescriptor, opts ...Option) (*Table, error) {
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}
	o.closers = append(o.closers, f)
	if o.memo == nil {
		o.openMemo = func(format MemoFormat) (io.ReadWriteSeeker, error) {
			mf, err := os.OpenFile(siblingName(name, format.Extension()), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
			if err != nil {
				return nil, err
			}
			o.closers = append(o.closers, mf)
			return mf, nil
		}
	}
	t, err := create(f, version, fields, o)
	if err != nil {
		o.closeAll()
		return nil, err
	}
	return t, nil
}

// siblingName swaps the extension of name, keeping its case.
func siblingName(name, ext string) string {
	old := filepath.Ext(name)
	if old != "" && old == strings.ToUpper(old) {
		ext = strings.ToUpper(ext)
	}
	return strings.TrimSuffix(name, old) + ext
}

func openSibling(name, ext string) (*os.File, error) {
	f, err := os.OpenFile(siblingName(name, ext), os.O_RDWR, 0770)
	if !errors.Is(err, os.ErrNotExist) {
		return f, err
	}
	// Files copied between systems often change extension case.
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, e := range []string{strings.ToLower(ext), strings.ToUpper(ext)} {
		if alt, aerr := os.OpenFile(base+e, os.O_RDWR, 0770); aerr == nil {
			return alt, nil
		}
	}
	return nil, err
}
