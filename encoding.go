package godbf

import (
	"github.com/axgle/mahonia"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding converts between the bytes stored in character fields and Go
// strings.
type Encoding interface {
	Decode(b []byte) (string, error)
	Encode(s string) ([]byte, error)
}

type mahoniaEncoding struct {
	name    string
	encoder mahonia.Encoder
	decoder mahonia.Decoder
}

// NewEncoding returns the encoding registered under a charset name such as
// "gbk", "utf-8" or "cp1252".
func NewEncoding(name string) (Encoding, error) {
	encoder := mahonia.NewEncoder(name)
	decoder := mahonia.NewDecoder(name)
	if encoder == nil || decoder == nil {
		return nil, ErrUnknownEncoding.New(name)
	}
	return &mahoniaEncoding{name: name, encoder: encoder, decoder: decoder}, nil
}

func (e *mahoniaEncoding) Decode(b []byte) (string, error) {
	return e.decoder.ConvertString(string(b)), nil
}

func (e *mahoniaEncoding) Encode(s string) ([]byte, error) {
	return []byte(e.encoder.ConvertString(s)), nil
}

func (e *mahoniaEncoding) String() string {
	return e.name
}

type charmapEncoding struct {
	cm *charmap.Charmap
}

// CharmapEncoding wraps a single byte code page.
func CharmapEncoding(cm *charmap.Charmap) Encoding {
	return &charmapEncoding{cm: cm}
}

func (e *charmapEncoding) Decode(b []byte) (string, error) {
	out, _, err := transform.Bytes(e.cm.NewDecoder(), b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (e *charmapEncoding) Encode(s string) ([]byte, error) {
	out, _, err := transform.Bytes(e.cm.NewEncoder(), []byte(s))
	if err != nil {
		return nil, ErrUnencodableText.Wrap(err, e.cm, s)
	}
	return out, nil
}

func (e *charmapEncoding) String() string {
	return e.cm.String()
}

// Language driver ids written by dBASE and FoxPro at header offset 29.
var codePages = map[byte]*charmap.Charmap{
	0x01: charmap.CodePage437,
	0x02: charmap.CodePage850,
	0x03: charmap.Windows1252,
	0x04: charmap.Macintosh,
	0x08: charmap.CodePage865,
	0x09: charmap.CodePage437,
	0x0A: charmap.CodePage850,
	0x0B: charmap.CodePage437,
	0x0D: charmap.CodePage437,
	0x0E: charmap.CodePage850,
	0x0F: charmap.CodePage437,
	0x10: charmap.CodePage850,
	0x11: charmap.CodePage437,
	0x12: charmap.CodePage850,
	0x14: charmap.CodePage850,
	0x15: charmap.CodePage437,
	0x16: charmap.CodePage850,
	0x17: charmap.CodePage865,
	0x18: charmap.CodePage437,
	0x19: charmap.CodePage437,
	0x1A: charmap.CodePage850,
	0x1B: charmap.CodePage437,
	0x1D: charmap.CodePage850,
	0x1F: charmap.CodePage852,
	0x22: charmap.CodePage852,
	0x23: charmap.CodePage852,
	0x24: charmap.CodePage860,
	0x25: charmap.CodePage850,
	0x26: charmap.CodePage866,
	0x37: charmap.CodePage850,
	0x40: charmap.CodePage852,
	0x57: charmap.Windows1252,
	0x58: charmap.Windows1252,
	0x59: charmap.Windows1252,
	0x64: charmap.CodePage852,
	0x65: charmap.CodePage866,
	0x66: charmap.CodePage865,
	0x6C: charmap.CodePage863,
	0x7D: charmap.Windows1255,
	0x7E: charmap.Windows1256,
	0x96: charmap.MacintoshCyrillic,
	0xC8: charmap.Windows1250,
	0xC9: charmap.Windows1251,
	0xCA: charmap.Windows1254,
	0xCB: charmap.Windows1253,
	0xCC: charmap.Windows1257,
}

// CodePageEncoding returns the encoding for a header language driver id.
// Unknown and zero ids fall back to Windows-1252.
func CodePageEncoding(languageDriver byte) Encoding {
	if cm, ok := codePages[languageDriver]; ok {
		return CharmapEncoding(cm)
	}
	return CharmapEncoding(charmap.Windows1252)
}
