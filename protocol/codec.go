package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MaxMessageSize bounds a single inbound record. Every record the server sends
// fits inside one datagram, so a record that claims more than the largest UDP
// payload can only come from a corrupt or desynchronised stream.
const MaxMessageSize = 65507

var (
	ErrMessageTooLarge = errors.New("Message is malformed, it would read past the maximum message size")
	ErrTextTooLong     = errors.New("Text field is longer than a 16bit length prefix can describe")
	ErrFieldType       = errors.New("Field value does not match its declared kind")
	ErrShortBuffer     = errors.New("Not enough bytes buffered to satisfy the read")
)

// Kind is the wire type of a single field.
type Kind uint8

const (
	Uint8 Kind = iota
	Uint16
	Int32
	Float32
	Bool
	Text
)

func (k Kind) String() string {
	switch k {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Bool:
		return "bool"
	case Text:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Width returns the fixed size of the kind in bytes. Text has no fixed width
// and reports the size of its length prefix.
func (k Kind) Width() int {
	switch k {
	case Uint8, Bool:
		return 1
	case Uint16, Text:
		return 2
	default:
		return 4
	}
}

// Field pairs a value with the kind it is encoded as.
type Field struct {
	Kind  Kind
	Value interface{}
}

// Source hands out exactly n bytes from the front of a byte stream, blocking
// if it has to.
type Source interface {
	Next(n int) ([]byte, error)
}

// BufferSource is a Source over an in-memory byte slice.
type BufferSource struct {
	data []byte
}

func NewBufferSource(data []byte) *BufferSource {
	return &BufferSource{data: data}
}

func (b *BufferSource) Next(n int) ([]byte, error) {
	if n > len(b.data) {
		return nil, fmt.Errorf("wanted %d bytes, have %d: %w", n, len(b.data), ErrShortBuffer)
	}

	out := b.data[:n]
	b.data = b.data[n:]
	return out, nil
}

// Len returns the number of unread bytes.
func (b *BufferSource) Len() int {
	return len(b.data)
}

// Decoder reads little-endian fields from a Source. The first error is sticky:
// once a read fails every later read returns the zero value, and Err reports
// the failure. Counts read after a failure are therefore zero, so nested loops
// in record decoders terminate on their own.
type Decoder struct {
	src   Source
	read  int
	limit int
	err   error
}

func NewDecoder(src Source) *Decoder {
	return &Decoder{src: src, limit: MaxMessageSize}
}

// Err returns the first error encountered.
func (d *Decoder) Err() error {
	return d.err
}

// Begin starts a new record, resetting the size budget and clearing any
// previous error.
func (d *Decoder) Begin() {
	d.read = 0
	d.err = nil
}

// Consumed returns how many bytes the current record has read so far.
func (d *Decoder) Consumed() int {
	return d.read
}

func (d *Decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}

	if n == 0 {
		return []byte{}
	}

	if d.read+n > d.limit {
		d.err = fmt.Errorf("record needs %d bytes: %w", d.read+n, ErrMessageTooLarge)
		return nil
	}

	b, err := d.src.Next(n)
	if err != nil {
		d.err = err
		return nil
	}

	d.read += n
	return b
}

func (d *Decoder) Uint8() uint8 {
	b := d.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Uint16() uint16 {
	b := d.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *Decoder) Int32() int32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (d *Decoder) Float32() float32 {
	b := d.next(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (d *Decoder) Bool() bool {
	return d.Uint8() != 0
}

func (d *Decoder) Text() string {
	length := d.Uint16()
	if length == 0 {
		return ""
	}

	b := d.next(int(length))
	if b == nil {
		return ""
	}
	return string(b)
}

// Decode reads one value per kind in order. Values are returned as uint8,
// uint16, int32, float32, bool or string.
func (d *Decoder) Decode(kinds ...Kind) ([]interface{}, error) {
	out := make([]interface{}, 0, len(kinds))

	for _, k := range kinds {
		switch k {
		case Uint8:
			out = append(out, d.Uint8())
		case Uint16:
			out = append(out, d.Uint16())
		case Int32:
			out = append(out, d.Int32())
		case Float32:
			out = append(out, d.Float32())
		case Bool:
			out = append(out, d.Bool())
		case Text:
			out = append(out, d.Text())
		default:
			return nil, fmt.Errorf("cannot decode %s: %w", k, ErrFieldType)
		}
	}

	if d.err != nil {
		return nil, d.err
	}

	return out, nil
}

// Encode serialises fields in order. Integer values may be given as any Go
// integer type that fits the kind.
func Encode(fields ...Field) ([]byte, error) {
	buf := make([]byte, 0, encodedSize(fields))

	for i, f := range fields {
		var err error

		buf, err = appendField(buf, f)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, f.Kind, err)
		}
	}

	return buf, nil
}

// encodedSize estimates the encoded length of fields. Text values that are
// not strings count only their prefix, Encode rejects them anyway.
func encodedSize(fields []Field) int {
	size := 0
	for _, f := range fields {
		size += f.Kind.Width()
		if s, ok := f.Value.(string); ok && f.Kind == Text {
			size += len(s)
		}
	}
	return size
}

func appendField(buf []byte, f Field) ([]byte, error) {
	switch f.Kind {
	case Uint8:
		v, ok := toInt64(f.Value)
		if !ok || v < 0 || v > math.MaxUint8 {
			return nil, ErrFieldType
		}
		return append(buf, uint8(v)), nil

	case Uint16:
		v, ok := toInt64(f.Value)
		if !ok || v < 0 || v > math.MaxUint16 {
			return nil, ErrFieldType
		}
		return binary.LittleEndian.AppendUint16(buf, uint16(v)), nil

	case Int32:
		v, ok := toInt64(f.Value)
		if !ok || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, ErrFieldType
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(int32(v))), nil

	case Float32:
		var v float32
		switch x := f.Value.(type) {
		case float32:
			v = x
		case float64:
			v = float32(x)
		default:
			return nil, ErrFieldType
		}
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v)), nil

	case Bool:
		v, ok := f.Value.(bool)
		if !ok {
			return nil, ErrFieldType
		}
		if v {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil

	case Text:
		s, ok := f.Value.(string)
		if !ok {
			return nil, ErrFieldType
		}
		if len(s) > math.MaxUint16 {
			return nil, ErrTextTooLong
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
		return append(buf, s...), nil

	default:
		return nil, ErrFieldType
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	default:
		return 0, false
	}
}
