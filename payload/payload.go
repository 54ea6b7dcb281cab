// Package payload decodes the fixed-layout binary frames that RFM sensor nodes send through a gateway.
//
// Every frame starts with a five byte header:
//
//	offset 0-1  node id, little-endian unsigned
//	offset 2-3  RSSI measured by the gateway, little-endian signed
//	offset 4    node type
//
// The remaining bytes depend on the node type and are described by the Fields table. Decoding is pure: the same frame
// always produces the same Reading.
package payload

import (
	"errors"
	"fmt"
	"strconv"
)

// HeaderLen is the number of bytes every frame must contain before any node type specific field.
const HeaderLen = 5

// ErrShortFrame is wrapped by every DecodeError.
var ErrShortFrame = errors.New("frame too short")

// DecodeError is returned by Decode when a frame does not contain the bytes its header claims it does.
type DecodeError struct {
	// Quantity is the field that could not be read. It is empty when the header itself was incomplete.
	Quantity Quantity
	Offset   int
	Width    int
	Len      int
}

func (e *DecodeError) Error() string {
	if e.Quantity == "" {
		return fmt.Sprintf("decode header: need %d bytes, got %d: %s", e.Offset+e.Width, e.Len, ErrShortFrame)
	}

	return fmt.Sprintf(
		"decode %s: need bytes [%d:%d], got %d: %s", e.Quantity, e.Offset, e.Offset+e.Width, e.Len, ErrShortFrame,
	)
}

func (e *DecodeError) Unwrap() error {
	return ErrShortFrame
}

// Value is a single decoded quantity.
type Value struct {
	Field

	// Raw is the integer read from the frame before scaling.
	Raw int64
	// Text is the formatted value. Sensors use the scaled decimal string; binary sensors use "1" or "0".
	Text string
}

// On reports whether a binary field is set. Any non-zero byte means on (for a door: open).
func (v Value) On() bool {
	return v.Raw != 0
}

// Reading is the result of decoding one frame.
type Reading struct {
	NodeID   uint16
	NodeType NodeType

	// Values holds one entry per field of NodeType, in table order. It is empty for unknown node types.
	Values []Value
}

// Lookup returns the formatted value of quantity q, or false if q is not reported by this node type.
func (r Reading) Lookup(q Quantity) (string, bool) {
	for _, v := range r.Values {
		if v.Quantity == q {
			return v.Text, true
		}
	}

	return "", false
}

// Map returns every decoded quantity keyed by Quantity.
func (r Reading) Map() map[Quantity]string {
	result := make(map[Quantity]string, len(r.Values))
	for _, v := range r.Values {
		result[v.Quantity] = v.Text
	}

	return result
}

// Header reads the node id and node type from frame without decoding any fields.
func Header(frame []byte) (nodeID uint16, nodeType NodeType, err error) {
	if len(frame) < HeaderLen {
		return 0, 0, &DecodeError{Offset: 0, Width: HeaderLen, Len: len(frame)}
	}

	return uint16(frame[0]) | uint16(frame[1])<<8, NodeType(frame[4]), nil
}

// Decode reads the header and every field of the node type it names. A node type without a table entry is not an
// error: the Reading simply has no Values. A frame that ends before one of its fields does returns a *DecodeError.
func Decode(frame []byte) (Reading, error) {
	nodeID, nodeType, err := Header(frame)
	if err != nil {
		return Reading{}, err
	}

	r := Reading{NodeID: nodeID, NodeType: nodeType}

	fields := nodeType.Fields()
	if len(fields) == 0 {
		return r, nil
	}

	r.Values = make([]Value, 0, len(fields))
	for _, f := range fields {
		v, err := f.Read(frame)
		if err != nil {
			return Reading{}, err
		}

		r.Values = append(r.Values, v)
	}

	return r, nil
}

// Read extracts this field from frame.
func (f Field) Read(frame []byte) (Value, error) {
	if f.Offset < 0 || f.Width <= 0 || f.Width > 8 || f.Offset+f.Width > len(frame) {
		return Value{}, &DecodeError{Quantity: f.Quantity, Offset: f.Offset, Width: f.Width, Len: len(frame)}
	}

	data := frame[f.Offset : f.Offset+f.Width]

	if f.Kind == KindBinary {
		raw := int64(data[0])
		return Value{Field: f, Raw: raw, Text: strconv.FormatInt(min(raw, 1), 10)}, nil
	}

	raw := littleEndianSigned(data)
	return Value{Field: f, Raw: raw, Text: f.Format(raw)}, nil
}

// Format scales raw by the field's divisor and renders it with the field's precision. Fields without a divisor render
// the integer unchanged.
func (f Field) Format(raw int64) string {
	if f.Divisor > 0 {
		return strconv.FormatFloat(float64(raw)/f.Divisor, 'f', f.Precision, 64)
	}

	return strconv.FormatInt(raw, 10)
}

// littleEndianSigned interprets up to eight bytes as a little-endian two's complement integer.
func littleEndianSigned(data []byte) int64 {
	var u uint64
	for i := len(data) - 1; i >= 0; i-- {
		u = u<<8 | uint64(data[i])
	}

	bits := uint(len(data)) * 8
	if bits < 64 && u&(1<<(bits-1)) != 0 {
		u |= ^uint64(0) << bits
	}

	return int64(u)
}
