package mqtt

import (
	"bytes"
	"encoding/json/v2"
	"strconv"
)

// ValueMarshaler converts a T to the payload published for it.
type ValueMarshaler[T any] func(v T) ([]byte, error)

// ValueUnmarshaler converts a received payload to a T.
type ValueUnmarshaler[T any] func([]byte) (T, error)

var (
	StringMarshaler ValueMarshaler[string] = func(v string) ([]byte, error) {
		return []byte(v), nil
	}

	// StringUnmarshaler returns the payload as a string with surrounding whitespace removed. Some Home Assistant
	// add-ons publish status payloads with a trailing newline.
	StringUnmarshaler ValueUnmarshaler[string] = func(payload []byte) (string, error) {
		return string(bytes.TrimSpace(payload)), nil
	}

	UintMarshaler = UnsignedMarshaler[uint]()
)

// UnsignedMarshaler returns a ValueMarshaler that writes T in base 10, the way Home Assistant expects numeric sensor
// states.
func UnsignedMarshaler[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64]() ValueMarshaler[T] {
	return func(v T) ([]byte, error) {
		return strconv.AppendUint(nil, uint64(v), 10), nil
	}
}

// JsonValueMarshaler returns a ValueMarshaler for type T implemented by marshaling the value to Json.
func JsonValueMarshaler[T any]() ValueMarshaler[T] {
	return func(v T) ([]byte, error) {
		return json.Marshal(v, json.Deterministic(true))
	}
}

// JsonValueUnmarshaler returns a ValueUnmarshaler for type T implemented by un-marshaling the payload from json.
func JsonValueUnmarshaler[T any]() ValueUnmarshaler[T] {
	return func(payload []byte) (T, error) {
		var v T

		return v, json.Unmarshal(payload, &v)
	}
}
