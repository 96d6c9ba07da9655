// Package encoding provides text encoding utilities for PMX model files.
package encoding

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextEncoding is the string encoding declared in a PMX header.
type TextEncoding uint8

const (
	UTF16LE TextEncoding = 0
	UTF8    TextEncoding = 1
)

// String returns the encoding name.
func (e TextEncoding) String() string {
	switch e {
	case UTF16LE:
		return "UTF-16LE"
	case UTF8:
		return "UTF-8"
	default:
		return fmt.Sprintf("Unknown(%d)", e)
	}
}

// Valid reports whether e is a known encoding.
func (e TextEncoding) Valid() bool {
	return e == UTF16LE || e == UTF8
}

func (e TextEncoding) codec() encoding.Encoding {
	if e == UTF16LE {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF8
}

// Decode converts encoded bytes to a UTF-8 string.
func Decode(data []byte, e TextEncoding) (string, error) {
	if e == UTF8 {
		return string(data), nil
	}
	result, _, err := transform.Bytes(e.codec().NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decoding %s text: %w", e, err)
	}
	return string(result), nil
}

// Encode converts a UTF-8 string to the given encoding.
func Encode(s string, e TextEncoding) ([]byte, error) {
	if e == UTF8 {
		return []byte(s), nil
	}
	result, _, err := transform.Bytes(e.codec().NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %s text: %w", e, err)
	}
	return result, nil
}

// TrimNullString removes trailing null bytes and converts to string.
func TrimNullString(s string) string {
	return string(bytes.TrimRight([]byte(s), "\x00"))
}
