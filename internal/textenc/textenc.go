// Package textenc converts between strings and their byte representation for
// the encodings a string field may declare.
package textenc

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrInvalid is wrapped by every conversion failure.
var ErrInvalid = errors.New("textenc: invalid input")

// Encoding converts strings to bytes and back.
type Encoding interface {
	Name() string
	Encode(s string) ([]byte, error)
	Decode(b []byte) (string, error)
	// Boundary returns the largest n' <= n such that b[:n'] does not split a
	// character.
	Boundary(b []byte, n int) int
	// Unit is the code unit size in bytes. A NUL terminator is one zero
	// unit on a unit boundary.
	Unit() int
}

// IndexNUL returns the byte index of the first zero unit of b, or -1.
func IndexNUL(b []byte, unit int) int {
	for i := 0; i+unit <= len(b); i += unit {
		if zero(b[i : i+unit]) {
			return i
		}
	}
	return -1
}

// TrimNUL strips trailing zero units from b.
func TrimNUL(b []byte, unit int) []byte {
	for len(b) >= unit && len(b)%unit == 0 && zero(b[len(b)-unit:]) {
		b = b[:len(b)-unit]
	}
	return b
}

func zero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Lookup resolves an encoding name. The empty name means utf8.
func Lookup(name string) (Encoding, bool) {
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return utf8Enc{}, true
	case "ascii":
		return asciiEnc{}, true
	case "latin1", "binary":
		return latin1Enc{}, true
	case "hex":
		return hexEnc{}, true
	case "base64":
		return base64Enc{}, true
	case "utf16le", "utf-16le", "ucs2", "ucs-2":
		return utf16Enc{}, true
	}
	return nil, false
}

func invalid(enc, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalid, enc, fmt.Sprintf(format, args...))
}

type utf8Enc struct{}

func (utf8Enc) Unit() int { return 1 }
func (utf8Enc) Name() string { return "utf8" }
func (utf8Enc) Encode(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, invalid("utf8", "invalid utf-8 in value")
	}
	return []byte(s), nil
}
func (utf8Enc) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", invalid("utf8", "invalid utf-8 sequence")
	}
	return string(b), nil
}
func (utf8Enc) Boundary(b []byte, n int) int {
	if n >= len(b) {
		return len(b)
	}
	for n > 0 && !utf8.RuneStart(b[n]) {
		n--
	}
	return n
}

type asciiEnc struct{}

func (asciiEnc) Unit() int { return 1 }
func (asciiEnc) Name() string { return "ascii" }
func (asciiEnc) Encode(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return nil, invalid("ascii", "non-ascii byte at %d", i)
		}
	}
	return []byte(s), nil
}
func (asciiEnc) Decode(b []byte) (string, error) {
	for i, c := range b {
		if c >= utf8.RuneSelf {
			return "", invalid("ascii", "non-ascii byte 0x%02x at %d", c, i)
		}
	}
	return string(b), nil
}
func (asciiEnc) Boundary(b []byte, n int) int { return min(n, len(b)) }

type latin1Enc struct{}

func (latin1Enc) Unit() int { return 1 }
func (latin1Enc) Name() string { return "latin1" }
func (latin1Enc) Encode(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, invalid("latin1", "rune %U not representable", r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}
func (latin1Enc) Decode(b []byte) (string, error) {
	rs := make([]rune, len(b))
	for i, c := range b {
		rs[i] = rune(c)
	}
	return string(rs), nil
}
func (latin1Enc) Boundary(b []byte, n int) int { return min(n, len(b)) }

type hexEnc struct{}

func (hexEnc) Unit() int { return 1 }
func (hexEnc) Name() string { return "hex" }
func (hexEnc) Encode(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, invalid("hex", "%v", err)
	}
	return b, nil
}
func (hexEnc) Decode(b []byte) (string, error) { return hex.EncodeToString(b), nil }
func (hexEnc) Boundary(b []byte, n int) int    { return min(n, len(b)) }

type base64Enc struct{}

func (base64Enc) Unit() int { return 1 }
func (base64Enc) Name() string { return "base64" }
func (base64Enc) Encode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalid("base64", "%v", err)
	}
	return b, nil
}
func (base64Enc) Decode(b []byte) (string, error) { return base64.StdEncoding.EncodeToString(b), nil }
func (base64Enc) Boundary(b []byte, n int) int    { return min(n, len(b)) }

type utf16Enc struct{}

func (utf16Enc) Unit() int { return 2 }
func (utf16Enc) Name() string { return "utf16le" }
func (utf16Enc) Encode(s string) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out, nil
}
func (utf16Enc) Decode(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", invalid("utf16le", "odd byte length %d", len(b))
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units)), nil
}
func (utf16Enc) Boundary(b []byte, n int) int {
	n = min(n, len(b))
	n -= n % 2
	// keep surrogate pairs together
	if n >= 2 {
		u := uint16(b[n-2]) | uint16(b[n-1])<<8
		if u >= 0xd800 && u < 0xdc00 {
			n -= 2
		}
	}
	return n
}
