package value

import (
	"bytes"
	"fmt"
)

// StringBody is the payload of a TagString object: an immutable byte
// string with a lazily computed, cached hash (spec.md §4.2).
type StringBody struct {
	bytes  []byte
	hash   uint64
	hashed bool
}

var stringDescriptor = &Descriptor{
	Tag:  TagString,
	Name: "string",
	Destroy: func(o *Object) {
		o.body = nil
	},
	Equals: func(a, b *Object) bool {
		return bytes.Equal(a.body.(*StringBody).bytes, b.body.(*StringBody).bytes)
	},
	Hash: func(o *Object) uint64 {
		sb := o.body.(*StringBody)
		if !sb.hashed {
			sb.hash = fnv1a(sb.bytes)
			sb.hashed = true
		}
		return sb.hash
	},
}

func fnv1a(b []byte) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}

// NewString copies the caller's bytes (the "copying" construction mode
// of §4.2).
func NewString(s string) Value {
	buf := make([]byte, len(s))
	copy(buf, s)
	return fromObject(TagString, newObject(stringDescriptor, &StringBody{bytes: buf}))
}

// NewStringNoCopy takes ownership of buf without duplicating it (the
// "nocopy-owning" construction mode of §4.2). The caller must not
// retain a mutable reference to buf afterwards.
func NewStringNoCopy(buf []byte) Value {
	return fromObject(TagString, newObject(stringDescriptor, &StringBody{bytes: buf}))
}

func stringBody(v Value) *StringBody { return v.obj.body.(*StringBody) }

// Bytes returns the string's raw bytes. Callers must not mutate the
// returned slice; strings are immutable.
func Bytes(v Value) []byte { return stringBody(v).bytes }

func StrLen(v Value) int { return len(stringBody(v).bytes) }

// Substr implements spec.md §4.2's slicing policy: 0 <= start <= len,
// 0 <= length, start+length <= len.
func Substr(v Value, start, length int) (Value, error) {
	b := stringBody(v).bytes
	n := len(b)
	if start < 0 || start > n {
		return Nil(), fmt.Errorf("substr: start index %d out of range [0, %d]", start, n)
	}
	if length < 0 {
		return Nil(), fmt.Errorf("substr: length %d must be non-negative", length)
	}
	if start+length > n {
		return Nil(), fmt.Errorf("substr: end index %d exceeds string length %d", start+length, n)
	}
	out := make([]byte, length)
	copy(out, b[start:start+length])
	return NewStringNoCopy(out), nil
}

// Find returns the byte offset of needle in v starting at offset (or
// len+offset when negative), or -1 if not found.
func Find(v Value, needle []byte, offset int) int {
	b := stringBody(v).bytes
	if offset < 0 {
		offset += len(b)
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(b) {
		return -1
	}
	idx := bytes.Index(b[offset:], needle)
	if idx < 0 {
		return -1
	}
	return idx + offset
}

// Split returns every piece of v separated by sep, including empty
// leading/trailing pieces. sep must be non-empty.
func Split(v Value, sep []byte) ([]Value, error) {
	if len(sep) == 0 {
		return nil, fmt.Errorf("split: separator must not be empty")
	}
	parts := bytes.Split(stringBody(v).bytes, sep)
	out := make([]Value, len(parts))
	for i, p := range parts {
		cp := make([]byte, len(p))
		copy(cp, p)
		out[i] = NewStringNoCopy(cp)
	}
	return out, nil
}

// Join is the inverse of Split: it concatenates parts with sep between
// each, reproducing s when called as Split(s, sep).Join(sep).
func Join(parts []Value, sep []byte) (Value, error) {
	var buf bytes.Buffer
	for i, p := range parts {
		if p.Kind() != TagString {
			return Nil(), fmt.Errorf("join: element %d is not a string", i)
		}
		if i > 0 {
			buf.Write(sep)
		}
		buf.Write(stringBody(p).bytes)
	}
	return NewStringNoCopy(buf.Bytes()), nil
}

func Repeat(v Value, n int) (Value, error) {
	if n < 0 {
		return Nil(), fmt.Errorf("repeat: count %d must be non-negative", n)
	}
	b := stringBody(v).bytes
	out := make([]byte, 0, len(b)*n)
	for i := 0; i < n; i++ {
		out = append(out, b...)
	}
	return NewStringNoCopy(out), nil
}

func ToLower(v Value) Value {
	b := stringBody(v).bytes
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out[i] = c
	}
	return NewStringNoCopy(out)
}

func ToUpper(v Value) Value {
	b := stringBody(v).bytes
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		out[i] = c
	}
	return NewStringNoCopy(out)
}
