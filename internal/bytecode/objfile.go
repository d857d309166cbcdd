package bytecode

import (
	"fmt"
	"math"

	"sparkling/internal/value"
)

// ObjWordSize is the object-file word width in bytes. Object files are
// a flat sequence of these words with no header; the loader derives
// the word count from the file size and ignores a trailing partial
// word.
const ObjWordSize = 4

// Word-stream layout, all counts in words unless noted:
//
//	arity
//	code length (bytes), then the code packed 4 bytes per word
//	constant count, then per constant a kind word and its payload:
//	  int    -> 2 words (low, high)
//	  float  -> 2 words (IEEE-754 bits, low, high)
//	  string -> byte length, then packed bytes
//	  func   -> nested word count, then the closure chunk's own encoding
//
// Debug line info is not carried; a chunk loaded from an object file
// reports line 0 in stack traces.
const (
	constInt uint32 = iota
	constFloat
	constString
	constFunc
)

// EncodeWords flattens a compiled chunk (and, recursively, the closure
// chunks in its constant pool) into the object-file word stream.
func EncodeWords(c *Chunk) ([]uint32, error) {
	var out []uint32
	out = append(out, uint32(c.Arity))
	out = append(out, uint32(len(c.Code)))
	out = append(out, packBytes(c.Code)...)
	out = append(out, uint32(len(c.Constants)))
	for _, k := range c.Constants {
		switch k.Kind() {
		case value.TagInt:
			u := uint64(k.AsInt())
			out = append(out, constInt, uint32(u), uint32(u>>32))
		case value.TagFloat:
			u := math.Float64bits(k.AsFloat())
			out = append(out, constFloat, uint32(u), uint32(u>>32))
		case value.TagString:
			b := value.Bytes(k)
			out = append(out, constString, uint32(len(b)))
			out = append(out, packBytes(b)...)
		case value.TagFunc:
			info := value.FuncInfo(k)
			if info.Closure == nil {
				return nil, fmt.Errorf("bytecode: cannot encode a native function constant")
			}
			sub, ok := info.Closure.Chunk.(*Chunk)
			if !ok {
				return nil, fmt.Errorf("bytecode: closure constant has no chunk body")
			}
			nested, err := EncodeWords(sub)
			if err != nil {
				return nil, err
			}
			out = append(out, constFunc, uint32(len(nested)))
			out = append(out, nested...)
		default:
			return nil, fmt.Errorf("bytecode: cannot encode a %s constant", value.TypeName(k.Kind()))
		}
	}
	return out, nil
}

// DecodeWords rebuilds a chunk from an object-file word stream.
func DecodeWords(words []uint32) (*Chunk, error) {
	c, rest, err := decodeChunk(words)
	if err != nil {
		return nil, err
	}
	// Extra trailing words are tolerated: object files are sized in
	// whole words and a writer may pad the tail.
	_ = rest
	return c, nil
}

func decodeChunk(words []uint32) (*Chunk, []uint32, error) {
	r := &wordReader{words: words}
	c := NewChunk("<obj>")

	arity, err := r.next("arity")
	if err != nil {
		return nil, nil, err
	}
	c.Arity = int(arity)

	codeLen, err := r.next("code length")
	if err != nil {
		return nil, nil, err
	}
	code, err := r.bytes(int(codeLen))
	if err != nil {
		return nil, nil, err
	}
	c.Code = code
	c.Debug = make([]DebugInfo, len(code))

	nconst, err := r.next("constant count")
	if err != nil {
		return nil, nil, err
	}
	for i := uint32(0); i < nconst; i++ {
		kind, err := r.next("constant kind")
		if err != nil {
			return nil, nil, err
		}
		switch kind {
		case constInt:
			lo, err := r.next("int constant")
			if err != nil {
				return nil, nil, err
			}
			hi, err := r.next("int constant")
			if err != nil {
				return nil, nil, err
			}
			c.AddConstant(value.Int(int64(uint64(lo) | uint64(hi)<<32)))
		case constFloat:
			lo, err := r.next("float constant")
			if err != nil {
				return nil, nil, err
			}
			hi, err := r.next("float constant")
			if err != nil {
				return nil, nil, err
			}
			c.AddConstant(value.Float(math.Float64frombits(uint64(lo) | uint64(hi)<<32)))
		case constString:
			n, err := r.next("string length")
			if err != nil {
				return nil, nil, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, nil, err
			}
			c.AddConstant(value.NewStringNoCopy(b))
		case constFunc:
			n, err := r.next("nested chunk length")
			if err != nil {
				return nil, nil, err
			}
			nested, err := r.take(int(n))
			if err != nil {
				return nil, nil, err
			}
			sub, _, err := decodeChunk(nested)
			if err != nil {
				return nil, nil, err
			}
			sub.Name = "<function>"
			c.AddConstant(value.NewClosureFunc(&value.Closure{Chunk: sub, Name: sub.Name, Arity: sub.Arity}))
		default:
			return nil, nil, fmt.Errorf("bytecode: unknown constant kind %d", kind)
		}
	}
	return c, r.words[r.pos:], nil
}

type wordReader struct {
	words []uint32
	pos   int
}

func (r *wordReader) next(what string) (uint32, error) {
	if r.pos >= len(r.words) {
		return 0, fmt.Errorf("bytecode: object file truncated reading %s", what)
	}
	w := r.words[r.pos]
	r.pos++
	return w, nil
}

func (r *wordReader) take(n int) ([]uint32, error) {
	if r.pos+n > len(r.words) {
		return nil, fmt.Errorf("bytecode: object file truncated reading %d words", n)
	}
	out := r.words[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *wordReader) bytes(n int) ([]byte, error) {
	nwords := (n + ObjWordSize - 1) / ObjWordSize
	packed, err := r.take(nwords)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(packed[i/ObjWordSize] >> (8 * (i % ObjWordSize)))
	}
	return out, nil
}

func packBytes(b []byte) []uint32 {
	out := make([]uint32, (len(b)+ObjWordSize-1)/ObjWordSize)
	for i, c := range b {
		out[i/ObjWordSize] |= uint32(c) << (8 * (i % ObjWordSize))
	}
	return out
}
