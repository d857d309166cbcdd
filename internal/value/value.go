// Package value implements Sparkling's tagged value representation and
// the reference-counted heap objects (String, Array, HashMap, Func,
// UserInfo) that back it.
package value

import "fmt"

// Tag identifies the variant carried by a Value. It doubles as the
// type-tag used by the class table (internal/classtable) to key method
// dictionaries.
type Tag int

const (
	TagNil Tag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagArray
	TagHashMap
	TagFunc
	TagUserInfo
	TagWeakUserInfo
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagArray:
		return "array"
	case TagHashMap:
		return "hashmap"
	case TagFunc:
		return "function"
	case TagUserInfo:
		return "userinfo"
	case TagWeakUserInfo:
		return "weak userinfo"
	default:
		return "unknown"
	}
}

// Value is the tagged union described in spec.md §3. Only one of the
// numeric/boolean fields, obj or weak is meaningful at a time,
// according to Kind.
type Value struct {
	kind Tag
	b    bool
	i    int64
	f    float64
	obj  *Object
	weak any
}

func Nil() Value                { return Value{kind: TagNil} }
func Bool(b bool) Value         { return Value{kind: TagBool, b: b} }
func Int(i int64) Value         { return Value{kind: TagInt, i: i} }
func Float(f float64) Value     { return Value{kind: TagFloat, f: f} }
func WeakUserInfo(p any) Value  { return Value{kind: TagWeakUserInfo, weak: p} }

func fromObject(kind Tag, o *Object) Value { return Value{kind: kind, obj: o} }

func (v Value) Kind() Tag   { return v.kind }
func (v Value) IsNil() bool { return v.kind == TagNil }

func (v Value) AsBool() bool { return v.b }
func (v Value) AsInt() int64 { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) Object() *Object { return v.obj }
func (v Value) AsWeak() any { return v.weak }

// Truthy implements the language's boolean-coercion rule: nil and the
// boolean false are falsy, everything else (including 0 and "") is
// truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case TagNil:
		return false
	case TagBool:
		return v.b
	default:
		return true
	}
}

// TypeName returns the human-readable name used in error messages.
func TypeName(t Tag) string { return t.String() }

func (v Value) String() string {
	switch v.kind {
	case TagNil:
		return "nil"
	case TagBool:
		return fmt.Sprintf("%t", v.b)
	case TagInt:
		return fmt.Sprintf("%d", v.i)
	case TagFloat:
		return fmt.Sprintf("%g", v.f)
	case TagString:
		return string(v.obj.body.(*StringBody).bytes)
	case TagArray:
		return fmt.Sprintf("<array %d>", len(v.obj.body.(*ArrayBody).elems))
	case TagHashMap:
		return fmt.Sprintf("<hashmap %d>", v.obj.body.(*HashMapBody).count)
	case TagFunc:
		return fmt.Sprintf("<function %s>", v.obj.body.(*FuncBody).Name)
	case TagUserInfo:
		return "<userinfo>"
	case TagWeakUserInfo:
		return "<weak userinfo>"
	default:
		return "<?>"
	}
}
