package value

import (
	"fmt"
	"math"
	"unsafe"
)

// Descriptor is the per-type vtable every heap object's header points
// to (spec.md §3, "Object header"). It is set once at construction and
// never mutated.
type Descriptor struct {
	Tag     Tag
	Name    string
	Destroy func(o *Object)
	Equals  func(a, b *Object) bool
	Hash    func(o *Object) uint64
}

// Object is the shared heap header: a reference count, a pointer to
// the type descriptor, and a type-specific body.
type Object struct {
	refcount int
	desc     *Descriptor
	body     any
}

func newObject(desc *Descriptor, body any) *Object {
	return &Object{refcount: 1, desc: desc, body: body}
}

func (o *Object) Tag() Tag { return o.desc.Tag }

// Retain increments the reference count of v's backing object, if any.
// Nil, Bool, Int, Float and WeakUserInfo are no-ops.
func Retain(v Value) {
	if v.obj != nil {
		v.obj.refcount++
	}
}

// Release decrements the reference count of v's backing object, if
// any, and runs its destructor once the count reaches zero. It is
// always safe to call on any reachable value.
func Release(v Value) {
	if v.obj == nil {
		return
	}
	v.obj.refcount--
	if v.obj.refcount <= 0 {
		v.obj.desc.Destroy(v.obj)
	}
}

// RefCount reports the current reference count; it exists for tests
// exercising the retain/release protocol and has no effect on
// observable VM behavior otherwise.
func RefCount(v Value) int {
	if v.obj == nil {
		return -1
	}
	return v.obj.refcount
}

// Equals implements spec.md §3's equality rules: structural for
// strings, identity for arrays/maps/functions/userinfo, numeric
// cross-type comparison for Int/Float. NaN never equals anything,
// including itself.
func Equals(a, b Value) bool {
	switch {
	case a.kind == TagInt && b.kind == TagInt:
		return a.i == b.i
	case a.kind == TagFloat && b.kind == TagFloat:
		return a.f == b.f
	case a.kind == TagInt && b.kind == TagFloat:
		return float64(a.i) == b.f
	case a.kind == TagFloat && b.kind == TagInt:
		return a.f == float64(b.i)
	case a.kind == TagNil && b.kind == TagNil:
		return true
	case a.kind == TagBool && b.kind == TagBool:
		return a.b == b.b
	case a.kind == TagWeakUserInfo && b.kind == TagWeakUserInfo:
		return a.weak == b.weak
	case a.kind != b.kind:
		return false
	case a.kind == TagString:
		return a.obj.desc.Equals(a.obj, b.obj)
	case a.kind == TagArray, a.kind == TagHashMap, a.kind == TagFunc, a.kind == TagUserInfo:
		return a.obj == b.obj
	default:
		return false
	}
}

// Hashable reports whether v may be used as a HashMap key (§3, §4.4).
func Hashable(v Value) bool {
	switch v.kind {
	case TagArray, TagHashMap:
		return false
	default:
		return true
	}
}

// Hash computes a deterministic (within one process run) hash. An
// integral-valued float hashes equal to the matching Int, per §3.
func Hash(v Value) uint64 {
	switch v.kind {
	case TagNil:
		return 0x9e3779b97f4a7c15
	case TagBool:
		if v.b {
			return 1
		}
		return 2
	case TagInt:
		return hashUint64(uint64(v.i))
	case TagFloat:
		if i, ok := floatToIntExact(v.f); ok {
			return hashUint64(uint64(i))
		}
		return hashUint64(math.Float64bits(v.f))
	case TagString:
		return v.obj.desc.Hash(v.obj)
	case TagFunc, TagUserInfo:
		return hashUint64(uint64(uintptr(unsafe.Pointer(v.obj))))
	default:
		return 0
	}
}

func floatToIntExact(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func hashUint64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Comparable reports whether a and b may be passed to Compare.
func Comparable(a, b Value) bool {
	numeric := func(v Value) bool { return v.kind == TagInt || v.kind == TagFloat }
	if numeric(a) && numeric(b) {
		return true
	}
	return a.kind == TagString && b.kind == TagString
}

// Compare returns -1, 0 or 1. The caller must check Comparable first;
// Compare panics with a recoverable runtime-shaped error otherwise so
// callers that forget the check fail loudly instead of corrupting
// state.
func Compare(a, b Value) int {
	if !Comparable(a, b) {
		panic(fmt.Sprintf("cannot compare %s with %s", a.kind, b.kind))
	}
	if a.kind == TagString {
		return compareBytes(a.obj.body.(*StringBody).bytes, b.obj.body.(*StringBody).bytes)
	}
	af, bf := numericAsFloat(a), numericAsFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func numericAsFloat(v Value) float64 {
	if v.kind == TagInt {
		return float64(v.i)
	}
	return v.f
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
