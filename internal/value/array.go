package value

import "fmt"

// ArrayBody is the payload of a TagArray object: a dense, 0-indexed
// sequence (spec.md §4.3).
type ArrayBody struct {
	elems []Value
}

var arrayDescriptor = &Descriptor{
	Tag:  TagArray,
	Name: "array",
	Destroy: func(o *Object) {
		ab := o.body.(*ArrayBody)
		for _, e := range ab.elems {
			Release(e)
		}
		ab.elems = nil
	},
	// Arrays compare by identity; Equals is unreachable for arrays
	// (Equals() never calls into the descriptor for TagArray) but is
	// defined for completeness of the vtable.
	Equals: func(a, b *Object) bool { return a == b },
}

func NewArray() Value {
	return fromObject(TagArray, newObject(arrayDescriptor, &ArrayBody{}))
}

// NewArrayFrom builds an array owning the given elements (retaining
// each) — used by literal construction in the compiler/VM.
func NewArrayFrom(elems []Value) Value {
	for _, e := range elems {
		Retain(e)
	}
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return fromObject(TagArray, newObject(arrayDescriptor, &ArrayBody{elems: cp}))
}

func arrayBody(v Value) *ArrayBody { return v.obj.body.(*ArrayBody) }

func ArrayCount(v Value) int { return len(arrayBody(v).elems) }

func ArrayGet(v Value, i int) (Value, error) {
	ab := arrayBody(v)
	if i < 0 || i >= len(ab.elems) {
		return Nil(), fmt.Errorf("array get: index %d out of range [0, %d)", i, len(ab.elems))
	}
	return ab.elems[i], nil
}

func ArraySet(v Value, i int, val Value) error {
	ab := arrayBody(v)
	if i < 0 || i >= len(ab.elems) {
		return fmt.Errorf("array set: index %d out of range [0, %d)", i, len(ab.elems))
	}
	Retain(val)
	old := ab.elems[i]
	ab.elems[i] = val
	Release(old)
	return nil
}

func ArrayPush(v Value, val Value) {
	Retain(val)
	ab := arrayBody(v)
	ab.elems = append(ab.elems, val)
}

func ArrayPop(v Value) (Value, error) {
	ab := arrayBody(v)
	n := len(ab.elems)
	if n == 0 {
		return Nil(), fmt.Errorf("pop: array is empty")
	}
	last := ab.elems[n-1]
	ab.elems = ab.elems[:n-1]
	return last, nil
}

func ArrayInsert(v Value, i int, val Value) error {
	ab := arrayBody(v)
	if i < 0 || i > len(ab.elems) {
		return fmt.Errorf("insert: index %d out of range [0, %d]", i, len(ab.elems))
	}
	Retain(val)
	ab.elems = append(ab.elems, Nil())
	copy(ab.elems[i+1:], ab.elems[i:])
	ab.elems[i] = val
	return nil
}

func ArrayRemove(v Value, i int) error {
	ab := arrayBody(v)
	if i < 0 || i >= len(ab.elems) {
		return fmt.Errorf("remove: index %d out of range [0, %d)", i, len(ab.elems))
	}
	Release(ab.elems[i])
	copy(ab.elems[i:], ab.elems[i+1:])
	ab.elems = ab.elems[:len(ab.elems)-1]
	return nil
}

// ArrayInject splices other's elements into v starting at index i.
func ArrayInject(v Value, i int, other Value) error {
	ab, ob := arrayBody(v), arrayBody(other)
	if i < 0 || i > len(ab.elems) {
		return fmt.Errorf("inject: index %d out of range [0, %d]", i, len(ab.elems))
	}
	for _, e := range ob.elems {
		Retain(e)
	}
	merged := make([]Value, 0, len(ab.elems)+len(ob.elems))
	merged = append(merged, ab.elems[:i]...)
	merged = append(merged, ob.elems...)
	merged = append(merged, ab.elems[i:]...)
	ab.elems = merged
	return nil
}

// ArrayReverse reverses v's elements in place.
func ArrayReverse(v Value) {
	ab := arrayBody(v)
	for i, j := 0, len(ab.elems)-1; i < j; i, j = i+1, j-1 {
		ab.elems[i], ab.elems[j] = ab.elems[j], ab.elems[i]
	}
}

// Elements returns a borrowed view of v's backing slice. Callers must
// not retain the slice beyond the current operation: any mutation to
// the array can reallocate it.
func Elements(v Value) []Value { return arrayBody(v).elems }

// CompareFunc is the "less-than" comparator convention shared by Sort
// and Bsearch.
type CompareFunc func(a, b Value) (bool, error)

// Sort performs an in-place quicksort with Lomuto-style partitioning
// around the middle element, matching spec.md §4.3. When cmp is nil,
// the built-in total order (Comparable/Compare) is used and
// uncomparable elements abort the sort with an error.
func Sort(v Value, cmp CompareFunc) error {
	ab := arrayBody(v)
	if cmp == nil {
		cmp = builtinLess
	}
	return quicksort(ab.elems, 0, len(ab.elems)-1, cmp)
}

func builtinLess(a, b Value) (bool, error) {
	if !Comparable(a, b) {
		return false, fmt.Errorf("sort: cannot compare %s with %s", a.Kind(), b.Kind())
	}
	return Compare(a, b) < 0, nil
}

func quicksort(a []Value, lo, hi int, less CompareFunc) error {
	if lo >= hi {
		return nil
	}
	mid := lo + (hi-lo)/2
	pivot := a[mid]
	a[mid], a[hi] = a[hi], a[mid]

	store := lo
	for i := lo; i < hi; i++ {
		lt, err := less(a[i], pivot)
		if err != nil {
			return err
		}
		if lt {
			a[i], a[store] = a[store], a[i]
			store++
		}
	}
	a[store], a[hi] = a[hi], a[store]

	if err := quicksort(a, lo, store-1, less); err != nil {
		return err
	}
	return quicksort(a, store+1, hi, less)
}

// Bsearch returns an index whose element compares equal to key under
// cmp ("less-than" convention: !less(a,b) && !less(b,a)), or -1.
// The array must already be sorted under the same ordering.
func Bsearch(v Value, key Value, cmp CompareFunc) (int, error) {
	ab := arrayBody(v)
	if cmp == nil {
		cmp = builtinLess
	}
	lo, hi := 0, len(ab.elems)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		lt, err := cmp(ab.elems[mid], key)
		if err != nil {
			return -1, err
		}
		if lt {
			lo = mid + 1
			continue
		}
		gt, err := cmp(key, ab.elems[mid])
		if err != nil {
			return -1, err
		}
		if gt {
			hi = mid - 1
			continue
		}
		return mid, nil
	}
	return -1, nil
}
