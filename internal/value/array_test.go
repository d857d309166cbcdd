package value

import "testing"

func toInts(v Value) []int64 {
	elems := Elements(v)
	out := make([]int64, len(elems))
	for i, e := range elems {
		out[i] = e.AsInt()
	}
	return out
}

func TestSortBuiltinOrder(t *testing.T) {
	a := NewArrayFrom([]Value{Int(3), Int(1), Int(2)})
	if err := Sort(a, nil); err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	got := toInts(a)
	want := []int64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort result = %v, want %v", got, want)
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	a := NewArrayFrom([]Value{Int(5), Int(1), Int(4), Int(2), Int(3)})
	if err := Sort(a, nil); err != nil {
		t.Fatalf("first sort failed: %v", err)
	}
	once := append([]int64(nil), toInts(a)...)
	if err := Sort(a, nil); err != nil {
		t.Fatalf("second sort failed: %v", err)
	}
	twice := toInts(a)
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("sort(sort(a)) != sort(a): %v vs %v", once, twice)
		}
	}
}

func TestSortUncomparableAborts(t *testing.T) {
	a := NewArrayFrom([]Value{Int(1), NewString("x")})
	if err := Sort(a, nil); err == nil {
		t.Error("sorting uncomparable elements should fail")
	}
}

func TestSortCustomComparator(t *testing.T) {
	a := NewArrayFrom([]Value{Int(1), Int(2), Int(3)})
	descending := func(x, y Value) (bool, error) { return x.AsInt() > y.AsInt(), nil }
	if err := Sort(a, descending); err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	got := toInts(a)
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descending sort = %v, want %v", got, want)
		}
	}
}

func TestBsearchFindsAndMisses(t *testing.T) {
	a := NewArrayFrom([]Value{Int(1), Int(3), Int(5), Int(7), Int(9)})
	idx, err := Bsearch(a, Int(5), nil)
	if err != nil || idx != 2 {
		t.Errorf("bsearch(5) = %d, %v, want 2", idx, err)
	}
	idx, err = Bsearch(a, Int(4), nil)
	if err != nil || idx != -1 {
		t.Errorf("bsearch(4) = %d, %v, want -1", idx, err)
	}
}

func TestPushPopRemoveInsert(t *testing.T) {
	a := NewArray()
	ArrayPush(a, Int(1))
	ArrayPush(a, Int(2))
	if ArrayCount(a) != 2 {
		t.Fatalf("count after two pushes = %d, want 2", ArrayCount(a))
	}
	if err := ArrayInsert(a, 1, Int(99)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	got := toInts(a)
	want := []int64{1, 99, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("after insert = %v, want %v", got, want)
		}
	}
	if err := ArrayRemove(a, 1); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	got = toInts(a)
	want = []int64{1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("after remove = %v, want %v", got, want)
		}
	}
	last, err := ArrayPop(a)
	if err != nil || last.AsInt() != 2 {
		t.Fatalf("pop = %v, %v, want 2", last, err)
	}
}

func TestPopEmptyArrayFails(t *testing.T) {
	a := NewArray()
	if _, err := ArrayPop(a); err == nil {
		t.Error("pop on empty array should fail")
	}
}

func TestGetSetOutOfRange(t *testing.T) {
	a := NewArrayFrom([]Value{Int(1)})
	if _, err := ArrayGet(a, 5); err == nil {
		t.Error("get out of range should fail")
	}
	if err := ArraySet(a, 5, Int(1)); err == nil {
		t.Error("set out of range should fail")
	}
}

func TestReverseElementwise(t *testing.T) {
	a := NewArrayFrom([]Value{Int(1), Int(2), Int(3)})
	ArrayReverse(a)
	ArrayReverse(a)
	got := toInts(a)
	want := []int64{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reverse(reverse(a)) = %v, want %v", got, want)
		}
	}
}

func TestInjectSplicesAtIndex(t *testing.T) {
	a := NewArrayFrom([]Value{Int(1), Int(4)})
	other := NewArrayFrom([]Value{Int(2), Int(3)})
	if err := ArrayInject(a, 1, other); err != nil {
		t.Fatalf("inject failed: %v", err)
	}
	got := toInts(a)
	want := []int64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("after inject = %v, want %v", got, want)
		}
	}
}
