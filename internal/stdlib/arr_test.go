package stdlib

import (
	"testing"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

func newArrVM(t *testing.T) *vmcore.VM {
	t.Helper()
	vm := vmcore.New()
	RegisterArr(vm)
	return vm
}

func TestPushPopLastSwapReverseGlobal(t *testing.T) {
	vm := newArrVM(t)
	a := value.NewArrayFrom([]value.Value{value.Int(1), value.Int(2)})
	callGlobal(t, vm, "push", a, value.Int(3))
	if value.ArrayCount(a) != 3 {
		t.Fatalf("count after push = %d, want 3", value.ArrayCount(a))
	}
	last := callGlobal(t, vm, "last", a)
	if last.AsInt() != 3 {
		t.Errorf("last = %v, want 3", last)
	}
	callGlobal(t, vm, "swap", a, value.Int(0), value.Int(2))
	if toInts64(a)[0] != 3 || toInts64(a)[2] != 1 {
		t.Errorf("after swap = %v, want [3 2 1]", toInts64(a))
	}
	callGlobal(t, vm, "reverse", a)
	if !intsEqual(toInts64(a), []int64{1, 2, 3}) {
		t.Errorf("after reverse = %v, want [1 2 3]", toInts64(a))
	}
	popped := callGlobal(t, vm, "pop", a)
	if popped.AsInt() != 3 {
		t.Errorf("pop = %v, want 3", popped)
	}
}

func TestSortGlobalDefaultAndCustom(t *testing.T) {
	vm := newArrVM(t)
	a := value.NewArrayFrom([]value.Value{value.Int(3), value.Int(1), value.Int(2)})
	callGlobal(t, vm, "sort", a)
	if !intsEqual(toInts64(a), []int64{1, 2, 3}) {
		t.Errorf("sort = %v, want [1 2 3]", toInts64(a))
	}

	descending := value.NewNativeFunc("descending", func(args []value.Value, _ any) (value.Value, error) {
		return value.Bool(args[0].AsInt() > args[1].AsInt()), nil
	})
	callGlobal(t, vm, "sort", a, descending)
	if !intsEqual(toInts64(a), []int64{3, 2, 1}) {
		t.Errorf("descending sort = %v, want [3 2 1]", toInts64(a))
	}
}

func TestBsearchGlobal(t *testing.T) {
	vm := newArrVM(t)
	a := value.NewArrayFrom([]value.Value{value.Int(1), value.Int(3), value.Int(5)})
	idx := callGlobal(t, vm, "bsearch", a, value.Int(3))
	if idx.AsInt() != 1 {
		t.Errorf("bsearch(3) = %v, want 1", idx)
	}
}

func TestSliceInsertEraseInjectConcatGlobal(t *testing.T) {
	vm := newArrVM(t)
	a := value.NewArrayFrom([]value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)})
	mid := callGlobal(t, vm, "slice", a, value.Int(1), value.Int(3))
	if !intsEqual(toInts64(mid), []int64{2, 3}) {
		t.Errorf("slice(1,3) = %v, want [2 3]", toInts64(mid))
	}

	callGlobal(t, vm, "insert", a, value.Int(1), value.Int(99))
	if !intsEqual(toInts64(a), []int64{1, 99, 2, 3, 4}) {
		t.Errorf("after insert = %v", toInts64(a))
	}
	callGlobal(t, vm, "erase", a, value.Int(1))
	if !intsEqual(toInts64(a), []int64{1, 2, 3, 4}) {
		t.Errorf("after erase = %v", toInts64(a))
	}

	other := value.NewArrayFrom([]value.Value{value.Int(100)})
	callGlobal(t, vm, "inject", a, value.Int(0), other)
	if !intsEqual(toInts64(a), []int64{100, 1, 2, 3, 4}) {
		t.Errorf("after inject = %v", toInts64(a))
	}

	b := value.NewArrayFrom([]value.Value{value.Int(7), value.Int(8)})
	cat := callGlobal(t, vm, "concat", a, b)
	if value.ArrayCount(cat) != value.ArrayCount(a)+2 {
		t.Errorf("concat length = %d, want %d", value.ArrayCount(cat), value.ArrayCount(a)+2)
	}
}

func TestForeachMapFilterReduceGlobal(t *testing.T) {
	vm := newArrVM(t)
	a := value.NewArrayFrom([]value.Value{value.Int(1), value.Int(2), value.Int(3)})

	sum := int64(0)
	adder := value.NewNativeFunc("adder", func(args []value.Value, _ any) (value.Value, error) {
		sum += args[0].AsInt()
		return value.Nil(), nil
	})
	callGlobal(t, vm, "foreach", a, adder)
	if sum != 6 {
		t.Errorf("foreach sum = %d, want 6", sum)
	}

	doubler := value.NewNativeFunc("doubler", func(args []value.Value, _ any) (value.Value, error) {
		return value.Int(args[0].AsInt() * 2), nil
	})
	mapped := callGlobal(t, vm, "map", a, doubler)
	if !intsEqual(toInts64(mapped), []int64{2, 4, 6}) {
		t.Errorf("map result = %v, want [2 4 6]", toInts64(mapped))
	}

	isEven := value.NewNativeFunc("isEven", func(args []value.Value, _ any) (value.Value, error) {
		return value.Bool(args[0].AsInt()%2 == 0), nil
	})
	filtered := callGlobal(t, vm, "filter", a, isEven)
	if !intsEqual(toInts64(filtered), []int64{2}) {
		t.Errorf("filter result = %v, want [2]", toInts64(filtered))
	}

	sumFn := value.NewNativeFunc("sumFn", func(args []value.Value, _ any) (value.Value, error) {
		return value.Int(args[0].AsInt() + args[1].AsInt()), nil
	})
	reduced := callGlobal(t, vm, "reduce", a, sumFn, value.Int(0))
	if reduced.AsInt() != 6 {
		t.Errorf("reduce result = %v, want 6", reduced)
	}
}

func TestAnyAllFindGlobal(t *testing.T) {
	vm := newArrVM(t)
	a := value.NewArrayFrom([]value.Value{value.Int(1), value.Int(2), value.Int(3)})

	isEven := value.NewNativeFunc("isEven", func(args []value.Value, _ any) (value.Value, error) {
		return value.Bool(args[0].AsInt()%2 == 0), nil
	})
	if got := callGlobal(t, vm, "any", a, isEven); !got.AsBool() {
		t.Error("any(isEven) should be true")
	}
	if got := callGlobal(t, vm, "all", a, isEven); got.AsBool() {
		t.Error("all(isEven) should be false")
	}
	if got := callGlobal(t, vm, "find", a, isEven); got.AsInt() != 1 {
		t.Errorf("find(isEven) = %v, want 1 (index of 2)", got)
	}

	none := value.NewNativeFunc("none", func(args []value.Value, _ any) (value.Value, error) {
		return value.Bool(false), nil
	})
	if got := callGlobal(t, vm, "find", a, none); got.AsInt() != -1 {
		t.Errorf("find with no match = %v, want -1", got)
	}
}
