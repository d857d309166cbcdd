package stdlib

import (
	"math"
	"testing"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

func callGlobal(t *testing.T, vm *vmcore.VM, name string, args ...value.Value) value.Value {
	t.Helper()
	fn := value.HashMapGetStrKey(vm.GetClasses().Globals(), name)
	if fn.IsNil() {
		t.Fatalf("global function %q is not registered", name)
	}
	result, err := vm.CallFunc(fn, args)
	if err != nil {
		t.Fatalf("%s(...) failed: %v", name, err)
	}
	return result
}

func TestMathUnaryFunctions(t *testing.T) {
	vm := vmcore.New()
	RegisterMath(vm)

	cases := []struct {
		name string
		arg  float64
		want float64
	}{
		{"floor", 1.7, 1},
		{"ceil", 1.2, 2},
		{"sqrt", 9, 3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := callGlobal(t, vm, c.name, value.Float(c.arg))
			if got.AsFloat() != c.want {
				t.Errorf("%s(%v) = %v, want %v", c.name, c.arg, got.AsFloat(), c.want)
			}
		})
	}
}

func TestMathAbsPreservesIntKind(t *testing.T) {
	vm := vmcore.New()
	RegisterMath(vm)

	got := callGlobal(t, vm, "abs", value.Int(-5))
	if got.Kind() != value.TagInt || got.AsInt() != 5 {
		t.Errorf("abs(-5) = %v, want Int(5)", got)
	}
	gotF := callGlobal(t, vm, "abs", value.Float(-2.5))
	if gotF.Kind() != value.TagFloat || gotF.AsFloat() != 2.5 {
		t.Errorf("abs(-2.5) = %v, want Float(2.5)", gotF)
	}
}

func TestMathMinMax(t *testing.T) {
	vm := vmcore.New()
	RegisterMath(vm)

	min := callGlobal(t, vm, "min", value.Int(3), value.Int(1), value.Int(2))
	if min.AsInt() != 1 {
		t.Errorf("min(3,1,2) = %v, want 1", min)
	}
	max := callGlobal(t, vm, "max", value.Int(3), value.Int(1), value.Int(2))
	if max.AsInt() != 3 {
		t.Errorf("max(3,1,2) = %v, want 3", max)
	}
}

func TestRangeOneTwoThreeArg(t *testing.T) {
	one, err := rangeFn([]value.Value{value.Int(3)})
	if err != nil {
		t.Fatalf("range(3) failed: %v", err)
	}
	if got := toInts64(one); !intsEqual(got, []int64{0, 1, 2}) {
		t.Errorf("range(3) = %v, want [0 1 2]", got)
	}

	two, err := rangeFn([]value.Value{value.Int(2), value.Int(5)})
	if err != nil {
		t.Fatalf("range(2,5) failed: %v", err)
	}
	if got := toInts64(two); !intsEqual(got, []int64{2, 3, 4}) {
		t.Errorf("range(2,5) = %v, want [2 3 4]", got)
	}

	if _, err := rangeFn([]value.Value{value.Float(0), value.Float(1), value.Float(0)}); err == nil {
		t.Error("range with a zero step should fail")
	}
}

func toInts64(v value.Value) []int64 {
	elems := value.Elements(v)
	out := make([]int64, len(elems))
	for i, e := range elems {
		out[i] = e.AsInt()
	}
	return out
}

func intsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestToint(t *testing.T) {
	t.Run("default-base-auto-detects", func(t *testing.T) {
		cases := map[string]int64{
			"42":   42,  // decimal
			"0x1A": 26,  // hex by 0x prefix
			"017":  15,  // octal by leading 0
		}
		for s, want := range cases {
			got, err := toint([]value.Value{value.NewString(s)}, nil)
			if err != nil || got.AsInt() != want {
				t.Errorf("toint(%q) = %v, %v, want %d", s, got, err, want)
			}
		}
	})
	t.Run("explicit-base", func(t *testing.T) {
		got, err := toint([]value.Value{value.NewString("ff"), value.Int(16)}, nil)
		if err != nil || got.AsInt() != 255 {
			t.Errorf("toint(\"ff\",16) = %v, %v, want 255", got, err)
		}
	})
	t.Run("base-one-rejected", func(t *testing.T) {
		if _, err := toint([]value.Value{value.NewString("1"), value.Int(1)}, nil); err == nil {
			t.Error("toint with base 1 should fail")
		}
	})
	t.Run("non-numeric-string-errors", func(t *testing.T) {
		if _, err := toint([]value.Value{value.NewString("nope")}, nil); err == nil {
			t.Error("toint of a non-numeric string should fail")
		}
	})
	t.Run("float-truncates", func(t *testing.T) {
		got, err := toint([]value.Value{value.Float(3.9)}, nil)
		if err != nil || got.AsInt() != 3 {
			t.Errorf("toint(3.9) = %v, %v, want 3", got, err)
		}
	})
}

func TestTofloat(t *testing.T) {
	got, err := tofloat([]value.Value{value.NewString("3.5")}, nil)
	if err != nil || got.AsFloat() != 3.5 {
		t.Errorf("tofloat(\"3.5\") = %v, %v, want 3.5", got, err)
	}
	if _, err := tofloat([]value.Value{value.NewString("nope")}, nil); err == nil {
		t.Error("tofloat of a non-numeric string should fail")
	}
}

func TestTonumberPicksIntOrFloat(t *testing.T) {
	i, err := tonumber([]value.Value{value.NewString("42")}, nil)
	if err != nil || i.Kind() != value.TagInt || i.AsInt() != 42 {
		t.Errorf("tonumber(\"42\") = %v, %v, want Int(42)", i, err)
	}
	f, err := tonumber([]value.Value{value.NewString("4.2")}, nil)
	if err != nil || f.Kind() != value.TagFloat || f.AsFloat() != 4.2 {
		t.Errorf("tonumber(\"4.2\") = %v, %v, want Float(4.2)", f, err)
	}
	e, err := tonumber([]value.Value{value.NewString("1e3")}, nil)
	if err != nil || e.Kind() != value.TagFloat || e.AsFloat() != 1000 {
		t.Errorf("tonumber(\"1e3\") = %v, %v, want Float(1000)", e, err)
	}
}

func TestCplxArithmetic(t *testing.T) {
	fns := cplxFuncs()
	a := cplxMapForTest(1, 2)
	b := cplxMapForTest(3, 4)

	sum, err := fns["cplx_add"]([]value.Value{a, b}, nil)
	if err != nil {
		t.Fatalf("cplx_add failed: %v", err)
	}
	checkCplx(t, sum, 4, 6)

	prod, err := fns["cplx_mul"]([]value.Value{a, b}, nil)
	if err != nil {
		t.Fatalf("cplx_mul failed: %v", err)
	}
	checkCplx(t, prod, -5, 10)
}

func TestCplxPolarRoundTrip(t *testing.T) {
	fns := cplxFuncs()
	a := cplxMapForTest(1, 1)
	polar, err := fns["can2pol"]([]value.Value{a}, nil)
	if err != nil {
		t.Fatalf("can2pol failed: %v", err)
	}
	back, err := fns["pol2can"]([]value.Value{polar}, nil)
	if err != nil {
		t.Fatalf("pol2can failed: %v", err)
	}
	checkCplx(t, back, 1, 1)
}

func cplxMapForTest(re, im float64) value.Value {
	m := value.NewHashMap()
	_ = value.HashMapSetStrKey(m, "re", value.Float(re))
	_ = value.HashMapSetStrKey(m, "im", value.Float(im))
	return m
}

func checkCplx(t *testing.T, m value.Value, wantRe, wantIm float64) {
	t.Helper()
	re := value.HashMapGetStrKey(m, "re").AsFloat()
	im := value.HashMapGetStrKey(m, "im").AsFloat()
	if math.Abs(re-wantRe) > 1e-9 || math.Abs(im-wantIm) > 1e-9 {
		t.Errorf("got re=%v im=%v, want re=%v im=%v", re, im, wantRe, wantIm)
	}
}
