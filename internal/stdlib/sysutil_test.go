package stdlib

import (
	"strings"
	"testing"

	"sparkling/internal/context"
	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

func newSysVM(t *testing.T) (*vmcore.VM, *context.Context) {
	t.Helper()
	ctx := context.New()
	vm := ctx.VM()
	RegisterSysutil(vm, ctx)
	return vm, ctx
}

// The epoch in UTC pins down every field of the time map schema:
// 1970-01-01 was a Thursday.
func TestUtctimeEpochSchema(t *testing.T) {
	vm, _ := newSysVM(t)
	m := callGlobal(t, vm, "utctime", value.Int(0))
	if m.Kind() != value.TagHashMap {
		t.Fatalf("utctime returned %s, want hashmap", m.Kind())
	}
	wantInts := map[string]int64{
		"sec": 0, "min": 0, "hour": 0,
		"mday": 1, "month": 0, "year": 70,
		"wday": 4, "yday": 0,
	}
	for k, want := range wantInts {
		got := value.HashMapGetStrKey(m, k)
		if got.Kind() != value.TagInt || got.AsInt() != want {
			t.Errorf("%s = %v, want %d", k, got, want)
		}
	}
	isdst := value.HashMapGetStrKey(m, "isdst")
	if isdst.Kind() != value.TagBool || isdst.AsBool() {
		t.Errorf("isdst = %v, want false", isdst)
	}
}

func TestFmtdate(t *testing.T) {
	vm, _ := newSysVM(t)
	got := callGlobal(t, vm, "fmtdate", value.NewString("2006-01-02"), value.Int(0))
	if string(value.Bytes(got)) != "1970-01-01" {
		t.Errorf("fmtdate = %q, want \"1970-01-01\"", value.Bytes(got))
	}
}

func TestAssert(t *testing.T) {
	vm, _ := newSysVM(t)
	callGlobal(t, vm, "assert", value.Bool(true))

	fn := value.HashMapGetStrKey(vm.GetClasses().Globals(), "assert")
	if _, err := vm.CallFunc(fn, []value.Value{value.Bool(false), value.NewString("boom")}); err == nil {
		t.Fatal("assert(false) should fail")
	} else if !strings.Contains(err.Error(), "boom") {
		t.Errorf("assert error = %v, want the custom message", err)
	}
}

func TestGetenv(t *testing.T) {
	vm, _ := newSysVM(t)
	t.Setenv("SPARKLING_TEST_VAR", "hello")
	got := callGlobal(t, vm, "getenv", value.NewString("SPARKLING_TEST_VAR"))
	if string(value.Bytes(got)) != "hello" {
		t.Errorf("getenv = %q, want \"hello\"", value.Bytes(got))
	}
	missing := callGlobal(t, vm, "getenv", value.NewString("SPARKLING_TEST_UNSET"))
	if !missing.IsNil() {
		t.Errorf("getenv of unset variable = %v, want nil", missing)
	}
}

func TestUUIDShape(t *testing.T) {
	vm, _ := newSysVM(t)
	got := callGlobal(t, vm, "uuid")
	s := string(value.Bytes(got))
	if len(s) != 36 {
		t.Fatalf("uuid length = %d, want 36", len(s))
	}
	for _, i := range []int{8, 13, 18, 23} {
		if s[i] != '-' {
			t.Errorf("uuid %q missing hyphen at %d", s, i)
		}
	}
	other := string(value.Bytes(callGlobal(t, vm, "uuid")))
	if s == other {
		t.Error("two uuids should differ")
	}
}

func TestHumanizeBytes(t *testing.T) {
	vm, _ := newSysVM(t)
	got := callGlobal(t, vm, "humanize_bytes", value.Int(500))
	if string(value.Bytes(got)) != "500 B" {
		t.Errorf("humanize_bytes(500) = %q, want \"500 B\"", value.Bytes(got))
	}
}

// backtrace excludes its own frame, so calling it directly from the
// embedder yields an empty array.
func TestBacktraceExcludesOwnFrame(t *testing.T) {
	vm, _ := newSysVM(t)
	got := callGlobal(t, vm, "backtrace")
	if got.Kind() != value.TagArray || value.ArrayCount(got) != 0 {
		t.Errorf("backtrace from the top = %v, want an empty array", got)
	}
}

func TestCompileReturnsCallableFunction(t *testing.T) {
	vm, _ := newSysVM(t)
	fn := callGlobal(t, vm, "compile", value.NewString("2 + 2"))
	if fn.Kind() != value.TagFunc {
		t.Fatalf("compile returned %s, want function", fn.Kind())
	}
	result, err := vm.CallFunc(fn, nil)
	if err != nil {
		t.Fatalf("calling compiled expression failed: %v", err)
	}
	if result.AsInt() != 4 {
		t.Errorf("result = %v, want 4", result)
	}
}

func TestCallMethodOnFunctionValues(t *testing.T) {
	vm, _ := newSysVM(t)
	add := value.NewNativeFunc("add", func(args []value.Value, _ any) (value.Value, error) {
		return value.Int(args[0].AsInt() + args[1].AsInt()), nil
	})
	callFn, err := vm.GetClasses().Dispatch(value.TagFunc, "call")
	if err != nil {
		t.Fatalf("dispatch of call on function values failed: %v", err)
	}
	argv := value.NewArrayFrom([]value.Value{value.Int(1), value.Int(2)})
	result, err := vm.CallFunc(callFn, []value.Value{add, argv})
	if err != nil {
		t.Fatalf("fn.call([1,2]) failed: %v", err)
	}
	if result.AsInt() != 3 {
		t.Errorf("fn.call([1,2]) = %v, want 3", result)
	}

	if _, err := vm.CallFunc(callFn, []value.Value{add, value.Int(1)}); err == nil {
		t.Error("call with a non-array argument list should fail")
	}
}

func TestDifftime(t *testing.T) {
	vm, _ := newSysVM(t)
	got := callGlobal(t, vm, "difftime", value.Int(10), value.Int(4))
	if got.Kind() != value.TagFloat || got.AsFloat() != 6 {
		t.Errorf("difftime(10, 4) = %v, want Float(6)", got)
	}
}
