package stdlib

import (
	"testing"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

func newStrVM(t *testing.T) *vmcore.VM {
	t.Helper()
	vm := vmcore.New()
	RegisterStr(vm)
	return vm
}

func TestStrlenAndSubstr(t *testing.T) {
	vm := newStrVM(t)
	got := callGlobal(t, vm, "strlen", value.NewString("hello"))
	if got.AsInt() != 5 {
		t.Errorf("strlen(\"hello\") = %v, want 5", got)
	}
	sub := callGlobal(t, vm, "substr", value.NewString("hello world"), value.Int(6), value.Int(5))
	if string(value.Bytes(sub)) != "world" {
		t.Errorf("substr = %q, want \"world\"", value.Bytes(sub))
	}
}

func TestFindGlobal(t *testing.T) {
	vm := newStrVM(t)
	got := callGlobal(t, vm, "find", value.NewString("abcabc"), value.NewString("bc"))
	if got.AsInt() != 1 {
		t.Errorf("find = %v, want 1", got)
	}
	miss := callGlobal(t, vm, "find", value.NewString("abc"), value.NewString("zz"))
	if miss.AsInt() != -1 {
		t.Errorf("find of missing needle = %v, want -1", miss)
	}
}

func TestSplitJoinGlobal(t *testing.T) {
	vm := newStrVM(t)
	parts := callGlobal(t, vm, "split", value.NewString("a,b,c"), value.NewString(","))
	if value.ArrayCount(parts) != 3 {
		t.Fatalf("split produced %d parts, want 3", value.ArrayCount(parts))
	}
	joined := callGlobal(t, vm, "join", parts, value.NewString("-"))
	if string(value.Bytes(joined)) != "a-b-c" {
		t.Errorf("join = %q, want \"a-b-c\"", value.Bytes(joined))
	}
}

func TestRepeatToUpperToLowerGlobal(t *testing.T) {
	vm := newStrVM(t)
	r := callGlobal(t, vm, "repeat", value.NewString("ab"), value.Int(2))
	if string(value.Bytes(r)) != "abab" {
		t.Errorf("repeat = %q, want \"abab\"", value.Bytes(r))
	}
	up := callGlobal(t, vm, "toupper", value.NewString("abc"))
	if string(value.Bytes(up)) != "ABC" {
		t.Errorf("toupper = %q, want \"ABC\"", value.Bytes(up))
	}
	lo := callGlobal(t, vm, "tolower", value.NewString("ABC"))
	if string(value.Bytes(lo)) != "abc" {
		t.Errorf("tolower = %q, want \"abc\"", value.Bytes(lo))
	}
}

func TestFormatGlobal(t *testing.T) {
	vm := newStrVM(t)
	out := callGlobal(t, vm, "format", value.NewString("%s=%d"), value.NewString("x"), value.Int(7))
	if string(value.Bytes(out)) != "x=7" {
		t.Errorf("format = %q, want \"x=7\"", value.Bytes(out))
	}
}

func TestArgStringRejectsNonString(t *testing.T) {
	if _, err := argString([]value.Value{value.Int(1)}, 0, "strlen"); err == nil {
		t.Error("argString should reject a non-string argument")
	}
}
