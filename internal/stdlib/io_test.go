package stdlib

import (
	"os"
	"path/filepath"
	"testing"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

func newIoVM(t *testing.T) *vmcore.VM {
	t.Helper()
	vm := vmcore.New()
	RegisterIo(vm)
	return vm
}

// readfile preserves the file's bytes exactly, trailing newlines
// included (the Open Question decision recorded in DESIGN.md).
func TestReadfilePreservesTrailingNewline(t *testing.T) {
	vm := newIoVM(t)
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("line one\nline two\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	got := callGlobal(t, vm, "readfile", value.NewString(path))
	if string(value.Bytes(got)) != "line one\nline two\n" {
		t.Errorf("readfile = %q, want the exact file contents with trailing newline", value.Bytes(got))
	}
}

func TestReadfileMissingFileFails(t *testing.T) {
	vm := newIoVM(t)
	fn := value.HashMapGetStrKey(vm.GetClasses().Globals(), "readfile")
	if _, err := vm.CallFunc(fn, []value.Value{value.NewString("/nonexistent/nope.txt")}); err == nil {
		t.Error("readfile of a missing file should fail")
	}
}

func TestFopenWriteReadRoundtrip(t *testing.T) {
	vm := newIoVM(t)
	path := filepath.Join(t.TempDir(), "rt.txt")

	f := callGlobal(t, vm, "fopen", value.NewString(path), value.NewString("w"))
	if f.Kind() != value.TagWeakUserInfo {
		t.Fatalf("fopen returned %s, want a weak userinfo handle", f.Kind())
	}
	n := callGlobal(t, vm, "fwrite", f, value.NewString("hello\n"))
	if n.AsInt() != 6 {
		t.Errorf("fwrite = %v, want 6", n)
	}
	callGlobal(t, vm, "fclose", f)

	f = callGlobal(t, vm, "fopen", value.NewString(path), value.NewString("r"))
	data := callGlobal(t, vm, "fread", f, value.Int(64))
	if string(value.Bytes(data)) != "hello\n" {
		t.Errorf("fread = %q, want \"hello\\n\"", value.Bytes(data))
	}
	eof := callGlobal(t, vm, "feof", f)
	if !eof.AsBool() {
		t.Error("feof after reading everything should be true")
	}
	callGlobal(t, vm, "fclose", f)
}

func TestFseekFtell(t *testing.T) {
	vm := newIoVM(t)
	path := filepath.Join(t.TempDir(), "seek.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	f := callGlobal(t, vm, "fopen", value.NewString(path), value.NewString("r"))
	defer callGlobal(t, vm, "fclose", f)

	pos := callGlobal(t, vm, "fseek", f, value.Int(4), value.Int(0))
	if pos.AsInt() != 4 {
		t.Errorf("fseek = %v, want 4", pos)
	}
	tell := callGlobal(t, vm, "ftell", f)
	if tell.AsInt() != 4 {
		t.Errorf("ftell = %v, want 4", tell)
	}
	data := callGlobal(t, vm, "fread", f, value.Int(3))
	if string(value.Bytes(data)) != "456" {
		t.Errorf("fread after seek = %q, want \"456\"", value.Bytes(data))
	}
}

func TestFprintfWritesFormatted(t *testing.T) {
	vm := newIoVM(t)
	path := filepath.Join(t.TempDir(), "out.txt")

	f := callGlobal(t, vm, "fopen", value.NewString(path), value.NewString("w"))
	n := callGlobal(t, vm, "fprintf", f, value.NewString("%s=%d"), value.NewString("x"), value.Int(7))
	if n.AsInt() != 3 {
		t.Errorf("fprintf = %v, want 3 bytes written", n)
	}
	callGlobal(t, vm, "fclose", f)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readback: %v", err)
	}
	if string(data) != "x=7" {
		t.Errorf("file contents = %q, want \"x=7\"", data)
	}
}

func TestRemoveRename(t *testing.T) {
	vm := newIoVM(t)
	dir := t.TempDir()
	from := filepath.Join(dir, "a.txt")
	to := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(from, []byte("x"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	callGlobal(t, vm, "rename", value.NewString(from), value.NewString(to))
	if _, err := os.Stat(to); err != nil {
		t.Fatalf("rename target missing: %v", err)
	}
	callGlobal(t, vm, "remove", value.NewString(to))
	if _, err := os.Stat(to); !os.IsNotExist(err) {
		t.Error("remove should delete the file")
	}
}

func TestStdStreamConstantsAreWeak(t *testing.T) {
	vm := newIoVM(t)
	globals := vm.GetClasses().Globals()
	for _, name := range []string{"stdin", "stdout", "stderr"} {
		v := value.HashMapGetStrKey(globals, name)
		if v.Kind() != value.TagWeakUserInfo {
			t.Errorf("%s kind = %s, want weak userinfo", name, v.Kind())
		}
	}
}

func TestOpenWithModeRejectsUnknown(t *testing.T) {
	if _, err := openWithMode("whatever", "x+"); err == nil {
		t.Error("unknown fopen mode should be rejected")
	}
}

func TestArgFileRejectsNonHandle(t *testing.T) {
	if _, err := argFile([]value.Value{value.Int(1)}, 0, "fclose"); err == nil {
		t.Error("argFile should reject a non-handle argument")
	}
	if _, err := argFile([]value.Value{value.WeakUserInfo("not a file")}, 0, "fclose"); err == nil {
		t.Error("argFile should reject a weak userinfo that is not a file")
	}
}
