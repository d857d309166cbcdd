// Package vmcore implements the bytecode interpreter and the VM API
// contract described in spec.md §4.7: exec/callfunc/seterrmsg/
// geterrmsg/stacktrace/getclasses/getglobals/setcontext. It is named
// vmcore rather than vm to avoid clashing with the teacher's own
// tree-walking internal/vm package (deleted; see DESIGN.md).
package vmcore

import (
	"fmt"

	"github.com/pkg/errors"

	"sparkling/internal/bytecode"
	"sparkling/internal/classtable"
	"sparkling/internal/format"
	"sparkling/internal/value"
)

// VM owns the class table, the current error, and an opaque host
// context pointer threaded into every native call, per spec.md §9's
// "model as fields of the VM struct; pass the VM handle explicitly"
// guidance — there is no process-level singleton.
type VM struct {
	classes *classtable.Table
	errmsg  string
	hasErr  bool
	stack   []string // function names, innermost last
	ctx     any
}

func New() *VM {
	vm := &VM{classes: classtable.New()}
	registerIntrinsicMethods(vm.classes)
	return vm
}

// registerIntrinsicMethods loads the handful of methods the compiled
// bytecode itself depends on (for-in's `count` call) independently of
// whether any stdlib library has been registered; stdlib/arr.go and
// stdlib/hashmap.go load the rest (push, pop, sort, keys, ...).
func registerIntrinsicMethods(classes *classtable.Table) {
	classes.LoadMethods(value.TagArray, map[string]value.NativeFn{
		"count": func(args []value.Value, _ any) (value.Value, error) {
			return value.Int(int64(value.ArrayCount(args[0]))), nil
		},
	})
	classes.LoadMethods(value.TagHashMap, map[string]value.NativeFn{
		"count": func(args []value.Value, _ any) (value.Value, error) {
			return value.Int(int64(value.HashMapCount(args[0]))), nil
		},
	})
}

func (vm *VM) GetClasses() *classtable.Table { return vm.classes }
func (vm *VM) GetGlobals() value.Value       { return vm.classes.Globals() }

func (vm *VM) SetContext(ctx any) { vm.ctx = ctx }
func (vm *VM) GetContext() any    { return vm.ctx }

// SetErrMsg runs the format engine over format/args and stores the
// result as the current runtime error message (spec.md §4.7).
func (vm *VM) SetErrMsg(spec string, args ...value.Value) {
	msg, err := format.Format(spec, args)
	if err != nil {
		msg = spec
	}
	vm.errmsg = msg
	vm.hasErr = true
}

// setRuntimeErr records a plain Go error (from an arithmetic fault,
// an out-of-range index, and so on) as the current runtime error,
// wrapping it with errors.WithStack so StackTrace has frame data to
// report even when the fault originates deep inside a native call.
func (vm *VM) setRuntimeErr(err error) error {
	wrapped := errors.WithStack(err)
	vm.errmsg = err.Error()
	vm.hasErr = true
	return wrapped
}

func (vm *VM) GetErrMsg() (string, bool) { return vm.errmsg, vm.hasErr }

func (vm *VM) ClearError() { vm.errmsg = ""; vm.hasErr = false }

// StackTrace returns the frame names of every CallFunc in progress,
// innermost first, including a native function that is calling it.
func (vm *VM) StackTrace() []string {
	out := make([]string, len(vm.stack))
	for i, name := range vm.stack {
		out[len(vm.stack)-1-i] = name
	}
	return out
}

// Exec runs a top-level chunk with no arguments (spec.md §4.7's
// `exec`).
func (vm *VM) Exec(chunk *bytecode.Chunk) (value.Value, error) {
	return vm.runChunk(chunk, nil)
}

// CallFunc dispatches to either a bytecode closure or a native
// callable (spec.md §4.7's `callfunc`). Native callables follow the
// ABI of value.NativeFn; the caller owns no references to argv unless
// it retains them explicitly.
func (vm *VM) CallFunc(fn value.Value, argv []value.Value) (value.Value, error) {
	if fn.Kind() != value.TagFunc {
		return value.Nil(), fmt.Errorf("attempt to call a %s value", value.TypeName(fn.Kind()))
	}
	info := value.FuncInfo(fn)
	if info.Native != nil {
		vm.stack = append(vm.stack, info.Name)
		defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()
		result, err := info.Native(argv, vm.ctx)
		if err != nil {
			return value.Nil(), vm.setRuntimeErr(err)
		}
		return result, nil
	}
	chunk, ok := info.Closure.Chunk.(*bytecode.Chunk)
	if !ok {
		return value.Nil(), vm.setRuntimeErr(fmt.Errorf("function %s has no executable body", info.Name))
	}
	vm.stack = append(vm.stack, info.Name)
	defer func() { vm.stack = vm.stack[:len(vm.stack)-1] }()
	return vm.runChunk(chunk, argv)
}
