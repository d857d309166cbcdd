package stdlib

import (
	"fmt"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterArr installs spec.md §4.3's array operations, grounded on
// original_source/src/rtlb.c's aux_partition/aux_qsort/sort/join/
// foreach/reduce/filter/map/push/pop/last/swap/reverse/any/all/find/
// bsearch/slice/insert/inject/erase/concat family. Each function is
// registered twice: as a global free function and as a method on array
// values via the class table, so both `sort(a)` and `a.sort()` work.
// Callback-taking operations close over vm so they can dispatch back
// into script-level functions via vm.CallFunc.
func RegisterArr(vm *vmcore.VM) {
	fns := arrFuncs(vm)
	vm.GetClasses().AddLibCFuncs("", fns)
	vm.GetClasses().LoadMethods(value.TagArray, fns)
}

func arrFuncs(vm *vmcore.VM) map[string]value.NativeFn {
	callbackCompare := func(fn value.Value) value.CompareFunc {
		return func(a, b value.Value) (bool, error) {
			result, err := vm.CallFunc(fn, []value.Value{a, b})
			if err != nil {
				return false, err
			}
			if result.Kind() != value.TagBool {
				return false, fmt.Errorf("comparator must return a boolean, got %s", value.TypeName(result.Kind()))
			}
			return result.AsBool(), nil
		}
	}

	return map[string]value.NativeFn{
		"push": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "push")
			if err != nil {
				return value.Nil(), err
			}
			if len(args) < 2 {
				return value.Nil(), fmt.Errorf("push: expects (array, value)")
			}
			value.ArrayPush(a, args[1])
			return a, nil
		},
		"pop": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "pop")
			if err != nil {
				return value.Nil(), err
			}
			return value.ArrayPop(a)
		},
		"last": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "last")
			if err != nil {
				return value.Nil(), err
			}
			n := value.ArrayCount(a)
			if n == 0 {
				return value.Nil(), fmt.Errorf("last: array is empty")
			}
			return value.ArrayGet(a, n-1)
		},
		"swap": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "swap")
			if err != nil {
				return value.Nil(), err
			}
			i, err := argInt(args, 1, "swap")
			if err != nil {
				return value.Nil(), err
			}
			j, err := argInt(args, 2, "swap")
			if err != nil {
				return value.Nil(), err
			}
			vi, err := value.ArrayGet(a, int(i))
			if err != nil {
				return value.Nil(), err
			}
			vj, err := value.ArrayGet(a, int(j))
			if err != nil {
				return value.Nil(), err
			}
			if err := value.ArraySet(a, int(i), vj); err != nil {
				return value.Nil(), err
			}
			if err := value.ArraySet(a, int(j), vi); err != nil {
				return value.Nil(), err
			}
			return a, nil
		},
		"reverse": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "reverse")
			if err != nil {
				return value.Nil(), err
			}
			value.ArrayReverse(a)
			return a, nil
		},
		"sort": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "sort")
			if err != nil {
				return value.Nil(), err
			}
			var cmp value.CompareFunc
			if len(args) > 1 {
				fn, err := argFunc(args, 1, "sort")
				if err != nil {
					return value.Nil(), err
				}
				cmp = callbackCompare(fn)
			}
			if err := value.Sort(a, cmp); err != nil {
				return value.Nil(), err
			}
			return a, nil
		},
		"bsearch": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "bsearch")
			if err != nil {
				return value.Nil(), err
			}
			if len(args) < 2 {
				return value.Nil(), fmt.Errorf("bsearch: expects (array, key[, cmp])")
			}
			var cmp value.CompareFunc
			if len(args) > 2 {
				fn, err := argFunc(args, 2, "bsearch")
				if err != nil {
					return value.Nil(), err
				}
				cmp = callbackCompare(fn)
			}
			idx, err := value.Bsearch(a, args[1], cmp)
			if err != nil {
				return value.Nil(), err
			}
			return value.Int(int64(idx)), nil
		},
		"slice": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "slice")
			if err != nil {
				return value.Nil(), err
			}
			i, err := argInt(args, 1, "slice")
			if err != nil {
				return value.Nil(), err
			}
			j, err := argInt(args, 2, "slice")
			if err != nil {
				return value.Nil(), err
			}
			elems := value.Elements(a)
			if i < 0 || j < i || int(j) > len(elems) {
				return value.Nil(), fmt.Errorf("slice: range [%d, %d) out of bounds for length %d", i, j, len(elems))
			}
			return value.NewArrayFrom(elems[i:j]), nil
		},
		"insert": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "insert")
			if err != nil {
				return value.Nil(), err
			}
			i, err := argInt(args, 1, "insert")
			if err != nil {
				return value.Nil(), err
			}
			if len(args) < 3 {
				return value.Nil(), fmt.Errorf("insert: expects (array, index, value)")
			}
			if err := value.ArrayInsert(a, int(i), args[2]); err != nil {
				return value.Nil(), err
			}
			return a, nil
		},
		"erase": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "erase")
			if err != nil {
				return value.Nil(), err
			}
			i, err := argInt(args, 1, "erase")
			if err != nil {
				return value.Nil(), err
			}
			if err := value.ArrayRemove(a, int(i)); err != nil {
				return value.Nil(), err
			}
			return a, nil
		},
		"inject": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "inject")
			if err != nil {
				return value.Nil(), err
			}
			i, err := argInt(args, 1, "inject")
			if err != nil {
				return value.Nil(), err
			}
			other, err := argArray(args, 2, "inject")
			if err != nil {
				return value.Nil(), err
			}
			if err := value.ArrayInject(a, int(i), other); err != nil {
				return value.Nil(), err
			}
			return a, nil
		},
		"concat": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "concat")
			if err != nil {
				return value.Nil(), err
			}
			b, err := argArray(args, 1, "concat")
			if err != nil {
				return value.Nil(), err
			}
			out := value.NewArrayFrom(value.Elements(a))
			for _, e := range value.Elements(b) {
				value.ArrayPush(out, e)
			}
			return out, nil
		},
		"foreach": containerForeach(vm),
		"map":     containerMap(vm),
		"filter":  containerFilter(vm),
		"find":    containerFind(vm),
		"reduce": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argArray(args, 0, "reduce")
			if err != nil {
				return value.Nil(), err
			}
			fn, err := argFunc(args, 1, "reduce")
			if err != nil {
				return value.Nil(), err
			}
			if len(args) < 3 {
				return value.Nil(), fmt.Errorf("reduce: expects (array, fn, initial)")
			}
			acc := args[2]
			for _, e := range append([]value.Value(nil), value.Elements(a)...) {
				acc, err = vm.CallFunc(fn, []value.Value{acc, e})
				if err != nil {
					return value.Nil(), err
				}
			}
			return acc, nil
		},
		"any": func(args []value.Value, _ any) (value.Value, error) {
			return arrPredicate(vm, args, "any", true)
		},
		"all": func(args []value.Value, _ any) (value.Value, error) {
			return arrPredicate(vm, args, "all", false)
		},
	}
}

// container* dispatch on the first argument, so one global name serves
// both containers (and strings, for find). RegisterArr, RegisterHashMap
// and RegisterStr all register the same dispatcher under the shared
// name, making registration order irrelevant.
func containerForeach(vm *vmcore.VM) value.NativeFn {
	return func(args []value.Value, _ any) (value.Value, error) {
		if len(args) > 0 && args[0].Kind() == value.TagHashMap {
			return hmForeach(vm, args)
		}
		return arrForeach(vm, args)
	}
}

func containerMap(vm *vmcore.VM) value.NativeFn {
	return func(args []value.Value, _ any) (value.Value, error) {
		if len(args) > 0 && args[0].Kind() == value.TagHashMap {
			return hmMap(vm, args)
		}
		return arrMap(vm, args)
	}
}

func containerFilter(vm *vmcore.VM) value.NativeFn {
	return func(args []value.Value, _ any) (value.Value, error) {
		if len(args) > 0 && args[0].Kind() == value.TagHashMap {
			return hmFilter(vm, args)
		}
		return arrFilter(vm, args)
	}
}

func containerFind(vm *vmcore.VM) value.NativeFn {
	return func(args []value.Value, _ any) (value.Value, error) {
		if len(args) > 0 && args[0].Kind() == value.TagString {
			return strFind(args)
		}
		return arrFind(vm, args)
	}
}

// arrForeach honors §4.3's early-termination contract: the callback may
// return nil to continue, false to stop, true to continue explicitly;
// any other return aborts with an error.
func arrForeach(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	a, err := argArray(args, 0, "foreach")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "foreach")
	if err != nil {
		return value.Nil(), err
	}
	for i, e := range append([]value.Value(nil), value.Elements(a)...) {
		r, err := vm.CallFunc(fn, []value.Value{e, value.Int(int64(i))})
		if err != nil {
			return value.Nil(), err
		}
		switch r.Kind() {
		case value.TagNil:
		case value.TagBool:
			if !r.AsBool() {
				return value.Nil(), nil
			}
		default:
			return value.Nil(), fmt.Errorf("foreach: callback must return nil or a boolean, got %s", value.TypeName(r.Kind()))
		}
	}
	return value.Nil(), nil
}

func arrMap(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	a, err := argArray(args, 0, "map")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "map")
	if err != nil {
		return value.Nil(), err
	}
	src := append([]value.Value(nil), value.Elements(a)...)
	out := make([]value.Value, len(src))
	for i, e := range src {
		r, err := vm.CallFunc(fn, []value.Value{e, value.Int(int64(i))})
		if err != nil {
			return value.Nil(), err
		}
		out[i] = r
	}
	return value.NewArrayFrom(out), nil
}

func arrFilter(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	a, err := argArray(args, 0, "filter")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "filter")
	if err != nil {
		return value.Nil(), err
	}
	var out []value.Value
	for i, e := range append([]value.Value(nil), value.Elements(a)...) {
		r, err := vm.CallFunc(fn, []value.Value{e, value.Int(int64(i))})
		if err != nil {
			return value.Nil(), err
		}
		if r.Kind() != value.TagBool {
			return value.Nil(), fmt.Errorf("filter: callback must return a boolean, got %s", value.TypeName(r.Kind()))
		}
		if r.AsBool() {
			out = append(out, e)
		}
	}
	return value.NewArrayFrom(out), nil
}

func arrFind(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	a, err := argArray(args, 0, "find")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "find")
	if err != nil {
		return value.Nil(), err
	}
	for i, e := range append([]value.Value(nil), value.Elements(a)...) {
		r, err := vm.CallFunc(fn, []value.Value{e, value.Int(int64(i))})
		if err != nil {
			return value.Nil(), err
		}
		if r.Truthy() {
			return value.Int(int64(i)), nil
		}
	}
	return value.Int(-1), nil
}

// arrPredicate implements any()/all(): any short-circuits true on the
// first true callback result, all short-circuits false on the first
// false one; wantTrue distinguishes which. A non-boolean callback
// return aborts with an error.
func arrPredicate(vm *vmcore.VM, args []value.Value, name string, wantTrue bool) (value.Value, error) {
	a, err := argArray(args, 0, name)
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, name)
	if err != nil {
		return value.Nil(), err
	}
	for i, e := range append([]value.Value(nil), value.Elements(a)...) {
		r, err := vm.CallFunc(fn, []value.Value{e, value.Int(int64(i))})
		if err != nil {
			return value.Nil(), err
		}
		if r.Kind() != value.TagBool {
			return value.Nil(), fmt.Errorf("%s: callback must return a boolean, got %s", name, value.TypeName(r.Kind()))
		}
		if r.AsBool() == wantTrue {
			return value.Bool(wantTrue), nil
		}
	}
	return value.Bool(!wantTrue), nil
}
