package stdlib

import (
	"fmt"

	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterHashMap installs spec.md §4.4's map operations, grounded on
// original_source/src/rtlb.c's map_keys/map_values/map_foreach/
// map_combine family. Like the array library, every function is both a
// global and a method on hashmap values. foreach/map/filter walk the
// map via the cursor protocol (value.HashMapNext) rather than a
// snapshot slice, since a HashMap has no dense backing array to copy
// cheaply; scripts that mutate the map from inside a callback will see
// the same "map mutated during iteration" error the cursor protocol
// defines.
func RegisterHashMap(vm *vmcore.VM) {
	fns := map[string]value.NativeFn{
		"keys": func(args []value.Value, _ any) (value.Value, error) {
			m, err := argMap(args, 0, "keys")
			if err != nil {
				return value.Nil(), err
			}
			return value.NewArrayFrom(value.HashMapKeys(m)), nil
		},
		"values": func(args []value.Value, _ any) (value.Value, error) {
			m, err := argMap(args, 0, "values")
			if err != nil {
				return value.Nil(), err
			}
			return value.NewArrayFrom(value.HashMapValues(m)), nil
		},
		"foreach": containerForeach(vm),
		"map":     containerMap(vm),
		"filter":  containerFilter(vm),
		"combine": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argMap(args, 0, "combine")
			if err != nil {
				return value.Nil(), err
			}
			b, err := argMap(args, 1, "combine")
			if err != nil {
				return value.Nil(), err
			}
			out := value.NewHashMap()
			for _, src := range []value.Value{a, b} {
				var cursor uint64
				for {
					next, key, val, err := value.HashMapNext(src, cursor)
					if err != nil {
						return value.Nil(), err
					}
					if key.IsNil() && val.IsNil() {
						break
					}
					if err := value.HashMapSet(out, key, val); err != nil {
						return value.Nil(), err
					}
					cursor = next
					if cursor == 0 {
						break
					}
				}
			}
			return out, nil
		},
	}
	vm.GetClasses().AddLibCFuncs("", fns)
	vm.GetClasses().LoadMethods(value.TagHashMap, fns)
}

func hmForeach(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	m, err := argMap(args, 0, "foreach")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "foreach")
	if err != nil {
		return value.Nil(), err
	}
	var cursor uint64
	for {
		next, key, val, err := value.HashMapNext(m, cursor)
		if err != nil {
			return value.Nil(), err
		}
		if key.IsNil() && val.IsNil() {
			break
		}
		r, err := vm.CallFunc(fn, []value.Value{key, val})
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
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return value.Nil(), nil
}

func hmMap(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	m, err := argMap(args, 0, "map")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "map")
	if err != nil {
		return value.Nil(), err
	}
	out := value.NewHashMap()
	var cursor uint64
	for {
		next, key, val, err := value.HashMapNext(m, cursor)
		if err != nil {
			return value.Nil(), err
		}
		if key.IsNil() && val.IsNil() {
			break
		}
		r, err := vm.CallFunc(fn, []value.Value{key, val})
		if err != nil {
			return value.Nil(), err
		}
		if err := value.HashMapSet(out, key, r); err != nil {
			return value.Nil(), err
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func hmFilter(vm *vmcore.VM, args []value.Value) (value.Value, error) {
	m, err := argMap(args, 0, "filter")
	if err != nil {
		return value.Nil(), err
	}
	fn, err := argFunc(args, 1, "filter")
	if err != nil {
		return value.Nil(), err
	}
	out := value.NewHashMap()
	var cursor uint64
	for {
		next, key, val, err := value.HashMapNext(m, cursor)
		if err != nil {
			return value.Nil(), err
		}
		if key.IsNil() && val.IsNil() {
			break
		}
		r, err := vm.CallFunc(fn, []value.Value{key, val})
		if err != nil {
			return value.Nil(), err
		}
		if r.Kind() != value.TagBool {
			return value.Nil(), fmt.Errorf("filter: callback must return a boolean, got %s", value.TypeName(r.Kind()))
		}
		if r.AsBool() {
			if err := value.HashMapSet(out, key, val); err != nil {
				return value.Nil(), err
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func argMap(args []value.Value, i int, fn string) (value.Value, error) {
	if i >= len(args) {
		return value.Nil(), fmt.Errorf("%s: expected at least %d arguments", fn, i+1)
	}
	if args[i].Kind() != value.TagHashMap {
		return value.Nil(), fmt.Errorf("%s: argument %d must be a map, got %s", fn, i+1, value.TypeName(args[i].Kind()))
	}
	return args[i], nil
}
