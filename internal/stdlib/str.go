// Package stdlib implements spec.md §4.9's standard libraries as free
// functions registered onto a vmcore.VM's globals (io, str, arr,
// hashmap, math, sysutil) or a namespace map (db, net, crypto), per
// SPEC_FULL.md's DOMAIN STACK section. Each Register* function is
// grounded on the teacher's internal/stdlib/*_funcs.go registration
// pattern (one RegisterXxx(vm) per library, one Go function per
// script-visible name) adapted to the value/vmcore/classtable API.
package stdlib

import (
	"fmt"

	"sparkling/internal/format"
	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterStr installs spec.md §4.2's string operations, grounded on
// original_source/src/rtlb.c's str_find/substr/split/repeat/tolower/
// toupper/format family. Like the other container libraries, every
// function is both a global and a method on string values; join, whose
// receiver is an array of strings, is also added to the array method
// dictionary.
func RegisterStr(vm *vmcore.VM) {
	fns := map[string]value.NativeFn{
		"strlen": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "strlen")
			if err != nil {
				return value.Nil(), err
			}
			return value.Int(int64(value.StrLen(s))), nil
		},
		"substr": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "substr")
			if err != nil {
				return value.Nil(), err
			}
			start, err := argInt(args, 1, "substr")
			if err != nil {
				return value.Nil(), err
			}
			length, err := argInt(args, 2, "substr")
			if err != nil {
				return value.Nil(), err
			}
			return value.Substr(s, int(start), int(length))
		},
		"find": containerFind(vm),
		"split": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "split")
			if err != nil {
				return value.Nil(), err
			}
			sep, err := argString(args, 1, "split")
			if err != nil {
				return value.Nil(), err
			}
			parts, err := value.Split(s, value.Bytes(sep))
			if err != nil {
				return value.Nil(), err
			}
			return value.NewArrayFrom(parts), nil
		},
		"join": func(args []value.Value, _ any) (value.Value, error) {
			if len(args) < 2 || args[0].Kind() != value.TagArray {
				return value.Nil(), fmt.Errorf("join: expects (array, separator)")
			}
			sep, err := argString(args, 1, "join")
			if err != nil {
				return value.Nil(), err
			}
			return value.Join(value.Elements(args[0]), value.Bytes(sep))
		},
		"repeat": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "repeat")
			if err != nil {
				return value.Nil(), err
			}
			n, err := argInt(args, 1, "repeat")
			if err != nil {
				return value.Nil(), err
			}
			return value.Repeat(s, int(n))
		},
		"tolower": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "tolower")
			if err != nil {
				return value.Nil(), err
			}
			return value.ToLower(s), nil
		},
		"toupper": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "toupper")
			if err != nil {
				return value.Nil(), err
			}
			return value.ToUpper(s), nil
		},
		"format": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "format")
			if err != nil {
				return value.Nil(), err
			}
			out, err := format.Format(string(value.Bytes(s)), args[1:])
			if err != nil {
				return value.Nil(), err
			}
			return value.NewString(out), nil
		},
	}
	vm.GetClasses().AddLibCFuncs("", fns)
	vm.GetClasses().LoadMethods(value.TagString, fns)
	vm.GetClasses().LoadMethods(value.TagArray, map[string]value.NativeFn{
		"join": fns["join"],
	})
}

// strFind implements find over a string receiver; the shared
// containerFind dispatcher routes here when the first argument is a
// string.
func strFind(args []value.Value) (value.Value, error) {
	s, err := argString(args, 0, "find")
	if err != nil {
		return value.Nil(), err
	}
	needle, err := argString(args, 1, "find")
	if err != nil {
		return value.Nil(), err
	}
	offset := int64(0)
	if len(args) > 2 {
		offset, err = argInt(args, 2, "find")
		if err != nil {
			return value.Nil(), err
		}
	}
	return value.Int(int64(value.Find(s, value.Bytes(needle), int(offset)))), nil
}

func argString(args []value.Value, i int, fn string) (value.Value, error) {
	if i >= len(args) {
		return value.Nil(), fmt.Errorf("%s: expected at least %d arguments", fn, i+1)
	}
	if args[i].Kind() != value.TagString {
		return value.Nil(), fmt.Errorf("%s: argument %d must be a string, got %s", fn, i+1, value.TypeName(args[i].Kind()))
	}
	return args[i], nil
}

func argInt(args []value.Value, i int, fn string) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("%s: expected at least %d arguments", fn, i+1)
	}
	switch args[i].Kind() {
	case value.TagInt:
		return args[i].AsInt(), nil
	case value.TagFloat:
		return int64(args[i].AsFloat()), nil
	default:
		return 0, fmt.Errorf("%s: argument %d must be numeric, got %s", fn, i+1, value.TypeName(args[i].Kind()))
	}
}

func argArray(args []value.Value, i int, fn string) (value.Value, error) {
	if i >= len(args) {
		return value.Nil(), fmt.Errorf("%s: expected at least %d arguments", fn, i+1)
	}
	if args[i].Kind() != value.TagArray {
		return value.Nil(), fmt.Errorf("%s: argument %d must be an array, got %s", fn, i+1, value.TypeName(args[i].Kind()))
	}
	return args[i], nil
}

func argFunc(args []value.Value, i int, fn string) (value.Value, error) {
	if i >= len(args) {
		return value.Nil(), fmt.Errorf("%s: expected at least %d arguments", fn, i+1)
	}
	if args[i].Kind() != value.TagFunc {
		return value.Nil(), fmt.Errorf("%s: argument %d must be a function, got %s", fn, i+1, value.TypeName(args[i].Kind()))
	}
	return args[i], nil
}
