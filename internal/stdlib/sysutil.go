package stdlib

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sparkling/internal/context"
	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterSysutil installs spec.md §4.9's sysutil library plus its
// SUPPLEMENTED members (assert/getenv/system from rtlb.c's sysutil
// group, compile/require/exprtofn from rtlb.c's dynamic-load family,
// backtrace, and uuid/humanize_bytes/humanize_time from the DOMAIN
// STACK table), as global free functions. Unlike the other libraries,
// sysutil needs the owning Context (not just the VM) for compile/
// require, so it takes ctx in addition to vm.
func RegisterSysutil(vm *vmcore.VM, ctx *context.Context) {
	vm.GetClasses().AddLibCFuncs("", map[string]value.NativeFn{
		"getenv": func(args []value.Value, _ any) (value.Value, error) {
			name, err := argString(args, 0, "getenv")
			if err != nil {
				return value.Nil(), err
			}
			v, ok := os.LookupEnv(string(value.Bytes(name)))
			if !ok {
				return value.Nil(), nil
			}
			return value.NewString(v), nil
		},
		"system": func(args []value.Value, _ any) (value.Value, error) {
			cmdline, err := argString(args, 0, "system")
			if err != nil {
				return value.Nil(), err
			}
			cmd := exec.Command("/bin/sh", "-c", string(value.Bytes(cmdline)))
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			cmd.Stdin = os.Stdin
			if err := cmd.Run(); err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					return value.Int(int64(exitErr.ExitCode())), nil
				}
				return value.Nil(), fmt.Errorf("system: %v", err)
			}
			return value.Int(0), nil
		},
		"assert": func(args []value.Value, _ any) (value.Value, error) {
			if len(args) == 0 {
				return value.Nil(), fmt.Errorf("assert: expected at least 1 argument")
			}
			if !args[0].Truthy() {
				msg := "assertion failed"
				if len(args) > 1 && args[1].Kind() == value.TagString {
					msg = string(value.Bytes(args[1]))
				}
				return value.Nil(), fmt.Errorf("%s", msg)
			}
			return value.Nil(), nil
		},
		"time": func(args []value.Value, _ any) (value.Value, error) {
			return value.Int(time.Now().Unix()), nil
		},
		"utctime": func(args []value.Value, _ any) (value.Value, error) {
			sec, err := argInt(args, 0, "utctime")
			if err != nil {
				return value.Nil(), err
			}
			return timeMap(time.Unix(sec, 0).UTC()), nil
		},
		"localtime": func(args []value.Value, _ any) (value.Value, error) {
			sec, err := argInt(args, 0, "localtime")
			if err != nil {
				return value.Nil(), err
			}
			return timeMap(time.Unix(sec, 0).Local()), nil
		},
		"fmtdate": func(args []value.Value, _ any) (value.Value, error) {
			layout, err := argString(args, 0, "fmtdate")
			if err != nil {
				return value.Nil(), err
			}
			sec, err := argInt(args, 1, "fmtdate")
			if err != nil {
				return value.Nil(), err
			}
			return value.NewString(time.Unix(sec, 0).UTC().Format(string(value.Bytes(layout)))), nil
		},
		"difftime": func(args []value.Value, _ any) (value.Value, error) {
			a, err := argInt(args, 0, "difftime")
			if err != nil {
				return value.Nil(), err
			}
			b, err := argInt(args, 1, "difftime")
			if err != nil {
				return value.Nil(), err
			}
			return value.Float(float64(a - b)), nil
		},
		"compile": func(args []value.Value, _ any) (value.Value, error) {
			src, err := argString(args, 0, "compile")
			if err != nil {
				return value.Nil(), err
			}
			return ctx.CompileExpr(string(value.Bytes(src)))
		},
		"require": func(args []value.Value, _ any) (value.Value, error) {
			path, err := argString(args, 0, "require")
			if err != nil {
				return value.Nil(), err
			}
			return ctx.Require(string(value.Bytes(path)))
		},
		"exprtofn": func(args []value.Value, _ any) (value.Value, error) {
			src, err := argString(args, 0, "exprtofn")
			if err != nil {
				return value.Nil(), err
			}
			return ctx.CompileExpr(string(value.Bytes(src)))
		},
		"backtrace": func(args []value.Value, _ any) (value.Value, error) {
			frames := vm.StackTrace()
			if len(frames) > 0 {
				frames = frames[1:]
			}
			out := make([]value.Value, len(frames))
			for i, f := range frames {
				out[i] = value.NewString(f)
			}
			return value.NewArrayFrom(out), nil
		},
		"uuid": func(args []value.Value, _ any) (value.Value, error) {
			return value.NewString(uuid.NewString()), nil
		},
		"humanize_bytes": func(args []value.Value, _ any) (value.Value, error) {
			n, err := argInt(args, 0, "humanize_bytes")
			if err != nil {
				return value.Nil(), err
			}
			return value.NewString(humanize.Bytes(uint64(n))), nil
		},
		"humanize_time": func(args []value.Value, _ any) (value.Value, error) {
			sec, err := argInt(args, 0, "humanize_time")
			if err != nil {
				return value.Nil(), err
			}
			return value.NewString(humanize.Time(time.Unix(sec, 0))), nil
		},
	})

	// call is the one sysutil entry that dispatches as a method, on
	// function values: fn.call([a, b]) invokes fn with the unpacked
	// argument array.
	vm.GetClasses().LoadMethods(value.TagFunc, map[string]value.NativeFn{
		"call": func(args []value.Value, _ any) (value.Value, error) {
			fn, err := argFunc(args, 0, "call")
			if err != nil {
				return value.Nil(), err
			}
			var argv []value.Value
			if len(args) > 1 {
				if args[1].Kind() != value.TagArray {
					return value.Nil(), fmt.Errorf("call: argument 1 must be an array of arguments, got %s", value.TypeName(args[1].Kind()))
				}
				argv = append(argv, value.Elements(args[1])...)
			}
			return vm.CallFunc(fn, argv)
		},
	})
}

// timeMap builds spec.md §4.9's time map schema: sec, min, hour, mday,
// month (0-11), year (years since 1900), wday (Sunday=0), yday,
// isdst.
func timeMap(t time.Time) value.Value {
	out := value.NewHashMap()
	set := func(k string, v value.Value) { _ = value.HashMapSetStrKey(out, k, v) }
	set("sec", value.Int(int64(t.Second())))
	set("min", value.Int(int64(t.Minute())))
	set("hour", value.Int(int64(t.Hour())))
	set("mday", value.Int(int64(t.Day())))
	set("month", value.Int(int64(t.Month())-1))
	set("year", value.Int(int64(t.Year())-1900))
	set("wday", value.Int(int64(t.Weekday())))
	set("yday", value.Int(int64(t.YearDay())-1))
	set("isdst", value.Bool(isDST(t)))
	return out
}

// isDST reports whether t's UTC offset differs from the zone's winter
// (January) offset — Go's time package has no direct DST flag.
func isDST(t time.Time) bool {
	_, curOffset := t.Zone()
	jan := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	_, janOffset := jan.Zone()
	return curOffset != janOffset
}
