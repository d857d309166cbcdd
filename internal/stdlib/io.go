package stdlib

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"sparkling/internal/format"
	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// RegisterIo installs spec.md §4.9's io library (free functions plus
// the stdin/stdout/stderr weak-userinfo constants) and the
// SUPPLEMENTED file-handle family from original_source/src/rtlb.c
// (fopen/fclose/fread/fwrite/fseek/ftell/feof/fflush/remove/rename/
// tmpfile), all wrapping *os.File behind a weak userinfo handle per
// spec.md §5 (non-owning: the runtime never frees process fds).
func RegisterIo(vm *vmcore.VM) {
	stdin := bufio.NewReader(os.Stdin)

	vm.GetClasses().AddLibValues("", map[string]value.Value{
		"stdin":  value.WeakUserInfo(os.Stdin),
		"stdout": value.WeakUserInfo(os.Stdout),
		"stderr": value.WeakUserInfo(os.Stderr),
	})

	vm.GetClasses().AddLibCFuncs("", map[string]value.NativeFn{
		"print": func(args []value.Value, _ any) (value.Value, error) {
			n := 0
			for i, a := range args {
				if i > 0 {
					fmt.Fprint(os.Stdout, " ")
					n++
				}
				w, _ := fmt.Fprint(os.Stdout, a.String())
				n += w
			}
			return value.Int(int64(n)), nil
		},
		"dbgprint": func(args []value.Value, _ any) (value.Value, error) {
			n := 0
			for i, a := range args {
				if i > 0 {
					fmt.Fprint(os.Stderr, " ")
				}
				w, _ := fmt.Fprint(os.Stderr, a.String())
				n += w
			}
			fmt.Fprintln(os.Stderr)
			return value.Int(int64(n)), nil
		},
		"getline": func(args []value.Value, _ any) (value.Value, error) {
			line, err := stdin.ReadString('\n')
			if err != nil && line == "" {
				return value.Nil(), nil
			}
			for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
				line = line[:len(line)-1]
			}
			return value.NewString(line), nil
		},
		"printf": func(args []value.Value, _ any) (value.Value, error) {
			s, err := argString(args, 0, "printf")
			if err != nil {
				return value.Nil(), err
			}
			out, err := format.Format(string(value.Bytes(s)), args[1:])
			if err != nil {
				return value.Nil(), err
			}
			n, _ := fmt.Fprint(os.Stdout, out)
			return value.Int(int64(n)), nil
		},
		"fprintf": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "fprintf")
			if err != nil {
				return value.Nil(), err
			}
			s, err := argString(args, 1, "fprintf")
			if err != nil {
				return value.Nil(), err
			}
			out, err := format.Format(string(value.Bytes(s)), args[2:])
			if err != nil {
				return value.Nil(), err
			}
			n, werr := fmt.Fprint(f, out)
			if werr != nil {
				return value.Nil(), fmt.Errorf("fprintf: %v", werr)
			}
			return value.Int(int64(n)), nil
		},
		"readfile": func(args []value.Value, _ any) (value.Value, error) {
			path, err := argString(args, 0, "readfile")
			if err != nil {
				return value.Nil(), err
			}
			data, err := os.ReadFile(string(value.Bytes(path)))
			if err != nil {
				return value.Nil(), fmt.Errorf("readfile: %v", err)
			}
			return value.NewStringNoCopy(data), nil
		},
		"fopen": func(args []value.Value, _ any) (value.Value, error) {
			path, err := argString(args, 0, "fopen")
			if err != nil {
				return value.Nil(), err
			}
			mode, err := argString(args, 1, "fopen")
			if err != nil {
				return value.Nil(), err
			}
			f, err := openWithMode(string(value.Bytes(path)), string(value.Bytes(mode)))
			if err != nil {
				return value.Nil(), fmt.Errorf("fopen: %v", err)
			}
			return value.WeakUserInfo(f), nil
		},
		"fclose": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "fclose")
			if err != nil {
				return value.Nil(), err
			}
			if err := f.Close(); err != nil {
				return value.Nil(), fmt.Errorf("fclose: %v", err)
			}
			return value.Int(0), nil
		},
		"fread": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "fread")
			if err != nil {
				return value.Nil(), err
			}
			n, err := argInt(args, 1, "fread")
			if err != nil {
				return value.Nil(), err
			}
			buf := make([]byte, n)
			read, rerr := f.Read(buf)
			if rerr != nil && read == 0 {
				return value.Nil(), nil
			}
			return value.NewStringNoCopy(buf[:read]), nil
		},
		"fwrite": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "fwrite")
			if err != nil {
				return value.Nil(), err
			}
			s, err := argString(args, 1, "fwrite")
			if err != nil {
				return value.Nil(), err
			}
			n, werr := f.Write(value.Bytes(s))
			if werr != nil {
				return value.Nil(), fmt.Errorf("fwrite: %v", werr)
			}
			return value.Int(int64(n)), nil
		},
		"fseek": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "fseek")
			if err != nil {
				return value.Nil(), err
			}
			offset, err := argInt(args, 1, "fseek")
			if err != nil {
				return value.Nil(), err
			}
			whence, err := argInt(args, 2, "fseek")
			if err != nil {
				return value.Nil(), err
			}
			pos, serr := f.Seek(offset, int(whence))
			if serr != nil {
				return value.Nil(), fmt.Errorf("fseek: %v", serr)
			}
			return value.Int(pos), nil
		},
		"ftell": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "ftell")
			if err != nil {
				return value.Nil(), err
			}
			pos, serr := f.Seek(0, io.SeekCurrent)
			if serr != nil {
				return value.Nil(), fmt.Errorf("ftell: %v", serr)
			}
			return value.Int(pos), nil
		},
		"feof": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "feof")
			if err != nil {
				return value.Nil(), err
			}
			cur, _ := f.Seek(0, io.SeekCurrent)
			info, serr := f.Stat()
			if serr != nil {
				return value.Nil(), fmt.Errorf("feof: %v", serr)
			}
			return value.Bool(cur >= info.Size()), nil
		},
		"fflush": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "fflush")
			if err != nil {
				return value.Nil(), err
			}
			if err := f.Sync(); err != nil {
				return value.Nil(), fmt.Errorf("fflush: %v", err)
			}
			return value.Int(0), nil
		},
		"remove": func(args []value.Value, _ any) (value.Value, error) {
			path, err := argString(args, 0, "remove")
			if err != nil {
				return value.Nil(), err
			}
			if err := os.Remove(string(value.Bytes(path))); err != nil {
				return value.Nil(), fmt.Errorf("remove: %v", err)
			}
			return value.Int(0), nil
		},
		"rename": func(args []value.Value, _ any) (value.Value, error) {
			from, err := argString(args, 0, "rename")
			if err != nil {
				return value.Nil(), err
			}
			to, err := argString(args, 1, "rename")
			if err != nil {
				return value.Nil(), err
			}
			if err := os.Rename(string(value.Bytes(from)), string(value.Bytes(to))); err != nil {
				return value.Nil(), fmt.Errorf("rename: %v", err)
			}
			return value.Int(0), nil
		},
		"tmpfile": func(args []value.Value, _ any) (value.Value, error) {
			f, err := os.CreateTemp("", "sparkling-*.tmp")
			if err != nil {
				return value.Nil(), fmt.Errorf("tmpfile: %v", err)
			}
			return value.WeakUserInfo(f), nil
		},
		"isatty": func(args []value.Value, _ any) (value.Value, error) {
			f, err := argFile(args, 0, "isatty")
			if err != nil {
				return value.Nil(), err
			}
			return value.Bool(isatty.IsTerminal(f.Fd())), nil
		},
	})
}

func openWithMode(path, mode string) (*os.File, error) {
	switch mode {
	case "r":
		return os.Open(path)
	case "w":
		return os.Create(path)
	case "a":
		return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	case "r+":
		return os.OpenFile(path, os.O_RDWR, 0644)
	case "w+":
		return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	default:
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
}

// argFile resolves a weak-userinfo file handle (fopen/tmpfile/stdin/
// stdout/stderr are all non-owning per spec.md §5: the runtime never
// closes a handle on the script's behalf, only `fclose` does).
func argFile(args []value.Value, i int, fn string) (*os.File, error) {
	if i >= len(args) || args[i].Kind() != value.TagWeakUserInfo {
		return nil, fmt.Errorf("%s: argument %d must be a file handle", fn, i+1)
	}
	f, ok := args[i].AsWeak().(*os.File)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d is not a file handle", fn, i+1)
	}
	return f, nil
}
