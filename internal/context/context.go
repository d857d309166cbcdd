// Package context implements the Context façade of spec.md §4.8: the
// top-level embedding handle that owns the parser, compiler, VM and a
// prepend-only program chain, and exposes the five-category error
// discriminator of spec.md §7.
package context

import (
	"os"

	"sparkling/internal/bytecode"
	"sparkling/internal/compiler"
	"sparkling/internal/errtype"
	"sparkling/internal/parser"
	"sparkling/internal/value"
	"sparkling/internal/vmcore"
)

// programNode is one link of the prepend-only program chain (the
// GLOSSARY's "Program chain"): compiled chunks are retained for the
// context's lifetime and never individually freed.
type programNode struct {
	chunk *bytecode.Chunk
	next  *programNode
}

// Context composes a parser, compiler and VM behind the single entry
// point embedders use, per spec.md §4.8.
type Context struct {
	vm       *vmcore.VM
	programs *programNode
	required map[string]value.Value // path -> memoized require() result
	errKind  errtype.Type
	errMsg   string
}

func New() *Context {
	return &Context{
		vm:       vmcore.New(),
		required: make(map[string]value.Value),
	}
}

func (c *Context) VM() *vmcore.VM { return c.vm }

func (c *Context) prependProgram(chunk *bytecode.Chunk) {
	c.programs = &programNode{chunk: chunk, next: c.programs}
}

// LoadString parses and compiles src without executing it, returning
// the compiled chunk wrapped as a callable Func value so the embedder
// can later pass it to CallFunc.
func (c *Context) LoadString(src string) (value.Value, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		c.setError(errtype.Syntax, err.Error())
		return value.Nil(), err
	}
	chunk, err := compiler.CompileProgram(prog)
	if err != nil {
		c.setError(errtype.Semantic, err.Error())
		return value.Nil(), err
	}
	c.prependProgram(chunk)
	c.clearError()
	return value.NewClosureFunc(&value.Closure{Chunk: chunk, Name: "<top level>", Arity: chunk.Arity}), nil
}

// LoadSrcFile reads and loads a source file from disk.
func (c *Context) LoadSrcFile(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.setError(errtype.Generic, err.Error())
		return value.Nil(), err
	}
	return c.LoadString(string(data))
}

// LoadObjFile loads a precompiled bytecode file and registers it in
// the program chain without re-compiling. Per spec.md §4.8/§6 the file
// is a flat sequence of fixed-width machine words with no header: the
// word count is the file size divided by the word size, and a trailing
// partial word is not validated here. The word stream's interior
// layout belongs to the bytecode package (bytecode.DecodeWords).
func (c *Context) LoadObjFile(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.setError(errtype.Generic, err.Error())
		return value.Nil(), err
	}
	count := len(data) / bytecode.ObjWordSize
	words := make([]uint32, count)
	for i := 0; i < count; i++ {
		for b := 0; b < bytecode.ObjWordSize; b++ {
			words[i] |= uint32(data[i*bytecode.ObjWordSize+b]) << (8 * b)
		}
	}
	chunk, err := bytecode.DecodeWords(words)
	if err != nil {
		c.setError(errtype.Generic, err.Error())
		return value.Nil(), err
	}
	c.prependProgram(chunk)
	c.clearError()
	return value.NewClosureFunc(&value.Closure{Chunk: chunk, Name: chunk.Name, Arity: chunk.Arity}), nil
}

// SaveObjFile writes a previously loaded function's bytecode as an
// object file LoadObjFile can read back.
func (c *Context) SaveObjFile(fn value.Value, path string) error {
	if fn.Kind() != value.TagFunc || value.FuncInfo(fn).Closure == nil {
		err := errtype.New(errtype.Generic, "only compiled functions can be written to an object file")
		c.setError(errtype.Generic, err.Message)
		return err
	}
	chunk, ok := value.FuncInfo(fn).Closure.Chunk.(*bytecode.Chunk)
	if !ok {
		err := errtype.New(errtype.Generic, "function has no bytecode body")
		c.setError(errtype.Generic, err.Message)
		return err
	}
	words, err := bytecode.EncodeWords(chunk)
	if err != nil {
		c.setError(errtype.Generic, err.Error())
		return err
	}
	data := make([]byte, len(words)*bytecode.ObjWordSize)
	for i, w := range words {
		for b := 0; b < bytecode.ObjWordSize; b++ {
			data[i*bytecode.ObjWordSize+b] = byte(w >> (8 * b))
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.setError(errtype.Generic, err.Error())
		return err
	}
	c.clearError()
	return nil
}

// ExecString parses, compiles and runs src in one step (spec.md §4.8's
// `execstring`).
func (c *Context) ExecString(src string) (value.Value, error) {
	fn, err := c.LoadString(src)
	if err != nil {
		return value.Nil(), err
	}
	return c.CallFunc(fn, nil)
}

// ExecSrcFile is ExecString over a file's contents.
func (c *Context) ExecSrcFile(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		c.setError(errtype.Generic, err.Error())
		return value.Nil(), err
	}
	return c.ExecString(string(data))
}

// ExecObjFile loads an object file and runs its top level with zero
// arguments.
func (c *Context) ExecObjFile(path string) (value.Value, error) {
	fn, err := c.LoadObjFile(path)
	if err != nil {
		return value.Nil(), err
	}
	return c.CallFunc(fn, nil)
}

// CallFunc dispatches through the VM and translates its error, if
// any, into the Runtime category.
func (c *Context) CallFunc(fn value.Value, argv []value.Value) (value.Value, error) {
	result, err := c.vm.CallFunc(fn, argv)
	if err != nil {
		msg, _ := c.vm.GetErrMsg()
		c.setError(errtype.Runtime, msg)
		return value.Nil(), err
	}
	c.clearError()
	return result, nil
}

// CompileExpr compiles a single expression, matching spec.md §4.8's
// `compile_expr` (used by sysutil.compile).
func (c *Context) CompileExpr(src string) (value.Value, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		c.setError(errtype.Syntax, err.Error())
		return value.Nil(), err
	}
	chunk, err := compiler.CompileExpr(expr)
	if err != nil {
		c.setError(errtype.Semantic, err.Error())
		return value.Nil(), err
	}
	c.prependProgram(chunk)
	c.clearError()
	return value.NewClosureFunc(&value.Closure{Chunk: chunk, Name: "<expr>", Arity: chunk.Arity}), nil
}

// Require loads and executes path once, memoizing the result for the
// lifetime of the context, mirroring rtlb_require's caching behavior
// (see SPEC_FULL.md's SUPPLEMENTED FEATURES).
func (c *Context) Require(path string) (value.Value, error) {
	if v, ok := c.required[path]; ok {
		return v, nil
	}
	result, err := c.ExecSrcFile(path)
	if err != nil {
		return value.Nil(), err
	}
	c.required[path] = result
	return result, nil
}

func (c *Context) GetGlobals() value.Value { return c.vm.GetGlobals() }

func (c *Context) GetErrType() errtype.Type { return c.errKind }
func (c *Context) GetErrMsg() string        { return c.errMsg }

// ClearError resets the category to Ok without freeing previously
// returned values (spec.md §7).
func (c *Context) ClearError() { c.clearError() }

func (c *Context) setError(kind errtype.Type, msg string) {
	c.errKind = kind
	c.errMsg = msg
}

func (c *Context) clearError() {
	c.errKind = errtype.Ok
	c.errMsg = ""
}

// StackTrace reports the current call stack, per spec.md §4.7's
// `stacktrace`.
func (c *Context) StackTrace() []string { return c.vm.StackTrace() }
