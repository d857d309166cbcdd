// Package compiler translates a parsed program into bytecode. Like
// internal/parser and internal/lexer, its code-generation passes are
// out of scope for detailed design per spec.md §1; this is a minimal
// single-pass compiler, adapted from the teacher's
// internal/compiler.Compiler (AST walk -> Chunk.WriteOp), trimmed to
// a flat per-function local-slot model with no upvalue capture:
// nested function literals see their own parameters and the VM's
// globals, but not the enclosing function's locals. Capturing
// closures are compiler-codegen territory the spec places out of
// scope, and the language surface spec.md §8 exercises never needs
// them.
package compiler

import (
	"fmt"

	"sparkling/internal/bytecode"
	"sparkling/internal/parser"
	"sparkling/internal/value"
)

type scope struct {
	locals []string
}

func (s *scope) declare(name string) int {
	s.locals = append(s.locals, name)
	return len(s.locals) - 1
}

func (s *scope) resolve(name string) (int, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if s.locals[i] == name {
			return i, true
		}
	}
	return 0, false
}

// Compiler walks one function body (the top level, or one FuncLit) and
// emits its Chunk. isFunctionBody distinguishes a nested function
// (where `let` declares a local slot) from the top level (where `let`
// defines a global, per spec.md §4.8's globals table).
type Compiler struct {
	chunk          *bytecode.Chunk
	scope          *scope
	isFunctionBody bool
}

// CompileProgram compiles a full top-level program into a Chunk with
// arity 0, matching spec.md §4.8's `loadstring`.
func CompileProgram(prog *parser.Program) (*bytecode.Chunk, error) {
	c := &Compiler{chunk: bytecode.NewChunk("<top level>"), scope: &scope{}}
	for _, st := range prog.Body {
		if err := c.compileStmt(st); err != nil {
			return nil, err
		}
	}
	c.chunk.WriteOp(bytecode.OpNil, 0)
	c.chunk.WriteOp(bytecode.OpReturn, 0)
	return c.chunk, nil
}

// CompileExpr compiles a single expression into a Chunk with an
// implicit `return`, matching spec.md §4.8's `compile_expr`.
func CompileExpr(expr parser.Expr) (*bytecode.Chunk, error) {
	c := &Compiler{chunk: bytecode.NewChunk("<expr>"), scope: &scope{}}
	if err := c.compileExpr(expr); err != nil {
		return nil, err
	}
	c.chunk.WriteOp(bytecode.OpReturn, 0)
	return c.chunk, nil
}

// compileFuncLit compiles a function literal's body into its own Chunk.
// Parameters occupy the first N local slots, matching the calling
// convention internal/vmcore uses to set up a call frame.
func compileFuncLit(lit *parser.FuncLit) (*bytecode.Chunk, error) {
	c := &Compiler{
		chunk:          bytecode.NewChunk("<function>"),
		scope:          &scope{},
		isFunctionBody: true,
	}
	c.chunk.Arity = len(lit.Params)
	for _, p := range lit.Params {
		c.scope.declare(p)
	}
	for _, st := range lit.Body {
		if err := c.compileStmt(st); err != nil {
			return nil, err
		}
	}
	c.chunk.WriteOp(bytecode.OpNil, 0)
	c.chunk.WriteOp(bytecode.OpReturn, 0)
	return c.chunk, nil
}

func (c *Compiler) compileBlock(stmts []parser.Stmt) error {
	for _, st := range stmts {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(st parser.Stmt) error {
	switch s := st.(type) {
	case *parser.ExprStmt:
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		c.chunk.WriteOp(bytecode.OpPop, 0)
		return nil

	case *parser.LetStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		if c.isFunctionBody {
			slot := c.scope.declare(s.Name)
			c.chunk.WriteOp(bytecode.OpSetLocal, 0)
			c.chunk.WriteUint16(uint16(slot))
			c.chunk.WriteOp(bytecode.OpPop, 0)
			return nil
		}
		idx := c.nameConstant(s.Name)
		c.chunk.WriteOp(bytecode.OpDefineGlobal, 0)
		c.chunk.WriteUint16(uint16(idx))
		return nil

	case *parser.ReturnStmt:
		if s.Value == nil {
			c.chunk.WriteOp(bytecode.OpNil, 0)
		} else if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.chunk.WriteOp(bytecode.OpReturn, 0)
		return nil

	case *parser.IfStmt:
		return c.compileIf(s)

	case *parser.WhileStmt:
		return c.compileWhile(s)

	case *parser.ForInStmt:
		return c.compileForIn(s)

	default:
		return fmt.Errorf("compiler: unsupported statement %T", st)
	}
}

func (c *Compiler) compileIf(s *parser.IfStmt) error {
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpJumpIfFalse, 0)
	jfPos := c.chunk.WriteUint16(0)
	if err := c.compileBlock(s.Then); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpJump, 0)
	jmpPos := c.chunk.WriteUint16(0)

	c.chunk.PatchUint16(jfPos, uint16(len(c.chunk.Code)))
	if err := c.compileBlock(s.Else); err != nil {
		return err
	}
	c.chunk.PatchUint16(jmpPos, uint16(len(c.chunk.Code)))
	return nil
}

func (c *Compiler) compileWhile(s *parser.WhileStmt) error {
	loopStart := len(c.chunk.Code)
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpJumpIfFalse, 0)
	exitPos := c.chunk.WriteUint16(0)
	if err := c.compileBlock(s.Body); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpLoop, 0)
	c.chunk.WriteUint16(uint16(loopStart))
	c.chunk.PatchUint16(exitPos, uint16(len(c.chunk.Code)))
	return nil
}

// compileForIn desugars `for name in iterable { body }` over an Array
// using the VM's index-based iteration (HashMap iteration is left to
// the stdlib's foreach, since it needs the cursor protocol of §4.4).
func (c *Compiler) compileForIn(s *parser.ForInStmt) error {
	if err := c.compileExpr(s.Iterable); err != nil {
		return err
	}
	iterSlot := c.scope.declare("<iter>")
	c.chunk.WriteOp(bytecode.OpSetLocal, 0)
	c.chunk.WriteUint16(uint16(iterSlot))
	c.chunk.WriteOp(bytecode.OpPop, 0)

	idxConst := c.chunk.AddConstant(value.Int(0))
	c.chunk.WriteOp(bytecode.OpConstant, 0)
	c.chunk.WriteUint16(uint16(idxConst))
	idxSlot := c.scope.declare("<idx>")
	c.chunk.WriteOp(bytecode.OpSetLocal, 0)
	c.chunk.WriteUint16(uint16(idxSlot))
	c.chunk.WriteOp(bytecode.OpPop, 0)

	itemSlot := c.scope.declare(s.Name)

	loopStart := len(c.chunk.Code)
	// cond: idx < len(iterable) — emitted via a method call to length,
	// compiled as recv.count()
	c.emitGetLocal(idxSlot)
	c.emitGetLocal(iterSlot)
	nameIdx := c.chunk.AddConstant(value.NewString("count"))
	c.chunk.WriteOp(bytecode.OpCallMethod, 0)
	c.chunk.WriteUint16(uint16(nameIdx))
	c.chunk.WriteUint16(0)
	c.chunk.WriteOp(bytecode.OpLess, 0)

	c.chunk.WriteOp(bytecode.OpJumpIfFalse, 0)
	exitPos := c.chunk.WriteUint16(0)

	c.emitGetLocal(iterSlot)
	c.emitGetLocal(idxSlot)
	c.chunk.WriteOp(bytecode.OpGetIndex, 0)
	c.chunk.WriteOp(bytecode.OpSetLocal, 0)
	c.chunk.WriteUint16(uint16(itemSlot))
	c.chunk.WriteOp(bytecode.OpPop, 0)

	if err := c.compileBlock(s.Body); err != nil {
		return err
	}

	c.emitGetLocal(idxSlot)
	oneIdx := c.chunk.AddConstant(value.Int(1))
	c.chunk.WriteOp(bytecode.OpConstant, 0)
	c.chunk.WriteUint16(uint16(oneIdx))
	c.chunk.WriteOp(bytecode.OpAdd, 0)
	c.chunk.WriteOp(bytecode.OpSetLocal, 0)
	c.chunk.WriteUint16(uint16(idxSlot))
	c.chunk.WriteOp(bytecode.OpPop, 0)

	c.chunk.WriteOp(bytecode.OpLoop, 0)
	c.chunk.WriteUint16(uint16(loopStart))
	c.chunk.PatchUint16(exitPos, uint16(len(c.chunk.Code)))
	return nil
}

func (c *Compiler) emitGetLocal(slot int) {
	c.chunk.WriteOp(bytecode.OpGetLocal, 0)
	c.chunk.WriteUint16(uint16(slot))
}

func (c *Compiler) nameConstant(name string) int {
	return c.chunk.AddConstant(value.NewString(name))
}

func (c *Compiler) compileExpr(e parser.Expr) error {
	switch ex := e.(type) {
	case *parser.IntLit:
		idx := c.chunk.AddConstant(value.Int(ex.Value))
		c.chunk.WriteOp(bytecode.OpConstant, 0)
		c.chunk.WriteUint16(uint16(idx))
	case *parser.FloatLit:
		idx := c.chunk.AddConstant(value.Float(ex.Value))
		c.chunk.WriteOp(bytecode.OpConstant, 0)
		c.chunk.WriteUint16(uint16(idx))
	case *parser.StringLit:
		idx := c.chunk.AddConstant(value.NewString(ex.Value))
		c.chunk.WriteOp(bytecode.OpConstant, 0)
		c.chunk.WriteUint16(uint16(idx))
	case *parser.BoolLit:
		if ex.Value {
			c.chunk.WriteOp(bytecode.OpTrue, 0)
		} else {
			c.chunk.WriteOp(bytecode.OpFalse, 0)
		}
	case *parser.NilLit:
		c.chunk.WriteOp(bytecode.OpNil, 0)

	case *parser.Ident:
		if slot, ok := c.scope.resolve(ex.Name); ok {
			c.emitGetLocal(slot)
		} else {
			idx := c.nameConstant(ex.Name)
			c.chunk.WriteOp(bytecode.OpGetGlobal, 0)
			c.chunk.WriteUint16(uint16(idx))
		}

	case *parser.ArrayLit:
		for _, el := range ex.Elements {
			if err := c.compileExpr(el); err != nil {
				return err
			}
		}
		c.chunk.WriteOp(bytecode.OpNewArray, 0)
		c.chunk.WriteUint16(uint16(len(ex.Elements)))

	case *parser.MapLit:
		for _, entry := range ex.Entries {
			if err := c.compileExpr(entry.Key); err != nil {
				return err
			}
			if err := c.compileExpr(entry.Val); err != nil {
				return err
			}
		}
		c.chunk.WriteOp(bytecode.OpNewMap, 0)
		c.chunk.WriteUint16(uint16(len(ex.Entries)))

	case *parser.Unary:
		if err := c.compileExpr(ex.Right); err != nil {
			return err
		}
		switch ex.Op {
		case "-":
			c.chunk.WriteOp(bytecode.OpNegate, 0)
		case "!":
			c.chunk.WriteOp(bytecode.OpNot, 0)
		default:
			return fmt.Errorf("compiler: unknown unary operator %q", ex.Op)
		}

	case *parser.Binary:
		if err := c.compileExpr(ex.Left); err != nil {
			return err
		}
		if err := c.compileExpr(ex.Right); err != nil {
			return err
		}
		op, ok := binaryOps[ex.Op]
		if !ok {
			return fmt.Errorf("compiler: unknown binary operator %q", ex.Op)
		}
		c.chunk.WriteOp(op, 0)

	case *parser.Logical:
		return c.compileLogical(ex)

	case *parser.Index:
		if err := c.compileExpr(ex.Recv); err != nil {
			return err
		}
		if err := c.compileExpr(ex.Key); err != nil {
			return err
		}
		c.chunk.WriteOp(bytecode.OpGetIndex, 0)

	case *parser.Field:
		if err := c.compileExpr(ex.Recv); err != nil {
			return err
		}
		idx := c.nameConstant(ex.Name)
		c.chunk.WriteOp(bytecode.OpGetField, 0)
		c.chunk.WriteUint16(uint16(idx))

	case *parser.Call:
		if err := c.compileExpr(ex.Callee); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.chunk.WriteOp(bytecode.OpCall, 0)
		c.chunk.WriteUint16(uint16(len(ex.Args)))

	case *parser.MethodCall:
		if err := c.compileExpr(ex.Recv); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		nameIdx := c.nameConstant(ex.Method)
		c.chunk.WriteOp(bytecode.OpCallMethod, 0)
		c.chunk.WriteUint16(uint16(nameIdx))
		c.chunk.WriteUint16(uint16(len(ex.Args)))

	case *parser.FuncLit:
		sub, err := compileFuncLit(ex)
		if err != nil {
			return err
		}
		fn := value.NewClosureFunc(&value.Closure{Chunk: sub, Name: "<anonymous>", Arity: len(ex.Params)})
		idx := c.chunk.AddConstant(fn)
		c.chunk.WriteOp(bytecode.OpConstant, 0)
		c.chunk.WriteUint16(uint16(idx))

	case *parser.Assign:
		switch t := ex.Target.(type) {
		case *parser.Ident:
			if err := c.compileExpr(ex.Value); err != nil {
				return err
			}
			if slot, ok := c.scope.resolve(t.Name); ok {
				c.chunk.WriteOp(bytecode.OpSetLocal, 0)
				c.chunk.WriteUint16(uint16(slot))
			} else {
				idx := c.nameConstant(t.Name)
				c.chunk.WriteOp(bytecode.OpSetGlobal, 0)
				c.chunk.WriteUint16(uint16(idx))
			}
		case *parser.Index:
			return c.compileIndexAssign(t, ex.Value)
		case *parser.Field:
			return c.compileFieldAssign(t, ex.Value)
		default:
			return fmt.Errorf("compiler: unsupported assignment target %T", ex.Target)
		}

	default:
		return fmt.Errorf("compiler: unsupported expression %T", e)
	}
	return nil
}

// compileIndexAssign and compileFieldAssign emit their target's
// receiver/key before the value, matching the (recv, key, value) /
// (recv, value) stack order OpSetIndex/OpSetField expect.
func (c *Compiler) compileIndexAssign(t *parser.Index, val parser.Expr) error {
	if err := c.compileExpr(t.Recv); err != nil {
		return err
	}
	if err := c.compileExpr(t.Key); err != nil {
		return err
	}
	if err := c.compileExpr(val); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpSetIndex, 0)
	return nil
}

func (c *Compiler) compileFieldAssign(t *parser.Field, val parser.Expr) error {
	if err := c.compileExpr(t.Recv); err != nil {
		return err
	}
	if err := c.compileExpr(val); err != nil {
		return err
	}
	idx := c.nameConstant(t.Name)
	c.chunk.WriteOp(bytecode.OpSetField, 0)
	c.chunk.WriteUint16(uint16(idx))
	return nil
}

func (c *Compiler) compileLogical(ex *parser.Logical) error {
	if err := c.compileExpr(ex.Left); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpDup, 0)
	c.chunk.WriteOp(bytecode.OpJumpIfFalse, 0)
	shortPos := c.chunk.WriteUint16(0)

	if ex.Op == "||" {
		// left was truthy: keep it as the result by jumping over the RHS.
		c.chunk.WriteOp(bytecode.OpJump, 0)
		endPos := c.chunk.WriteUint16(0)
		c.chunk.PatchUint16(shortPos, uint16(len(c.chunk.Code)))
		c.chunk.WriteOp(bytecode.OpPop, 0)
		if err := c.compileExpr(ex.Right); err != nil {
			return err
		}
		c.chunk.PatchUint16(endPos, uint16(len(c.chunk.Code)))
		return nil
	}

	// && : left was truthy, evaluate RHS.
	c.chunk.WriteOp(bytecode.OpPop, 0)
	if err := c.compileExpr(ex.Right); err != nil {
		return err
	}
	c.chunk.WriteOp(bytecode.OpJump, 0)
	endPos := c.chunk.WriteUint16(0)
	c.chunk.PatchUint16(shortPos, uint16(len(c.chunk.Code)))
	c.chunk.PatchUint16(endPos, uint16(len(c.chunk.Code)))
	return nil
}

var binaryOps = map[string]bytecode.OpCode{
	"+":  bytecode.OpAdd,
	"-":  bytecode.OpSub,
	"*":  bytecode.OpMul,
	"/":  bytecode.OpDiv,
	"%":  bytecode.OpMod,
	"==": bytecode.OpEqual,
	"!=": bytecode.OpNotEqual,
	"<":  bytecode.OpLess,
	"<=": bytecode.OpLessEqual,
	">":  bytecode.OpGreater,
	">=": bytecode.OpGreaterEqual,
}
