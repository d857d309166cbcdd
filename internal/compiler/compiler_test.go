package compiler

import (
	"testing"

	"sparkling/internal/bytecode"
	"sparkling/internal/parser"
)

func mustParse(t *testing.T, src string) *parser.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse(%q) failed: %v", src, err)
	}
	return prog
}

func lastOps(chunk *bytecode.Chunk, n int) []bytecode.OpCode {
	// best-effort: only valid when the trailing n bytes are all bare
	// opcodes (true for the OpNil/OpReturn tail every compiled chunk
	// ends with).
	ops := make([]bytecode.OpCode, n)
	for i := 0; i < n; i++ {
		ops[i] = bytecode.OpCode(chunk.Code[len(chunk.Code)-n+i])
	}
	return ops
}

func TestCompileProgramEndsWithImplicitNilReturn(t *testing.T) {
	chunk, err := CompileProgram(mustParse(t, "let x = 1;"))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	ops := lastOps(chunk, 2)
	if ops[0] != bytecode.OpNil || ops[1] != bytecode.OpReturn {
		t.Errorf("tail ops = %v, want [OpNil OpReturn]", ops)
	}
}

func TestCompileProgramTopLevelLetDefinesGlobal(t *testing.T) {
	chunk, err := CompileProgram(mustParse(t, "let x = 1;"))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if bytecode.OpCode(chunk.Code[0]) != bytecode.OpConstant {
		t.Fatalf("first op = %v, want OpConstant", chunk.Code[0])
	}
	// OpConstant <u16> OpDefineGlobal <u16>
	if bytecode.OpCode(chunk.Code[3]) != bytecode.OpDefineGlobal {
		t.Errorf("op at offset 3 = %v, want OpDefineGlobal (top-level let defines a global)", chunk.Code[3])
	}
}

func TestCompileExprEndsWithReturn(t *testing.T) {
	expr, err := parser.ParseExpr("1 + 2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	chunk, err := CompileExpr(expr)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	ops := lastOps(chunk, 1)
	if ops[0] != bytecode.OpReturn {
		t.Errorf("tail op = %v, want OpReturn", ops[0])
	}
}

func TestCompileBinaryOperatorsMapToOpcodes(t *testing.T) {
	cases := map[string]bytecode.OpCode{
		"+":  bytecode.OpAdd,
		"-":  bytecode.OpSub,
		"*":  bytecode.OpMul,
		"/":  bytecode.OpDiv,
		"%":  bytecode.OpMod,
		"==": bytecode.OpEqual,
		"<":  bytecode.OpLess,
	}
	for op, want := range cases {
		expr, err := parser.ParseExpr("1 " + op + " 2")
		if err != nil {
			t.Fatalf("parse %q failed: %v", op, err)
		}
		chunk, err := CompileExpr(expr)
		if err != nil {
			t.Fatalf("compile %q failed: %v", op, err)
		}
		// layout: OpConstant <u16> OpConstant <u16> <op> OpReturn
		got := bytecode.OpCode(chunk.Code[6])
		if got != want {
			t.Errorf("operator %q compiled to %v, want %v", op, got, want)
		}
	}
}

func TestCompileForInDoesNotError(t *testing.T) {
	prog := mustParse(t, "for v in a { let x = v; }")
	if _, err := CompileProgram(prog); err != nil {
		t.Fatalf("compiling a for-in loop should succeed: %v", err)
	}
}

func TestCompileLogicalDoesNotError(t *testing.T) {
	for _, src := range []string{"true && false", "true || false"} {
		expr, err := parser.ParseExpr(src)
		if err != nil {
			t.Fatalf("parse %q failed: %v", src, err)
		}
		if _, err := CompileExpr(expr); err != nil {
			t.Errorf("compiling %q should succeed: %v", src, err)
		}
	}
}

func TestCompileFuncLitProducesClosureConstant(t *testing.T) {
	expr, err := parser.ParseExpr("fn(a) { return a; }")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	chunk, err := CompileExpr(expr)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if len(chunk.Constants) != 1 {
		t.Fatalf("constants = %d, want 1 (the closure)", len(chunk.Constants))
	}
}

func TestCompileAssignToIndexAndField(t *testing.T) {
	for _, src := range []string{"a[0] = 1", "m.k = 1"} {
		expr, err := parser.ParseExpr(src)
		if err != nil {
			t.Fatalf("parse %q failed: %v", src, err)
		}
		if _, err := CompileExpr(expr); err != nil {
			t.Errorf("compiling %q should succeed: %v", src, err)
		}
	}
}
