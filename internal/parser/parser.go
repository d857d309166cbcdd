package parser

import (
	"fmt"
	"strconv"

	"sparkling/internal/lexer"
)

// Parser is a recursive-descent, precedence-climbing parser over the
// token stream lexer.Scanner produces.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a complete program (spec.md §4.8's `loadstring`
// target). A syntax error is returned as a plain error; the Context
// façade is responsible for tagging it errtype.Syntax.
func Parse(src string) (*Program, error) {
	sc := lexer.NewScanner(src)
	toks := sc.ScanTokens()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	p := New(toks)
	return p.parseProgram()
}

// ParseExpr parses a single expression, for Context.CompileExpr.
func ParseExpr(src string) (Expr, error) {
	sc := lexer.NewScanner(src)
	toks := sc.ScanTokens()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	p := New(toks)
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.check(lexer.TokenEOF) {
		return nil, p.errorf("unexpected trailing input after expression")
	}
	return e, nil
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for !p.check(lexer.TokenEOF) {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, st)
	}
	return prog, nil
}

// --- statements ---

func (p *Parser) block() ([]Stmt, error) {
	if _, err := p.expect(lexer.TokenLBrace); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.check(lexer.TokenRBrace) && !p.check(lexer.TokenEOF) {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.match(lexer.TokenLet):
		return p.letStatement()
	case p.match(lexer.TokenReturn):
		return p.returnStatement()
	case p.match(lexer.TokenIf):
		return p.ifStatement()
	case p.match(lexer.TokenWhile):
		return p.whileStatement()
	case p.match(lexer.TokenFor):
		return p.forStatement()
	default:
		return p.exprStatement()
	}
}

func (p *Parser) letStatement() (Stmt, error) {
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenEqual); err != nil {
		return nil, err
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.match(lexer.TokenSemicolon)
	return &LetStmt{Name: name.Lexeme, Value: val}, nil
}

func (p *Parser) returnStatement() (Stmt, error) {
	if p.check(lexer.TokenSemicolon) || p.check(lexer.TokenRBrace) || p.check(lexer.TokenEOF) {
		p.match(lexer.TokenSemicolon)
		return &ReturnStmt{}, nil
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.match(lexer.TokenSemicolon)
	return &ReturnStmt{Value: val}, nil
}

func (p *Parser) ifStatement() (Stmt, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	thenB, err := p.block()
	if err != nil {
		return nil, err
	}
	var elseB []Stmt
	if p.match(lexer.TokenElse) {
		if p.check(lexer.TokenIf) {
			p.advance()
			nested, err := p.ifStatement()
			if err != nil {
				return nil, err
			}
			elseB = []Stmt{nested}
		} else {
			elseB, err = p.block()
			if err != nil {
				return nil, err
			}
		}
	}
	return &IfStmt{Cond: cond, Then: thenB, Else: elseB}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) forStatement() (Stmt, error) {
	name, err := p.expect(lexer.TokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenIn); err != nil {
		return nil, err
	}
	iter, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &ForInStmt{Name: name.Lexeme, Iterable: iter, Body: body}, nil
}

func (p *Parser) exprStatement() (Stmt, error) {
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.match(lexer.TokenSemicolon)
	return &ExprStmt{Expr: e}, nil
}

// --- expressions, lowest to highest precedence ---

func (p *Parser) expression() (Expr, error) { return p.assignment() }

func (p *Parser) assignment() (Expr, error) {
	left, err := p.pipe()
	if err != nil {
		return nil, err
	}
	if p.match(lexer.TokenEqual) {
		switch left.(type) {
		case *Ident, *Index, *Field:
		default:
			return nil, p.errorf("invalid assignment target")
		}
		val, err := p.assignment()
		if err != nil {
			return nil, err
		}
		return &Assign{Target: left, Value: val}, nil
	}
	return left, nil
}

// pipe implements `a |> f(b, c)`, desugared into `f(a, b, c)`.
func (p *Parser) pipe() (Expr, error) {
	left, err := p.or()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenPipe) {
		rhs, err := p.or()
		if err != nil {
			return nil, err
		}
		call, ok := rhs.(*Call)
		if !ok {
			return nil, p.errorf("right-hand side of |> must be a function call")
		}
		call.Args = append([]Expr{left}, call.Args...)
		left = call
	}
	return left, nil
}

func (p *Parser) or() (Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenOr) {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) and() (Expr, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(lexer.TokenAnd) {
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) equality() (Expr, error) {
	return p.binaryLevel(p.comparison, lexer.TokenDoubleEqual, lexer.TokenNotEqual)
}

func (p *Parser) comparison() (Expr, error) {
	return p.binaryLevel(p.additive, lexer.TokenLT, lexer.TokenGT, lexer.TokenLE, lexer.TokenGE)
}

func (p *Parser) additive() (Expr, error) {
	return p.binaryLevel(p.multiplicative, lexer.TokenPlus, lexer.TokenMinus)
}

func (p *Parser) multiplicative() (Expr, error) {
	return p.binaryLevel(p.unary, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent)
}

func (p *Parser) binaryLevel(next func() (Expr, error), ops ...lexer.TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.checkAny(ops...) {
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: string(op.Type), Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) unary() (Expr, error) {
	if p.checkAny(lexer.TokenMinus, lexer.TokenNot) {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: string(op.Type), Right: right}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.match(lexer.TokenLParen):
			args, err := p.argList(lexer.TokenRParen)
			if err != nil {
				return nil, err
			}
			expr = &Call{Callee: expr, Args: args}
		case p.match(lexer.TokenLBracket):
			key, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.TokenRBracket); err != nil {
				return nil, err
			}
			expr = &Index{Recv: expr, Key: key}
		case p.match(lexer.TokenDot):
			name, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, err
			}
			if p.match(lexer.TokenLParen) {
				args, err := p.argList(lexer.TokenRParen)
				if err != nil {
					return nil, err
				}
				expr = &MethodCall{Recv: expr, Method: name.Lexeme, Args: args}
			} else {
				expr = &Field{Recv: expr, Name: name.Lexeme}
			}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) argList(end lexer.TokenType) ([]Expr, error) {
	var args []Expr
	if p.check(end) {
		p.advance()
		return args, nil
	}
	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	if _, err := p.expect(end); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.match(lexer.TokenInt):
		lit := p.previous().Lexeme
		n, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", lit)
		}
		return &IntLit{Value: n}, nil
	case p.match(lexer.TokenFloat):
		lit := p.previous().Lexeme
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal %q", lit)
		}
		return &FloatLit{Value: f}, nil
	case p.match(lexer.TokenString):
		return &StringLit{Value: p.previous().Lexeme}, nil
	case p.match(lexer.TokenTrue):
		return &BoolLit{Value: true}, nil
	case p.match(lexer.TokenFalse):
		return &BoolLit{Value: false}, nil
	case p.match(lexer.TokenNil):
		return &NilLit{}, nil
	case p.match(lexer.TokenIdent):
		return &Ident{Name: p.previous().Lexeme}, nil
	case p.match(lexer.TokenLParen):
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return e, nil
	case p.match(lexer.TokenLBracket):
		elems, err := p.argList(lexer.TokenRBracket)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{Elements: elems}, nil
	case p.match(lexer.TokenLBrace):
		return p.mapLiteral()
	case p.match(lexer.TokenFn):
		return p.funcLiteral()
	}
	return nil, p.errorf("unexpected token %s", p.peek().Type)
}

func (p *Parser) mapLiteral() (Expr, error) {
	lit := &MapLit{}
	if p.match(lexer.TokenRBrace) {
		return lit, nil
	}
	for {
		key, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenColon); err != nil {
			return nil, err
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		lit.Entries = append(lit.Entries, MapEntry{Key: key, Val: val})
		if !p.match(lexer.TokenComma) {
			break
		}
		if p.check(lexer.TokenRBrace) {
			break
		}
	}
	if _, err := p.expect(lexer.TokenRBrace); err != nil {
		return nil, err
	}
	return lit, nil
}

func (p *Parser) funcLiteral() (Expr, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var params []string
	if !p.check(lexer.TokenRParen) {
		for {
			name, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, err
			}
			params = append(params, name.Lexeme)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &FuncLit{Params: params, Body: body}, nil
}

// --- token helpers ---

func (p *Parser) peek() lexer.Token { return p.tokens[p.pos] }
func (p *Parser) previous() lexer.Token { return p.tokens[p.pos-1] }
func (p *Parser) isAtEnd() bool { return p.peek().Type == lexer.TokenEOF }

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) checkAny(ts ...lexer.TokenType) bool {
	for _, t := range ts {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorf("expected %s, got %s %q", t, p.peek().Type, p.peek().Lexeme)
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.peek().Line, fmt.Sprintf(format, args...))
}
