// Package parser turns DSL source text into an ast.Mets: a recursive
// descent parser over internal/lexer's token stream, with an embedded
// sub-grammar for the backtick-quoted SQL sublanguage.
//
// Grounded on the teacher's internal/parser/parser.go current/peek
// token idiom (NewParser, nextToken, currentTokenIs/peekTokenIs,
// expectToken), adapted from SQL-statement parsing to the DSL's
// init/process/property top level plus if/else offset backpatching,
// which the teacher's grammar has no equivalent of (drawn instead from
// original_source/src/parser.rs's overall statement/expression shape).
package parser

import (
	"fmt"

	"metscheck/internal/ast"
	"metscheck/internal/lexer"
	"metscheck/internal/token"
)

// Error is a parse failure with source position.
type Error struct {
	Message  string
	Position token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Position, e.Message)
}

// Parser is a recursive-descent parser over one DSL source document.
type Parser struct {
	lex     *lexer.Lexer
	current token.Token
	peek    token.Token
}

// New creates a Parser over source text, priming the first two tokens.
func New(source string) (*Parser, error) {
	p := &Parser{lex: lexer.New(source)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses a complete model document.
func Parse(source string) (*ast.Mets, error) {
	p, err := New(source)
	if err != nil {
		return nil, err
	}
	return p.parseMets()
}

func (p *Parser) advance() error {
	p.current = p.peek
	next, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.peek = next
	return nil
}

func (p *Parser) at(kind token.Kind) bool  { return p.current.Kind == kind }
func (p *Parser) peekAt(kind token.Kind) bool { return p.peek.Kind == kind }

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	if !p.at(kind) {
		return token.Token{}, p.errorf("expected %s, got %s %q", kind, p.current.Kind, p.current.Lexeme)
	}
	t := p.current
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...), Position: p.current.Position}
}

// skipNewlines consumes any number of statement-separator newlines.
func (p *Parser) skipNewlines() error {
	for p.at(token.NEWLINE) {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseMets() (*ast.Mets, error) {
	mets := &ast.Mets{}

	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.INIT); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DO); err != nil {
		return nil, err
	}
	init, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	mets.Init = init
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	for p.at(token.PROCESS) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.DO); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		mets.Processes = append(mets.Processes, body)
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}

	for p.at(token.ALWAYS) || p.at(token.NEVER) || p.at(token.EVENTUALLY) {
		kind := p.current.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		switch kind {
		case token.ALWAYS:
			mets.Properties = append(mets.Properties, ast.AlwaysProperty{Expr: expr})
		case token.NEVER:
			mets.Properties = append(mets.Properties, ast.NeverProperty{Expr: expr})
		case token.EVENTUALLY:
			mets.Properties = append(mets.Properties, ast.EventuallyProperty{Expr: expr})
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}

	if !p.at(token.EOF) {
		return nil, p.errorf("unexpected trailing token %s %q", p.current.Kind, p.current.Lexeme)
	}

	return mets, nil
}
