package expression

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/k0kubun/pp"

	"github.com/karupanerura/arithmetic-repl/internal/types"
)

const DefaultMaxDepth = 256

const debugEnv = "ARITHMETIC_REPL_DEBUG"

func debugFromEnv() bool {
	v, err := strconv.ParseBool(os.Getenv(debugEnv))
	return v && err == nil
}

// Parser builds expression trees from tokens. The zero value is not usable; use NewParser.
type Parser struct {
	maxDepth int
	debug    bool
}

type ParserOption func(*Parser)

// WithMaxDepth limits how deeply parentheses may nest. Zero or less means no limit.
func WithMaxDepth(depth int) ParserOption {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// WithDebug overrides the default taken from the ARITHMETIC_REPL_DEBUG environment variable.
func WithDebug(debug bool) ParserOption {
	return func(p *Parser) {
		p.debug = debug
	}
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxDepth: DefaultMaxDepth, debug: debugFromEnv()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

func (p *Parser) Debug() bool {
	return p.debug
}

var defaultParser = NewParser()

// Parse parses tokens with the default parser.
func Parse(tokens []Token) (Expr, error) {
	return defaultParser.Parse(tokens)
}

// Parse builds the tree for tokens. Errors are *types.Error tagged SyntaxErrorTag or
// RecursionErrorTag with the 1-based token position (or types.EndOfInput) in Extra["position"].
func (p *Parser) Parse(tokens []Token) (Expr, error) {
	if len(tokens) == 0 {
		return nil, &types.Error{
			Tag:   types.SyntaxErrorTag,
			Err:   fmt.Errorf("empty expression is not allowed"),
			Extra: map[string]any{"position": types.EndOfInput},
		}
	}

	s := &parseState{tokens: tokens, maxDepth: p.maxDepth}
	expr, err := s.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok, ok := s.peek(); ok {
		if p.debug {
			log.Println("not consumed token: ", tok.String())
		}
		return nil, s.createUnexpectedTokenError(tok, s.pos)
	}

	if p.debug {
		log.Println("tokens: ", pp.Sprint(tokens))
		log.Println("tree: ", SExpr(expr))
	}
	return expr, nil
}

type parseState struct {
	tokens   []Token
	pos      int // 0-based index of the next token
	depth    int
	maxDepth int
}

func (s *parseState) peek() (Token, bool) {
	if s.pos == len(s.tokens) {
		return Token{}, false
	}
	return s.tokens[s.pos], true
}

// expression := term ( ('+' | '-') term )*
func (s *parseState) parseExpression() (Expr, error) {
	left, err := s.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := s.peek()
		if !ok || (tok.Kind != PlusToken && tok.Kind != MinusToken) {
			return left, nil
		}
		s.pos++

		right, err := s.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Operator: operatorTokenKindMap[tok.Kind], Left: left, Right: right}
	}
}

// term := factor ( ('*' | '/') factor )*
func (s *parseState) parseTerm() (Expr, error) {
	left, err := s.parseFactor()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := s.peek()
		if !ok || (tok.Kind != MultToken && tok.Kind != DivToken) {
			return left, nil
		}
		s.pos++

		right, err := s.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Operator: operatorTokenKindMap[tok.Kind], Left: left, Right: right}
	}
}

// factor := NUMBER | '(' expression ')'
func (s *parseState) parseFactor() (Expr, error) {
	tok, ok := s.peek()
	if !ok {
		return nil, &types.Error{
			Tag:   types.SyntaxErrorTag,
			Err:   fmt.Errorf("unexpected end of input: expected number or %q", "("),
			Extra: map[string]any{"position": types.EndOfInput},
		}
	}

	switch tok.Kind {
	case NumberToken:
		s.pos++
		return &Literal{Value: tok.Value}, nil

	case LeftParenToken:
		openPos := s.pos
		if s.maxDepth > 0 && s.depth >= s.maxDepth {
			return nil, &types.Error{
				Tag:   types.RecursionErrorTag,
				Err:   fmt.Errorf("parentheses nested deeper than %d at %d", s.maxDepth, openPos+1),
				Extra: map[string]any{"position": openPos + 1},
			}
		}
		s.pos++

		s.depth++
		inner, err := s.parseExpression()
		s.depth--
		if err != nil {
			return nil, err
		}

		closeTok, ok := s.peek()
		if !ok {
			return nil, &types.Error{
				Tag:   types.SyntaxErrorTag,
				Err:   fmt.Errorf("unbalanced parentheses: %q at %d is not closed", "(", openPos+1),
				Extra: map[string]any{"position": types.EndOfInput},
			}
		}
		if closeTok.Kind != RightParenToken {
			return nil, &types.Error{
				Tag:   types.SyntaxErrorTag,
				Err:   fmt.Errorf("unbalanced parentheses: expected %q but got %q at %d", ")", closeTok.String(), s.pos+1),
				Extra: map[string]any{"position": s.pos + 1},
			}
		}
		s.pos++
		return inner, nil

	default:
		return nil, s.createUnexpectedTokenError(tok, s.pos)
	}
}

func (s *parseState) createUnexpectedTokenError(tok Token, pos int) error {
	return &types.Error{
		Tag:   types.SyntaxErrorTag,
		Err:   fmt.Errorf("unexpected token %q at %d", tok.String(), pos+1),
		Extra: map[string]any{"position": pos + 1},
	}
}
