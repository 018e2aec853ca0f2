package expression

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

type TokenKind int

const (
	NumberToken TokenKind = iota
	PlusToken
	MinusToken
	MultToken
	DivToken
	LeftParenToken
	RightParenToken
)

var symbolTokenKindMap = map[rune]TokenKind{
	'+': PlusToken,
	'-': MinusToken,
	'*': MultToken,
	'/': DivToken,
	'(': LeftParenToken,
	')': RightParenToken,
}

var tokenKindSymbolMap = lo.Invert(symbolTokenKindMap)

// Token is a lexical unit of an expression. Value is meaningful only for NumberToken.
type Token struct {
	Kind  TokenKind
	Value uint64
}

func Number(v uint64) Token {
	return Token{Kind: NumberToken, Value: v}
}

// String returns the source text of the token.
func (t Token) String() string {
	if t.Kind == NumberToken {
		return strconv.FormatUint(t.Value, 10)
	}
	if r, ok := tokenKindSymbolMap[t.Kind]; ok {
		return string(r)
	}
	panic(fmt.Sprintf("should not leach here: kind=%d", t.Kind))
}

func (k TokenKind) String() string {
	switch k {
	case NumberToken:
		return "Number"
	case PlusToken:
		return "Plus"
	case MinusToken:
		return "Minus"
	case MultToken:
		return "Mult"
	case DivToken:
		return "Div"
	case LeftParenToken:
		return "LeftParen"
	case RightParenToken:
		return "RightParen"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// RenderTokens joins the source text of tokens with single spaces.
func RenderTokens(tokens []Token) string {
	return strings.Join(lo.Map(tokens, func(t Token, _ int) string {
		return t.String()
	}), " ")
}
