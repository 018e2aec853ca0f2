package expression

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/karupanerura/arithmetic-repl/internal/types"
)

type lexer struct {
	source []rune
	index  int // 0-based offset of the next rune
}

func newLexer(source string) *lexer {
	return &lexer{
		source: []rune(source),
		index:  0,
	}
}

// Tokenize scans line into tokens. Errors are *types.Error tagged LexErrorTag with the
// 1-based rune index of the offending character in Extra["index"].
func Tokenize(line string) ([]Token, error) {
	lex := newLexer(line)

	var tokens []Token
	for {
		tok, ok, err := lex.consume()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) consume() (Token, bool, error) {
	for l.index != len(l.source) {
		c := l.source[l.index]
		switch {
		case unicode.IsSpace(c):
			l.index++ // just skip white spaces

		case isDigit(c):
			begins := l.index
			for l.index != len(l.source) && isDigit(l.source[l.index]) {
				l.index++
			}

			literal := string(l.source[begins:l.index])
			v, err := strconv.ParseUint(literal, 10, 64)
			if err != nil {
				return Token{}, false, &types.Error{
					Tag:   types.LexErrorTag,
					Err:   fmt.Errorf("number literal %q overflows uint64 at %d", literal, begins+1),
					Extra: map[string]any{"index": begins + 1},
				}
			}
			return Number(v), true, nil

		default:
			kind, ok := symbolTokenKindMap[c]
			if !ok {
				return Token{}, false, &types.Error{
					Tag:   types.LexErrorTag,
					Err:   fmt.Errorf("invalid character %q at %d", c, l.index+1),
					Extra: map[string]any{"index": l.index + 1},
				}
			}
			l.index++
			return Token{Kind: kind}, true, nil
		}
	}

	return Token{}, false, nil
}

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}
