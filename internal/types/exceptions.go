package types

import (
	"errors"
	"strings"

	"github.com/samber/lo"
)

type ErrorTag string

const (
	InputErrorTag        ErrorTag = "InputError"
	LexErrorTag          ErrorTag = "LexError"
	OverflowErrorTag     ErrorTag = "OverflowError"
	RecursionErrorTag    ErrorTag = "RecursionError"
	SyntaxErrorTag       ErrorTag = "SyntaxError"
	UnderflowErrorTag    ErrorTag = "UnderflowError"
	ZeroDivisionErrorTag ErrorTag = "ZeroDivisionError"
)

// EndOfInput is the position reported by syntax errors found after the last token.
const EndOfInput = "end of input"

// Exception is an error that can be rendered as a structured value for the user.
type Exception interface {
	error
	Exception() any
}

type Error struct {
	Tag   ErrorTag
	Err   error
	Extra map[string]any
}

var _ Exception = (*Error)(nil)

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Tag)
	}

	var b strings.Builder
	b.WriteString(string(e.Tag))
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Exception() any {
	tags := []any{}
	for err := error(e); err != nil; err = errors.Unwrap(err) {
		if e, ok := err.(*Error); ok {
			tags = append(tags, e.Tag)
		}
	}

	o := map[string]any{
		"tags": tags,
	}
	if e.Err != nil {
		o["message"] = e.Err.Error()
	}
	if len(e.Extra) != 0 {
		o = lo.Assign(o, e.Extra)
	}
	return o
}

// HasTag reports whether any *Error in err's chain carries the given tag.
func HasTag(err error, tag ErrorTag) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if e, ok := err.(*Error); ok && e.Tag == tag {
			return true
		}
	}
	return false
}
