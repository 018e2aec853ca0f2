package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"

	"github.com/karupanerura/arithmetic-repl/internal/config"
	"github.com/karupanerura/arithmetic-repl/internal/expression"
	"github.com/karupanerura/arithmetic-repl/internal/types"
)

const exitCommand = "exit"

// Session evaluates one expression per line read from In until EOF or the exit command.
type Session struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Prompt string
	Format config.Format
	Parser *expression.Parser
}

type result struct {
	Expression string `json:"expression"`
	Result     uint64 `json:"result"`
}

type failure struct {
	Expression string `json:"expression"`
	Error      any    `json:"error"`
}

// Run returns nil on EOF or exit. A failure to read input is returned as an InputError.
func (s *Session) Run(ctx context.Context) error {
	parser := s.Parser
	if parser == nil {
		parser = expression.NewParser()
	}

	reader := bufio.NewReader(s.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.Prompt != "" {
			if _, err := io.WriteString(s.Out, s.Prompt); err != nil {
				return fmt.Errorf("io.WriteString: %w", err)
			}
		}

		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return &types.Error{
				Tag: types.InputErrorTag,
				Err: readErr,
			}
		}
		if errors.Is(readErr, io.EOF) && line == "" {
			return nil
		}

		if strings.TrimSpace(line) == exitCommand {
			return nil
		}

		ret, err := parser.Calculate(line)
		if err != nil {
			if err := s.writeError(line, err); err != nil {
				return err
			}
		} else {
			if err := s.writeResult(line, ret); err != nil {
				return err
			}
		}

		if readErr != nil {
			return nil // the last line had no line separator
		}
	}
}

func (s *Session) writeResult(line string, ret uint64) error {
	if s.Format == config.JSONFormat {
		return dumpJSON(s.Out, &result{Expression: strings.TrimSpace(line), Result: ret})
	}

	if _, err := io.WriteString(s.Out, strconv.FormatUint(ret, 10)+"\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}

func (s *Session) writeError(line string, err error) error {
	if s.Format == config.JSONFormat {
		var exception types.Exception
		if errors.As(err, &exception) {
			return dumpJSON(s.Err, &failure{Expression: strings.TrimSpace(line), Error: exception.Exception()})
		}
		return dumpJSON(s.Err, &failure{Expression: strings.TrimSpace(line), Error: err.Error()})
	}

	if _, err := fmt.Fprintln(s.Err, err.Error()); err != nil {
		return fmt.Errorf("fmt.Fprintln: %w", err)
	}
	return nil
}

func dumpJSON(w io.Writer, v any) error {
	opts := []json.EncodeOptionFunc{json.DisableHTMLEscape()}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		if isatty.IsTerminal(f.Fd()) {
			opts = append(opts, json.Colorize(json.DefaultColorScheme))
		}
	}

	b, err := json.MarshalWithOption(v, opts...)
	if err != nil {
		return fmt.Errorf("json.MarshalWithOption: %w", err)
	}

	if _, err = w.Write(b); err != nil {
		return fmt.Errorf("w.Write: %w", err)
	}
	if _, err = io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}
	return nil
}
