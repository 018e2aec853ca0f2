package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"

	"github.com/karupanerura/arithmetic-repl/internal/config"
	"github.com/karupanerura/arithmetic-repl/internal/repl"
	"github.com/karupanerura/arithmetic-repl/internal/server"
)

type Option struct {
	Config           string `short:"c" long:"config" description:"[OPTIONAL] Config file (YAML or JSON)" required:"false"`
	Format           string `long:"format" description:"[OPTIONAL] Output format" choice:"text" choice:"json" required:"false"`
	Prompt           string `long:"prompt" description:"[OPTIONAL] Prompt shown when stdin is a terminal" required:"false"`
	MaxDepth         *int   `long:"max-depth" description:"[OPTIONAL] Maximum nesting of parentheses (0 means unlimited)" required:"false"`
	Debug            bool   `long:"debug" description:"[OPTIONAL] Dump tokens and trees to the log" required:"false"`
	Listen           string `short:"l" long:"listen" description:"[OPTIONAL] Listen host and port to serve the evaluation API" required:"false"`
	BatchConcurrency int    `long:"batch-concurrency" description:"[OPTIONAL] Concurrency of batch evaluations in server mode" required:"false"`
	HistorySize      int    `long:"history-size" description:"[OPTIONAL] Number of evaluations kept in server mode" required:"false"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opt Option
	parser := flags.NewParser(&opt, flags.Default)
	_, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		} else {
			parser.WriteHelp(stdout)
			return 1
		}
	}

	cfg, err := loadConfig(&opt)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	// server mode
	if cfg.Listen != "" {
		if err := serve(cfg); err != nil {
			log.Printf("failed to serve: %v", err)
			return 1
		}
		return 0
	}

	session := &repl.Session{
		In:     stdin,
		Out:    stdout,
		Err:    stderr,
		Format: cfg.Format,
		Parser: cfg.NewParser(),
	}
	if f, ok := stdin.(interface{ Fd() uintptr }); ok && isatty.IsTerminal(f.Fd()) {
		session.Prompt = cfg.Prompt
	}

	if err := session.Run(context.Background()); err != nil {
		log.Printf("failed to read input: %v", err)
		return 1
	}
	return 0
}

func loadConfig(opt *Option) (*config.Config, error) {
	cfg := config.Default()
	if opt.Config != "" {
		var err error
		cfg, err = config.LoadFile(opt.Config)
		if err != nil {
			return nil, err
		}
	}

	if opt.Format != "" {
		cfg.Format = config.Format(opt.Format)
	}
	if opt.Prompt != "" {
		cfg.Prompt = opt.Prompt
	}
	if opt.MaxDepth != nil {
		cfg.MaxDepth = *opt.MaxDepth
	}
	if opt.Debug {
		cfg.Debug = true
	}
	if opt.Listen != "" {
		cfg.Listen = opt.Listen
	}
	if opt.BatchConcurrency != 0 {
		cfg.BatchConcurrency = opt.BatchConcurrency
	}
	if opt.HistorySize != 0 {
		cfg.HistorySize = opt.HistorySize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cfg *config.Config) error {
	handler := server.NewHTTPHandler(
		server.WithParser(cfg.NewParser()),
		server.WithBatchConcurrency(cfg.BatchConcurrency),
		server.WithHistorySize(cfg.HistorySize),
	)

	srv := http.Server{
		Handler: handler,
		Addr:    cfg.Listen,
	}

	log.Printf("Listen HTTP on %s", cfg.Listen)
	if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if err != nil {
		return err
	}
	return nil
}
