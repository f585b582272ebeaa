package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RichardKnop/minidb/internal/minidb"
	"github.com/RichardKnop/minidb/internal/parser"
	"github.com/RichardKnop/minidb/internal/pkg/logging"
)

const defaultDbFileName = "minidb.db"

var errInterrupted = errors.New("interrupted")

func main() {
	logger, err := logging.New(logging.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %s\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // flushes buffer, if any

	code := run(context.Background(), logger, os.Args[1:], os.Stdin, os.Stdout)
	logger.Sync()
	os.Exit(code)
}

// run opens the database and serves the REPL until .exit, end of input, a
// signal or a fatal error. It returns the process exit code.
func run(ctx context.Context, logger *zap.Logger, args []string, in io.Reader, out io.Writer) int {
	dbFileName := defaultDbFileName
	if len(args) > 0 {
		dbFileName = args[0]
	}

	aDatabase, err := minidb.Open(ctx, logger, dbFileName)
	if err != nil {
		logger.Error("error opening database", zap.String("file_name", dbFileName), zap.Error(err))
		fmt.Fprintf(out, "Unable to open file: %s\n", err)
		return 1
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		aRepl    = newRepl(aDatabase, parser.New(), out)
		g, gctx  = errgroup.WithContext(ctx)
		lines    = readLines(gctx, in)
		exitCode = 0
	)

	// REPL (Read-eval-print loop)
	g.Go(func() error {
		defer cancel()
		return aRepl.serve(gctx, lines)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case sig := <-sigChan:
			return fmt.Errorf("%w: %s", errInterrupted, sig)
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("exiting", zap.Error(err))
		exitCode = 1
	}

	if err := aDatabase.Close(ctx); err != nil {
		logger.Error("error closing database", zap.Error(err))
		fmt.Fprintf(out, "Error closing db file: %s\n", err)
		exitCode = 1
	}

	return exitCode
}

// readLines feeds input lines into a channel which is closed at end of
// input, so the REPL can wait for input and cancellation at the same time.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
