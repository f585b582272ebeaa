package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RichardKnop/minidb/internal/minidb"
	"github.com/RichardKnop/minidb/internal/parser"
)

const prompt = "db > "

type Parser interface {
	Parse(context.Context, string) ([]minidb.Statement, error)
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
	BTree
	Constants
)

func doMetaCommand(inputBuffer string) metaCommand {
	switch inputBuffer {
	case ".help":
		return Help
	case ".exit":
		return Exit
	case ".btree":
		return BTree
	case ".constants":
		return Constants
	default:
		return Unknown
	}
}

func isMetaCommand(inputBuffer string) bool {
	return strings.HasPrefix(inputBuffer, ".")
}

type repl struct {
	db     *minidb.Database
	parser Parser
	out    io.Writer
}

func newRepl(aDatabase *minidb.Database, aParser Parser, out io.Writer) *repl {
	return &repl{
		db:     aDatabase,
		parser: aParser,
		out:    out,
	}
}

// serve prompts for and handles lines until .exit, end of input or a fatal
// error. Only fatal errors are returned.
func (r *repl) serve(ctx context.Context, lines <-chan string) error {
	for {
		fmt.Fprint(r.out, prompt)

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// Print an additional line if we encountered an EOF character
				fmt.Fprintln(r.out)
				return nil
			}
			exit, err := r.handleLine(ctx, line)
			if err != nil {
				return err
			}
			if exit {
				return nil
			}
		}
	}
}

func (r *repl) handleLine(ctx context.Context, line string) (bool, error) {
	inputBuffer := strings.TrimSpace(line)
	if inputBuffer == "" {
		return false, nil
	}

	if isMetaCommand(inputBuffer) {
		switch doMetaCommand(inputBuffer) {
		case Help:
			fmt.Fprintln(r.out, ".help       - Show available commands")
			fmt.Fprintln(r.out, ".exit       - Flush to disk and exit")
			fmt.Fprintln(r.out, ".btree      - Print the B-tree")
			fmt.Fprintln(r.out, ".constants  - Print storage constants")
			fmt.Fprintln(r.out, "insert <id> <username> <email>")
			fmt.Fprintln(r.out, "select [<id>]")
		case Exit:
			return true, nil
		case BTree:
			fmt.Fprintln(r.out, "Tree:")
			if err := r.db.PrintTree(ctx, r.out); err != nil {
				return false, err
			}
		case Constants:
			fmt.Fprintln(r.out, "Constants:")
			r.db.PrintConstants(r.out)
		case Unknown:
			fmt.Fprintf(r.out, "Unrecognized command '%s'\n", inputBuffer)
		}
		return false, nil
	}

	statements, err := r.parser.Parse(ctx, inputBuffer)
	if err != nil {
		fmt.Fprintln(r.out, prepareErrorMessage(err, inputBuffer))
		return false, nil
	}

	for _, stmt := range statements {
		if err := r.execute(ctx, stmt); err != nil {
			return false, err
		}
	}

	return false, nil
}

func (r *repl) execute(ctx context.Context, stmt minidb.Statement) error {
	aResult, err := r.db.ExecuteStatement(ctx, stmt)
	if err != nil {
		if minidb.IsFatal(err) {
			return err
		}
		fmt.Fprintln(r.out, executeErrorMessage(err))
		return nil
	}

	if stmt.Kind == minidb.Select {
		for aResult.Rows.Next(ctx) {
			fmt.Fprintln(r.out, aResult.Rows.Row().String())
		}
		if err := aResult.Rows.Err(); err != nil {
			if minidb.IsFatal(err) {
				return err
			}
			fmt.Fprintln(r.out, executeErrorMessage(err))
			return nil
		}
	}

	fmt.Fprintln(r.out, "Executed.")
	return nil
}

func prepareErrorMessage(err error, inputBuffer string) string {
	switch {
	case errors.Is(err, parser.ErrNegativeID):
		return "ID must be positive."
	case errors.Is(err, minidb.ErrStringTooLong):
		return "String is too long."
	case errors.Is(err, minidb.ErrInvalidText):
		return "String contains a NUL byte."
	case errors.Is(err, parser.ErrUnrecognizedStatement):
		return fmt.Sprintf("Unrecognized keyword at start of '%s'.", inputBuffer)
	default:
		return "Syntax error. Could not parse statement."
	}
}

func executeErrorMessage(err error) string {
	switch {
	case errors.Is(err, minidb.ErrDuplicateKey):
		return "Error: Duplicate key."
	case errors.Is(err, minidb.ErrTableFull):
		return "Error: Table full."
	default:
		return fmt.Sprintf("Error: %s", err)
	}
}
