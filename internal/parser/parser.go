package parser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RichardKnop/minidb/internal/minidb"
)

var (
	// ErrSyntax means a statement is missing arguments or has extra ones.
	ErrSyntax = errors.New("syntax error")
	// ErrNegativeID is returned for IDs starting with a minus sign.
	ErrNegativeID = errors.New("ID must be positive")
	// ErrUnrecognizedStatement means the first keyword is not a known statement.
	ErrUnrecognizedStatement = errors.New("unrecognized keyword")
)

type step int

const (
	stepBeginning step = iota + 1
	stepInsertID
	stepInsertUsername
	stepInsertEmail
	stepSelectID
	stepStatementEnd
)

type parser struct {
	minidb.Statement
	i    int // where we are in the input
	sql  string
	step step
}

func New() *parser {
	return new(parser)
}

// Parse turns a line of input into statements. Statements are separated by
// semicolons, a blank line yields no statements.
func (p *parser) Parse(ctx context.Context, sql string) ([]minidb.Statement, error) {
	p.reset()
	p.sql = strings.TrimSpace(sql)

	return p.doParse()
}

func (p *parser) reset() {
	p.Statement = minidb.Statement{}
	p.sql = ""
	p.step = stepBeginning
	p.i = 0
}

func (p *parser) doParse() ([]minidb.Statement, error) {
	var statements []minidb.Statement
	for p.popWhitespace(); p.i < len(p.sql); p.popWhitespace() {
		if p.atUnterminatedQuote() {
			return nil, fmt.Errorf("%w: unterminated quoted string", ErrSyntax)
		}
		switch p.step {
		case stepBeginning:
			if p.atSemicolon() {
				p.pop()
				continue
			}
			switch strings.ToLower(p.peek()) {
			case "insert":
				p.Kind = minidb.Insert
				p.pop()
				p.step = stepInsertID
			case "select":
				p.Kind = minidb.Select
				p.pop()
				p.step = stepSelectID
			default:
				return nil, fmt.Errorf("%w at start of '%s'", ErrUnrecognizedStatement, p.currentStatement())
			}
		case stepInsertID, stepInsertUsername, stepInsertEmail:
			if err := p.doParseInsert(); err != nil {
				return nil, err
			}
		case stepSelectID:
			if err := p.doParseSelect(); err != nil {
				return nil, err
			}
		case stepStatementEnd:
			if !p.atSemicolon() {
				return nil, fmt.Errorf("%w: unexpected '%s'", ErrSyntax, p.peek())
			}
			p.pop()
			if err := p.validate(p.Statement); err != nil {
				return nil, err
			}
			statements = append(statements, p.Statement)
			p.Statement = minidb.Statement{}
			p.step = stepBeginning
		}
	}

	switch p.step {
	case stepBeginning:
	case stepSelectID, stepStatementEnd:
		if err := p.validate(p.Statement); err != nil {
			return nil, err
		}
		statements = append(statements, p.Statement)
	default:
		return nil, fmt.Errorf("%w: incomplete %s statement", ErrSyntax, strings.ToLower(p.Kind.String()))
	}

	return statements, nil
}

func (p *parser) doParseSelect() error {
	if p.atSemicolon() {
		p.step = stepStatementEnd
		return nil
	}
	id, err := parseID(p.pop())
	if err != nil {
		return err
	}
	p.ID = id
	p.ByID = true
	p.step = stepStatementEnd
	return nil
}

func (p *parser) doParseInsert() error {
	if p.atSemicolon() {
		return fmt.Errorf("%w: insert needs id, username and email", ErrSyntax)
	}

	switch p.step {
	case stepInsertID:
		id, err := parseID(p.pop())
		if err != nil {
			return err
		}
		p.Row.ID = id
		p.step = stepInsertUsername
	case stepInsertUsername:
		p.Row.Username = p.pop()
		p.step = stepInsertEmail
	case stepInsertEmail:
		p.Row.Email = p.pop()
		p.step = stepStatementEnd
	}

	return nil
}

func (p *parser) validate(stmt minidb.Statement) error {
	if stmt.Kind == minidb.Insert {
		return stmt.Row.Validate()
	}
	return nil
}

func parseID(token string) (uint32, error) {
	if strings.HasPrefix(token, "-") {
		if _, err := strconv.ParseInt(token, 10, 64); err == nil {
			return 0, ErrNegativeID
		}
	}
	id, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id '%s'", ErrSyntax, token)
	}
	return uint32(id), nil
}

func (p *parser) atSemicolon() bool {
	return p.i < len(p.sql) && p.sql[p.i] == ';'
}

func (p *parser) peek() string {
	peeked, _ := p.peekWithLength()
	return peeked
}

func (p *parser) pop() string {
	peeked, len := p.peekWithLength()
	p.i += len
	p.popWhitespace()
	return peeked
}

func (p *parser) popWhitespace() {
	for ; p.i < len(p.sql) && isWhitespace(p.sql[p.i]); p.i++ {
	}
}

// peekWithLength returns the next token and how many bytes it spans.
// Tokens are separated by whitespace or semicolons, single quotes allow
// either inside a token.
func (p *parser) peekWithLength() (string, int) {
	if p.i >= len(p.sql) {
		return "", 0
	}
	if p.sql[p.i] == ';' {
		return ";", 1
	}
	if p.sql[p.i] == '\'' {
		if quoted, ln := p.peekQuotedStringWithLength(); ln > 0 {
			return quoted, ln
		}
	}
	i := p.i
	for ; i < len(p.sql) && !isWhitespace(p.sql[i]) && p.sql[i] != ';'; i++ {
	}
	return p.sql[p.i:i], i - p.i
}

func (p *parser) atUnterminatedQuote() bool {
	if p.i >= len(p.sql) || p.sql[p.i] != '\'' {
		return false
	}
	_, ln := p.peekQuotedStringWithLength()
	return ln == 0
}

func (p *parser) peekQuotedStringWithLength() (string, int) {
	for i := p.i + 1; i < len(p.sql); i++ {
		if p.sql[i] == '\'' {
			return p.sql[p.i+1 : i], i - p.i + 1 // +1 for the closing quote
		}
	}
	return "", 0
}

// currentStatement returns the text from the current position up to the
// next semicolon.
func (p *parser) currentStatement() string {
	rest := p.sql[p.i:]
	if idx := strings.IndexByte(rest, ';'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
