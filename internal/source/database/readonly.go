package database

import (
	"errors"
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"
)

var (
	ErrNotSelectQuery = errors.New("only SELECT queries are allowed")
	ErrSQLSyntaxError = errors.New("SQL syntax error")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrQueryTooLong   = errors.New("query exceeds maximum length")
)

const maxQueryLength = 10000

// ValidateReadOnly checks that an ingestion query is a single read-only
// SELECT (or UNION of SELECTs). The bronze layer only ever reads from its
// sources; anything else in a configured query is a mistake and is rejected
// before a connection is opened.
func ValidateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	if len(trimmed) > maxQueryLength {
		return ErrQueryTooLong
	}

	// Drop one trailing semicolon; the parser rejects multi-statements.
	trimmed = strings.TrimSuffix(trimmed, ";")

	parser := sqlparser.NewTestParser()
	stmt, err := parser.Parse(trimmed)
	if err != nil {
		return ErrSQLSyntaxError
	}

	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union:
		return nil
	default:
		return ErrNotSelectQuery
	}
}
