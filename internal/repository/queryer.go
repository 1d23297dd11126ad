package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// dbtx is satisfied by both *sqlx.DB and *sqlx.Tx so statements can be
// shared between plain and transactional callers.
type dbtx interface {
	sqlx.ExtContext
}

// DuplicateTokenError reports token values that already exist or repeat
// inside one batch.
type DuplicateTokenError struct {
	Tokens []string
}

func (e *DuplicateTokenError) Error() string {
	return fmt.Sprintf("duplicate tokens: %s", strings.Join(e.Tokens, ", "))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlitelib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// batchDuplicates returns values that occur more than once, sorted.
func batchDuplicates(values []string) []string {
	seen := make(map[string]int, len(values))
	for _, v := range values {
		seen[v]++
	}
	var dups []string
	for v, n := range seen {
		if n > 1 {
			dups = append(dups, v)
		}
	}
	sort.Strings(dups)
	return dups
}
