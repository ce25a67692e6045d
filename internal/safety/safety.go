// Package safety is the gate every generated statement passes before it is
// executed. It rejects; it never repairs.
package safety

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/sadopc/askdb/internal/apperrors"
)

// DeniedKeywords may not appear as a token anywhere in a statement.
var DeniedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE", "TRUNCATE", "GRANT", "REVOKE",
}

var (
	tokenPattern  = regexp.MustCompile(`[A-Z_][A-Z0-9_$]*`)
	selectPattern = regexp.MustCompile(`^SELECT\b`)
	denied        = func() map[string]bool {
		m := make(map[string]bool, len(DeniedKeywords))
		for _, k := range DeniedKeywords {
			m[k] = true
		}
		return m
	}()
)

// Check returns an *apperrors.UnsafeQueryError if sql is not a single
// read-only SELECT statement.
func Check(sql string) error {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if upper == "" {
		return &apperrors.UnsafeQueryError{SQL: sql, Reason: "empty statement"}
	}

	for _, tok := range tokenPattern.FindAllString(upper, -1) {
		if denied[tok] {
			return &apperrors.UnsafeQueryError{SQL: sql, Reason: fmt.Sprintf("forbidden keyword %s", tok)}
		}
	}

	if !selectPattern.MatchString(upper) {
		return &apperrors.UnsafeQueryError{SQL: sql, Reason: "only SELECT statements are allowed"}
	}

	if hasSemicolonOutsideStrings(stripTrailingSemicolon(upper)) {
		return &apperrors.UnsafeQueryError{SQL: sql, Reason: "multiple statements are not allowed"}
	}
	return nil
}

// hasSemicolonOutsideStrings reports whether sql contains a semicolon
// outside single- or double-quoted literals. Doubled quotes inside a
// literal leave and re-enter it, which keeps the state correct.
func hasSemicolonOutsideStrings(sql string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prev := rune(0)
	for _, ch := range sql {
		switch state {
		case stateNormal:
			switch ch {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if ch == '\'' && prev != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = stateNormal
			}
		}
		prev = ch
	}
	return false
}

func stripTrailingSemicolon(sql string) string {
	sql = strings.TrimRight(sql, " \t\n\r")
	if strings.HasSuffix(sql, ";") {
		sql = strings.TrimRight(strings.TrimSuffix(sql, ";"), " \t\n\r")
	}
	return sql
}

// LiteralCheck is the outcome of screening one user-supplied literal.
// Fingerprint is empty when the literal was refused for its content rather
// than by libinjection.
type LiteralCheck struct {
	Value       string
	Fingerprint string
	Reason      string
}

// ScreenLiteral runs libinjection over a literal taken from the request.
// Literals with a backslash are refused too: MySQL treats it as an escape
// inside '...', so EscapeLiteral alone cannot contain them. It returns nil
// for clean values.
func ScreenLiteral(value string) *LiteralCheck {
	if value == "" {
		return nil
	}
	if strings.Contains(value, `\`) {
		return &LiteralCheck{Value: value, Reason: "contains a backslash"}
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &LiteralCheck{
		Value:       value,
		Fingerprint: string(fingerprint),
		Reason:      fmt.Sprintf("looks like SQL injection (%s)", fingerprint),
	}
}

// EscapeLiteral doubles single quotes so value can sit inside '...'. Only
// values ScreenLiteral passed may be escaped this way.
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
