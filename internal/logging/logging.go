// Package logging builds the zap logger used across askdb and provides
// helpers for scrubbing secrets out of logged values.
package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger level and encoding.
type Config struct {
	Level  string `yaml:"level" env:"ASKDB_LOG_LEVEL"`
	Format string `yaml:"format" env:"ASKDB_LOG_FORMAT"`
}

// New builds a logger. Format "json" uses the production encoder, anything
// else the development console encoder. Output goes to stderr so it never
// mixes with query results on stdout.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

const (
	// MaxSQLLogLength caps statements written to logs.
	MaxSQLLogLength = 200
	RedactedText    = "[REDACTED]"
)

var (
	passwordPattern   = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)
	connStringPattern = regexp.MustCompile(`://[^:/]+:[^@]+@`)
	mysqlCredsPattern = regexp.MustCompile(`^[^@/]+@tcp\(`)
	apiKeyPattern     = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)
	bearerPattern     = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_.]+`)
)

// SanitizeConnectionString removes credentials from a DSN before logging.
func SanitizeConnectionString(dsn string) string {
	if dsn == "" {
		return ""
	}
	s := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@")
	s = mysqlCredsPattern.ReplaceAllString(s, RedactedText+"@tcp(")
	return s
}

// SanitizeError renders err with credentials and tokens removed.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	s := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@")
	return s
}

// TruncateSQL shortens a statement for log output.
func TruncateSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > MaxSQLLogLength {
		return sql[:MaxSQLLogLength] + "..."
	}
	return sql
}
