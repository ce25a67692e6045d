package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/askdb/internal/adapter"

	// Register database adapters
	_ "github.com/sadopc/askdb/internal/adapter/duckdb"
	_ "github.com/sadopc/askdb/internal/adapter/mysql"
	_ "github.com/sadopc/askdb/internal/adapter/postgres"
	_ "github.com/sadopc/askdb/internal/adapter/sqlite"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootFlags override the matching config values when set.
type rootFlags struct {
	configPath string
	adapter    string
	dsn        string
	database   string
	schema     string
	theme      string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "askdb",
		Short: "Ask a relational database questions in plain English",
		Long: `askdb translates a natural-language question into a read-only SQL
statement by introspecting the schema of PostgreSQL, MySQL, SQLite or DuckDB
databases, then runs it and prints the rows.

Examples:
  askdb --dsn ./shop.db ask "how many customers are there"
  askdb --dsn postgres://user@host/shop ask "show orders with customers"
  askdb --dsn ./shop.db explain "average price of products"
  askdb --dsn ./shop.db schema --format json
  askdb history --search "%orders%"`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path")
	pf.StringVarP(&flags.adapter, "adapter", "a", "", "Database adapter (postgres, mysql, sqlite, duckdb)")
	pf.StringVar(&flags.dsn, "dsn", "", "Database connection string")
	pf.StringVarP(&flags.database, "database", "d", "", "Database to introspect")
	pf.StringVarP(&flags.schema, "schema", "s", "", "Schema to introspect")
	pf.StringVar(&flags.theme, "theme", "", "Output theme (default, light, monokai)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newAskCmd(flags),
		newExplainCmd(flags),
		newSchemaCmd(flags),
		newSuggestCmd(flags),
		newHistoryCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "askdb %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(out, "\nSupported adapters:")
			for _, name := range adapter.Names() {
				fmt.Fprintf(out, "  - %s\n", name)
			}
		},
	}
}

// detectAdapter guesses the adapter from the shape of a DSN.
func detectAdapter(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite://") || strings.HasPrefix(lower, "file:"):
		return "sqlite"
	case strings.HasPrefix(lower, "duckdb://"):
		return "duckdb"
	case strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3"):
		return "sqlite"
	case strings.HasSuffix(lower, ".duckdb"):
		return "duckdb"
	case strings.Contains(lower, "@tcp("):
		return "mysql"
	case lower == ":memory:":
		return "sqlite"
	}
	if strings.Contains(dsn, "@") {
		return "postgres"
	}
	return ""
}
