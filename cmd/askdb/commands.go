package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/askdb/internal/config"
	"github.com/sadopc/askdb/internal/engine"
	"github.com/sadopc/askdb/internal/history"
	"github.com/sadopc/askdb/internal/result"
)

func newAskCmd(flags *rootFlags) *cobra.Command {
	var (
		output string
		export string
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Translate a question into SQL, run it and print the rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case result.FormatTable, result.FormatCSV, result.FormatJSON:
			default:
				return fmt.Errorf("unsupported output format %q (use table, csv or json)", output)
			}

			rt, err := openRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			question := strings.Join(args, " ")
			ans, askErr := rt.engine.Ask(cmd.Context(), question)
			out := cmd.OutOrStdout()

			switch output {
			case result.FormatJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(engine.NewResponse(ans, askErr)); err != nil {
					return err
				}
			case result.FormatCSV:
				if askErr == nil {
					if err := ans.Result.WriteCSV(out); err != nil {
						return err
					}
				}
			default:
				renderAnswer(out, rt, ans, askErr)
			}
			if askErr != nil {
				return askErr
			}

			if export != "" {
				format := strings.TrimPrefix(filepath.Ext(export), ".")
				if err := result.ExportFile(export, format, ans.Result); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), rt.theme.SuccessText.Render("Exported to "+export))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", result.FormatTable, "Output format (table, csv, json)")
	cmd.Flags().StringVarP(&export, "export", "e", "", "Also write the rows to a .csv or .json file")
	return cmd
}

func newExplainCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "explain <question>",
		Short: "Show how a question would be translated without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			ex, exErr := rt.engine.Explain(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(ex); err != nil {
					return err
				}
			} else {
				renderExplanation(out, rt, ex)
			}
			return exErr
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the explanation as JSON")
	return cmd
}

func newSchemaCmd(flags *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the introspected schema graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			export := rt.graph.Export()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(export); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(export)
			case "text":
				renderSchema(out, rt, export)
				return nil
			default:
				return fmt.Errorf("unsupported schema format %q (use text, yaml or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, yaml, json)")
	return cmd
}

func newSuggestCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "suggest [partial question]",
		Short: "Suggest tables, columns and sample questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			s := rt.engine.Suggest(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			renderSuggestions(out, rt, s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print suggestions as JSON")
	return cmd
}

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var (
		search string
		limit  int
		clear  bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, search or clear past translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newBaseRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			hist, err := openHistory(rt.cfg)
			if err != nil {
				return err
			}
			if hist == nil {
				return errors.New("history is disabled (history.enabled: false)")
			}
			rt.history = hist

			ctx := cmd.Context()
			if clear {
				if err := hist.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rt.theme.SuccessText.Render("History cleared"))
				return nil
			}

			var entries []history.Entry
			if search != "" {
				entries, err = hist.Search(ctx, search, limit)
			} else {
				entries, err = hist.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), rt, entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "SQL LIKE pattern matched against questions and statements")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete all history entries")
	return cmd
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the askdb configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(flags)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath(flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	connectionsCmd := &cobra.Command{
		Use:   "connections",
		Short: "List saved connections without their credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Connections) == 0 {
				fmt.Fprintln(out, "No saved connections")
				return nil
			}
			for _, sc := range cfg.Connections {
				marker := " "
				if sc.Name == cfg.Database.Connection {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-16s %s\n", marker, sc.Name, sc.DisplayString())
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, pathCmd, connectionsCmd)
	return cmd
}

func configFilePath(flags *rootFlags) (string, error) {
	if flags.configPath != "" {
		return flags.configPath, nil
	}
	return config.DefaultPath()
}
