// Package main is the mysqldiffplan CLI: it wires the parser and
// introspector external collaborators to the differencing engine and
// prints the resulting plan.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mysqldiffplan/internal/apply"
	"mysqldiffplan/internal/config"
	"mysqldiffplan/internal/core"
	"mysqldiffplan/internal/diff"
	introspectmysql "mysqldiffplan/internal/introspect/mysql"
	parsemysql "mysqldiffplan/internal/parser/mysql"
	"mysqldiffplan/internal/plan"
)

const version = "0.1.0"

func main() {
	logger := config.NewLogger("")
	config.LoadEnv(".env", logger)

	var (
		sourceDSN     string
		targetDSN     string
		tableRe       string
		onlyBoth      bool
		keepOldTables bool
		listTables    bool
		noOldDefs     bool
		tolerant      bool
		saveQuotes    bool
		debug         bool
		debugFile     string
		logsFolder    string
	)

	rootCmd := &cobra.Command{
		Use:   "mysqldiffplan",
		Short: "MySQL schema diff and migration plan generator",
	}
	rootCmd.PersistentFlags().StringVar(&tableRe, "table-re", "", "only diff tables matching this regexp")
	rootCmd.PersistentFlags().BoolVar(&onlyBoth, "only-both", false, "only emit changes for objects present in both schemas (no drops, no creates)")
	rootCmd.PersistentFlags().BoolVar(&keepOldTables, "keep-old-tables", false, "keep tables the target no longer declares")
	rootCmd.PersistentFlags().BoolVar(&listTables, "list-tables", false, "prefix each statement with a JSON table-action header instead of the banner")
	rootCmd.PersistentFlags().BoolVar(&noOldDefs, "no-old-defs", false, "suppress the '# was <old definition>' comment after CHANGE COLUMN statements")
	rootCmd.PersistentFlags().BoolVar(&tolerant, "tolerant", false, "loosen field/option comparisons (collation, precision, AUTO_INCREMENT=n)")
	rootCmd.PersistentFlags().BoolVar(&saveQuotes, "save-quotes", false, "has no effect on output; identifiers are always emitted backtick-quoted")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&debugFile, "debug-file", "", "write debug logs to this file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&logsFolder, "logs-folder", "", "create this directory at startup; logs still go to --debug-file or stdout")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug {
			logger.SetLevel(logrus.DebugLevel)
		}
		if logsFolder != "" {
			_ = os.MkdirAll(logsFolder, 0o755)
		}
		if debugFile != "" {
			f, err := os.OpenFile(debugFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				logger.SetOutput(f)
			}
		}
	}

	diffCmd := &cobra.Command{
		Use:   "diff <source.sql|--source-dsn> <target.sql|--target-dsn>",
		Short: "Compare two schemas and print the migration plan",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var re *regexp.Regexp
			if tableRe != "" {
				compiled, err := regexp.Compile(tableRe)
				if err != nil {
					return fmt.Errorf("compile --table-re: %w", err)
				}
				re = compiled
			}

			// A side given by DSN takes no positional argument, so the
			// remaining positional arguments fill the file-backed sides in order.
			rest := args
			sourcePath := ""
			if sourceDSN == "" {
				sourcePath = argOrEmpty(rest, 0)
				if len(rest) > 0 {
					rest = rest[1:]
				}
			}
			targetPath := ""
			if targetDSN == "" {
				targetPath = argOrEmpty(rest, 0)
			}

			ctx := cmd.Context()
			source, sourceLabel, err := loadSchema(ctx, sourcePath, sourceDSN)
			if err != nil {
				return fmt.Errorf("load source schema: %w", err)
			}
			target, targetLabel, err := loadSchema(ctx, targetPath, targetDSN)
			if err != nil {
				return fmt.Errorf("load target schema: %w", err)
			}

			opts := diff.Options{
				Tolerant:      tolerant,
				OnlyBoth:      onlyBoth,
				KeepOldTables: keepOldTables,
				NoOldDefs:     noOldDefs,
				TableRe:       re,
				SaveQuotes:    saveQuotes,
			}
			differ := diff.New(opts, sourceLabel+"|"+targetLabel)
			records := differ.Diff(source, target)

			assembler := &plan.Assembler{Workaround: differ.Workaround, ListTables: listTables, Refs: false, Version: version}
			banner := &plan.Banner{
				OptionsEcho: strings.Join(echoedFlags(cmd), " "),
				SourceLabel: sourceLabel,
				TargetLabel: targetLabel,
			}
			fmt.Print(assembler.Assemble(records, banner))
			return nil
		},
	}
	diffCmd.Flags().StringVar(&sourceDSN, "source-dsn", "", "introspect the source schema from a live database instead of a file")
	diffCmd.Flags().StringVar(&targetDSN, "target-dsn", "", "introspect the target schema from a live database instead of a file")

	refsCmd := &cobra.Command{
		Use:   "refs <schema.sql> <table...>",
		Short: "List a table and its transitive FK-referenced tables",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read schema file: %w", err)
			}
			schema, err := parsemysql.New().ParseSchema(string(data))
			if err != nil {
				return fmt.Errorf("parse schema: %w", err)
			}
			differ := diff.New(diff.Options{Refs: true}, string(data))
			for _, name := range differ.Refs(schema, args[1:]) {
				fmt.Println(name)
			}
			return nil
		},
	}

	var applyDSN string
	var applyFile string
	var dryRun bool
	var unsafe bool
	var txWrap bool
	applyCmd := &cobra.Command{
		Use:   "apply --dsn <dsn> --file <plan.sql>",
		Short: "Run a previously generated plan against a live database",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(applyFile)
			if err != nil {
				return fmt.Errorf("read plan file: %w", err)
			}
			statements := apply.SplitStatements(string(content))
			preflight := apply.Preflight(statements)

			applier := apply.New(apply.Options{DSN: applyDSN, DryRun: dryRun, Unsafe: unsafe, TxWrap: txWrap}, logger)
			ctx := cmd.Context()
			if !dryRun {
				if err := applier.Connect(ctx); err != nil {
					return err
				}
				defer applier.Close()
			}
			return applier.Apply(ctx, statements, preflight)
		},
	}
	applyCmd.Flags().StringVar(&applyDSN, "dsn", "", "target database DSN")
	applyCmd.Flags().StringVar(&applyFile, "file", "", "plan file to run")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print statements without executing them")
	applyCmd.Flags().BoolVar(&unsafe, "unsafe", false, "allow destructive statements (DROP TABLE, DROP COLUMN)")
	applyCmd.Flags().BoolVar(&txWrap, "transaction", false, "wrap the plan in a single transaction when every statement is transactional")

	rootCmd.AddCommand(diffCmd, refsCmd, applyCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func echoedFlags(cmd *cobra.Command) []string {
	var out []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		out = append(out, "--"+f.Name+"="+f.Value.String())
	})
	return out
}

func loadSchema(ctx context.Context, path, dsn string) (*core.Schema, string, error) {
	if dsn != "" {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open dsn: %w", err)
		}
		defer db.Close()
		schema, err := introspectmysql.New().Introspect(ctx, db)
		if err != nil {
			return nil, "", err
		}
		return schema, "live:" + dsn, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	schema, err := parsemysql.New().ParseSchema(string(data))
	if err != nil {
		return nil, "", err
	}
	return schema, path, nil
}
