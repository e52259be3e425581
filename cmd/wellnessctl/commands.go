package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wellness-chatbot/internal/assessment"
	"wellness-chatbot/internal/db"
)

var errNoDatabase = errors.New("no database configured: set DATABASE_URL or pass --database-url")

func newRootCmd() *cobra.Command {
	var catalogPath string
	root := &cobra.Command{
		Use:           "wellnessctl",
		Short:         "Inspect assessments and manage the wellness reports database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&catalogPath, "catalog", os.Getenv("ASSESSMENT_CATALOG_PATH"),
		"assessment catalog YAML (defaults to the built-in catalog)")

	loadCatalog := func() (*assessment.Catalog, error) {
		return assessment.LoadCatalogFile(catalogPath)
	}
	root.AddCommand(newQuestionsCmd(loadCatalog), newScoreCmd(loadCatalog), newMigrateCmd())
	return root
}

func newQuestionsCmd(loadCatalog func() (*assessment.Catalog, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "questions [test]",
		Short: "Print the questions of an assessment, or list the assessments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, def := range catalog.Definitions() {
					fmt.Fprintf(out, "%s\t%s (%d questions)\n", def.ID, def.Title, len(def.Questions))
				}
				return nil
			}
			def, err := lookup(catalog, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, def.FormatQuestions())
			return nil
		},
	}
}

func newScoreCmd(loadCatalog func() (*assessment.Catalog, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "score <test> <answers-file>",
		Short: "Score answers from a file",
		Long: `Score answers for an assessment.

A .json file holds structured answers: an object such as {"1": "yes"} for
yes/no assessments or a list of ratings for Likert ones. Any other file is
read as free text, the way answers arrive in chat.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog()
			if err != nil {
				return err
			}
			def, err := lookup(catalog, args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			var parsed *assessment.ParseResult
			if strings.EqualFold(filepath.Ext(args[1]), ".json") {
				if parsed, err = assessment.DecodeAnswers(def, json.RawMessage(data)); err != nil {
					return err
				}
			} else if parsed = assessment.ParseAnswers(def, string(data)); parsed == nil {
				return fmt.Errorf("no answers found in %s", args[1])
			}

			out := cmd.OutOrStdout()
			if parsed.Ambiguous() {
				fmt.Fprintf(out, "warning: read %d of %d answers (%s)\n\n", parsed.Found, parsed.Expected, parsed.Strategy)
			}
			fmt.Fprintln(out, assessment.NewScorer(catalog).Interpret(def.ID, parsed.Answers))
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the reports table and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return errNoDatabase
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			conn, err := db.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.Migrate(ctx, conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	return cmd
}

// lookup accepts either a catalog id or a phrase such as "self-efficacy".
func lookup(catalog *assessment.Catalog, name string) (*assessment.Definition, error) {
	if def, ok := catalog.Get(name); ok {
		return def, nil
	}
	if id := catalog.ExtractTestName(name); id != "" {
		def, _ := catalog.Get(id)
		return def, nil
	}
	return nil, fmt.Errorf("unknown assessment %q", name)
}
