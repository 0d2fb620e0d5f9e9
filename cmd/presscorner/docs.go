package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pevans/presscorner/store"
	"github.com/spf13/cobra"
)

func openStore(dbPath string) (*store.DocumentStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("no document archive: set --db or PRESSCORNER_DB")
	}
	docStore, err := store.NewDocumentStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	return docStore, nil
}

func newDocsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "docs [document-id]",
		Short: "List archived documents, or show one in full",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "table", "json"); err != nil {
				return err
			}

			docStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer docStore.Close()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid document ID: %w", err)
				}
				doc, err := docStore.Get(id)
				if err != nil {
					return err
				}
				if format == "json" {
					return printJSON(out, doc)
				}
				printDocumentDetail(out, doc)
				return nil
			}

			docs, err := docStore.List(limit)
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(out, docs)
			}
			printDocumentsTable(out, docs)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", getEnv("PRESSCORNER_DB", ""), "Document archive")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of documents to display (0 for all)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")

	return cmd
}

func newRunsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved scrape runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docStore, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer docStore.Close()

			runs, err := docStore.Runs()
			if err != nil {
				return err
			}
			printRunsTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", getEnv("PRESSCORNER_DB", ""), "Document archive")

	return cmd
}
