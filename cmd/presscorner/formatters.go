package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/presscorner/document"
	"github.com/pevans/presscorner/scraper"
	"github.com/pevans/presscorner/store"
)

// printScrapeJSON prints the flattened documents of a scrape
func printScrapeJSON(w io.Writer, result scraper.Result) error {
	records := make([]map[string]string, 0, len(result.Documents))
	for _, doc := range result.Documents {
		records = append(records, doc.Flatten())
	}

	return printJSON(w, map[string]any{
		"documents": records,
		"count":     len(records),
		"stop":      result.Stop.String(),
	})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printDocumentsTable prints documents in human-readable table format
func printDocumentsTable(w io.Writer, docs []document.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents to display.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Published", "Type", "Title", "ID"})
	for i, doc := range docs {
		t.AppendRow(table.Row{
			i + 1,
			formatPubDate(doc),
			doc.DocType(),
			truncate(doc.Title, 70),
			doc.ID.String(),
		})
	}
	t.Render()
}

// printDocumentDetail prints every field of one document
func printDocumentDetail(w io.Writer, doc *document.Document) {
	fmt.Fprintf(w, "%s\n\n", doc.Title)
	fmt.Fprintf(w, "ID:        %s\n", doc.ID)
	fmt.Fprintf(w, "Type:      %s\n", doc.DocType())
	fmt.Fprintf(w, "Published: %s\n", formatPubDate(*doc))
	fmt.Fprintf(w, "Loaded:    %s\n", doc.LoadDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "URL:       %s\n", doc.WebLink)
	if category := doc.OtherData[document.CategoryKey]; category != "" {
		fmt.Fprintf(w, "Category:  %s\n", category)
	}
	if doc.Abstract != nil && *doc.Abstract != "" {
		fmt.Fprintf(w, "\n%s\n", *doc.Abstract)
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(doc.Text))
}

// printRunsTable prints saved runs
func printRunsTable(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Source", "Started", "Documents", "Stop"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.RunID.String(),
			run.Source,
			run.CreatedAt.Format("2006-01-02 15:04"),
			run.Documents,
			run.Stop,
		})
	}
	t.Render()
}

func formatPubDate(doc document.Document) string {
	if doc.PubDate == nil {
		return "unknown"
	}
	return doc.PubDate.Format("2006-01-02")
}
