// Package store archives scraped documents in SQLite so that later runs can
// stop at the newest document already seen.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/presscorner/document"
)

// ErrDocumentNotFound is returned when no stored document has the given ID.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore manages the document archive using SQLite.
type DocumentStore struct {
	db *sql.DB
}

// Run describes one saved scrape.
type Run struct {
	RunID     uuid.UUID `json:"run_id"`
	Source    string    `json:"source"`
	Stop      string    `json:"stop"`
	Documents int       `json:"documents"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocumentStore creates a new document store with the given database
// path.
func NewDocumentStore(dbPath string) (*DocumentStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &DocumentStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs and documents tables if they don't exist.
// Documents are keyed by their hash. Runs are ordered by seq and documents
// by their position within a run.
func (s *DocumentStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		stop TEXT NOT NULL,
		documents INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		hash TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		abstract TEXT,
		text TEXT NOT NULL,
		web_link TEXT NOT NULL,
		local_link TEXT,
		other_data TEXT,
		pub_date TEXT,
		load_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(run_id, position);
	CREATE INDEX IF NOT EXISTS idx_documents_id ON documents(document_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the documents of one scrape in discovery order. A document
// whose hash is already stored moves to the new run and keeps its original
// ID. Within one run only the first document of each hash is kept, and the
// run counts the rows it stored.
func (s *DocumentStore) SaveRun(source, stop string, docs []document.Document) (*Run, error) {
	docs = uniqueByHash(docs)

	run := &Run{
		RunID:     uuid.New(),
		Source:    source,
		Stop:      stop,
		Documents: len(docs),
		CreatedAt: time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (run_id, source, stop, documents, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.RunID.String(),
		run.Source,
		run.Stop,
		run.Documents,
		formatTime(&run.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO documents (
			document_id, hash, run_id, position, title, abstract, text,
			web_link, local_link, other_data, pub_date, load_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			run_id = excluded.run_id,
			position = excluded.position,
			abstract = excluded.abstract,
			text = excluded.text,
			local_link = excluded.local_link,
			other_data = excluded.other_data,
			load_date = excluded.load_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, doc := range docs {
		otherData, err := json.Marshal(doc.OtherData)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal other_data: %w", err)
		}

		_, err = stmt.Exec(
			doc.ID.String(),
			doc.Hash(),
			run.RunID.String(),
			i,
			doc.Title,
			doc.Abstract,
			doc.Text,
			doc.WebLink,
			doc.LocalLink,
			string(otherData),
			formatTime(doc.PubDate),
			formatTime(&doc.LoadDate),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert document %q: %w", doc.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	return run, nil
}

func uniqueByHash(docs []document.Document) []document.Document {
	seen := make(map[string]bool, len(docs))
	unique := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		hash := doc.Hash()
		if seen[hash] {
			continue
		}
		seen[hash] = true
		unique = append(unique, doc)
	}
	return unique
}

const selectDocument = `
	SELECT d.document_id, d.title, d.abstract, d.text, d.web_link,
	       d.local_link, d.other_data, d.pub_date, d.load_date
	FROM documents d
	JOIN runs r ON r.run_id = d.run_id
`

// LastDocument returns the newest document of the most recent run that
// stored any. It returns nil when the archive is empty.
func (s *DocumentStore) LastDocument() (*document.Document, error) {
	row := s.db.QueryRow(selectDocument + `
		ORDER BY r.seq DESC, d.position ASC
		LIMIT 1
	`)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last document: %w", err)
	}

	return doc, nil
}

// List returns up to limit documents, newest run first and in discovery
// order within a run. A limit of zero or less returns every document.
func (s *DocumentStore) List(limit int) ([]document.Document, error) {
	query := selectDocument + ` ORDER BY r.seq DESC, d.position ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := []document.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	return docs, rows.Err()
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(id uuid.UUID) (*document.Document, error) {
	row := s.db.QueryRow(selectDocument+` WHERE d.document_id = ?`, id.String())

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return doc, nil
}

// Runs returns the saved runs, newest first.
func (s *DocumentStore) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source, stop, documents, created_at
		FROM runs
		ORDER BY seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var runIDStr, createdAtStr string
		if err := rows.Scan(&runIDStr, &run.Source, &run.Stop, &run.Documents, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.RunID, err = uuid.Parse(runIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid run_id: %w", err)
		}
		run.CreatedAt = parseTime(createdAtStr)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*document.Document, error) {
	var idStr, title, text, webLink, loadDateStr string
	var abstract, localLink, otherDataJSON, pubDateStr sql.NullString

	err := row.Scan(
		&idStr, &title, &abstract, &text, &webLink,
		&localLink, &otherDataJSON, &pubDateStr, &loadDateStr,
	)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid document_id: %w", err)
	}

	doc := &document.Document{
		ID:       id,
		Title:    title,
		Text:     text,
		WebLink:  webLink,
		LoadDate: parseTime(loadDateStr),
	}
	if abstract.Valid {
		doc.Abstract = &abstract.String
	}
	if localLink.Valid {
		doc.LocalLink = &localLink.String
	}
	if pubDateStr.Valid {
		t := parseTime(pubDateStr.String)
		doc.PubDate = &t
	}
	if otherDataJSON.Valid && otherDataJSON.String != "" {
		if err := json.Unmarshal([]byte(otherDataJSON.String), &doc.OtherData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal other_data: %w", err)
		}
	}
	if doc.OtherData == nil {
		doc.OtherData = map[string]string{}
	}

	return doc, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Truncate(0).Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
