// Package writers persists the ledger as parquet files through an in-memory
// DuckDB database, and reads a persisted run back for restarts.
package writers

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-fx/internal/ledger"
	"github.com/rxtech-lab/argo-fx/pkg/errors"
)

// LedgerWriter keeps one table per ledger stream and exports each to
// {dir}/{table}.parquet after every snapshot.
type LedgerWriter struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	dir string
	mu  sync.Mutex
}

// NewLedgerWriter creates a writer exporting into dir.
func NewLedgerWriter(dir string) *LedgerWriter {
	return &LedgerWriter{
		db:  nil,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		dir: dir,
		mu:  sync.Mutex{},
	}
}

// Initialize opens the database and creates the tables.
func (w *LedgerWriter) Initialize() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to create output directory", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to open DuckDB connection", err)
	}

	for _, t := range tables {
		if _, err := db.Exec(createTableSQL(t)); err != nil {
			db.Close()

			return errors.Wrapf(errors.ErrCodeLedgerPersist, err, "failed to create %s table", t.name)
		}
	}

	w.db = db

	return nil
}

func createTableSQL(t table) string {
	defs := make([]string, 0, len(t.allColumns()))

	for _, c := range t.allColumns() {
		def := c.name + " " + c.sqlType
		if c.name == t.key {
			def += " PRIMARY KEY"
		}

		defs = append(defs, def)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.name, strings.Join(defs, ", "))
}

// SetDir moves future exports to dir, e.g. when the trading date rolls over.
// The tables keep their rows, so the new folder receives the whole ledger.
func (w *LedgerWriter) SetDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to create output directory", err)
	}

	w.mu.Lock()
	w.dir = dir
	w.mu.Unlock()

	return nil
}

// Dir returns the export directory.
func (w *LedgerWriter) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.dir
}

// WriteSnapshot upserts every row of s, tagging stream rows with week, and
// exports all tables. Rows already stored are kept as they are, except for
// the cash, historical and periods tables where the newer row wins.
func (w *LedgerWriter) WriteSnapshot(s ledger.Snapshot, week ledger.WeekTag) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeLedgerPersist, "writer not initialized")
	}

	values := rowsOf(s, week)

	tx, err := w.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to begin transaction", err)
	}

	for _, t := range tables {
		for _, row := range values[t.name] {
			query, args, err := w.sq.Insert(t.name).
				Columns(t.columnNames()...).
				Values(row...).
				Suffix(conflictClause(t)).
				ToSql()
			if err != nil {
				_ = tx.Rollback()

				return errors.Wrapf(errors.ErrCodeLedgerPersist, err, "failed to build insert for %s", t.name)
			}

			if _, err := tx.Exec(query, args...); err != nil {
				_ = tx.Rollback()

				return errors.Wrapf(errors.ErrCodeLedgerPersist, err, "failed to insert into %s", t.name)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to commit snapshot", err)
	}

	return w.exportToParquet()
}

func conflictClause(t table) string {
	if !t.replace {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", t.key)
	}

	sets := make([]string, 0, len(t.allColumns()))

	for _, c := range t.allColumns() {
		if c.name == t.key {
			continue
		}

		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c.name, c.name))
	}

	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", t.key, strings.Join(sets, ", "))
}

// Flush forces an export to parquet.
func (w *LedgerWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return errors.New(errors.ErrCodeLedgerPersist, "writer not initialized")
	}

	return w.exportToParquet()
}

// Count returns the number of rows stored in a table.
func (w *LedgerWriter) Count(tableName string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db == nil {
		return 0, errors.New(errors.ErrCodeLedgerPersist, "writer not initialized")
	}

	query, args, err := w.sq.Select("COUNT(*)").From(tableName).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := w.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count %s", tableName)
	}

	return count, nil
}

// Close releases database resources.
func (w *LedgerWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return errors.Wrap(errors.ErrCodeLedgerPersist, "failed to close database", err)
		}

		w.db = nil
	}

	return nil
}

//nolint:funcorder // helper method used by WriteSnapshot and Flush
func (w *LedgerWriter) exportToParquet() error {
	for _, t := range tables {
		path := ParquetPath(w.dir, t.name)

		_, err := w.db.Exec(fmt.Sprintf(`
			COPY (SELECT * FROM %s ORDER BY %s ASC)
			TO '%s' (FORMAT PARQUET)
		`, t.name, t.orderBy, escape(path)))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeLedgerPersist, err, "failed to export %s to parquet", t.name)
		}
	}

	return nil
}

// ParquetPath is where table is exported inside a run folder.
func ParquetPath(dir, tableName string) string {
	return filepath.Join(dir, tableName+".parquet")
}

func escape(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
