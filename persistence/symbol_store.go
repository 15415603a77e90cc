package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lexcodex/symnav/framework/ast"
	"github.com/lexcodex/symnav/framework/symbols"
)

// ErrModuleNotFound is returned when a module has not been indexed.
var ErrModuleNotFound = errors.New("module not found")

// ModuleRecord is the stored header of an indexed module.
type ModuleRecord struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Path        string    `json:"path"`
	Language    string    `json:"language"`
	ContentHash string    `json:"content_hash"`
	IndexedAt   time.Time `json:"indexed_at"`
	SymbolCount int       `json:"symbols"`
}

// SymbolStore persists module symbol listings in a SQLite database. Symbols
// keep their extraction order through the seq column so a reloaded listing
// stays parent-first.
type SymbolStore struct {
	db *sql.DB
}

// NewSymbolStore opens/creates the database at dbPath.
func NewSymbolStore(dbPath string) (*SymbolStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	store := &SymbolStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SymbolStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS modules (
		name TEXT PRIMARY KEY,
		title TEXT,
		path TEXT,
		language TEXT,
		content_hash TEXT,
		indexed_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS symbols (
		module TEXT NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT,
		fqn TEXT NOT NULL,
		begin_line INTEGER,
		end_line INTEGER,
		file TEXT,
		PRIMARY KEY(module, seq),
		FOREIGN KEY(module) REFERENCES modules(name) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_fqn ON symbols(module, fqn);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SymbolStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveModule replaces the stored listing of mod in one transaction.
func (s *SymbolStore) SaveModule(ctx context.Context, mod *ast.Module) error {
	if mod == nil || mod.Name == "" {
		return errors.New("module name required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveModule(ctx, tx, mod); err != nil {
		tx.Rollback()
		return fmt.Errorf("save module %s: %w", mod.Name, err)
	}
	return tx.Commit()
}

func saveModule(ctx context.Context, tx *sql.Tx, mod *ast.Module) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE module = ?`, mod.Name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
	INSERT INTO modules (name, title, path, language, content_hash, indexed_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		title=excluded.title,
		path=excluded.path,
		language=excluded.language,
		content_hash=excluded.content_hash,
		indexed_at=excluded.indexed_at
	`, mod.Name, mod.Title, mod.Path, mod.Language, mod.ContentHash, time.Now().UTC())
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO symbols (module, seq, name, kind, fqn, begin_line, end_line, file)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range mod.Entries {
		if _, err := stmt.ExecContext(ctx, mod.Name, i, e.Name, string(e.Kind), e.FQN, e.BeginLine, e.EndLine, e.File); err != nil {
			return err
		}
	}
	return nil
}

// Module returns the stored header of name.
func (s *SymbolStore) Module(ctx context.Context, name string) (ModuleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT m.name, m.title, m.path, m.language, m.content_hash, m.indexed_at,
		(SELECT COUNT(*) FROM symbols WHERE module = m.name)
	FROM modules m WHERE m.name = ?`, name)
	rec, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ModuleRecord{}, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return rec, err
}

// LoadModule returns the module with its entries in stored order.
func (s *SymbolStore) LoadModule(ctx context.Context, name string) (*ast.Module, error) {
	rec, err := s.Module(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT name, kind, fqn, begin_line, end_line, file
	FROM symbols WHERE module = ? ORDER BY seq`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]symbols.Entry, 0, rec.SymbolCount)
	for rows.Next() {
		var (
			e    symbols.Entry
			kind string
			file sql.NullString
		)
		if err := rows.Scan(&e.Name, &kind, &e.FQN, &e.BeginLine, &e.EndLine, &file); err != nil {
			return nil, err
		}
		e.Kind = symbols.Kind(kind)
		e.File = file.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ast.Module{
		Name:        rec.Name,
		Title:       rec.Title,
		Path:        rec.Path,
		Language:    rec.Language,
		ContentHash: rec.ContentHash,
		Entries:     entries,
	}, nil
}

// ListModules returns every module header ordered by name.
func (s *SymbolStore) ListModules(ctx context.Context) ([]ModuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT m.name, m.title, m.path, m.language, m.content_hash, m.indexed_at,
		(SELECT COUNT(*) FROM symbols WHERE module = m.name)
	FROM modules m ORDER BY m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModuleRecord
	for rows.Next() {
		rec, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ModuleNames returns the indexed module names in order.
func (s *SymbolStore) ModuleNames(ctx context.Context) ([]string, error) {
	recs, err := s.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		names = append(names, rec.Name)
	}
	return names, nil
}

// DeleteModule removes a module and its symbols.
func (s *SymbolStore) DeleteModule(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE module = ?`, name); err != nil {
		tx.Rollback()
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM modules WHERE name = ?`, name)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanModule(row scanner) (ModuleRecord, error) {
	var (
		rec   ModuleRecord
		title sql.NullString
		path  sql.NullString
		lang  sql.NullString
		hash  sql.NullString
		at    sql.NullTime
	)
	if err := row.Scan(&rec.Name, &title, &path, &lang, &hash, &at, &rec.SymbolCount); err != nil {
		return ModuleRecord{}, err
	}
	rec.Title = title.String
	rec.Path = path.String
	rec.Language = lang.String
	rec.ContentHash = hash.String
	rec.IndexedAt = at.Time
	return rec, nil
}
