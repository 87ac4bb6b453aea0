// File path: internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Paper is the full bibliographic record for an indexed paper. Chunk
// payloads carry only truncated metadata, so listings read from here.
type Paper struct {
	PMID            string   `json:"pmid"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal"`
	PublicationDate string   `json:"publication_date"`
	Keywords        []string `json:"keywords"`
	IndexedAt       string   `json:"indexed_at"`
}

type paperRow struct {
	PMID            string `db:"pmid"`
	Title           string `db:"title"`
	Abstract        string `db:"abstract"`
	Authors         string `db:"authors"`
	Journal         string `db:"journal"`
	PublicationDate string `db:"publication_date"`
	Keywords        string `db:"keywords"`
	IndexedAt       string `db:"indexed_at"`
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS papers (
		pmid TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		abstract TEXT NOT NULL DEFAULT '',
		authors TEXT NOT NULL DEFAULT '[]',
		journal TEXT NOT NULL DEFAULT '',
		publication_date TEXT NOT NULL DEFAULT '',
		keywords TEXT NOT NULL DEFAULT '[]',
		indexed_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_papers_journal ON papers(journal)`,
}

// Store wraps a pooled sqlx.DB connection to the SQLite catalog.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at the provided
// path. The schema is migrated on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	cfg.applyDefaults()
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// SavePapers upserts the provided papers in a single transaction.
// IndexedAt is stamped when the caller left it empty.
func (s *Store) SavePapers(ctx context.Context, papers []Paper) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	if len(papers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	const stmt = `INSERT INTO papers (pmid, title, abstract, authors, journal, publication_date, keywords, indexed_at)
		VALUES (:pmid, :title, :abstract, :authors, :journal, :publication_date, :keywords, :indexed_at)
		ON CONFLICT(pmid) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			authors = excluded.authors,
			journal = excluded.journal,
			publication_date = excluded.publication_date,
			keywords = excluded.keywords,
			indexed_at = excluded.indexed_at`
	for _, paper := range papers {
		if strings.TrimSpace(paper.PMID) == "" {
			tx.Rollback()
			return errors.New("paper pmid required")
		}
		row, err := toRow(paper)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode paper %s: %w", paper.PMID, err)
		}
		if _, err := tx.NamedExecContext(ctx, stmt, row); err != nil {
			tx.Rollback()
			return fmt.Errorf("save paper %s: %w", paper.PMID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// AllPapers returns every catalogued paper ordered by pmid.
func (s *Store) AllPapers(ctx context.Context) ([]Paper, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog store not initialised")
	}
	var rows []paperRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT pmid, title, abstract, authors, journal, publication_date, keywords, indexed_at FROM papers ORDER BY pmid`); err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	papers := make([]Paper, 0, len(rows))
	for _, row := range rows {
		paper, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode paper %s: %w", row.PMID, err)
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// GetPaper returns the paper with the given pmid, or false when absent.
func (s *Store) GetPaper(ctx context.Context, pmid string) (Paper, bool, error) {
	if s == nil || s.db == nil {
		return Paper{}, false, errors.New("catalog store not initialised")
	}
	var row paperRow
	err := s.db.GetContext(ctx, &row, `SELECT pmid, title, abstract, authors, journal, publication_date, keywords, indexed_at FROM papers WHERE pmid = ?`, pmid)
	if errors.Is(err, sql.ErrNoRows) {
		return Paper{}, false, nil
	}
	if err != nil {
		return Paper{}, false, fmt.Errorf("get paper %s: %w", pmid, err)
	}
	paper, err := fromRow(row)
	if err != nil {
		return Paper{}, false, fmt.Errorf("decode paper %s: %w", pmid, err)
	}
	return paper, true, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("catalog store not initialised")
	}
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM papers`); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return count, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("catalog store not initialised")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM papers`); err != nil {
		return fmt.Errorf("clear papers: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toRow(paper Paper) (paperRow, error) {
	authors, err := encodeList(paper.Authors)
	if err != nil {
		return paperRow{}, err
	}
	keywords, err := encodeList(paper.Keywords)
	if err != nil {
		return paperRow{}, err
	}
	indexedAt := paper.IndexedAt
	if strings.TrimSpace(indexedAt) == "" {
		indexedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return paperRow{
		PMID:            paper.PMID,
		Title:           paper.Title,
		Abstract:        paper.Abstract,
		Authors:         authors,
		Journal:         paper.Journal,
		PublicationDate: paper.PublicationDate,
		Keywords:        keywords,
		IndexedAt:       indexedAt,
	}, nil
}

func fromRow(row paperRow) (Paper, error) {
	authors, err := decodeList(row.Authors)
	if err != nil {
		return Paper{}, err
	}
	keywords, err := decodeList(row.Keywords)
	if err != nil {
		return Paper{}, err
	}
	return Paper{
		PMID:            row.PMID,
		Title:           row.Title,
		Abstract:        row.Abstract,
		Authors:         authors,
		Journal:         row.Journal,
		PublicationDate: row.PublicationDate,
		Keywords:        keywords,
		IndexedAt:       row.IndexedAt,
	}, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}
