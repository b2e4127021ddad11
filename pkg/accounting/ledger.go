// Package accounting persists per-request token usage to a SQLite ledger.
// Writes are asynchronous so request paths never block on disk; request
// and response bodies are never stored.
package accounting

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one ledger row.
type Record struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Credential       string    `json:"credential"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	ReasoningTokens  int       `json:"reasoning_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Status           string    `json:"status"`
	LatencyMS        int64     `json:"latency_ms"`
}

// Totals aggregates the ledger.
type Totals struct {
	Requests         int64 `json:"requests"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Config configures the ledger.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// BufferSize is the async write channel capacity; records are dropped
	// with a warning when the buffer is full.
	BufferSize int

	// RetentionDays prunes older records daily. Zero keeps everything.
	RetentionDays int
}

// Ledger is the SQLite-backed usage ledger.
type Ledger struct {
	db      *sql.DB
	records chan Record
	done    chan struct{}
	wg      sync.WaitGroup

	dropped   int64
	droppedMu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER NOT NULL,
    request_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    credential TEXT NOT NULL,
    prompt_tokens INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    reasoning_tokens INTEGER NOT NULL,
    total_tokens INTEGER NOT NULL,
    status TEXT NOT NULL,
    latency_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_records_ts ON usage_records(ts);
CREATE INDEX IF NOT EXISTS idx_usage_records_model ON usage_records(model);
`

// Open opens (creating if needed) the ledger database and starts the
// background writer.
func Open(cfg Config) (*Ledger, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	l := &Ledger{
		db:      db,
		records: make(chan Record, cfg.BufferSize),
		done:    make(chan struct{}),
	}

	l.wg.Add(1)
	go l.writeLoop(cfg.RetentionDays)

	slog.Info("usage ledger opened", "path", cfg.Path)
	return l, nil
}

// Record enqueues a row; it never blocks the caller.
func (l *Ledger) Record(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	select {
	case l.records <- rec:
	default:
		l.droppedMu.Lock()
		l.dropped++
		dropped := l.dropped
		l.droppedMu.Unlock()
		if dropped%100 == 1 {
			slog.Warn("usage ledger buffer full, dropping records", "dropped_total", dropped)
		}
	}
}

func (l *Ledger) writeLoop(retentionDays int) {
	defer l.wg.Done()

	var pruneTicker *time.Ticker
	var pruneC <-chan time.Time
	if retentionDays > 0 {
		pruneTicker = time.NewTicker(24 * time.Hour)
		pruneC = pruneTicker.C
		defer pruneTicker.Stop()
		l.prune(retentionDays)
	}

	for {
		select {
		case rec := <-l.records:
			l.insert(rec)
		case <-pruneC:
			l.prune(retentionDays)
		case <-l.done:
			// Drain what is already buffered.
			for {
				select {
				case rec := <-l.records:
					l.insert(rec)
				default:
					return
				}
			}
		}
	}
}

func (l *Ledger) insert(rec Record) {
	_, err := l.db.Exec(
		`INSERT INTO usage_records
		 (ts, request_id, provider, model, credential, prompt_tokens, completion_tokens, reasoning_tokens, total_tokens, status, latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UnixNano(), rec.RequestID, rec.Provider, rec.Model, rec.Credential,
		rec.PromptTokens, rec.CompletionTokens, rec.ReasoningTokens, rec.TotalTokens,
		rec.Status, rec.LatencyMS,
	)
	if err != nil {
		slog.Error("failed to write usage record", "error", err, "request_id", rec.RequestID)
	}
}

func (l *Ledger) prune(retentionDays int) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res, err := l.db.Exec("DELETE FROM usage_records WHERE ts < ?", cutoff.UnixNano())
	if err != nil {
		slog.Error("failed to prune usage records", "error", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Info("pruned usage records", "removed", n, "cutoff", cutoff)
	}
}

// Recent returns the newest records, newest first.
func (l *Ledger) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(
		`SELECT id, ts, request_id, provider, model, credential,
		        prompt_tokens, completion_tokens, reasoning_tokens, total_tokens,
		        status, latency_ms
		 FROM usage_records ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ts int64
		if err := rows.Scan(
			&rec.ID, &ts, &rec.RequestID, &rec.Provider, &rec.Model, &rec.Credential,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.ReasoningTokens, &rec.TotalTokens,
			&rec.Status, &rec.LatencyMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Totals returns aggregate counters over the whole ledger.
func (l *Ledger) Totals() (Totals, error) {
	var t Totals
	err := l.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(total_tokens), 0)
		 FROM usage_records`,
	).Scan(&t.Requests, &t.PromptTokens, &t.CompletionTokens, &t.TotalTokens)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to aggregate usage records: %w", err)
	}
	return t, nil
}

// Close stops the writer, flushes buffered records, and closes the
// database.
func (l *Ledger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}
