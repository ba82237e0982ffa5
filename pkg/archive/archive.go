// Package archive keeps every fetched tweet in a local SQLite database,
// grouped by the search or timeline run that fetched it.
package archive

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

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
	"tweetutil/pkg/twitter"
)

// Kind is the fetch mode that produced a run
type Kind string

const (
	KindSearch   Kind = "search"
	KindTimeline Kind = "timeline"
)

// Run is one recorded fetch
type Run struct {
	ID         string
	Kind       Kind
	Query      string
	StartedAt  time.Time
	FinishedAt time.Time
	PostCount  int
	StopReason string
}

// Archive is a SQLite-backed post archive
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive database at path
func Open(path string) (*Archive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

// Close closes the database
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// StartRun records the start of a fetch and returns its id
func (a *Archive) StartRun(ctx context.Context, kind Kind, query string) (string, error) {
	id := uuid.NewString()
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO runs (id, kind, query, started_at) VALUES (?, ?, ?, ?)",
		id, string(kind), query, formatTime(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// SavePosts upserts tweets and links them to the run. It returns how many
// tweets were not in the archive before.
func (a *Archive) SavePosts(ctx context.Context, runID string, tweets []twitter.Tweet) (int, error) {
	if len(tweets) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	var position int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_posts WHERE run_id = ?", runID).Scan(&position); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("count run posts: %w", err)
	}

	now := formatTime(time.Now())
	added := 0
	for _, t := range tweets {
		if t.ID == "" {
			continue
		}
		raw, err := json.Marshal(t)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("encode post %s: %w", t.ID, err)
		}

		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE id = ?", t.ID).Scan(&exists); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("lookup post %s: %w", t.ID, err)
		}
		if exists == 0 {
			added++
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO posts (id, author_id, screen_name, text, created_at, place, raw, first_seen_at, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				text = excluded.text,
				raw = excluded.raw,
				last_seen_at = excluded.last_seen_at
		`,
			t.ID,
			nullString(t.AuthorID),
			nullString(screenName(t)),
			t.Text,
			nullString(timeString(t.CreatedAt)),
			nullString(placeName(t)),
			string(raw),
			now,
			now,
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert post %s: %w", t.ID, err)
		}

		res, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO run_posts (run_id, post_id, position) VALUES (?, ?, ?)",
			runID, t.ID, position,
		)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("link post %s: %w", t.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			position++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit posts: %w", err)
	}
	return added, nil
}

// FinishRun records the outcome of a run
func (a *Archive) FinishRun(ctx context.Context, runID string, count int, reason string) error {
	res, err := a.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, post_count = ?, stop_reason = ? WHERE id = ?",
		formatTime(time.Now()), count, reason, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// Runs returns the most recent runs first
func (a *Archive) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, kind, query, started_at, finished_at, post_count, stop_reason
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []Run
	for rows.Next() {
		var (
			r                Run
			kind, started    string
			finished, reason sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &r.Query, &started, &finished, &r.PostCount, &reason); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Kind = Kind(kind)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if finished.Valid {
			if r.FinishedAt, err = parseTime(finished.String); err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
		}
		r.StopReason = reason.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunPosts returns the tweets linked to a run in fetch order
func (a *Archive) RunPosts(ctx context.Context, runID string) ([]twitter.Tweet, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT p.raw
		FROM run_posts rp
		JOIN posts p ON p.id = rp.post_id
		WHERE rp.run_id = ?
		ORDER BY rp.position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run posts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var tweets []twitter.Tweet
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		var t twitter.Tweet
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run posts: %w", err)
	}
	return tweets, nil
}

// CountPosts returns the number of distinct archived tweets
func (a *Archive) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func screenName(t twitter.Tweet) string {
	if t.Author == nil {
		return ""
	}
	return t.Author.ScreenName
}

func placeName(t twitter.Tweet) string {
	if t.Place == nil {
		return ""
	}
	if t.Place.FullName != "" {
		return t.Place.FullName
	}
	return t.Place.Name
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
