// Package store persists pipeline results in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spigell/lumino/internal/pipeline"
)

// ErrNotFound is returned when no application has the requested correlation ID.
var ErrNotFound = errors.New("application not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and its schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS applications (
			correlation_id TEXT PRIMARY KEY,
			job_role TEXT,
			job_description TEXT NOT NULL,
			candidate_name TEXT,
			candidate_email TEXT,
			state TEXT NOT NULL,
			parsed_resume TEXT,
			similarity_score INTEGER CHECK (similarity_score BETWEEN 0 AND 100),
			reason TEXT,
			substitutions TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS emails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			correlation_id TEXT NOT NULL REFERENCES applications(correlation_id) ON DELETE CASCADE,
			to_email TEXT NOT NULL,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			tier TEXT,
			fallback INTEGER NOT NULL,
			delivered INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_correlation_id ON emails(correlation_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes the application row and, when present, its email row in one transaction.
func (s *Store) Save(ctx context.Context, res *pipeline.Result) error {
	if res == nil || res.Document == nil {
		return errors.New("result has no document")
	}
	doc := res.Document

	var parsed, subs sql.NullString
	if doc.ParsedResume != nil {
		raw, err := json.Marshal(doc.ParsedResume)
		if err != nil {
			return fmt.Errorf("marshal parsed resume: %w", err)
		}
		parsed = sql.NullString{String: string(raw), Valid: true}
	}
	if len(res.Substitutions) > 0 {
		raw, err := json.Marshal(res.Substitutions)
		if err != nil {
			return fmt.Errorf("marshal substitutions: %w", err)
		}
		subs = sql.NullString{String: string(raw), Valid: true}
	}

	var score sql.NullInt64
	var reason sql.NullString
	if doc.Evaluation != nil {
		score = sql.NullInt64{Int64: int64(doc.Evaluation.SimilarityScore), Valid: true}
		reason = sql.NullString{String: doc.Evaluation.Reason, Valid: true}
	}

	now := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO applications (correlation_id, job_role, job_description, candidate_name, candidate_email,
			state, parsed_resume, similarity_score, reason, substitutions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(correlation_id) DO UPDATE SET
			state = excluded.state,
			candidate_name = excluded.candidate_name,
			candidate_email = excluded.candidate_email,
			parsed_resume = excluded.parsed_resume,
			similarity_score = excluded.similarity_score,
			reason = excluded.reason,
			substitutions = excluded.substitutions`,
		doc.CorrelationID, doc.JobRole, doc.JobDescription, doc.CandidateName, doc.CandidateEmail,
		string(doc.State), parsed, score, reason, subs, now,
	); err != nil {
		return fmt.Errorf("inserting application: %w", err)
	}

	if doc.Email != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO emails (correlation_id, to_email, subject, body, tier, fallback, delivered, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.CorrelationID, doc.Email.ToEmail, doc.Email.Subject, doc.Email.Body, string(res.Tier),
			res.MessageFallback, res.Delivery.Delivered, res.Delivery.Status, now,
		); err != nil {
			return fmt.Errorf("inserting email: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Application is a stored application row.
type Application struct {
	CorrelationID   string `json:"correlation_id" yaml:"correlation_id"`
	JobRole         string `json:"job_role" yaml:"job_role"`
	CandidateName   string `json:"candidate_name" yaml:"candidate_name"`
	CandidateEmail  string `json:"candidate_email" yaml:"candidate_email"`
	State           string `json:"state" yaml:"state"`
	ParsedResume    string `json:"parsed_resume,omitempty" yaml:"parsed_resume,omitempty"`
	SimilarityScore *int   `json:"similarity_score" yaml:"similarity_score"`
	Reason          string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Email is a stored email row.
type Email struct {
	ToEmail   string `json:"to_email" yaml:"to_email"`
	Subject   string `json:"subject" yaml:"subject"`
	Body      string `json:"body" yaml:"body"`
	Tier      string `json:"tier,omitempty" yaml:"tier,omitempty"`
	Fallback  bool   `json:"fallback" yaml:"fallback"`
	Delivered bool   `json:"delivered" yaml:"delivered"`
	Status    string `json:"status" yaml:"status"`
}

// Get returns the application stored under correlationID.
func (s *Store) Get(ctx context.Context, correlationID string) (*Application, error) {
	var (
		app    Application
		role   sql.NullString
		name   sql.NullString
		email  sql.NullString
		parsed sql.NullString
		score  sql.NullInt64
		reason sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT correlation_id, job_role, candidate_name, candidate_email, state, parsed_resume, similarity_score, reason
		FROM applications WHERE correlation_id = ?`, correlationID,
	).Scan(&app.CorrelationID, &role, &name, &email, &app.State, &parsed, &score, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, correlationID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying application: %w", err)
	}

	app.JobRole = role.String
	app.CandidateName = name.String
	app.CandidateEmail = email.String
	app.ParsedResume = parsed.String
	app.Reason = reason.String
	if score.Valid {
		v := int(score.Int64)
		app.SimilarityScore = &v
	}
	return &app, nil
}

// Emails returns every email recorded for correlationID, oldest first.
func (s *Store) Emails(ctx context.Context, correlationID string) ([]Email, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT to_email, subject, body, tier, fallback, delivered, status
		FROM emails WHERE correlation_id = ? ORDER BY id`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("querying emails: %w", err)
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		var e Email
		var tier sql.NullString
		if err := rows.Scan(&e.ToEmail, &e.Subject, &e.Body, &tier, &e.Fallback, &e.Delivered, &e.Status); err != nil {
			return nil, fmt.Errorf("scanning email: %w", err)
		}
		e.Tier = tier.String
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
