// Package store keeps a history of completed analysis reports in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/AI-Template-SDK/senso-visibility/internal/config"
	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS visibility_reports (
	id           UUID PRIMARY KEY,
	brand        TEXT NOT NULL,
	query        TEXT NOT NULL,
	model        TEXT NOT NULL,
	mode         TEXT NOT NULL,
	status       TEXT NOT NULL,
	global_score INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	payload      JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS visibility_reports_brand_created_idx
	ON visibility_reports (lower(brand), created_at DESC);`

const upsertReportSQL = `
INSERT INTO visibility_reports (id, brand, query, model, mode, status, global_score, created_at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	global_score = EXCLUDED.global_score,
	payload = EXCLUDED.payload`

const getReportSQL = `SELECT payload FROM visibility_reports WHERE id = $1`

const listReportsSQL = `
SELECT id, brand, query, model, mode, status, global_score, created_at
FROM visibility_reports
WHERE ($1 = '' OR lower(brand) = lower($1))
ORDER BY created_at DESC
LIMIT $2`

const trackedReportsSQL = `
SELECT DISTINCT ON (lower(brand), query) payload
FROM visibility_reports
WHERE status = 'completed' AND created_at >= $1
ORDER BY lower(brand), query, created_at DESC
LIMIT $2`

// ReportSummary is one row of the report history listing.
type ReportSummary struct {
	ID          string    `db:"id" json:"id"`
	Brand       string    `db:"brand" json:"brand"`
	Query       string    `db:"query" json:"query"`
	Model       string    `db:"model" json:"model"`
	Mode        string    `db:"mode" json:"mode"`
	Status      string    `db:"status" json:"status"`
	GlobalScore int       `db:"global_score" json:"global_score"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Connect opens and pings a Postgres pool sized from cfg.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

type ReportStore struct {
	db *sqlx.DB
}

func NewReportStore(db *sqlx.DB) *ReportStore {
	return &ReportStore{db: db}
}

// EnsureSchema creates the reports table and index when missing.
func (s *ReportStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure report schema: %w", err)
	}
	return nil
}

// Save inserts report, replacing its status, score and payload if the id exists.
func (s *ReportStore) Save(ctx context.Context, report *models.AggregateReport) error {
	if report == nil || report.ID == "" {
		return errors.New("save report: report id is required")
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("save report %s: marshal: %w", report.ID, err)
	}

	_, err = s.db.ExecContext(ctx, upsertReportSQL,
		report.ID,
		report.Brand,
		report.Query,
		report.Model,
		string(report.Mode),
		report.Status,
		report.GlobalScore,
		report.Timestamp,
		payload,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

// Get loads a report by id.
func (s *ReportStore) Get(ctx context.Context, id string) (*models.AggregateReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReportNotFound
	}

	var payload []byte
	if err := s.db.GetContext(ctx, &payload, getReportSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}

	var report models.AggregateReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("get report %s: decode payload: %w", id, err)
	}
	return &report, nil
}

// List returns the newest reports, optionally filtered by brand (case-insensitive).
func (s *ReportStore) List(ctx context.Context, brand string, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	summaries := []ReportSummary{}
	if err := s.db.SelectContext(ctx, &summaries, listReportsSQL, strings.TrimSpace(brand), limit); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return summaries, nil
}

// Tracked returns one request per brand and query completed since the given
// time, rebuilt from the newest matching report. Regions and personas are
// those that produced results in that report.
func (s *ReportStore) Tracked(ctx context.Context, since time.Time, limit int) ([]models.AnalysisRequest, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var payloads [][]byte
	if err := s.db.SelectContext(ctx, &payloads, trackedReportsSQL, since, limit); err != nil {
		return nil, fmt.Errorf("list tracked reports: %w", err)
	}

	requests := make([]models.AnalysisRequest, 0, len(payloads))
	for _, payload := range payloads {
		var report models.AggregateReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("list tracked reports: decode payload: %w", err)
		}
		requests = append(requests, RequestFromReport(&report))
	}
	return requests, nil
}

// RequestFromReport rebuilds the request that produced report.
func RequestFromReport(report *models.AggregateReport) models.AnalysisRequest {
	req := models.AnalysisRequest{
		Query:       report.Query,
		Brand:       report.Brand,
		Competitors: report.Competitors,
		Model:       report.Model,
		Mode:        report.Mode,
	}
	for _, r := range report.RegionPerformance {
		req.Regions = append(req.Regions, models.Region(r.Key))
	}
	for _, p := range report.PersonaPerformance {
		req.Personas = append(req.Personas, models.Persona(p.Key))
	}
	return req
}
