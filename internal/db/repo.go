package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"wellness-chatbot/pkg"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

const reportColumns = `id, user_id, company_id, mood, stress_score, anxious_level,
       work_satisfaction, work_life_balance, energy_level, confident_level,
       sleep_quality, complete_report, session_type, session_duration,
       key_insights, recommendations, created_at`

// Repository stores wellness reports in Postgres.  It is the reports source
// behind the chat context and the analytics endpoint.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// Open connects with the lib/pq driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// SaveReport inserts a finished report and returns it with its id and
// creation time.
func (r *Repository) SaveReport(ctx context.Context, userID, companyID string, rep pkg.WellnessReport) (*pkg.StoredReport, error) {
	if rep.KeyInsights == nil {
		rep.KeyInsights = []string{}
	}
	if rep.Recommendations == nil {
		rep.Recommendations = []string{}
	}
	stored := &pkg.StoredReport{
		WellnessReport: rep,
		ID:             uuid.New().String(),
		UserID:         userID,
		CompanyID:      companyID,
	}
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO wellness_reports (id, user_id, company_id, mood, stress_score, anxious_level,
             work_satisfaction, work_life_balance, energy_level, confident_level, sleep_quality,
             complete_report, session_type, session_duration, key_insights, recommendations)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
         RETURNING created_at`,
		stored.ID, userID, companyID, rep.Mood, rep.StressScore, rep.AnxiousLevel,
		rep.WorkSatisfaction, rep.WorkLifeBalance, rep.EnergyLevel, rep.ConfidentLevel, rep.SleepQuality,
		rep.CompleteReport, rep.SessionType, rep.SessionDuration, pq.Array(rep.KeyInsights), pq.Array(rep.Recommendations),
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return stored, nil
}

// GetReport returns a single report by id.  An id that is not a UUID
// cannot name a report and yields ErrNotFound without a query.
func (r *Repository) GetReport(ctx context.Context, id string) (*pkg.StoredReport, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM wellness_reports WHERE id = $1`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// GetRecentReports returns a company's reports from the last days days,
// newest first.
func (r *Repository) GetRecentReports(ctx context.Context, companyID string, days int) ([]pkg.StoredReport, error) {
	return r.query(ctx,
		`SELECT `+reportColumns+`
         FROM wellness_reports
         WHERE company_id = $1
           AND created_at >= NOW() - make_interval(days => $2)
         ORDER BY created_at DESC`,
		companyID, days)
}

// GetPersonalHistory returns one employee's reports within a company from the
// last days days, newest first.
func (r *Repository) GetPersonalHistory(ctx context.Context, userID, companyID string, days int) ([]pkg.StoredReport, error) {
	return r.query(ctx,
		`SELECT `+reportColumns+`
         FROM wellness_reports
         WHERE user_id = $1
           AND company_id = $2
           AND created_at >= NOW() - make_interval(days => $3)
         ORDER BY created_at DESC`,
		userID, companyID, days)
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]pkg.StoredReport, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()
	var out []pkg.StoredReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*pkg.StoredReport, error) {
	var rep pkg.StoredReport
	err := s.Scan(&rep.ID, &rep.UserID, &rep.CompanyID,
		&rep.Mood, &rep.StressScore, &rep.AnxiousLevel,
		&rep.WorkSatisfaction, &rep.WorkLifeBalance, &rep.EnergyLevel, &rep.ConfidentLevel,
		&rep.SleepQuality, &rep.CompleteReport, &rep.SessionType, &rep.SessionDuration,
		pq.Array(&rep.KeyInsights), pq.Array(&rep.Recommendations), &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	rep.SessionType = strings.TrimSpace(rep.SessionType)
	return &rep, nil
}
