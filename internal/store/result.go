package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/google/uuid"
)

// ResultStore holds one immutable row per closed month, keyed by month key.
// Rows are inserted exactly once and never updated.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

const resultCols = `month_key, winner_ids, points_by_person, closed_at`

func scanResult(scanner interface{ Scan(...any) error }) (*model.MonthlyResult, error) {
	var r model.MonthlyResult
	var winnersJSON, pointsJSON string

	err := scanner.Scan(&r.MonthKey, &winnersJSON, &pointsJSON, &r.ClosedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(winnersJSON), &r.WinnerIDs); err != nil {
		return nil, fmt.Errorf("decode winner ids: %w", err)
	}
	if err := json.Unmarshal([]byte(pointsJSON), &r.PointsByPerson); err != nil {
		return nil, fmt.Errorf("decode points: %w", err)
	}
	return &r, nil
}

// Insert writes the result row if and only if no row exists for its month
// key. The reported bool is whether this call inserted the row; false means
// the month was already closed. The conflict-ignoring insert on the primary
// key is what keeps two near-simultaneous closes from both succeeding.
func (s *ResultStore) Insert(r model.MonthlyResult) (bool, error) {
	winners := r.WinnerIDs
	if winners == nil {
		winners = []uuid.UUID{}
	}
	winnersJSON, err := json.Marshal(winners)
	if err != nil {
		return false, fmt.Errorf("encode winner ids: %w", err)
	}

	points := r.PointsByPerson
	if points == nil {
		points = map[uuid.UUID]int{}
	}
	pointsJSON, err := json.Marshal(points)
	if err != nil {
		return false, fmt.Errorf("encode points: %w", err)
	}

	closedAt := r.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}

	res, err := s.db.Exec(
		`INSERT INTO monthly_results (month_key, winner_ids, points_by_person, closed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(month_key) DO NOTHING`,
		r.MonthKey, string(winnersJSON), string(pointsJSON), closedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert monthly result: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *ResultStore) Exists(monthKey string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM monthly_results WHERE month_key = ?`, monthKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check monthly result exists: %w", err)
	}
	return count > 0, nil
}

func (s *ResultStore) GetByKey(monthKey string) (*model.MonthlyResult, error) {
	row := s.db.QueryRow(`SELECT `+resultCols+` FROM monthly_results WHERE month_key = ?`, monthKey)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get monthly result: %w", err)
	}
	return r, nil
}

// List returns all results, most recently closed month first.
func (s *ResultStore) List() ([]model.MonthlyResult, error) {
	rows, err := s.db.Query(`SELECT ` + resultCols + ` FROM monthly_results ORDER BY month_key DESC`)
	if err != nil {
		return nil, fmt.Errorf("list monthly results: %w", err)
	}
	return collectResults(rows)
}

// ListByKeys returns the results whose month key is among keys, most recent
// first. Keys with no result are simply absent.
func (s *ResultStore) ListByKeys(keys []string) ([]model.MonthlyResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(keys)-1) + "?"
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.Query(
		`SELECT `+resultCols+` FROM monthly_results WHERE month_key IN (`+placeholders+`) ORDER BY month_key DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list monthly results by keys: %w", err)
	}
	return collectResults(rows)
}

func collectResults(rows *sql.Rows) ([]model.MonthlyResult, error) {
	defer rows.Close()

	var results []model.MonthlyResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monthly result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}
