package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/google/uuid"
)

// CompletionStore is the append-only ledger of completion facts. Rows are
// never updated; the only deletion path is a full reset.
type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

const completionCols = `id, chore_id, chore_title_snapshot, points_snapshot, person_id, completed_at`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	var id, choreID, personID string

	err := scanner.Scan(&id, &choreID, &c.ChoreTitleSnapshot, &c.PointsSnapshot, &personID, &c.CompletedAt)
	if err != nil {
		return nil, err
	}

	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse completion id: %w", err)
	}
	if c.ChoreID, err = uuid.Parse(choreID); err != nil {
		return nil, fmt.Errorf("parse chore id: %w", err)
	}
	if c.PersonID, err = uuid.Parse(personID); err != nil {
		return nil, fmt.Errorf("parse person id: %w", err)
	}
	return &c, nil
}

// Insert appends one completion to the ledger, assigning an identifier and
// instant when the caller did not supply them, and returns the stored row.
func (s *CompletionStore) Insert(c model.Completion) (*model.Completion, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO completions (id, chore_id, chore_title_snapshot, points_snapshot, person_id, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.ChoreID.String(), c.ChoreTitleSnapshot, c.PointsSnapshot, c.PersonID.String(), c.CompletedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	return s.GetByID(c.ID)
}

func (s *CompletionStore) GetByID(id uuid.UUID) (*model.Completion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completions WHERE id = ?`, id.String())
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// ListByRange returns completions whose instant falls within the half-open
// interval [start, end).
func (s *CompletionStore) ListByRange(start, end time.Time) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completions WHERE completed_at >= ? AND completed_at < ? ORDER BY completed_at ASC`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by range: %w", err)
	}
	return collectCompletions(rows)
}

func (s *CompletionStore) List() ([]model.Completion, error) {
	rows, err := s.db.Query(`SELECT ` + completionCols + ` FROM completions ORDER BY completed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return collectCompletions(rows)
}

func collectCompletions(rows *sql.Rows) ([]model.Completion, error) {
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

func (s *CompletionStore) Exists(id uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM completions WHERE id = ?`, id.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check completion exists: %w", err)
	}
	return count > 0, nil
}
