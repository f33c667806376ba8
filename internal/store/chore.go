package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/google/uuid"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, title, points, category, active, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var id string
	var category sql.NullString
	var active int

	err := scanner.Scan(&id, &c.Title, &c.Points, &category, &active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse chore id: %w", err)
	}
	if category.Valid {
		c.Category = &category.String
	}
	c.Active = active != 0
	return &c, nil
}

func (s *ChoreStore) Create(title string, points int, category *string) (*model.Chore, error) {
	c := model.Chore{
		ID:       uuid.New(),
		Title:    title,
		Points:   points,
		Category: category,
		Active:   true,
	}
	if err := s.Insert(c); err != nil {
		return nil, err
	}
	return s.GetByID(c.ID)
}

// Insert persists a chore under its own identifier. Used by Create and by
// import, which supplies ids minted on another device.
func (s *ChoreStore) Insert(c model.Chore) error {
	now := time.Now().UTC()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var active int
	if c.Active {
		active = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO chores (id, title, points, category, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Title, c.Points, nullString(c.Category), active, createdAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) GetByID(id uuid.UUID) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id.String())
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) List() ([]model.Chore, error) {
	return s.list(`SELECT ` + choreCols + ` FROM chores ORDER BY title ASC, id ASC`)
}

// ListActive returns chores available for completion. Deactivated chores
// are excluded but their historical completions are untouched.
func (s *ChoreStore) ListActive() ([]model.Chore, error) {
	return s.list(`SELECT ` + choreCols + ` FROM chores WHERE active = 1 ORDER BY title ASC, id ASC`)
}

func (s *ChoreStore) list(query string) ([]model.Chore, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id uuid.UUID, title string, points int, category *string, active bool) (*model.Chore, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, points = ?, category = ?, active = ?, updated_at = ? WHERE id = ?`,
		title, points, nullString(category), a, time.Now().UTC(), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

// Deactivate soft-deletes a chore: it disappears from active listings but
// stays referenced by historical completions.
func (s *ChoreStore) Deactivate(id uuid.UUID) error {
	_, err := s.db.Exec(
		`UPDATE chores SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("deactivate chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) Exists(id uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chores WHERE id = ?`, id.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check chore exists: %w", err)
	}
	return count > 0, nil
}
