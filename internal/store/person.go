package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/google/uuid"
)

type PersonStore struct {
	db *sql.DB
}

func NewPersonStore(db *sql.DB) *PersonStore {
	return &PersonStore{db: db}
}

const personCols = `id, name, avatar, color_hex, created_at, updated_at`

func scanPerson(scanner interface{ Scan(...any) error }) (*model.Person, error) {
	var p model.Person
	var id string
	var avatar, colorHex sql.NullString

	err := scanner.Scan(&id, &p.Name, &avatar, &colorHex, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse person id: %w", err)
	}
	if avatar.Valid {
		p.Avatar = &avatar.String
	}
	if colorHex.Valid {
		p.ColorHex = &colorHex.String
	}
	return &p, nil
}

// Create registers a new person under a fresh identifier.
func (s *PersonStore) Create(name string, avatar, colorHex *string) (*model.Person, error) {
	p := model.Person{
		ID:       uuid.New(),
		Name:     name,
		Avatar:   avatar,
		ColorHex: colorHex,
	}
	if err := s.Insert(p); err != nil {
		return nil, err
	}
	return s.GetByID(p.ID)
}

// Insert persists a person under its own identifier. Used by Create and by
// import, which supplies ids minted on another device.
func (s *PersonStore) Insert(p model.Person) error {
	now := time.Now().UTC()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err := s.db.Exec(
		`INSERT INTO people (id, name, avatar, color_hex, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, nullString(p.Avatar), nullString(p.ColorHex), createdAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PersonStore) GetByID(id uuid.UUID) (*model.Person, error) {
	row := s.db.QueryRow(`SELECT `+personCols+` FROM people WHERE id = ?`, id.String())
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return p, nil
}

func (s *PersonStore) List() ([]model.Person, error) {
	rows, err := s.db.Query(`SELECT ` + personCols + ` FROM people ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, *p)
	}
	return people, rows.Err()
}

// Update renames a person or changes their avatar/color. People are never
// hard-deleted outside a full reset, so there is no Delete here.
func (s *PersonStore) Update(id uuid.UUID, name string, avatar, colorHex *string) (*model.Person, error) {
	_, err := s.db.Exec(
		`UPDATE people SET name = ?, avatar = ?, color_hex = ?, updated_at = ? WHERE id = ?`,
		name, nullString(avatar), nullString(colorHex), time.Now().UTC(), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("update person: %w", err)
	}
	return s.GetByID(id)
}

func (s *PersonStore) Exists(id uuid.UUID) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM people WHERE id = ?`, id.String()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check person exists: %w", err)
	}
	return count > 0, nil
}

func (s *PersonStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM people`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return count, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
