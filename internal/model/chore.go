package model

import (
	"time"

	"github.com/google/uuid"
)

type Chore struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Points    int       `json:"points"`
	Category  *string   `json:"category"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completion is an immutable fact: person P completed chore C at instant t,
// worth N points. Title and points are copied from the chore at completion
// time, so later edits or deactivation of the chore never change historical
// scoring.
type Completion struct {
	ID                 uuid.UUID `json:"id"`
	ChoreID            uuid.UUID `json:"chore_id"`
	ChoreTitleSnapshot string    `json:"chore_title_snapshot"`
	PointsSnapshot     int       `json:"points_snapshot"`
	PersonID           uuid.UUID `json:"person_id"`
	CompletedAt        time.Time `json:"completed_at"`
}
