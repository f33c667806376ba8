package model

import (
	"time"

	"github.com/google/uuid"
)

// MonthlyResult is the once-only snapshot of a closed month: the set of
// people tied for maximum points and every person's total for that month.
// At most one exists per month key and it is never updated after creation.
type MonthlyResult struct {
	MonthKey       string            `json:"month_key"`
	WinnerIDs      []uuid.UUID       `json:"winner_ids"`
	PointsByPerson map[uuid.UUID]int `json:"points_by_person"`
	ClosedAt       time.Time         `json:"closed_at"`
}
