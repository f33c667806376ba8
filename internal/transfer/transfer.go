// Package transfer moves the whole dataset in and out as JSON. Export and
// import are the backup/restore and device-migration surface: entities
// travel under their own identifiers, and import skips anything already
// present instead of duplicating or failing.
package transfer

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/google/uuid"
)

// Payload is the interchange document. Timestamps are RFC 3339, which
// round-trips to the second.
type Payload struct {
	People         []PersonRecord        `json:"people"`
	Chores         []ChoreRecord         `json:"chores"`
	Completions    []CompletionRecord    `json:"completions"`
	MonthlyResults []MonthlyResultRecord `json:"monthly_results"`
}

type PersonRecord struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Avatar   *string   `json:"avatar,omitempty"`
	ColorHex *string   `json:"color_hex,omitempty"`
}

type ChoreRecord struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Points   int       `json:"points"`
	Category *string   `json:"category,omitempty"`
	IsActive bool      `json:"is_active"`
}

// CompletionRecord carries the point snapshot as opaque data: import and
// export never recompute it from the current chore catalog.
type CompletionRecord struct {
	ID                 uuid.UUID `json:"id"`
	ChoreID            uuid.UUID `json:"chore_id"`
	ChoreTitleSnapshot string    `json:"chore_title_snapshot"`
	PointsSnapshot     int       `json:"points_snapshot"`
	PersonID           uuid.UUID `json:"person_id"`
	CompletedAt        time.Time `json:"completed_at"`
}

type MonthlyResultRecord struct {
	MonthKey       string            `json:"month_key"`
	WinnerIDs      []uuid.UUID       `json:"winner_ids"`
	PointsByPerson map[uuid.UUID]int `json:"points_by_person"`
	ClosedAt       time.Time         `json:"closed_at"`
}

// Report counts what an import actually inserted. Re-importing the same
// payload reports zeros everywhere.
type Report struct {
	InsertedPeople         int `json:"inserted_people"`
	InsertedChores         int `json:"inserted_chores"`
	InsertedCompletions    int `json:"inserted_completions"`
	InsertedMonthlyResults int `json:"inserted_monthly_results"`
}

type Service struct {
	people      *store.PersonStore
	chores      *store.ChoreStore
	completions *store.CompletionStore
	results     *store.ResultStore
}

func New(people *store.PersonStore, chores *store.ChoreStore, completions *store.CompletionStore, results *store.ResultStore) *Service {
	return &Service{
		people:      people,
		chores:      chores,
		completions: completions,
		results:     results,
	}
}

// Export serializes the full dataset. Slices are sorted by id (results by
// month key) so repeated exports of the same data are byte-identical.
func (s *Service) Export() ([]byte, error) {
	people, err := s.people.List()
	if err != nil {
		return nil, fmt.Errorf("export people: %w", err)
	}
	chores, err := s.chores.List()
	if err != nil {
		return nil, fmt.Errorf("export chores: %w", err)
	}
	completions, err := s.completions.List()
	if err != nil {
		return nil, fmt.Errorf("export completions: %w", err)
	}
	results, err := s.results.List()
	if err != nil {
		return nil, fmt.Errorf("export monthly results: %w", err)
	}

	payload := Payload{
		People:         make([]PersonRecord, 0, len(people)),
		Chores:         make([]ChoreRecord, 0, len(chores)),
		Completions:    make([]CompletionRecord, 0, len(completions)),
		MonthlyResults: make([]MonthlyResultRecord, 0, len(results)),
	}

	for _, p := range people {
		payload.People = append(payload.People, PersonRecord{ID: p.ID, Name: p.Name, Avatar: p.Avatar, ColorHex: p.ColorHex})
	}
	for _, c := range chores {
		payload.Chores = append(payload.Chores, ChoreRecord{ID: c.ID, Title: c.Title, Points: c.Points, Category: c.Category, IsActive: c.Active})
	}
	for _, c := range completions {
		payload.Completions = append(payload.Completions, CompletionRecord{
			ID:                 c.ID,
			ChoreID:            c.ChoreID,
			ChoreTitleSnapshot: c.ChoreTitleSnapshot,
			PointsSnapshot:     c.PointsSnapshot,
			PersonID:           c.PersonID,
			CompletedAt:        c.CompletedAt.UTC(),
		})
	}
	for _, r := range results {
		payload.MonthlyResults = append(payload.MonthlyResults, MonthlyResultRecord{
			MonthKey:       r.MonthKey,
			WinnerIDs:      r.WinnerIDs,
			PointsByPerson: r.PointsByPerson,
			ClosedAt:       r.ClosedAt.UTC(),
		})
	}

	sort.Slice(payload.People, func(i, j int) bool { return payload.People[i].ID.String() < payload.People[j].ID.String() })
	sort.Slice(payload.Chores, func(i, j int) bool { return payload.Chores[i].ID.String() < payload.Chores[j].ID.String() })
	sort.Slice(payload.Completions, func(i, j int) bool {
		return payload.Completions[i].ID.String() < payload.Completions[j].ID.String()
	})
	sort.Slice(payload.MonthlyResults, func(i, j int) bool {
		return payload.MonthlyResults[i].MonthKey < payload.MonthlyResults[j].MonthKey
	})

	return json.MarshalIndent(payload, "", "  ")
}

// Import inserts every payload entity that is not already present, keyed by
// entity id (month key for results). Present entities are skipped silently;
// nothing is updated or duplicated, so importing twice is a no-op.
func (s *Service) Import(data []byte) (*Report, error) {
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	report := &Report{}

	for _, rec := range payload.People {
		exists, err := s.people.Exists(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("import person %s: %w", rec.ID, err)
		}
		if exists {
			continue
		}
		p := model.Person{ID: rec.ID, Name: rec.Name, Avatar: rec.Avatar, ColorHex: rec.ColorHex}
		if err := s.people.Insert(p); err != nil {
			return nil, fmt.Errorf("import person %s: %w", rec.ID, err)
		}
		report.InsertedPeople++
	}

	for _, rec := range payload.Chores {
		exists, err := s.chores.Exists(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("import chore %s: %w", rec.ID, err)
		}
		if exists {
			continue
		}
		c := model.Chore{ID: rec.ID, Title: rec.Title, Points: rec.Points, Category: rec.Category, Active: rec.IsActive}
		if err := s.chores.Insert(c); err != nil {
			return nil, fmt.Errorf("import chore %s: %w", rec.ID, err)
		}
		report.InsertedChores++
	}

	for _, rec := range payload.Completions {
		exists, err := s.completions.Exists(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("import completion %s: %w", rec.ID, err)
		}
		if exists {
			continue
		}
		c := model.Completion{
			ID:                 rec.ID,
			ChoreID:            rec.ChoreID,
			ChoreTitleSnapshot: rec.ChoreTitleSnapshot,
			PointsSnapshot:     rec.PointsSnapshot,
			PersonID:           rec.PersonID,
			CompletedAt:        rec.CompletedAt,
		}
		if _, err := s.completions.Insert(c); err != nil {
			return nil, fmt.Errorf("import completion %s: %w", rec.ID, err)
		}
		report.InsertedCompletions++
	}

	for _, rec := range payload.MonthlyResults {
		r := model.MonthlyResult{
			MonthKey:       rec.MonthKey,
			WinnerIDs:      rec.WinnerIDs,
			PointsByPerson: rec.PointsByPerson,
			ClosedAt:       rec.ClosedAt,
		}
		inserted, err := s.results.Insert(r)
		if err != nil {
			return nil, fmt.Errorf("import monthly result %s: %w", rec.MonthKey, err)
		}
		if inserted {
			report.InsertedMonthlyResults++
		}
	}

	return report, nil
}
