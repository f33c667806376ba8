// Package scoring turns the completion ledger into per-month point totals,
// a current leader, and immutable month-close results. The service keeps no
// state of its own: every query re-derives from the ledger, except closed
// months, whose stored results are authoritative once written.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/monthkey"
	"github.com/google/uuid"
)

// ErrMonthAlreadyClosed is returned when closing a month that already has a
// result. There is no force-overwrite path: recomputing a finalized month
// would corrupt history.
var ErrMonthAlreadyClosed = errors.New("month already closed")

// DefaultWinsWindow is how many months back the wins leaderboard looks.
const DefaultWinsWindow = 6

// Ledger is the append-only completion collection the engine reads and
// appends to.
type Ledger interface {
	Insert(c model.Completion) (*model.Completion, error)
	ListByRange(start, end time.Time) ([]model.Completion, error)
}

// Results is the durable once-per-month result collection. Insert reports
// whether the row was written; false means a result already existed, which
// together with the store's key uniqueness makes close-month exactly-once.
type Results interface {
	Exists(monthKey string) (bool, error)
	Insert(r model.MonthlyResult) (bool, error)
	ListByKeys(keys []string) ([]model.MonthlyResult, error)
}

// People resolves person identifiers to people for leader display.
type People interface {
	GetByID(id uuid.UUID) (*model.Person, error)
}

type Service struct {
	ledger  Ledger
	results Results
	people  People
	now     func() time.Time
}

func New(ledger Ledger, results Results, people People) *Service {
	return &Service{
		ledger:  ledger,
		results: results,
		people:  people,
		now:     time.Now,
	}
}

// MarkDone appends one completion for person doing chore at the given
// instant (now when at is zero). The chore's current title and points are
// frozen into the completion, so later chore edits never change history.
func (s *Service) MarkDone(chore model.Chore, person model.Person, at time.Time) (*model.Completion, error) {
	if at.IsZero() {
		at = s.now()
	}

	completion := model.Completion{
		ChoreID:            chore.ID,
		ChoreTitleSnapshot: chore.Title,
		PointsSnapshot:     chore.Points,
		PersonID:           person.ID,
		CompletedAt:        at,
	}

	stored, err := s.ledger.Insert(completion)
	if err != nil {
		return nil, fmt.Errorf("record completion: %w", err)
	}
	return stored, nil
}

// Totals sums point snapshots per person over the month named by monthKey.
// People with no completions in the month are absent from the map.
func (s *Service) Totals(key string) (map[uuid.UUID]int, error) {
	start, end, err := monthkey.Range(key)
	if err != nil {
		return nil, err
	}
	return s.totalsInRange(start, end)
}

// TodayTotals aggregates over the device-local day. Month keys are pinned
// to UTC so all devices agree on month membership, but "today" follows the
// local clock, which is what daily feedback should reflect.
func (s *Service) TodayTotals() (map[uuid.UUID]int, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)
	return s.totalsInRange(start, end)
}

func (s *Service) totalsInRange(start, end time.Time) (map[uuid.UUID]int, error) {
	completions, err := s.ledger.ListByRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}

	totals := make(map[uuid.UUID]int)
	for _, c := range completions {
		totals[c.PersonID] += c.PointsSnapshot
	}
	return totals, nil
}

// CurrentLeaderName returns the name of the person with the strictly
// highest total in the current month, or "" when nobody has scored yet.
// Ties resolve to the lexicographically smallest person id, so the answer
// is deterministic regardless of map iteration order.
func (s *Service) CurrentLeaderName() (string, error) {
	totals, err := s.Totals(monthkey.KeyOf(s.now()))
	if err != nil {
		return "", err
	}

	leaderID, leaderPoints := pickLeader(totals)
	if leaderPoints <= 0 {
		return "", nil
	}

	person, err := s.people.GetByID(leaderID)
	if err != nil {
		return "", fmt.Errorf("look up leader: %w", err)
	}
	if person == nil {
		return "", nil
	}
	return person.Name, nil
}

// CloseMonth finalizes the month named by monthKey into one immutable
// result: every tied person at the maximum positive total is a winner, and
// a month where nobody scored gets an empty winner set. A month can be
// closed at most once; later calls fail with ErrMonthAlreadyClosed.
func (s *Service) CloseMonth(key string) (*model.MonthlyResult, error) {
	totals, err := s.Totals(key)
	if err != nil {
		return nil, err
	}

	closed, err := s.results.Exists(key)
	if err != nil {
		return nil, fmt.Errorf("check month closed: %w", err)
	}
	if closed {
		return nil, fmt.Errorf("%w: %q", ErrMonthAlreadyClosed, key)
	}

	maxPoints := 0
	for _, points := range totals {
		if points > maxPoints {
			maxPoints = points
		}
	}

	winners := []uuid.UUID{}
	if maxPoints > 0 {
		for id, points := range totals {
			if points == maxPoints {
				winners = append(winners, id)
			}
		}
		sort.Slice(winners, func(i, j int) bool {
			return winners[i].String() < winners[j].String()
		})
	}

	result := model.MonthlyResult{
		MonthKey:       key,
		WinnerIDs:      winners,
		PointsByPerson: totals,
		ClosedAt:       s.now().UTC(),
	}

	inserted, err := s.results.Insert(result)
	if err != nil {
		return nil, fmt.Errorf("store monthly result: %w", err)
	}
	if !inserted {
		// A concurrent close won the insert race.
		return nil, fmt.Errorf("%w: %q", ErrMonthAlreadyClosed, key)
	}
	return &result, nil
}

// WinsOverLastMonths counts, per person, how many of the last n closed
// months they won. Every member of a tied winner set gets a full win.
func (s *Service) WinsOverLastMonths(n int) (map[uuid.UUID]int, error) {
	keys := monthkey.LastKeys(n, s.now())
	results, err := s.results.ListByKeys(keys)
	if err != nil {
		return nil, fmt.Errorf("load monthly results: %w", err)
	}

	wins := make(map[uuid.UUID]int)
	for _, r := range results {
		for _, id := range r.WinnerIDs {
			wins[id]++
		}
	}
	return wins, nil
}

func pickLeader(totals map[uuid.UUID]int) (uuid.UUID, int) {
	var leaderID uuid.UUID
	leaderPoints := 0
	for id, points := range totals {
		switch {
		case points > leaderPoints:
			leaderID, leaderPoints = id, points
		case points == leaderPoints && points > 0 && id.String() < leaderID.String():
			leaderID = id
		}
	}
	return leaderID, leaderPoints
}
