package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/monthkey"
	"github.com/google/uuid"
)

// --- In-memory fakes ---

type fakeLedger struct {
	completions []model.Completion
}

func (f *fakeLedger) Insert(c model.Completion) (*model.Completion, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	f.completions = append(f.completions, c)
	return &c, nil
}

func (f *fakeLedger) ListByRange(start, end time.Time) ([]model.Completion, error) {
	var out []model.Completion
	for _, c := range f.completions {
		if !c.CompletedAt.Before(start) && c.CompletedAt.Before(end) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeLedger) get(id uuid.UUID) *model.Completion {
	for i := range f.completions {
		if f.completions[i].ID == id {
			return &f.completions[i]
		}
	}
	return nil
}

type fakeResults struct {
	byKey      map[string]model.MonthlyResult
	denyInsert bool // simulate losing the insert race to a concurrent close
}

func newFakeResults() *fakeResults {
	return &fakeResults{byKey: make(map[string]model.MonthlyResult)}
}

func (f *fakeResults) Exists(monthKey string) (bool, error) {
	_, ok := f.byKey[monthKey]
	return ok, nil
}

func (f *fakeResults) Insert(r model.MonthlyResult) (bool, error) {
	if f.denyInsert {
		return false, nil
	}
	if _, ok := f.byKey[r.MonthKey]; ok {
		return false, nil
	}
	f.byKey[r.MonthKey] = r
	return true, nil
}

func (f *fakeResults) ListByKeys(keys []string) ([]model.MonthlyResult, error) {
	var out []model.MonthlyResult
	for _, k := range keys {
		if r, ok := f.byKey[k]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePeople struct {
	byID map[uuid.UUID]model.Person
}

func newFakePeople(people ...model.Person) *fakePeople {
	f := &fakePeople{byID: make(map[uuid.UUID]model.Person)}
	for _, p := range people {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePeople) GetByID(id uuid.UUID) (*model.Person, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// --- Helpers ---

func newTestService(now time.Time) (*Service, *fakeLedger, *fakeResults, *fakePeople) {
	ledger := &fakeLedger{}
	results := newFakeResults()
	people := newFakePeople()
	svc := New(ledger, results, people)
	svc.now = func() time.Time { return now }
	return svc, ledger, results, people
}

func mustMark(t *testing.T, svc *Service, chore model.Chore, person model.Person, at time.Time) *model.Completion {
	t.Helper()
	c, err := svc.MarkDone(chore, person, at)
	if err != nil {
		t.Fatalf("mark done: %v", err)
	}
	return c
}

// --- Tests ---

func TestMarkDoneSnapshotsChoreState(t *testing.T) {
	now := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	svc, ledger, _, _ := newTestService(now)

	chore := model.Chore{ID: uuid.New(), Title: "Dishes", Points: 5, Active: true}
	person := model.Person{ID: uuid.New(), Name: "Amit"}

	done := mustMark(t, svc, chore, person, time.Time{})
	if done.ChoreTitleSnapshot != "Dishes" || done.PointsSnapshot != 5 {
		t.Fatalf("snapshot = (%q, %d), want (Dishes, 5)", done.ChoreTitleSnapshot, done.PointsSnapshot)
	}
	if !done.CompletedAt.Equal(now) {
		t.Errorf("completed at = %v, want injected now %v", done.CompletedAt, now)
	}

	// Edit the chore afterwards; the stored completion must keep the
	// original title and points.
	chore.Title = "Dishes and counters"
	chore.Points = 9

	stored := ledger.get(done.ID)
	if stored == nil {
		t.Fatal("completion not in ledger")
	}
	if stored.ChoreTitleSnapshot != "Dishes" || stored.PointsSnapshot != 5 {
		t.Errorf("stored snapshot = (%q, %d), want (Dishes, 5)", stored.ChoreTitleSnapshot, stored.PointsSnapshot)
	}
}

func TestTotalsGroupsByPersonWithinMonth(t *testing.T) {
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestService(now)

	dishes := model.Chore{ID: uuid.New(), Title: "Dishes", Points: 5}
	laundry := model.Chore{ID: uuid.New(), Title: "Laundry", Points: 8}
	amit := model.Person{ID: uuid.New(), Name: "Amit"}
	gal := model.Person{ID: uuid.New(), Name: "Gal"}

	mustMark(t, svc, dishes, amit, time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC))
	mustMark(t, svc, laundry, amit, time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC))
	mustMark(t, svc, dishes, gal, time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC))
	// Outside the month: must not count.
	mustMark(t, svc, dishes, gal, time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC))

	totals, err := svc.Totals("2026-02")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals has %d people, want 2: %v", len(totals), totals)
	}
	if totals[amit.ID] != 13 {
		t.Errorf("amit total = %d, want 13", totals[amit.ID])
	}
	if totals[gal.ID] != 5 {
		t.Errorf("gal total = %d, want 5", totals[gal.ID])
	}
}

func TestTotalsBoundaryExact(t *testing.T) {
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestService(now)

	chore := model.Chore{ID: uuid.New(), Title: "Trash", Points: 4}
	amit := model.Person{ID: uuid.New(), Name: "Amit"}

	// Exactly at start of February: included.
	mustMark(t, svc, chore, amit, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	// Exactly at start of March (the half-open end): excluded.
	mustMark(t, svc, chore, amit, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	totals, err := svc.Totals("2026-02")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals[amit.ID] != 4 {
		t.Errorf("total = %d, want 4 (start inclusive, end exclusive)", totals[amit.ID])
	}
}

func TestTotalsInvalidKey(t *testing.T) {
	svc, _, _, _ := newTestService(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.Totals("2026-13")
	if !errors.Is(err, monthkey.ErrInvalidKey) {
		t.Errorf("err = %v, want monthkey.ErrInvalidKey", err)
	}
}

func TestCloseMonthSpecScenario(t *testing.T) {
	// Person A completes a 5-point task on Feb 10 and Feb 11 2026.
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestService(now)

	chore := model.Chore{ID: uuid.New(), Title: "Dishes", Points: 5}
	a := model.Person{ID: uuid.New(), Name: "A"}
	mustMark(t, svc, chore, a, time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC))
	mustMark(t, svc, chore, a, time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC))

	totals, err := svc.Totals("2026-02")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals) != 1 || totals[a.ID] != 10 {
		t.Fatalf("totals = %v, want {A: 10}", totals)
	}

	result, err := svc.CloseMonth("2026-02")
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if len(result.WinnerIDs) != 1 || result.WinnerIDs[0] != a.ID {
		t.Errorf("winners = %v, want [A]", result.WinnerIDs)
	}
	if result.PointsByPerson[a.ID] != 10 {
		t.Errorf("points = %v, want {A: 10}", result.PointsByPerson)
	}
	if !result.ClosedAt.Equal(now) {
		t.Errorf("closed at = %v, want %v", result.ClosedAt, now)
	}

	_, err = svc.CloseMonth("2026-02")
	if !errors.Is(err, ErrMonthAlreadyClosed) {
		t.Errorf("second close err = %v, want ErrMonthAlreadyClosed", err)
	}
}

func TestCloseMonthIdempotentNoSecondRecord(t *testing.T) {
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	svc, _, results, _ := newTestService(now)

	if _, err := svc.CloseMonth("2026-02"); err != nil {
		t.Fatalf("first close: %v", err)
	}
	first := results.byKey["2026-02"]

	for i := 0; i < 3; i++ {
		if _, err := svc.CloseMonth("2026-02"); !errors.Is(err, ErrMonthAlreadyClosed) {
			t.Fatalf("close #%d err = %v, want ErrMonthAlreadyClosed", i+2, err)
		}
	}
	if len(results.byKey) != 1 {
		t.Errorf("%d results stored, want 1", len(results.byKey))
	}
	if !results.byKey["2026-02"].ClosedAt.Equal(first.ClosedAt) {
		t.Error("stored result changed after failed re-close")
	}
}

func TestCloseMonthLosingInsertRace(t *testing.T) {
	// Exists sees no record, but the insert reports nothing written: the
	// other writer's row must win and this call must surface the closed
	// error instead of succeeding.
	svc, _, results, _ := newTestService(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	results.denyInsert = true

	_, err := svc.CloseMonth("2026-02")
	if !errors.Is(err, ErrMonthAlreadyClosed) {
		t.Errorf("err = %v, want ErrMonthAlreadyClosed", err)
	}
}

func TestCloseMonthZeroPointsYieldsNoWinners(t *testing.T) {
	svc, _, _, _ := newTestService(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))

	result, err := svc.CloseMonth("2026-02")
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if len(result.WinnerIDs) != 0 {
		t.Errorf("winners = %v, want empty set for a month with no completions", result.WinnerIDs)
	}
	if result.WinnerIDs == nil {
		t.Error("winners is nil, want empty slice")
	}
}

func TestCloseMonthTieAwardsAllWinners(t *testing.T) {
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestService(now)

	chore := model.Chore{ID: uuid.New(), Title: "Vacuum", Points: 7}
	amit := model.Person{ID: uuid.New(), Name: "Amit"}
	gal := model.Person{ID: uuid.New(), Name: "Gal"}
	third := model.Person{ID: uuid.New(), Name: "Noa"}

	mustMark(t, svc, chore, amit, time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC))
	mustMark(t, svc, chore, gal, time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC))
	// Third person below the max: not a winner.
	mustMark(t, svc, model.Chore{ID: uuid.New(), Title: "Trash", Points: 4}, third, time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC))

	result, err := svc.CloseMonth("2026-02")
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if len(result.WinnerIDs) != 2 {
		t.Fatalf("winners = %v, want both tied people", result.WinnerIDs)
	}
	found := map[uuid.UUID]bool{}
	for _, id := range result.WinnerIDs {
		found[id] = true
	}
	if !found[amit.ID] || !found[gal.ID] {
		t.Errorf("winners = %v, want {%s, %s}", result.WinnerIDs, amit.ID, gal.ID)
	}
	if result.WinnerIDs[0].String() > result.WinnerIDs[1].String() {
		t.Error("winners not sorted by id")
	}
}

func TestCloseMonthInvalidKey(t *testing.T) {
	svc, _, results, _ := newTestService(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.CloseMonth("garbage")
	if !errors.Is(err, monthkey.ErrInvalidKey) {
		t.Errorf("err = %v, want monthkey.ErrInvalidKey", err)
	}
	if len(results.byKey) != 0 {
		t.Error("failed close left a record behind")
	}
}

func TestTodayTotalsUsesLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 2, 15, 1, 30, 0, 0, loc)
	svc, _, _, _ := newTestService(now)

	chore := model.Chore{ID: uuid.New(), Title: "Dishes", Points: 5}
	amit := model.Person{ID: uuid.New(), Name: "Amit"}

	// 23:30 the previous local day (but 21:30 UTC Feb 14): not today.
	mustMark(t, svc, chore, amit, time.Date(2026, 2, 14, 23, 30, 0, 0, loc))
	// 01:00 today local: counts.
	mustMark(t, svc, chore, amit, time.Date(2026, 2, 15, 1, 0, 0, 0, loc))

	totals, err := svc.TodayTotals()
	if err != nil {
		t.Fatalf("today totals: %v", err)
	}
	if totals[amit.ID] != 5 {
		t.Errorf("today total = %d, want 5 (local day boundary)", totals[amit.ID])
	}
}

func TestCurrentLeaderName(t *testing.T) {
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	svc, _, _, people := newTestService(now)

	amit := model.Person{ID: uuid.New(), Name: "Amit"}
	gal := model.Person{ID: uuid.New(), Name: "Gal"}
	people.byID[amit.ID] = amit
	people.byID[gal.ID] = gal

	// No completions yet: no leader.
	name, err := svc.CurrentLeaderName()
	if err != nil {
		t.Fatalf("leader: %v", err)
	}
	if name != "" {
		t.Errorf("leader = %q, want none for empty month", name)
	}

	dishes := model.Chore{ID: uuid.New(), Title: "Dishes", Points: 5}
	laundry := model.Chore{ID: uuid.New(), Title: "Laundry", Points: 8}
	mustMark(t, svc, dishes, amit, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	mustMark(t, svc, laundry, gal, time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC))

	name, err = svc.CurrentLeaderName()
	if err != nil {
		t.Fatalf("leader: %v", err)
	}
	if name != "Gal" {
		t.Errorf("leader = %q, want Gal (8 > 5)", name)
	}
}

func TestCurrentLeaderNameTieBreaksOnSmallestID(t *testing.T) {
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	svc, _, _, people := newTestService(now)

	a := model.Person{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "First"}
	b := model.Person{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Name: "Second"}
	people.byID[a.ID] = a
	people.byID[b.ID] = b

	chore := model.Chore{ID: uuid.New(), Title: "Vacuum", Points: 7}
	mustMark(t, svc, chore, b, time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC))
	mustMark(t, svc, chore, a, time.Date(2026, 2, 6, 9, 0, 0, 0, time.UTC))

	name, err := svc.CurrentLeaderName()
	if err != nil {
		t.Fatalf("leader: %v", err)
	}
	if name != "First" {
		t.Errorf("leader = %q, want First (lexicographically smallest id)", name)
	}
}

func TestCurrentLeaderNameUnknownPerson(t *testing.T) {
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestService(now)

	// Leader id not in the people directory: lookup yields nothing.
	ghost := model.Person{ID: uuid.New(), Name: "Ghost"}
	chore := model.Chore{ID: uuid.New(), Title: "Dishes", Points: 5}
	mustMark(t, svc, chore, ghost, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))

	name, err := svc.CurrentLeaderName()
	if err != nil {
		t.Fatalf("leader: %v", err)
	}
	if name != "" {
		t.Errorf("leader = %q, want none when person lookup fails", name)
	}
}

func TestWinsOverLastMonths(t *testing.T) {
	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	svc, _, results, _ := newTestService(now)

	amit := uuid.New()
	gal := uuid.New()

	results.byKey["2026-01"] = model.MonthlyResult{MonthKey: "2026-01", WinnerIDs: []uuid.UUID{amit}}
	results.byKey["2025-12"] = model.MonthlyResult{MonthKey: "2025-12", WinnerIDs: []uuid.UUID{amit, gal}} // tie: both count
	results.byKey["2025-11"] = model.MonthlyResult{MonthKey: "2025-11", WinnerIDs: []uuid.UUID{}}          // zero-point month
	results.byKey["2025-08"] = model.MonthlyResult{MonthKey: "2025-08", WinnerIDs: []uuid.UUID{gal}}       // outside 6-month window

	wins, err := svc.WinsOverLastMonths(DefaultWinsWindow)
	if err != nil {
		t.Fatalf("wins: %v", err)
	}
	if wins[amit] != 2 {
		t.Errorf("amit wins = %d, want 2", wins[amit])
	}
	if wins[gal] != 1 {
		t.Errorf("gal wins = %d, want 1 (2025-08 outside window)", wins[gal])
	}
}

func TestWinsOverLastMonthsEmptyWindow(t *testing.T) {
	svc, _, results, _ := newTestService(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	results.byKey["2026-01"] = model.MonthlyResult{MonthKey: "2026-01", WinnerIDs: []uuid.UUID{uuid.New()}}

	wins, err := svc.WinsOverLastMonths(0)
	if err != nil {
		t.Fatalf("wins: %v", err)
	}
	if len(wins) != 0 {
		t.Errorf("wins = %v, want empty for n <= 0", wins)
	}
}
