package transfer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ahochma/choreboard/internal/database"
	"github.com/ahochma/choreboard/internal/model"
	"github.com/ahochma/choreboard/internal/store"
	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, *store.PersonStore, *store.ChoreStore, *store.CompletionStore, *store.ResultStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	people := store.NewPersonStore(db)
	chores := store.NewChoreStore(db)
	completions := store.NewCompletionStore(db)
	results := store.NewResultStore(db)
	return New(people, chores, completions, results), people, chores, completions, results
}

func seedSample(t *testing.T, people *store.PersonStore, chores *store.ChoreStore, completions *store.CompletionStore, results *store.ResultStore) (personID, choreID uuid.UUID) {
	t.Helper()

	person, err := people.Create("Amit", nil, nil)
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	chore, err := chores.Create("Dishes", 5, nil)
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if _, err := completions.Insert(model.Completion{
		ChoreID:            chore.ID,
		ChoreTitleSnapshot: chore.Title,
		PointsSnapshot:     chore.Points,
		PersonID:           person.ID,
		CompletedAt:        time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("insert completion: %v", err)
	}
	if _, err := results.Insert(model.MonthlyResult{
		MonthKey:       "2026-01",
		WinnerIDs:      []uuid.UUID{person.ID},
		PointsByPerson: map[uuid.UUID]int{person.ID: 5},
		ClosedAt:       time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("insert result: %v", err)
	}
	return person.ID, chore.ID
}

func TestExportImportRoundTrip(t *testing.T) {
	src, people, chores, completions, results := newTestService(t)
	personID, _ := seedSample(t, people, chores, completions, results)

	data, err := src.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst, dstPeople, _, dstCompletions, dstResults := newTestService(t)
	report, err := dst.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.InsertedPeople != 1 || report.InsertedChores != 1 || report.InsertedCompletions != 1 || report.InsertedMonthlyResults != 1 {
		t.Errorf("report = %+v, want one of each", report)
	}

	p, err := dstPeople.GetByID(personID)
	if err != nil {
		t.Fatalf("get imported person: %v", err)
	}
	if p == nil || p.Name != "Amit" {
		t.Errorf("imported person = %+v, want Amit under the original id", p)
	}

	got, err := dstCompletions.List()
	if err != nil {
		t.Fatalf("list imported completions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("imported %d completions, want 1", len(got))
	}
	if got[0].PointsSnapshot != 5 || got[0].ChoreTitleSnapshot != "Dishes" {
		t.Errorf("snapshot = (%q, %d), want untouched (Dishes, 5)", got[0].ChoreTitleSnapshot, got[0].PointsSnapshot)
	}
	want := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	if !got[0].CompletedAt.Equal(want) {
		t.Errorf("completed at = %v, want %v", got[0].CompletedAt, want)
	}

	r, err := dstResults.GetByKey("2026-01")
	if err != nil {
		t.Fatalf("get imported result: %v", err)
	}
	if r == nil || len(r.WinnerIDs) != 1 || r.WinnerIDs[0] != personID {
		t.Errorf("imported result = %+v, want winner %s", r, personID)
	}
}

func TestImportTwiceIsNoOp(t *testing.T) {
	src, people, chores, completions, results := newTestService(t)
	seedSample(t, people, chores, completions, results)

	data, err := src.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst, _, _, dstCompletions, _ := newTestService(t)
	if _, err := dst.Import(data); err != nil {
		t.Fatalf("first import: %v", err)
	}

	report, err := dst.Import(data)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if report.InsertedPeople != 0 || report.InsertedChores != 0 || report.InsertedCompletions != 0 || report.InsertedMonthlyResults != 0 {
		t.Errorf("second import report = %+v, want all zeros", report)
	}

	got, err := dstCompletions.List()
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("stored %d completions after double import, want exactly 1", len(got))
	}
}

func TestImportDoesNotRecomputeSnapshots(t *testing.T) {
	// The payload's snapshot disagrees with the chore's current points; the
	// snapshot must win because it is opaque history, not derived data.
	dst, _, chores, dstCompletions, _ := newTestService(t)

	choreID := uuid.New()
	personID := uuid.New()
	payload := Payload{
		People: []PersonRecord{{ID: personID, Name: "Gal"}},
		Chores: []ChoreRecord{{ID: choreID, Title: "Dishes", Points: 50, IsActive: true}},
		Completions: []CompletionRecord{{
			ID:                 uuid.New(),
			ChoreID:            choreID,
			ChoreTitleSnapshot: "Dishes (old)",
			PointsSnapshot:     5,
			PersonID:           personID,
			CompletedAt:        time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC),
		}},
		MonthlyResults: []MonthlyResultRecord{},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	if _, err := dst.Import(data); err != nil {
		t.Fatalf("import: %v", err)
	}

	chore, err := chores.GetByID(choreID)
	if err != nil {
		t.Fatalf("get chore: %v", err)
	}
	if chore.Points != 50 {
		t.Errorf("chore points = %d, want 50", chore.Points)
	}

	got, err := dstCompletions.List()
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if got[0].PointsSnapshot != 5 || got[0].ChoreTitleSnapshot != "Dishes (old)" {
		t.Errorf("snapshot = (%q, %d), want the imported values", got[0].ChoreTitleSnapshot, got[0].PointsSnapshot)
	}
}

func TestImportSkipsExistingMonthKey(t *testing.T) {
	dst, _, _, _, results := newTestService(t)

	local := uuid.New()
	if _, err := results.Insert(model.MonthlyResult{
		MonthKey:       "2026-01",
		WinnerIDs:      []uuid.UUID{local},
		PointsByPerson: map[uuid.UUID]int{local: 7},
		ClosedAt:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("insert local result: %v", err)
	}

	foreign := uuid.New()
	payload := Payload{
		MonthlyResults: []MonthlyResultRecord{{
			MonthKey:       "2026-01",
			WinnerIDs:      []uuid.UUID{foreign},
			PointsByPerson: map[uuid.UUID]int{foreign: 99},
			ClosedAt:       time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		}},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	report, err := dst.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if report.InsertedMonthlyResults != 0 {
		t.Errorf("inserted %d results, want 0", report.InsertedMonthlyResults)
	}

	got, err := results.GetByKey("2026-01")
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if got.WinnerIDs[0] != local || got.PointsByPerson[local] != 7 {
		t.Errorf("result = %+v, want the local row untouched", got)
	}
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	dst, _, _, _, _ := newTestService(t)
	if _, err := dst.Import([]byte(`{"people": [`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestExportIsStable(t *testing.T) {
	src, people, chores, completions, results := newTestService(t)
	seedSample(t, people, chores, completions, results)

	first, err := src.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	second, err := src.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(first) != string(second) {
		t.Error("two exports of unchanged data differ")
	}
}
