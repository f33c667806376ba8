// Package seed installs the default household on first run.
package seed

import (
	"fmt"

	"github.com/ahochma/choreboard/internal/store"
)

var defaultChores = []struct {
	Title    string
	Points   int
	Category string
}{
	{"Dishes", 5, "Kitchen"},
	{"Laundry", 8, "Laundry"},
	{"Vacuum", 7, "Cleaning"},
	{"Trash", 4, "General"},
	{"Grocery run", 10, "Shopping"},
	{"Bathroom cleanup", 9, "Cleaning"},
}

var defaultPeople = []string{"Amit", "Gal"}

// IfNeeded inserts the default people and chores when no person exists yet.
// Any registered person marks the database as in use and seeding becomes a
// no-op, so imports and renames are never clobbered.
func IfNeeded(people *store.PersonStore, chores *store.ChoreStore) error {
	count, err := people.Count()
	if err != nil {
		return fmt.Errorf("count people: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range defaultPeople {
		if _, err := people.Create(name, nil, nil); err != nil {
			return fmt.Errorf("seed person %q: %w", name, err)
		}
	}

	for _, c := range defaultChores {
		category := c.Category
		if _, err := chores.Create(c.Title, c.Points, &category); err != nil {
			return fmt.Errorf("seed chore %q: %w", c.Title, err)
		}
	}

	return nil
}
