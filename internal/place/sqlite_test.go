package place

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "places.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	created, err := store.Create(ctx, asuPoly())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if *created != *asuPoly() {
		t.Fatalf("Create() = %+v; want %+v", *created, *asuPoly())
	}

	got, err := store.Get(ctx, "ASU-Poly")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got != *asuPoly() {
		t.Fatalf("Get() = %+v; want %+v", *got, *asuPoly())
	}
}

func TestSQLiteStore_DuplicateName(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	if _, err := store.Create(ctx, asuPoly()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, asuPoly()); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Create() error = %v; want ErrAlreadyExists", err)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	if _, err := store.Get(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v; want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, "nowhere", asuPoly()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v; want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v; want ErrNotFound", err)
	}
}

func TestSQLiteStore_UpdateRenames(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	if _, err := store.Create(ctx, asuPoly()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	renamed := asuPoly()
	renamed.Name = "ASU-Polytechnic"
	renamed.Elevation = 1400.5
	renamed.Latitude = -12.25

	updated, err := store.Update(ctx, "ASU-Poly", renamed)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if *updated != *renamed {
		t.Fatalf("Update() = %+v; want %+v", *updated, *renamed)
	}
	if _, err := store.Get(ctx, "ASU-Poly"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(old name) error = %v; want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	places, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(places) != 0 {
		t.Fatalf("List() on empty store = %d places; want 0", len(places))
	}

	for _, name := range []string{"Tempe", "Mesa", "Phoenix"} {
		p := asuPoly()
		p.Name = name
		if _, err := store.Create(ctx, p); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}

	if err := store.Delete(ctx, "Phoenix"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	places, err = store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(places) != 2 || places[0].Name != "Mesa" || places[1].Name != "Tempe" {
		t.Fatalf("List() = %+v; want Mesa, Tempe", places)
	}
}

func TestSQLiteStore_EmptyAddressTitle(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	p := asuPoly()
	p.SetAddressTitle("")
	if _, err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, p.Name)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *got != *p || got.Validate() != nil {
		t.Fatalf("Get() = %+v; want %+v with a present empty title", *got, *p)
	}
}

func TestSQLiteStore_OtherConstraintIsNotDuplicate(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t)

	// description is NOT NULL
	_, err := store.db.ExecContext(ctx, `INSERT INTO place (id, name) VALUES ('id-1', 'Tempe')`)
	if err == nil {
		t.Fatal("insert without description succeeded; want a NOT NULL failure")
	}
	if got := sqliteError(err, "Tempe"); errors.Is(got, ErrAlreadyExists) {
		t.Fatalf("sqliteError(%v) = %v; want it not to be ErrAlreadyExists", err, got)
	}
}
