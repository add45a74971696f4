package registry

import (
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveUpsert(t *testing.T) {
	store := testStore(t)

	e := Entry{
		ProfileID:   1,
		OperationID: "getBanks",
		ReplicaID:   1,
		URLPath:     "/banks",
		Method:      "get",
		JSONBody:    `{"a":1}`,
		Order:       100,
	}
	if err := store.Save(e); err != nil {
		t.Fatal(err)
	}

	e.JSONBody = `{"a":2}`
	e.Order = 50
	if err := store.Save(e); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(entries))
	}
	if entries[0].JSONBody != `{"a":2}` {
		t.Fatalf("JSONBody = %q, want latest", entries[0].JSONBody)
	}
	if entries[0].Order != 50 {
		t.Fatalf("Order = %d, want 50", entries[0].Order)
	}
}

func TestListMostRecentlySavedFirst(t *testing.T) {
	store := testStore(t)

	now := time.Now()
	store.Save(Entry{ProfileID: 1, OperationID: "a", ReplicaID: 1, Method: "get", SavedAt: now.Add(-2 * time.Hour)})
	store.Save(Entry{ProfileID: 1, OperationID: "b", ReplicaID: 1, Method: "get", SavedAt: now.Add(-1 * time.Hour)})
	store.Save(Entry{ProfileID: 1, OperationID: "c", ReplicaID: 1, Method: "get", SavedAt: now})

	entries, err := store.List(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].OperationID != "c" || entries[2].OperationID != "a" {
		t.Fatalf("order = %s, %s, %s", entries[0].OperationID, entries[1].OperationID, entries[2].OperationID)
	}
}

func TestListScopedToProfile(t *testing.T) {
	store := testStore(t)

	store.Save(Entry{ProfileID: 1, OperationID: "a", ReplicaID: 1, Method: "get"})
	store.Save(Entry{ProfileID: 2, OperationID: "a", ReplicaID: 1, Method: "get"})

	entries, err := store.List(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ProfileID != 1 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestSoftDeleteKeepsRow(t *testing.T) {
	store := testStore(t)

	store.Save(Entry{ProfileID: 1, OperationID: "a", ReplicaID: 1, Method: "get"})
	if err := store.SoftDelete(1, "a", 1); err != nil {
		t.Fatal(err)
	}

	entries, err := store.List(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("soft-deleted row still listed: %+v", entries)
	}

	// The row stays in storage.
	e, err := store.Get(1, "a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !e.IsDeleted {
		t.Fatal("IsDeleted = false")
	}
}

func TestSoftDeleteMissingRow(t *testing.T) {
	store := testStore(t)
	if err := store.SoftDelete(1, "nope", 1); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMaxReplicaIncludesDeleted(t *testing.T) {
	store := testStore(t)

	store.Save(Entry{ProfileID: 1, OperationID: "a", ReplicaID: 1, Method: "get"})
	store.Save(Entry{ProfileID: 1, OperationID: "a", ReplicaID: 2, Method: "get"})
	store.Save(Entry{ProfileID: 1, OperationID: "a", ReplicaID: 3, Method: "get"})
	store.SoftDelete(1, "a", 3)

	max, err := store.MaxReplica(1, "a")
	if err != nil {
		t.Fatal(err)
	}
	if max != 3 {
		t.Fatalf("MaxReplica = %d, want 3 (deleted rows count)", max)
	}

	max, err = store.MaxReplica(1, "unknown")
	if err != nil {
		t.Fatal(err)
	}
	if max != 0 {
		t.Fatalf("MaxReplica = %d, want 0 for unseen operation", max)
	}
}
