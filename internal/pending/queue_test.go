package pending

import (
	"testing"

	"kbadmin/internal/upstream"
)

func TestAddUpdateLastWriteWins(t *testing.T) {
	q := NewQueue()
	q.AddUpdate(upstream.Item{ID: 4, Name: "first"})
	q.AddUpdate(upstream.Item{ID: 4, Name: "second"})

	_, updates, _ := q.Snapshot()
	if len(updates) != 1 {
		t.Fatalf("expected exactly one queued update, got %d", len(updates))
	}
	if updates[0].Name != "second" {
		t.Fatalf("expected second write to win, got %q", updates[0].Name)
	}
}

func TestAddUpdatePreservesOtherIDs(t *testing.T) {
	q := NewQueue()
	q.AddUpdate(upstream.Item{ID: 1, Name: "a"})
	q.AddUpdate(upstream.Item{ID: 2, Name: "b"})
	q.AddUpdate(upstream.Item{ID: 1, Name: "a2"})

	_, updates, _ := q.Snapshot()
	if len(updates) != 2 {
		t.Fatalf("expected two queued updates, got %d", len(updates))
	}
}

func TestDeletionWinsOverUpdate(t *testing.T) {
	q := NewQueue()
	q.AddUpdate(upstream.Item{ID: 9, Name: "stale"})
	q.AddDeletion(9)

	_, updates, deletions := q.Snapshot()
	if len(updates) != 0 {
		t.Fatalf("expected update for id 9 to be dropped, got %d updates", len(updates))
	}
	if len(deletions) != 1 || deletions[0] != 9 {
		t.Fatalf("expected deletion for id 9, got %v", deletions)
	}
}

func TestAddDeletionIsSetLike(t *testing.T) {
	q := NewQueue()
	q.AddDeletion(3)
	q.AddDeletion(3)

	_, _, deletions := q.Snapshot()
	if len(deletions) != 1 {
		t.Fatalf("expected one deletion, got %v", deletions)
	}
}

func TestHasPending(t *testing.T) {
	q := NewQueue()
	if q.HasPending() {
		t.Fatal("fresh queue must report no pending changes")
	}

	q.AddCreation(upstream.Item{Name: "new"})
	if !q.HasPending() {
		t.Fatal("queue with a creation must report pending changes")
	}

	q.Clear()
	if q.HasPending() {
		t.Fatal("cleared queue must report no pending changes")
	}

	q.AddDeletion(1)
	if !q.HasPending() {
		t.Fatal("queue with a deletion must report pending changes")
	}
	q.RemoveDeletion(1)
	if q.HasPending() {
		t.Fatal("queue must be empty after removing its only deletion")
	}
}

func TestRemoveCreation(t *testing.T) {
	q := NewQueue()
	q.AddCreation(upstream.Item{Name: "a"})
	q.AddCreation(upstream.Item{Name: "b"})

	if err := q.RemoveCreation(5); err != ErrIndexOutOfRange {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := q.RemoveCreation(0); err != nil {
		t.Fatalf("RemoveCreation: %v", err)
	}

	creations, _, _ := q.Snapshot()
	if len(creations) != 1 || creations[0].Name != "b" {
		t.Fatalf("expected only %q to remain, got %v", "b", creations)
	}
}

func TestAddCreationStripsID(t *testing.T) {
	q := NewQueue()
	q.AddCreation(upstream.Item{ID: 77, Name: "copied"})

	creations, _, _ := q.Snapshot()
	if creations[0].ID != 0 {
		t.Fatalf("creations must not carry ids, got %d", creations[0].ID)
	}
}

func TestCounts(t *testing.T) {
	q := NewQueue()
	q.AddCreation(upstream.Item{Name: "a"})
	q.AddCreation(upstream.Item{Name: "b"})
	q.AddUpdate(upstream.Item{ID: 1})
	q.AddDeletion(2)

	got := q.PendingCounts()
	want := Counts{Creations: 2, Updates: 1, Deletions: 1}
	if got != want {
		t.Fatalf("PendingCounts() = %+v, want %+v", got, want)
	}
	if got.Total() != 4 {
		t.Fatalf("Total() = %d, want 4", got.Total())
	}
}

func TestRegistryIsolatesSessions(t *testing.T) {
	r := NewRegistry()
	r.Queue("alice").AddDeletion(1)

	if r.Queue("bob").HasPending() {
		t.Fatal("sessions must not share queues")
	}
	if !r.Queue("alice").HasPending() {
		t.Fatal("expected alice's queue to persist between lookups")
	}

	r.Release("alice")
	if r.Queue("alice").HasPending() {
		t.Fatal("released session must start with a fresh queue")
	}
}
