package ledger

import (
	"errors"
	"sync"
	"testing"
)

func TestSession_UpdateCreatesEntity(t *testing.T) {
	store, _ := newTestStore(t)
	sess, err := store.Open(background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close(background())

	e, err := sess.Update("  Acme Corp ", "Subcontractor", func(e *Entity) error {
		e.LifetimeTransactionCount++
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if e.Name != "Acme Corp" || e.TrustTerm != 100 || !e.FirstSeen.Equal(testNow) {
		t.Errorf("unexpected new entity: %+v", e)
	}

	got, ok := sess.Entity("ACME CORP")
	if !ok || got.LifetimeTransactionCount != 1 {
		t.Errorf("expected case-insensitive lookup to find the entity, got %+v", got)
	}
}

func TestSession_ZeroInitialTrust(t *testing.T) {
	base, _ := newTestStore(t)
	zero := 0.0
	store, err := NewStore(StoreConfig{Path: base.path, Keys: base.keys, Now: fixedClock, InitialTrust: &zero})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := store.Open(background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close(background())

	e, err := sess.Update("Newcomer", "Supplier", func(*Entity) error { return nil })
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if e.TrustTerm != 0 {
		t.Errorf("TrustTerm = %g, want 0", e.TrustTerm)
	}
}

func TestSession_FailedUpdateLeavesLedgerUnchanged(t *testing.T) {
	store, _ := newTestStore(t)
	sess, _ := store.Open(background())
	defer sess.Close(background())

	boom := errors.New("invalid input")
	_, err := sess.Update("Acme", "Supplier", func(e *Entity) error {
		e.CurrentScore = 12
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, ok := sess.Entity("Acme"); ok {
		t.Error("failed update must not create the entity")
	}
}

func TestSession_ReturnedEntityIsACopy(t *testing.T) {
	store, _ := newTestStore(t)
	sess, _ := store.Open(background())
	defer sess.Close(background())

	e, _ := sess.Update("Acme", "Supplier", func(e *Entity) error {
		e.History = append(e.History, TransactionRecord{ResultingScore: 80})
		return nil
	})
	e.History[0].ResultingScore = 0

	got, _ := sess.Entity("Acme")
	if got.History[0].ResultingScore != 80 {
		t.Error("mutating a returned entity changed the ledger")
	}
}

func TestSession_ConcurrentUpdatesLoseNothing(t *testing.T) {
	store, _ := newTestStore(t)
	sess, _ := store.Open(background())
	defer sess.Close(background())

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sess.Update("Acme", "Supplier", func(e *Entity) error {
				e.LifetimeTransactionCount++
				e.History = append(e.History, TransactionRecord{})
				return nil
			})
			if err != nil {
				t.Errorf("Update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	e, _ := sess.Entity("Acme")
	if e.LifetimeTransactionCount != n || len(e.History) != n {
		t.Errorf("expected %d updates, got count=%d history=%d", n, e.LifetimeTransactionCount, len(e.History))
	}
}

func TestSession_CloseReencryptsAndIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := background()

	sess, _ := store.Open(ctx)
	if _, err := sess.Update("Acme", "Supplier", func(e *Entity) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := sess.AppendLearn(LearnEvent{Entity: "Globex", List: "denylist", Action: LearnAdd, Reason: "r"}); err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sess.Close(ctx); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	if _, err := sess.Update("Acme", "Supplier", func(e *Entity) error { return nil }); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := sess.Flush(ctx); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed from Flush, got %v", err)
	}

	reopened, err := store.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close(ctx)
	if _, ok := reopened.Entity("acme"); !ok {
		t.Error("entity not persisted by Close")
	}
	if len(reopened.LearnEvents()) != 1 {
		t.Error("learn journal not persisted by Close")
	}
}

func TestSession_Entities(t *testing.T) {
	store, _ := newTestStore(t)
	sess, _ := store.Open(background())
	defer sess.Close(background())

	for _, name := range []string{"Initech", "acme", "Globex"} {
		if _, err := sess.Update(name, "Supplier", func(*Entity) error { return nil }); err != nil {
			t.Fatal(err)
		}
	}

	all := sess.Entities()
	if len(all) != 3 || all[0].Name != "acme" || all[2].Name != "Initech" {
		t.Errorf("expected entities sorted by name, got %v", []string{all[0].Name, all[1].Name, all[2].Name})
	}
}
