package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
)

var errAbort = errors.New("abort")

func TestInsertDuplicateKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Update(ctx, func(tx usecase.Tx) error {
		return tx.InsertPoll(domain.NewPoll(1, "q", 0))
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	err = s.Update(ctx, func(tx usecase.Tx) error {
		return tx.InsertPoll(domain.NewPoll(1, "again", 0))
	})
	if !errors.Is(err, usecase.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if !usecase.IsInternal(err) {
		t.Error("duplicate key must be classified as internal")
	}
}

func TestUpdateMissingRow(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), func(tx usecase.Tx) error {
		return tx.UpdateUser(domain.User{ID: "nobody"})
	})
	if !errors.Is(err, usecase.ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Update(ctx, func(tx usecase.Tx) error {
		return tx.InsertPoll(domain.NewPoll(1, "kept", 0))
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := s.Update(ctx, func(tx usecase.Tx) error {
		p, _ := tx.FindPoll(1)
		p.IsActive = true
		if err := tx.UpdatePoll(p); err != nil {
			return err
		}
		if err := tx.InsertPoll(domain.NewPoll(2, "dropped", 0)); err != nil {
			return err
		}
		if got, _ := tx.FindPoll(1); !got.IsActive {
			t.Error("transaction must see its own writes")
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Polls) != 1 {
		t.Fatalf("expected 1 poll after rollback, got %d", len(snap.Polls))
	}
	if snap.Polls[0].IsActive {
		t.Error("update of a failed transaction survived")
	}
}

func TestScanKeepsInsertionOrder(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), func(tx usecase.Tx) error {
		for _, id := range []string{"c", "a", "b"} {
			if err := tx.InsertUser(domain.User{ID: id, Role: domain.RoleUser}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	users := s.Snapshot().Users
	want := []string{"c", "a", "b"}
	for i, u := range users {
		if u.ID != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, u.ID, want[i])
		}
	}
}

func TestCommitHookReceivesChangedRows(t *testing.T) {
	s := New()
	ctx := context.Background()

	var got []Changeset
	s.OnCommit(func(cs Changeset) { got = append(got, cs) })

	err := s.Update(ctx, func(tx usecase.Tx) error {
		if err := tx.InsertPoll(domain.NewPoll(1, "q", 0)); err != nil {
			return err
		}
		p, _ := tx.FindPoll(1)
		p.IsActive = true
		return tx.UpdatePoll(p)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	_ = s.Update(ctx, func(tx usecase.Tx) error { return errAbort })
	_ = s.Update(ctx, func(tx usecase.Tx) error { return nil })

	if len(got) != 1 {
		t.Fatalf("expected 1 changeset, got %d", len(got))
	}
	cs := got[0]
	if cs.TxID == "" {
		t.Error("changeset without tx id")
	}
	if len(cs.Rows.Polls) != 1 || !cs.Rows.Polls[0].IsActive {
		t.Errorf("expected final poll version, got %+v", cs.Rows.Polls)
	}
	if cs.Rows.Len() != 1 {
		t.Errorf("expected only the poll row, got %d rows", cs.Rows.Len())
	}
}

func TestAllocator(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), func(tx usecase.Tx) error {
		if id := tx.NextPollID(); id != 1 {
			t.Errorf("first poll id = %d, want 1", id)
		}
		for pollID := uint64(1); pollID <= 2; pollID++ {
			if err := tx.InsertPoll(domain.NewPoll(pollID, "q", 0)); err != nil {
				return err
			}
			for k := 0; k < 3; k++ {
				o := domain.PollOption{ID: tx.NextOptionID(pollID), PollID: pollID}
				if err := tx.InsertOption(o); err != nil {
					return err
				}
			}
		}
		if id := tx.NextPollID(); id != 3 {
			t.Errorf("next poll id = %d, want 3", id)
		}
		if id := tx.NextOptionID(2); id != 4 {
			t.Errorf("next option id of poll 2 = %d, want 4", id)
		}
		if id := tx.NextOptionID(3); id != 1 {
			t.Errorf("next option id of new poll = %d, want 1", id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestVoterIndex(t *testing.T) {
	s := New()
	ctx := context.Background()

	vote := domain.Vote{ID: 1, PollID: 1, UserID: "u", OptionID: 1}
	if err := s.Update(ctx, func(tx usecase.Tx) error { return tx.InsertVote(vote) }); err != nil {
		t.Fatalf("insert vote: %v", err)
	}

	err := s.Update(ctx, func(tx usecase.Tx) error {
		return tx.InsertVote(domain.Vote{ID: 2, PollID: 1, UserID: "u", OptionID: 2})
	})
	if !errors.Is(err, usecase.ErrDuplicateKey) {
		t.Fatalf("second vote row for the same voter: expected ErrDuplicateKey, got %v", err)
	}

	err = s.View(ctx, func(tx usecase.ReadTx) error {
		v, ok := tx.FindVoteByVoter(1, "u")
		if !ok || v.ID != 1 {
			t.Errorf("FindVoteByVoter = %+v, %v", v, ok)
		}
		if _, ok = tx.FindVoteByVoter(2, "u"); ok {
			t.Error("vote found on another poll")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSingletonPresentation(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), func(tx usecase.Tx) error {
		return tx.InsertPresentation(domain.PresentationState{ID: 1, Stage: domain.StageWaiting})
	})
	if !errors.Is(err, usecase.ErrDuplicateKey) {
		t.Fatalf("expected singleton violation, got %v", err)
	}
}

func TestRestore(t *testing.T) {
	tables := domain.Tables{
		Users:        []domain.User{{ID: "a", Role: domain.RoleAdmin}},
		Polls:        []domain.Poll{{ID: 1, Question: "q", IsActive: true}},
		Options:      []domain.PollOption{{ID: 1, PollID: 1, Text: "x"}, {ID: 2, PollID: 1, Text: "y"}},
		Votes:        []domain.Vote{{ID: 1, PollID: 1, UserID: "a", OptionID: 2}},
		Presentation: []domain.PresentationState{{ID: 0, CurrentPollID: 1, Stage: domain.StageVoting}},
	}

	s := New()
	hooked := false
	s.OnCommit(func(Changeset) { hooked = true })

	if err := s.Restore(tables); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if hooked {
		t.Error("restore must not fire commit hooks")
	}
	if got := s.Snapshot().Len(); got != tables.Len() {
		t.Errorf("restored %d rows, want %d", got, tables.Len())
	}
	if err := s.Restore(tables); !errors.Is(err, ErrNotEmpty) {
		t.Errorf("second restore: expected ErrNotEmpty, got %v", err)
	}

	err := s.Update(context.Background(), func(tx usecase.Tx) error {
		if id := tx.NextVoteID(); id != 2 {
			t.Errorf("next vote id after restore = %d, want 2", id)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(usecase.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("expected canceled without running fn, got %v (called=%v)", err, called)
	}
}

// TestConcurrentAllocation verifies that count-based ids stay unique when
// many goroutines insert at once.
func TestConcurrentAllocation(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, func(tx usecase.Tx) error {
				return tx.InsertPoll(domain.NewPoll(tx.NextPollID(), "q", 0))
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent insert failed: %v", err)
		}
	}

	polls := s.Snapshot().Polls
	if len(polls) != workers {
		t.Fatalf("expected %d polls, got %d", workers, len(polls))
	}
	seen := make(map[uint64]bool)
	for _, p := range polls {
		if seen[p.ID] {
			t.Errorf("duplicate poll id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestRestoreWithGapsKeepsAllocating(t *testing.T) {
	s := New()
	err := s.Restore(domain.Tables{
		Users:   []domain.User{{ID: "admin", Role: domain.RoleAdmin}},
		Polls:   []domain.Poll{domain.NewPoll(1, "one", 0), domain.NewPoll(3, "three", 0)},
		Options: []domain.PollOption{{ID: 1, PollID: 1}, {ID: 3, PollID: 1}},
		Votes: []domain.Vote{
			{ID: 1, PollID: 1, UserID: "a", OptionID: 1},
			{ID: 3, PollID: 1, UserID: "b", OptionID: 3},
		},
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	err = s.Update(context.Background(), func(tx usecase.Tx) error {
		if id := tx.NextPollID(); id != 4 {
			t.Errorf("next poll id = %d, want 4", id)
		}
		if id := tx.NextVoteID(); id != 4 {
			t.Errorf("next vote id = %d, want 4", id)
		}
		if id := tx.NextOptionID(1); id != 4 {
			t.Errorf("next option id of poll 1 = %d, want 4", id)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	session := usecase.NewSession(s)
	call := usecase.Call{Identity: "admin", Timestamp: 1}
	for want := uint64(4); want <= 6; want++ {
		id, err := session.CreatePoll(context.Background(), call, "q", []string{"x", "y"})
		if err != nil {
			t.Fatalf("create poll after gapped restore: %v", err)
		}
		if id != want {
			t.Errorf("poll id = %d, want %d", id, want)
		}
	}
}

func TestFailedUpdateDoesNotAdvanceIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Update(ctx, func(tx usecase.Tx) error {
		if err := tx.InsertPoll(domain.NewPoll(tx.NextPollID(), "q", 0)); err != nil {
			return err
		}
		if err := tx.InsertOption(domain.PollOption{ID: tx.NextOptionID(1), PollID: 1}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("expected errAbort, got %v", err)
	}

	err = s.Update(ctx, func(tx usecase.Tx) error {
		if id := tx.NextPollID(); id != 1 {
			t.Errorf("next poll id after rollback = %d, want 1", id)
		}
		if id := tx.NextOptionID(1); id != 1 {
			t.Errorf("next option id after rollback = %d, want 1", id)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
