// Package store keeps the session tables in memory and applies every update
// as one serialized, all-or-nothing transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
	"github.com/google/uuid"
)

var _ usecase.Store = (*Store)(nil)

var ErrNotEmpty = errors.New("store is not empty")

// Changeset - final version of every row written by one committed transaction.
type Changeset struct {
	TxID string
	Rows domain.Tables
}

// CommitHook is called under the write lock, in commit order. It must not block.
type CommitHook func(cs Changeset)

type Store struct {
	mu    sync.RWMutex
	state state
	hooks []CommitHook
}

func New() *Store {
	return &Store{
		state: newState(),
	}
}

// OnCommit registers a hook for every later non-empty commit.
func (s *Store) OnCommit(hook CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// Update runs fn in a write transaction. If fn fails, none of its writes survive.
func (s *Store) Update(ctx context.Context, fn func(tx usecase.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := begin(s.state)
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.current()

	cs := Changeset{Rows: tx.changes()}
	if cs.Rows.Len() == 0 {
		return nil
	}
	cs.TxID = uuid.NewString()
	for _, hook := range s.hooks {
		hook(cs)
	}
	return nil
}

// View runs fn against the committed tables.
func (s *Store) View(ctx context.Context, fn func(tx usecase.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()

	return fn(view{st: st})
}

// Snapshot returns every table as of one moment.
func (s *Store) Snapshot() domain.Tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.tables()
}

// Restore loads previously replicated rows into an empty store. Hooks are not called.
func (s *Store) Restore(tables domain.Tables) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.empty() {
		return ErrNotEmpty
	}

	tx := begin(s.state)
	for _, u := range tables.Users {
		if err := tx.InsertUser(u); err != nil {
			return fmt.Errorf("could not restore user: %w", err)
		}
	}
	for _, p := range tables.Polls {
		if err := tx.InsertPoll(p); err != nil {
			return fmt.Errorf("could not restore poll: %w", err)
		}
	}
	for _, o := range tables.Options {
		if err := tx.InsertOption(o); err != nil {
			return fmt.Errorf("could not restore option: %w", err)
		}
	}
	for _, v := range tables.Votes {
		if err := tx.InsertVote(v); err != nil {
			return fmt.Errorf("could not restore vote: %w", err)
		}
	}
	for _, st := range tables.Presentation {
		if err := tx.InsertPresentation(st); err != nil {
			return fmt.Errorf("could not restore presentation state: %w", err)
		}
	}
	s.state = tx.current()
	return nil
}
