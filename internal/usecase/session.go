package usecase

import (
	"context"
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
)

// Call - what the host knows about the invocation besides its arguments.
type Call struct {
	// Identity - opaque and stable per participant.
	Identity string
	// Timestamp - microseconds since epoch, used when Clock is nil.
	Timestamp int64
	// Clock is read inside the write transaction, so stamps follow commit order.
	Clock func() int64
}

func (c Call) now() int64 {
	if c.Clock != nil {
		return c.Clock()
	}
	return c.Timestamp
}

type Session struct {
	store Store
}

func NewSession(store Store) *Session {
	return &Session{
		store: store,
	}
}

// Init creates the presentation state. The host runs it once per deployment.
func (s *Session) Init(ctx context.Context) error {
	return s.store.Update(ctx, func(tx Tx) error {
		if _, ok := tx.FindPresentation(); ok {
			return ErrAlreadyInitialized
		}
		if err := tx.InsertPresentation(domain.NewPresentationState()); err != nil {
			return fmt.Errorf("could not insert presentation state: %w", err)
		}
		return nil
	})
}

func (s *Session) JoinSession(ctx context.Context, call Call, sessionID string, role string) error {
	r, ok := domain.ParseRole(role)
	if !ok {
		return fmt.Errorf("%w: role must be 'user' or 'admin', got %q", ErrInvalidArgument, role)
	}
	if call.Identity == "" {
		return fmt.Errorf("%w: empty caller identity", ErrInvalidArgument)
	}

	return s.store.Update(ctx, func(tx Tx) error {
		user := domain.User{
			ID:          call.Identity,
			SessionID:   sessionID,
			Role:        r,
			ConnectedAt: call.now(),
		}
		if _, exists := tx.FindUser(user.ID); exists {
			if err := tx.UpdateUser(user); err != nil {
				return fmt.Errorf("could not update user: %w", err)
			}
		} else if err := tx.InsertUser(user); err != nil {
			return fmt.Errorf("could not insert user: %w", err)
		}

		if _, ok := tx.FindPresentation(); !ok {
			if err := tx.InsertPresentation(domain.NewPresentationState()); err != nil {
				return fmt.Errorf("could not insert presentation state: %w", err)
			}
		}
		return nil
	})
}

// ShowResults moves the presentation to results for the current poll.
func (s *Session) ShowResults(ctx context.Context, call Call) error {
	return s.store.Update(ctx, func(tx Tx) error {
		if _, err := requireRole(tx, call.Identity, domain.RoleAdmin); err != nil {
			return err
		}
		return changeStage(tx, domain.StageResults, nil)
	})
}

// EndSession moves the presentation to ended and closes every poll.
func (s *Session) EndSession(ctx context.Context, call Call) error {
	return s.store.Update(ctx, func(tx Tx) error {
		if _, err := requireRole(tx, call.Identity, domain.RoleAdmin); err != nil {
			return err
		}
		if err := changeStage(tx, domain.StageEnded, nil); err != nil {
			return err
		}
		return deactivatePolls(tx, 0)
	})
}

// changeStage applies the lifecycle rules to the singleton row. A non-nil
// pollID replaces current_poll_id.
func changeStage(tx Tx, next domain.Stage, pollID *uint64) error {
	st, ok := tx.FindPresentation()
	if !ok {
		return ErrPresentationNotFound
	}
	if st.Stage.Terminal() {
		if next != st.Stage {
			return ErrSessionEnded
		}
		// repeating the terminal stage changes nothing
		return nil
	}
	if !st.Stage.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, st.Stage, next)
	}
	st.Stage = next
	if pollID != nil {
		st.CurrentPollID = *pollID
	}
	if err := tx.UpdatePresentation(st); err != nil {
		return fmt.Errorf("could not update presentation state: %w", err)
	}
	return nil
}

// deactivatePolls clears is_active on every active poll except keep (0 keeps none).
func deactivatePolls(tx Tx, keep uint64) error {
	for _, p := range tx.ScanPolls() {
		if p.ID == keep || !p.IsActive {
			continue
		}
		p.IsActive = false
		if err := tx.UpdatePoll(p); err != nil {
			return fmt.Errorf("could not deactivate poll %d: %w", p.ID, err)
		}
	}
	return nil
}
