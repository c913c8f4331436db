package usecase

import (
	"context"
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
)

// CreatePoll stores an inactive poll with its options in input order and returns the poll id.
func (s *Session) CreatePoll(ctx context.Context, call Call, question string, options []string) (uint64, error) {
	var pollID uint64
	err := s.store.Update(ctx, func(tx Tx) error {
		if _, err := requireRole(tx, call.Identity, domain.RoleAdmin); err != nil {
			return err
		}

		poll := domain.NewPoll(tx.NextPollID(), question, call.now())
		if err := tx.InsertPoll(poll); err != nil {
			return fmt.Errorf("could not insert poll: %w", err)
		}
		for _, text := range options {
			option := domain.PollOption{
				ID:     tx.NextOptionID(poll.ID),
				PollID: poll.ID,
				Text:   text,
			}
			if err := tx.InsertOption(option); err != nil {
				return fmt.Errorf("could not insert option: %w", err)
			}
		}
		pollID = poll.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pollID, nil
}

// ActivatePoll makes pollID the only votable poll and moves the presentation to voting.
func (s *Session) ActivatePoll(ctx context.Context, call Call, pollID uint64) error {
	return s.store.Update(ctx, func(tx Tx) error {
		if _, err := requireRole(tx, call.Identity, domain.RoleAdmin); err != nil {
			return err
		}

		poll, ok := tx.FindPoll(pollID)
		if !ok {
			return ErrPollNotFound
		}
		if err := deactivatePolls(tx, pollID); err != nil {
			return err
		}
		if !poll.IsActive {
			poll.IsActive = true
			if err := tx.UpdatePoll(poll); err != nil {
				return fmt.Errorf("could not activate poll: %w", err)
			}
		}
		return changeStage(tx, domain.StageVoting, &pollID)
	})
}

// SubmitVote records the caller's choice. A repeated vote on the same poll
// replaces the previous choice instead of adding a row.
func (s *Session) SubmitVote(ctx context.Context, call Call, pollID uint64, optionID uint64) (domain.Vote, error) {
	var vote domain.Vote
	err := s.store.Update(ctx, func(tx Tx) error {
		user, err := requireUser(tx, call.Identity)
		if err != nil {
			return err
		}

		poll, ok := tx.FindPoll(pollID)
		if !ok {
			return ErrPollNotFound
		}
		if !poll.IsActive {
			return ErrPollInactive
		}
		if _, ok = tx.FindOption(pollID, optionID); !ok {
			return ErrOptionNotFound
		}

		if existing, found := tx.FindVoteByVoter(pollID, user.ID); found {
			existing.OptionID = optionID
			existing.VotedAt = call.now()
			if err = tx.UpdateVote(existing); err != nil {
				return fmt.Errorf("could not update vote: %w", err)
			}
			vote = existing
			return nil
		}

		vote = domain.Vote{
			ID:       tx.NextVoteID(),
			PollID:   pollID,
			UserID:   user.ID,
			OptionID: optionID,
			VotedAt:  call.now(),
		}
		if err = tx.InsertVote(vote); err != nil {
			return fmt.Errorf("could not insert vote: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Vote{}, err
	}
	return vote, nil
}
