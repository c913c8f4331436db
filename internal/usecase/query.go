package usecase

import (
	"context"

	"github.com/Xausdorf/presentation-poll/internal/domain"
)

func (s *Session) Presentation(ctx context.Context) (domain.PresentationState, error) {
	var st domain.PresentationState
	err := s.store.View(ctx, func(tx ReadTx) error {
		var ok bool
		if st, ok = tx.FindPresentation(); !ok {
			return ErrPresentationNotFound
		}
		return nil
	})
	return st, err
}

// Results counts votes per option of pollID.
func (s *Session) Results(ctx context.Context, pollID uint64) (domain.PollResults, error) {
	var res domain.PollResults
	err := s.store.View(ctx, func(tx ReadTx) error {
		poll, ok := tx.FindPoll(pollID)
		if !ok {
			return ErrPollNotFound
		}
		res.Poll = poll

		index := make(map[uint64]int)
		for _, o := range tx.ScanOptions() {
			if o.PollID != pollID {
				continue
			}
			index[o.ID] = len(res.Options)
			res.Options = append(res.Options, domain.OptionTally{OptionID: o.ID, Text: o.Text})
		}
		for _, v := range tx.ScanVotes() {
			if v.PollID != pollID {
				continue
			}
			if i, ok := index[v.OptionID]; ok {
				res.Options[i].Votes++
				res.Total++
			}
		}
		return nil
	})
	if err != nil {
		return domain.PollResults{}, err
	}
	return res, nil
}

// Tables returns every public table as of one consistent moment.
func (s *Session) Tables(ctx context.Context) (domain.Tables, error) {
	var t domain.Tables
	err := s.store.View(ctx, func(tx ReadTx) error {
		t = domain.Tables{
			Users:        tx.ScanUsers(),
			Polls:        tx.ScanPolls(),
			Options:      tx.ScanOptions(),
			Votes:        tx.ScanVotes(),
			Presentation: tx.ScanPresentation(),
		}
		return nil
	})
	return t, err
}
