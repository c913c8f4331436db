package store

import "maps"

// sequences hold the highest id stored per table. They advance on insert and
// are committed or dropped with the transaction. Without gaps this equals the
// row count, so ids are count + 1; a restored table with gaps still never
// gets an id handed out twice.
type sequences struct {
	poll uint64
	vote uint64
	// options - highest option id per poll id.
	options map[uint64]uint64
}

func newSequences() sequences {
	return sequences{options: make(map[uint64]uint64)}
}

// txSequences clones the committed option map on the first write.
type txSequences struct {
	sequences
	owned bool
}

func (s *txSequences) seenPoll(id uint64) { s.poll = max(s.poll, id) }
func (s *txSequences) seenVote(id uint64) { s.vote = max(s.vote, id) }

func (s *txSequences) seenOption(pollID, optionID uint64) {
	if optionID <= s.options[pollID] {
		return
	}
	if !s.owned {
		s.options = maps.Clone(s.options)
		s.owned = true
	}
	s.options[pollID] = optionID
}

func (t *tx) NextPollID() uint64 {
	return t.seq.poll + 1
}

func (t *tx) NextVoteID() uint64 {
	return t.seq.vote + 1
}

// NextOptionID is scoped to one poll: options of every poll are numbered from 1.
func (t *tx) NextOptionID(pollID uint64) uint64 {
	return t.seq.options[pollID] + 1
}
