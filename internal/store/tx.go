package store

import (
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
)

var (
	_ usecase.Tx     = (*tx)(nil)
	_ usecase.ReadTx = view{}
)

type state struct {
	users        *table[string, domain.User]
	polls        *table[uint64, domain.Poll]
	options      *table[domain.OptionKey, domain.PollOption]
	votes        *table[uint64, domain.Vote]
	voters       *table[domain.VoterKey, uint64]
	presentation *table[uint8, domain.PresentationState]
	seq          sequences
}

func newState() state {
	return state{
		users:        newTable[string, domain.User](),
		polls:        newTable[uint64, domain.Poll](),
		options:      newTable[domain.OptionKey, domain.PollOption](),
		votes:        newTable[uint64, domain.Vote](),
		voters:       newTable[domain.VoterKey, uint64](),
		presentation: newTable[uint8, domain.PresentationState](),
		seq:          newSequences(),
	}
}

func (st state) empty() bool {
	return st.users.len() == 0 && st.polls.len() == 0 && st.options.len() == 0 &&
		st.votes.len() == 0 && st.presentation.len() == 0
}

func (st state) tables() domain.Tables {
	return domain.Tables{
		Users:        st.users.scan(),
		Polls:        st.polls.scan(),
		Options:      st.options.scan(),
		Votes:        st.votes.scan(),
		Presentation: st.presentation.scan(),
	}
}

// view reads committed tables.
type view struct {
	st state
}

func (v view) FindUser(id string) (domain.User, bool) { return v.st.users.find(id) }
func (v view) ScanUsers() []domain.User { return v.st.users.scan() }
func (v view) FindPoll(id uint64) (domain.Poll, bool) { return v.st.polls.find(id) }
func (v view) ScanPolls() []domain.Poll { return v.st.polls.scan() }
func (v view) ScanOptions() []domain.PollOption { return v.st.options.scan() }
func (v view) FindVote(id uint64) (domain.Vote, bool) { return v.st.votes.find(id) }
func (v view) ScanVotes() []domain.Vote { return v.st.votes.scan() }

func (v view) FindOption(pollID, optionID uint64) (domain.PollOption, bool) {
	return v.st.options.find(domain.OptionKey{PollID: pollID, OptionID: optionID})
}

func (v view) FindVoteByVoter(pollID uint64, userID string) (domain.Vote, bool) {
	id, ok := v.st.voters.find(domain.VoterKey{PollID: pollID, UserID: userID})
	if !ok {
		return domain.Vote{}, false
	}
	return v.st.votes.find(id)
}

func (v view) FindPresentation() (domain.PresentationState, bool) {
	return v.st.presentation.find(domain.PresentationStateID)
}

func (v view) ScanPresentation() []domain.PresentationState {
	return v.st.presentation.scan()
}

// tx buffers writes on cloned tables until commit.
type tx struct {
	users        txTable[string, domain.User]
	polls        txTable[uint64, domain.Poll]
	options      txTable[domain.OptionKey, domain.PollOption]
	votes        txTable[uint64, domain.Vote]
	voters       txTable[domain.VoterKey, uint64]
	presentation txTable[uint8, domain.PresentationState]
	seq          txSequences
}

func begin(st state) *tx {
	return &tx{
		users:        txTable[string, domain.User]{t: st.users},
		polls:        txTable[uint64, domain.Poll]{t: st.polls},
		options:      txTable[domain.OptionKey, domain.PollOption]{t: st.options},
		votes:        txTable[uint64, domain.Vote]{t: st.votes},
		voters:       txTable[domain.VoterKey, uint64]{t: st.voters},
		presentation: txTable[uint8, domain.PresentationState]{t: st.presentation},
		seq:          txSequences{sequences: st.seq},
	}
}

func (t *tx) current() state {
	return state{
		users:        t.users.t,
		polls:        t.polls.t,
		options:      t.options.t,
		votes:        t.votes.t,
		voters:       t.voters.t,
		presentation: t.presentation.t,
		seq:          t.seq.sequences,
	}
}

func (t *tx) changes() domain.Tables {
	return domain.Tables{
		Users:        t.users.changed(),
		Polls:        t.polls.changed(),
		Options:      t.options.changed(),
		Votes:        t.votes.changed(),
		Presentation: t.presentation.changed(),
	}
}

func (t *tx) read() view { return view{st: t.current()} }

func (t *tx) FindUser(id string) (domain.User, bool) { return t.read().FindUser(id) }
func (t *tx) ScanUsers() []domain.User { return t.read().ScanUsers() }
func (t *tx) FindPoll(id uint64) (domain.Poll, bool) { return t.read().FindPoll(id) }
func (t *tx) ScanPolls() []domain.Poll { return t.read().ScanPolls() }
func (t *tx) ScanOptions() []domain.PollOption { return t.read().ScanOptions() }
func (t *tx) FindVote(id uint64) (domain.Vote, bool) { return t.read().FindVote(id) }
func (t *tx) ScanVotes() []domain.Vote { return t.read().ScanVotes() }

func (t *tx) FindOption(pollID, optionID uint64) (domain.PollOption, bool) {
	return t.read().FindOption(pollID, optionID)
}

func (t *tx) FindVoteByVoter(pollID uint64, userID string) (domain.Vote, bool) {
	return t.read().FindVoteByVoter(pollID, userID)
}

func (t *tx) FindPresentation() (domain.PresentationState, bool) {
	return t.read().FindPresentation()
}

func (t *tx) ScanPresentation() []domain.PresentationState {
	return t.read().ScanPresentation()
}

func (t *tx) InsertUser(u domain.User) error { return t.users.insert(u.ID, u) }
func (t *tx) UpdateUser(u domain.User) error { return t.users.update(u.ID, u) }
func (t *tx) UpdatePoll(p domain.Poll) error { return t.polls.update(p.ID, p) }

func (t *tx) InsertPoll(p domain.Poll) error {
	if err := t.polls.insert(p.ID, p); err != nil {
		return err
	}
	t.seq.seenPoll(p.ID)
	return nil
}

func (t *tx) InsertOption(o domain.PollOption) error {
	if err := t.options.insert(o.Key(), o); err != nil {
		return err
	}
	t.seq.seenOption(o.PollID, o.ID)
	return nil
}

func (t *tx) InsertVote(v domain.Vote) error {
	if _, ok := t.voters.t.find(v.VoterKey()); ok {
		return fmt.Errorf("%w: vote of %q on poll %d", usecase.ErrDuplicateKey, v.UserID, v.PollID)
	}
	if err := t.votes.insert(v.ID, v); err != nil {
		return err
	}
	if err := t.voters.insert(v.VoterKey(), v.ID); err != nil {
		return err
	}
	t.seq.seenVote(v.ID)
	return nil
}

func (t *tx) UpdateVote(v domain.Vote) error {
	old, ok := t.votes.t.find(v.ID)
	if !ok {
		return fmt.Errorf("%w: vote %d", usecase.ErrRowNotFound, v.ID)
	}
	if old.VoterKey() != v.VoterKey() {
		if _, taken := t.voters.t.find(v.VoterKey()); taken {
			return fmt.Errorf("%w: vote of %q on poll %d", usecase.ErrDuplicateKey, v.UserID, v.PollID)
		}
		t.voters.writable().remove(old.VoterKey())
		if err := t.voters.insert(v.VoterKey(), v.ID); err != nil {
			return err
		}
	}
	return t.votes.update(v.ID, v)
}

func (t *tx) InsertPresentation(st domain.PresentationState) error {
	if st.ID != domain.PresentationStateID {
		return fmt.Errorf("%w: presentation state is a singleton with id %d", usecase.ErrDuplicateKey, domain.PresentationStateID)
	}
	return t.presentation.insert(st.ID, st)
}

func (t *tx) UpdatePresentation(st domain.PresentationState) error {
	return t.presentation.update(st.ID, st)
}
