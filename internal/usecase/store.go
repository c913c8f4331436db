package usecase

import (
	"context"

	"github.com/Xausdorf/presentation-poll/internal/domain"
)

// ReadTx - consistent read-only view of the tables.
type ReadTx interface {
	FindUser(id string) (domain.User, bool)
	ScanUsers() []domain.User

	FindPoll(id uint64) (domain.Poll, bool)
	ScanPolls() []domain.Poll

	FindOption(pollID, optionID uint64) (domain.PollOption, bool)
	ScanOptions() []domain.PollOption

	FindVote(id uint64) (domain.Vote, bool)
	FindVoteByVoter(pollID uint64, userID string) (domain.Vote, bool)
	ScanVotes() []domain.Vote

	FindPresentation() (domain.PresentationState, bool)
	ScanPresentation() []domain.PresentationState
}

// Tx - read-write transaction. Inserts fail with ErrDuplicateKey, updates with ErrRowNotFound.
type Tx interface {
	ReadTx

	InsertUser(u domain.User) error
	UpdateUser(u domain.User) error

	InsertPoll(p domain.Poll) error
	UpdatePoll(p domain.Poll) error

	InsertOption(o domain.PollOption) error

	InsertVote(v domain.Vote) error
	UpdateVote(v domain.Vote) error

	InsertPresentation(st domain.PresentationState) error
	UpdatePresentation(st domain.PresentationState) error

	NextPollID() uint64
	NextOptionID(pollID uint64) uint64
	NextVoteID() uint64
}

// Store applies every Update as one all-or-nothing transaction, serialized with other updates.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx ReadTx) error) error
}
