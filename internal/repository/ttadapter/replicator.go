package ttadapter

import (
	"context"
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/store"
	"github.com/tarantool/go-tarantool/v2"
)

const (
	userSpace         = "users"
	pollSpace         = "polls"
	optionSpace       = "poll_options"
	voteSpace         = "votes"
	presentationSpace = "presentation_state"
)

type doer interface {
	Do(req tarantool.Request) *tarantool.Future
}

// Replicator mirrors committed rows into tarantool spaces.
// Every row is written with replace, so replaying a changeset is harmless.
type Replicator struct {
	conn doer
}

func NewReplicator(conn *tarantool.Connection) *Replicator {
	return &Replicator{
		conn: conn,
	}
}

func (r *Replicator) Name() string { return "tarantool" }

func (r *Replicator) Apply(ctx context.Context, cs store.Changeset) error {
	for _, req := range requests(ctx, cs) {
		if _, err := r.conn.Do(req).Get(); err != nil {
			return fmt.Errorf("could not replace in tarantool (tx %s): %w", cs.TxID, err)
		}
	}
	return nil
}

func requests(ctx context.Context, cs store.Changeset) []tarantool.Request {
	reqs := make([]tarantool.Request, 0, cs.Rows.Len())
	replace := func(space string, tuple interface{}) {
		reqs = append(reqs, tarantool.NewReplaceRequest(space).
			Context(ctx).
			Tuple(tuple))
	}

	for _, u := range cs.Rows.Users {
		replace(userSpace, NewUserModel(u))
	}
	for _, p := range cs.Rows.Polls {
		replace(pollSpace, NewPollModel(p))
	}
	for _, o := range cs.Rows.Options {
		replace(optionSpace, NewOptionModel(o))
	}
	for _, v := range cs.Rows.Votes {
		replace(voteSpace, NewVoteModel(v))
	}
	for _, st := range cs.Rows.Presentation {
		replace(presentationSpace, NewPresentationModel(st))
	}
	return reqs
}
