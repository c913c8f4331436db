package ttadapter

import (
	"context"
	"fmt"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/tarantool/go-tarantool/v2"
)

// spaceReader selects every tuple of a space into res.
type spaceReader interface {
	selectAll(ctx context.Context, space string, res interface{}) error
}

type connReader struct {
	conn doer
}

func (r connReader) selectAll(ctx context.Context, space string, res interface{}) error {
	if err := r.conn.Do(
		tarantool.NewSelectRequest(space).
			Context(ctx).
			Index("primary").
			Iterator(tarantool.IterAll),
	).GetTyped(res); err != nil {
		return fmt.Errorf("could not select typed %s in tarantool: %w", space, err)
	}
	return nil
}

// Loader reads back everything the Replicator wrote, for store.Restore.
type Loader struct {
	reader spaceReader
}

func NewLoader(conn *tarantool.Connection) *Loader {
	return &Loader{
		reader: connReader{conn: conn},
	}
}

func (l *Loader) Load(ctx context.Context) (domain.Tables, error) {
	var (
		tables        domain.Tables
		users         []UserModel
		polls         []PollModel
		options       []OptionModel
		votes         []VoteModel
		presentations []PresentationModel
	)

	if err := l.reader.selectAll(ctx, userSpace, &users); err != nil {
		return tables, err
	}
	if err := l.reader.selectAll(ctx, pollSpace, &polls); err != nil {
		return tables, err
	}
	if err := l.reader.selectAll(ctx, optionSpace, &options); err != nil {
		return tables, err
	}
	if err := l.reader.selectAll(ctx, voteSpace, &votes); err != nil {
		return tables, err
	}
	if err := l.reader.selectAll(ctx, presentationSpace, &presentations); err != nil {
		return tables, err
	}

	for i := range users {
		u, err := users[i].ToUser()
		if err != nil {
			return domain.Tables{}, err
		}
		tables.Users = append(tables.Users, u)
	}
	for i := range polls {
		tables.Polls = append(tables.Polls, polls[i].ToPoll())
	}
	for i := range options {
		tables.Options = append(tables.Options, options[i].ToOption())
	}
	for i := range votes {
		tables.Votes = append(tables.Votes, votes[i].ToVote())
	}
	for i := range presentations {
		st, err := presentations[i].ToPresentation()
		if err != nil {
			return domain.Tables{}, err
		}
		tables.Presentation = append(tables.Presentation, st)
	}
	return tables, nil
}
