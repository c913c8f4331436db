package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Xausdorf/presentation-poll/internal/domain"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
)

const (
	joinArgsCount         = 2
	pollCreateMinArgs     = 2
	pollActivateArgsCount = 1
	voteArgsCount         = 2
)

const helpText = `Available commands:
	* /help - info about commands

	* /join [session] [user|admin] - joins the session with the given role. Joining again replaces the role.

	* /poll_create [question] "[option1]" "[option2]" ... - admin creates an inactive poll and gets its ID.
	IMPORTANT: options with spaces must be quoted.

	* /poll_activate [pollID] - admin opens the poll for voting.

	* /vote [pollID] [optionID] - registers your vote. Voting again changes it.

	* /poll_results - shows results of the current poll.

	* /show_results - admin switches the presentation to results.

	* /session_end - admin ends the session.

	* /session_state - shows the presentation stage and the current poll.`

// execute runs one command for identity. The second result is false for unknown commands.
func (b *PresentationBot) execute(ctx context.Context, identity string, tokens []string) (string, bool) {
	call := usecase.Call{Identity: identity, Clock: b.clock.NowMicro}
	args := tokens[1:]

	var (
		reply string
		err   error
	)
	switch tokens[0] {
	case "/join":
		reply, err = b.handleJoin(ctx, call, args)
	case "/poll_create":
		reply, err = b.handleCreate(ctx, call, args)
	case "/poll_activate":
		reply, err = b.handleActivate(ctx, call, args)
	case "/vote":
		reply, err = b.handleVote(ctx, call, args)
	case "/poll_results":
		reply, err = b.handleResults(ctx)
	case "/show_results":
		if err = b.session.ShowResults(ctx, call); err == nil {
			reply = "Presentation switched to results"
		}
	case "/session_end":
		if err = b.session.EndSession(ctx, call); err == nil {
			reply = "Session ended, all polls are closed"
		}
	case "/session_state":
		reply, err = b.handleState(ctx)
	case "/help":
		reply = helpText
	default:
		return "", false
	}

	log := b.logger.With("op", strings.TrimPrefix(tokens[0], "/"), "caller", identity)
	if err != nil {
		if usecase.IsInternal(err) {
			log.Error("operation failed", "error", err)
		} else {
			log.Info("operation rejected", "error", err)
		}
		return replyFor(err), true
	}
	log.Debug("operation done")
	return reply, true
}

// usageError is a malformed command; its text goes to the user as is.
type usageError string

func (e usageError) Error() string { return string(e) }

func replyFor(err error) string {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return usage.Error()
	case errors.Is(err, usecase.ErrInvalidArgument):
		return "Invalid argument: role must be user or admin"
	case errors.Is(err, usecase.ErrUserNotFound):
		return "You have not joined the session. Use /join [session] [user|admin]"
	case errors.Is(err, usecase.ErrForbidden):
		return "Only an admin can do this"
	case errors.Is(err, usecase.ErrPollNotFound):
		return "There is no poll with such ID. Try again"
	case errors.Is(err, usecase.ErrOptionNotFound):
		return "There is no option with such ID in this poll. Try again"
	case errors.Is(err, usecase.ErrPresentationNotFound):
		return "The session is not initialized yet"
	case errors.Is(err, usecase.ErrPollInactive):
		return "Poll is not active, you can not vote"
	case errors.Is(err, usecase.ErrSessionEnded):
		return "The session has ended"
	case errors.Is(err, usecase.ErrInvalidTransition):
		return "This is not possible at the current stage of the presentation"
	default:
		return "Something went wrong. Try again"
	}
}

func parseID(s, name string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, usageError(name + " must be a positive integer")
	}
	return id, nil
}

func (b *PresentationBot) handleJoin(ctx context.Context, call usecase.Call, args []string) (string, error) {
	// /join [session] [user|admin]
	if len(args) != joinArgsCount {
		return "", usageError("There must be 2 arguments: session and role (user or admin)")
	}
	if err := b.session.JoinSession(ctx, call, args[0], args[1]); err != nil {
		return "", err
	}
	return fmt.Sprintf("Joined session %s as %s", args[0], args[1]), nil
}

func (b *PresentationBot) handleCreate(ctx context.Context, call usecase.Call, args []string) (string, error) {
	// /poll_create [question] "[option1]" "[option2]" ...
	if len(args) < pollCreateMinArgs {
		return "", usageError("Too few arguments. Maybe you didn't write the options?")
	}
	pollID, err := b.session.CreatePoll(ctx, call, args[0], args[1:])
	if err != nil {
		return "", err
	}

	var msgBuilder strings.Builder
	fmt.Fprintf(&msgBuilder, "Poll successfully created!\nID: %d", pollID)
	for i, option := range args[1:] {
		fmt.Fprintf(&msgBuilder, "\n%d. %s", i+1, option)
	}
	return msgBuilder.String(), nil
}

func (b *PresentationBot) handleActivate(ctx context.Context, call usecase.Call, args []string) (string, error) {
	// /poll_activate [pollID]
	if len(args) != pollActivateArgsCount {
		return "", usageError("There must be 1 argument: poll ID")
	}
	pollID, err := parseID(args[0], "Poll ID")
	if err != nil {
		return "", err
	}
	if err = b.session.ActivatePoll(ctx, call, pollID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Poll %d is open for voting", pollID), nil
}

func (b *PresentationBot) handleVote(ctx context.Context, call usecase.Call, args []string) (string, error) {
	// /vote [pollID] [optionID]
	if len(args) != voteArgsCount {
		return "", usageError("There must be 2 arguments: poll ID and option ID")
	}
	pollID, err := parseID(args[0], "Poll ID")
	if err != nil {
		return "", err
	}
	optionID, err := parseID(args[1], "Option ID")
	if err != nil {
		return "", err
	}
	if _, err = b.session.SubmitVote(ctx, call, pollID, optionID); err != nil {
		return "", err
	}
	return "Vote successfully registered", nil
}

func (b *PresentationBot) handleResults(ctx context.Context) (string, error) {
	// /poll_results
	state, err := b.session.Presentation(ctx)
	if err != nil {
		return "", err
	}
	if state.CurrentPollID == 0 {
		return "No poll has been activated yet", nil
	}
	res, err := b.session.Results(ctx, state.CurrentPollID)
	if err != nil {
		return "", err
	}

	var msgBuilder strings.Builder
	msgBuilder.WriteString(res.Poll.Question)
	for _, option := range res.Options {
		fmt.Fprintf(&msgBuilder, "\n%d. %s\nVotes: %d", option.OptionID, option.Text, option.Votes)
	}
	fmt.Fprintf(&msgBuilder, "\nTotal: %d", res.Total)
	return msgBuilder.String(), nil
}

func (b *PresentationBot) handleState(ctx context.Context) (string, error) {
	// /session_state
	state, err := b.session.Presentation(ctx)
	if err != nil {
		return "", err
	}
	if state.Stage == domain.StageWaiting {
		return "Stage: waiting", nil
	}
	return fmt.Sprintf("Stage: %s\nCurrent poll: %d", state.Stage, state.CurrentPollID), nil
}
