package httpapi

import (
	"fmt"
	"net/http"

	"github.com/Xausdorf/presentation-poll/internal/usecase"
	"github.com/labstack/echo/v4"
)

type joinRequest struct {
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type activatePollRequest struct {
	PollID uint64 `json:"poll_id"`
}

type voteRequest struct {
	PollID   uint64 `json:"poll_id"`
	OptionID uint64 `json:"option_id"`
}

// reducer runs one operation. A nil result means 204 No Content.
type reducer func(s *Server, c echo.Context, call usecase.Call) (interface{}, error)

// init is run by the host only and has no entry here.
var reducers = map[string]reducer{
	"join_session": func(s *Server, c echo.Context, call usecase.Call) (interface{}, error) {
		var req joinRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return nil, s.session.JoinSession(c.Request().Context(), call, req.SessionID, req.Role)
	},
	"create_poll": func(s *Server, c echo.Context, call usecase.Call) (interface{}, error) {
		var req createPollRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		pollID, err := s.session.CreatePoll(c.Request().Context(), call, req.Question, req.Options)
		if err != nil {
			return nil, err
		}
		return echo.Map{"poll_id": pollID}, nil
	},
	"activate_poll": func(s *Server, c echo.Context, call usecase.Call) (interface{}, error) {
		var req activatePollRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		return nil, s.session.ActivatePoll(c.Request().Context(), call, req.PollID)
	},
	"submit_vote": func(s *Server, c echo.Context, call usecase.Call) (interface{}, error) {
		var req voteRequest
		if err := bind(c, &req); err != nil {
			return nil, err
		}
		vote, err := s.session.SubmitVote(c.Request().Context(), call, req.PollID, req.OptionID)
		if err != nil {
			return nil, err
		}
		return vote, nil
	},
	"show_results": func(s *Server, c echo.Context, call usecase.Call) (interface{}, error) {
		return nil, s.session.ShowResults(c.Request().Context(), call)
	},
	"end_session": func(s *Server, c echo.Context, call usecase.Call) (interface{}, error) {
		return nil, s.session.EndSession(c.Request().Context(), call)
	},
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", usecase.ErrInvalidArgument)
	}
	return nil
}

func (s *Server) handleReducer(c echo.Context) error {
	name := c.Param("name")
	run, ok := reducers[name]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown reducer " + name})
	}

	identity, _ := c.Get(identityKey).(string)
	call := usecase.Call{Identity: identity, Clock: s.clock.NowMicro}

	res, err := run(s, c, call)
	if err != nil {
		return s.fail(c, name, identity, err)
	}
	s.logger.Debug("operation done", "op", name, "caller", identity)
	if res == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, res)
}
