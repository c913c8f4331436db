package bot

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Xausdorf/presentation-poll/internal/gateway/clock"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
	"github.com/mattermost/mattermost-server/v6/model"
)

const (
	maxRetries      = 5
	reconnectPeriod = 3 * time.Second
)

var ErrNotConfigured = errors.New("mattermost token or server is not set")

type Config struct {
	mmUserName string
	mmTeamName string
	mmToken    string
	mmServer   string
}

func LoadConfig() Config {
	var cfg Config

	cfg.mmUserName = os.Getenv("MM_USERNAME")
	if cfg.mmUserName == "" {
		cfg.mmUserName = "PresentationBot"
	}
	cfg.mmTeamName = os.Getenv("MM_TEAM")
	if cfg.mmTeamName == "" {
		cfg.mmTeamName = "PresentationBot"
	}
	cfg.mmToken = os.Getenv("MM_TOKEN")
	cfg.mmServer = os.Getenv("MM_SERVER")

	return cfg
}

// Enabled reports whether both the token and the server url are set.
func (c Config) Enabled() bool {
	return c.mmToken != "" && c.mmServer != ""
}

// eventStream is a connected websocket delivering mattermost events.
type eventStream interface {
	Listen()
	Close()
	Events() chan *model.WebSocketEvent
}

type wsStream struct {
	*model.WebSocketClient
}

func (s wsStream) Events() chan *model.WebSocketEvent {
	return s.EventChannel
}

// PresentationBot runs session operations on behalf of the mattermost user who wrote the command.
type PresentationBot struct {
	cfg     Config
	client  *model.Client4
	dial    func() (eventStream, error)
	user    *model.User
	team    *model.Team
	session *usecase.Session
	clock   *clock.Clock
	logger  *slog.Logger

	mu     sync.Mutex
	stream eventStream
}

func NewPresentationBot(cfg Config, session *usecase.Session, clk *clock.Clock, logger *slog.Logger) (*PresentationBot, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	bot := &PresentationBot{
		cfg:     cfg,
		session: session,
		clock:   clk,
		logger:  logger.With("host", "mattermost"),
	}
	bot.client = model.NewAPIv4Client(cfg.mmServer)
	bot.client.SetToken(cfg.mmToken)
	bot.dial = func() (eventStream, error) {
		ws, err := model.NewWebSocketClient4(cfg.mmServer, bot.client.AuthToken)
		if err != nil {
			return nil, err
		}
		return wsStream{ws}, nil
	}

	user, _, err := bot.client.GetMe("")
	if err != nil {
		return nil, fmt.Errorf("could not log in to mattermost: %w", err)
	}
	bot.logger.Info("logged in to mattermost", "user", user.Username)
	bot.user = user

	team, _, err := bot.client.GetTeamByName(cfg.mmTeamName, "")
	if err != nil {
		return nil, fmt.Errorf("could not find team %s: %w", cfg.mmTeamName, err)
	}
	bot.logger.Info("team found", "team", team.Name)
	bot.team = team

	return bot, nil
}

// Listen handles posted messages until ctx is done, reconnecting the websocket when it drops.
func (b *PresentationBot) Listen(ctx context.Context) error {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		b.closeStream()
		stream, err := b.dial()
		if err != nil {
			b.logger.Warn("could not connect mattermost websocket, retrying", "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reconnectPeriod):
			}
			continue
		}
		b.logger.Info("mattermost websocket connected")
		b.mu.Lock()
		b.stream = stream
		b.mu.Unlock()
		stream.Listen()

		if done := b.consume(ctx, stream); done {
			return nil
		}
		b.logger.Warn("mattermost websocket closed, reconnecting")
		attempt = 0
	}
	return errors.New("could not connect mattermost websocket, max retries exceeded")
}

func (b *PresentationBot) consume(ctx context.Context, stream eventStream) bool {
	events := stream.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			go b.handleWebSocketEvent(ctx, event)
		case <-ctx.Done():
			return true
		}
	}
}

// closeStream closes the current websocket, if any, and forgets it.
func (b *PresentationBot) closeStream() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream != nil {
		b.stream.Close()
		b.stream = nil
	}
}

func (b *PresentationBot) Close() {
	b.logger.Info("closing mattermost websocket connection")
	b.closeStream()
}

func (b *PresentationBot) handleWebSocketEvent(ctx context.Context, event *model.WebSocketEvent) {
	if event.EventType() != model.WebsocketEventPosted {
		return
	}

	post := &model.Post{}
	eventData, ok := event.GetData()["post"].(string)
	if !ok {
		b.logger.Warn("could not cast event data to string")
		return
	}
	if err := json.Unmarshal([]byte(eventData), &post); err != nil {
		b.logger.Warn("could not unmarshal event to post", "error", err)
		return
	}

	if post.UserId == b.user.Id {
		return
	}

	b.handlePost(ctx, post)
}

func (b *PresentationBot) handlePost(ctx context.Context, post *model.Post) {
	tokens, err := parseCommand(post.Message)
	if err != nil {
		b.logger.Debug("could not split post message", "msg", post.Message, "error", err)
		return
	}
	if len(tokens) == 0 || !strings.HasPrefix(tokens[0], "/") {
		return
	}

	if reply, ok := b.execute(ctx, post.UserId, tokens); ok {
		b.Respond(ctx, post, reply)
	}
}

func (b *PresentationBot) Respond(_ context.Context, post *model.Post, msg string) {
	resp := &model.Post{}
	resp.ChannelId = post.ChannelId
	resp.Message = msg
	resp.RootId = post.Id

	if _, _, err := b.client.CreatePost(resp); err != nil {
		b.logger.Error("could not respond to post", "post", post.Id, "error", err)
	}
}

// parseCommand splits a message at spaces, except spaces inside quotation marks.
func parseCommand(msg string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(msg)))
	r.Comma = ' '
	tokens, err := r.Read()
	if err != nil {
		return nil, err
	}

	args := tokens[:0]
	for _, token := range tokens {
		if token != "" {
			args = append(args, token)
		}
	}
	return args, nil
}
