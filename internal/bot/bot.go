// Package bot runs the chat surface: it long-polls for updates, turns link
// messages into jobs, and keeps one editable status message per job.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tunefetch/internal/logging"
	"tunefetch/internal/services/telegram"
	"tunefetch/internal/workflow"
)

const (
	welcomeText = "Hi! Send me a YouTube video link and I'll reply with the audio as an MP3."
	helpText    = "I only understand video links. Send me a YouTube link and I'll fetch the audio."
	workingText = "Working on it..."
)

// API is the slice of the chat transport the bot consumes.
type API interface {
	GetMe(ctx context.Context) (telegram.User, error)
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) (telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Submitter accepts link submissions for processing.
type Submitter interface {
	Submit(ctx context.Context, chatID int64, rawURL string, fb workflow.Feedback) (string, error)
}

// Options tunes the update loop.
type Options struct {
	PollTimeout  time.Duration
	ErrorBackoff time.Duration
}

// Bot is the long-polling front end.
type Bot struct {
	api       API
	submitter Submitter
	opts      Options
	logger    *slog.Logger
}

// New constructs a Bot.
func New(api API, submitter Submitter, opts Options, logger *slog.Logger) (*Bot, error) {
	if api == nil || submitter == nil {
		return nil, errors.New("api and submitter required")
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 50 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = 3 * time.Second
	}
	return &Bot{
		api:       api,
		submitter: submitter,
		opts:      opts,
		logger:    logging.WithComponent(logger, "bot"),
	}, nil
}

// Run polls for updates until ctx is cancelled. It returns nil on clean
// shutdown and an error only when the transport is unusable from the start.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return errors.Join(errors.New("verify bot token"), err)
	}
	b.logger.Info("bot online", logging.String("username", me.Username))

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("update poll failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "poll_failed"),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.opts.ErrorBackoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	msg := update.Message
	if msg == nil || msg.Chat.ID == 0 {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		b.reply(ctx, msg.Chat.ID, welcomeText)
	case strings.HasPrefix(text, "/"):
		b.reply(ctx, msg.Chat.ID, helpText)
	default:
		b.handleLink(ctx, msg.Chat.ID, text)
	}
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, text string) {
	status, err := b.api.SendMessage(ctx, chatID, workingText)
	if err != nil {
		b.logger.Warn("status message send failed",
			logging.Int64(logging.FieldChatID, chatID),
			logging.Error(err),
		)
		return
	}

	fb := newStatusFeedback(b.api, chatID, status.MessageID, b.logger)
	jobID, err := b.submitter.Submit(ctx, chatID, text, fb)
	if err != nil {
		fb.Failed(ctx, workflow.UserMessage(err))
		return
	}
	b.logger.Info("job submitted",
		logging.String(logging.FieldJobID, jobID),
		logging.Int64(logging.FieldChatID, chatID),
	)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("reply failed",
			logging.Int64(logging.FieldChatID, chatID),
			logging.Error(err),
		)
	}
}
