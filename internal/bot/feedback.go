package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"tunefetch/internal/deliver"
	"tunefetch/internal/logging"
	"tunefetch/internal/services/telegram"
)

const (
	queuedText       = "Queued, waiting for a free worker..."
	doneDirectText   = "Audio sent!"
	doneStreamedText = "Large audio sent!"
)

// statusFeedback owns one editable status message for the lifetime of a job.
// On success the message is deleted and a short completion note takes its
// place next to the delivered audio; on failure it is rewritten with the
// user-facing reason.
type statusFeedback struct {
	api       API
	chatID    int64
	messageID int64
	logger    *slog.Logger

	mu       sync.Mutex
	lastText string
}

func newStatusFeedback(api API, chatID, messageID int64, logger *slog.Logger) *statusFeedback {
	return &statusFeedback{
		api:       api,
		chatID:    chatID,
		messageID: messageID,
		logger:    logger,
	}
}

func (f *statusFeedback) Queued(ctx context.Context) {
	f.edit(ctx, queuedText)
}

func (f *statusFeedback) Status(ctx context.Context, text string) {
	f.edit(ctx, text)
}

func (f *statusFeedback) Done(ctx context.Context, route deliver.Route) {
	if err := f.api.DeleteMessage(ctx, f.chatID, f.messageID); err != nil {
		f.logger.Warn("status message delete failed",
			logging.Int64(logging.FieldChatID, f.chatID),
			logging.Error(err),
		)
	}
	text := doneDirectText
	if route == deliver.RouteStreamed {
		text = doneStreamedText
	}
	if _, err := f.api.SendMessage(ctx, f.chatID, text); err != nil {
		f.logger.Warn("completion message send failed",
			logging.Int64(logging.FieldChatID, f.chatID),
			logging.Error(err),
		)
	}
}

func (f *statusFeedback) Failed(ctx context.Context, userText string) {
	f.edit(ctx, userText)
}

func (f *statusFeedback) edit(ctx context.Context, text string) {
	f.mu.Lock()
	if text == f.lastText {
		f.mu.Unlock()
		return
	}
	f.lastText = text
	f.mu.Unlock()

	err := f.api.EditMessageText(ctx, f.chatID, f.messageID, text)
	if err == nil {
		return
	}
	// Racing edits can still land identical text; the API reports that as an
	// error, which is harmless here.
	var apiErr *telegram.APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return
	}
	f.logger.Warn("status message edit failed",
		logging.Int64(logging.FieldChatID, f.chatID),
		logging.Error(err),
	)
}
