package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"tunefetch/internal/acquire"
	"tunefetch/internal/deliver"
	"tunefetch/internal/mediaurl"
	"tunefetch/internal/transcode"
)

// User-facing failure texts. Internal detail stays in the logs; the chat
// surface gets a short actionable line.
const (
	msgInvalidURL    = "That doesn't look like a link I can fetch. Send me a YouTube video link."
	msgNoStrategy    = "I can't download anything right now. The operator has been notified."
	msgExhausted     = "I couldn't download that one. The video may be unavailable or restricted."
	msgTranscode     = "The download worked but converting it to audio failed. Try again later."
	msgDelivery      = "The audio was ready but sending it failed. Try again later."
	msgCancelled     = "Shutting down, your request was cancelled."
	msgInternalError = "Something went wrong on my side. Try again later."
)

// UserMessage maps a pipeline failure to the text shown in chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, mediaurl.ErrInvalidURL):
		return msgInvalidURL
	case errors.Is(err, context.Canceled):
		return msgCancelled
	}

	var noEligible *acquire.NoEligibleStrategyError
	if errors.As(err, &noEligible) {
		return msgNoStrategy
	}
	var exhausted *acquire.ExhaustedError
	if errors.As(err, &exhausted) {
		return msgExhausted
	}
	var transcodeErr *transcode.Error
	if errors.As(err, &transcodeErr) {
		return msgTranscode
	}
	var unavailable *deliver.LargeFileUnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Sprintf("The audio came out at %s, which is too large to send here, and large-file delivery is not set up.",
			humanize.IBytes(uint64(unavailable.SizeBytes)))
	}
	var deliveryErr *deliver.Error
	if errors.As(err, &deliveryErr) {
		return msgDelivery
	}
	return msgInternalError
}
