// Package telegram is a minimal Bot API HTTP client covering the calls the
// chat surface and delivery paths need: long polling, message lifecycle, and
// multipart audio upload with progress accounting.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hosted Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	userAgent = "tunefetch/0.1.0"
)

// APIError is a non-OK response from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Chat identifies a conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Message is the subset of the Bot API message object the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from"`
	Text      string `json:"text"`
}

// Update is one long-poll result entry.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Client talks to one Bot API server. Construct separate clients for the
// hosted endpoint and a self-hosted one; the wire protocol is identical.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// New constructs a client for the server at baseURL. An empty baseURL means
// the hosted endpoint.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("bot token required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BaseURL returns the configured API server address.
func (c *Client) BaseURL() string { return c.baseURL }

// GetMe verifies the token and returns the bot account.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var user User
	err := c.call(ctx, "getMe", url.Values{}, &user)
	return user, err
}

// GetUpdates long-polls for new updates after offset. timeout is the server
// side hold duration.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	params.Set("allowed_updates", `["message"]`)

	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts text to a chat and returns the created message.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)

	var msg Message
	err := c.call(ctx, "sendMessage", params, &msg)
	return msg, err
}

// EditMessageText replaces the text of an existing message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	params.Set("text", text)
	return c.call(ctx, "editMessageText", params, nil)
}

// DeleteMessage removes a message the bot sent.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.FormatInt(messageID, 10))
	return c.call(ctx, "deleteMessage", params, nil)
}

// Audio describes one audio upload.
type Audio struct {
	Path            string
	Title           string
	Caption         string
	DurationSeconds float64
	// Progress, when set, receives the cumulative byte count written to the
	// wire. Called from the uploading goroutine.
	Progress func(sentBytes int64)
}

// SendAudio uploads the file as an audio message. The request body is
// streamed, not buffered, so large uploads hold no more than one copy chunk
// in memory.
func (c *Client) SendAudio(ctx context.Context, chatID int64, audio Audio) (Message, error) {
	if audio.Path == "" {
		return Message{}, errors.New("audio path required")
	}
	file, err := os.Open(audio.Path)
	if err != nil {
		return Message{}, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeAudioForm(writer, chatID, audio, file)
		if cerr := writer.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendAudio"), pr)
	if err != nil {
		return Message{}, fmt.Errorf("build sendAudio request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("telegram sendAudio: %w", err)
	}
	defer resp.Body.Close()

	var msg Message
	if err := decodeResponse(resp, "sendAudio", &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func writeAudioForm(writer *multipart.Writer, chatID int64, audio Audio, file *os.File) error {
	fields := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
	}
	if audio.Title != "" {
		fields["title"] = audio.Title
	}
	if audio.Caption != "" {
		fields["caption"] = audio.Caption
	}
	if audio.DurationSeconds > 0 {
		fields["duration"] = strconv.Itoa(int(audio.DurationSeconds))
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("audio", filepath.Base(audio.Path))
	if err != nil {
		return fmt.Errorf("create audio part: %w", err)
	}

	var src io.Reader = file
	if audio.Progress != nil {
		src = &countingReader{reader: file, report: audio.Progress}
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy audio payload: %w", err)
	}
	return nil
}

// countingReader reports the running total of bytes read through it.
type countingReader struct {
	reader io.Reader
	total  int64
	report func(int64)
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.total += int64(n)
		r.report(r.total)
	}
	return n, err
}

// call performs a form-encoded API request and decodes result into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	body := strings.NewReader(params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, method, out)
}

func decodeResponse(resp *http.Response, method string, out any) error {
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		ErrorCode   int             `json:"error_code"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode %s response (%d): %w", method, resp.StatusCode, err)
	}
	if !envelope.OK {
		return &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
	}
	if out != nil && len(envelope.Result) > 0 && !bytes.Equal(envelope.Result, []byte("null")) {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}
