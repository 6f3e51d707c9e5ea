package bot

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tunefetch/internal/deliver"
	"tunefetch/internal/logging"
	"tunefetch/internal/mediaurl"
	"tunefetch/internal/services/telegram"
	"tunefetch/internal/workflow"
)

type fakeAPI struct {
	mu        sync.Mutex
	updates   [][]telegram.Update
	sent      []string
	edits     []string
	deletes   int
	nextMsgID int64
}

func (f *fakeAPI) GetMe(context.Context) (telegram.User, error) {
	return telegram.User{Username: "tunefetch_bot", IsBot: true}, nil
}

func (f *fakeAPI) GetUpdates(ctx context.Context, _ int64, _ time.Duration) ([]telegram.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil, ctx.Err()
	}
	batch := f.updates[0]
	f.updates = f.updates[1:]
	return batch, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, chatID int64, text string) (telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.nextMsgID++
	return telegram.Message{MessageID: f.nextMsgID, Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeAPI) EditMessageText(_ context.Context, _, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeAPI) DeleteMessage(context.Context, int64, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	return nil
}

type fakeSubmitter struct {
	mu   sync.Mutex
	urls []string
	err  error
	fb   workflow.Feedback
}

func (f *fakeSubmitter) Submit(_ context.Context, _ int64, rawURL string, fb workflow.Feedback) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.urls = append(f.urls, rawURL)
	f.fb = fb
	return "job-1", nil
}

func textUpdate(id, chatID int64, text string) telegram.Update {
	return telegram.Update{UpdateID: id, Message: &telegram.Message{
		MessageID: id,
		Chat:      telegram.Chat{ID: chatID},
		Text:      text,
	}}
}

// runOnce processes queued update batches then cancels the loop.
func runOnce(t *testing.T, api *fakeAPI, submitter Submitter) {
	t.Helper()
	b, err := New(api, submitter, Options{PollTimeout: time.Second, ErrorBackoff: time.Millisecond}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			api.mu.Lock()
			empty := len(api.updates) == 0
			api.mu.Unlock()
			if empty {
				cancel()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	if err := b.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestStartCommandGetsWelcome(t *testing.T) {
	api := &fakeAPI{updates: [][]telegram.Update{{textUpdate(1, 42, "/start")}}}
	runOnce(t, api, &fakeSubmitter{})

	if len(api.sent) != 1 || api.sent[0] != welcomeText {
		t.Fatalf("sent: %v", api.sent)
	}
}

func TestUnknownCommandGetsHelp(t *testing.T) {
	api := &fakeAPI{updates: [][]telegram.Update{{textUpdate(1, 42, "/stats")}}}
	runOnce(t, api, &fakeSubmitter{})

	if len(api.sent) != 1 || api.sent[0] != helpText {
		t.Fatalf("sent: %v", api.sent)
	}
}

func TestLinkMessageStartsJob(t *testing.T) {
	api := &fakeAPI{updates: [][]telegram.Update{{textUpdate(1, 42, "https://youtu.be/abc123XYZ_x")}}}
	submitter := &fakeSubmitter{}
	runOnce(t, api, submitter)

	if len(api.sent) != 1 || api.sent[0] != workingText {
		t.Fatalf("sent: %v", api.sent)
	}
	if len(submitter.urls) != 1 || submitter.urls[0] != "https://youtu.be/abc123XYZ_x" {
		t.Fatalf("submitted: %v", submitter.urls)
	}
}

func TestInvalidLinkRewritesStatusMessage(t *testing.T) {
	api := &fakeAPI{updates: [][]telegram.Update{{textUpdate(1, 42, "hello there")}}}
	runOnce(t, api, &fakeSubmitter{err: mediaurl.ErrInvalidURL})

	if len(api.edits) != 1 || !strings.Contains(api.edits[0], "link") {
		t.Fatalf("edits: %v", api.edits)
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	api := &fakeAPI{}
	fb := newStatusFeedback(api, 42, 7, logging.NewNop())
	ctx := context.Background()

	fb.Queued(ctx)
	fb.Status(ctx, "Downloading: 10%")
	fb.Status(ctx, "Downloading: 10%") // duplicate suppressed locally
	fb.Status(ctx, "Downloading: 20%")
	fb.Done(ctx, deliver.RouteDirect)

	want := []string{queuedText, "Downloading: 10%", "Downloading: 20%"}
	if len(api.edits) != len(want) {
		t.Fatalf("edits: %v", api.edits)
	}
	for i := range want {
		if api.edits[i] != want[i] {
			t.Fatalf("edits: %v", api.edits)
		}
	}
	if api.deletes != 1 {
		t.Fatalf("deletes: %d", api.deletes)
	}
	if len(api.sent) != 1 || api.sent[0] != doneDirectText {
		t.Fatalf("sent: %v", api.sent)
	}
}

func TestStreamedCompletionNamesTheLargePath(t *testing.T) {
	api := &fakeAPI{}
	fb := newStatusFeedback(api, 42, 7, logging.NewNop())

	fb.Done(context.Background(), deliver.RouteStreamed)

	if len(api.sent) != 1 || api.sent[0] != doneStreamedText {
		t.Fatalf("sent: %v", api.sent)
	}
}

func TestOffsetAdvancesPastHandledUpdates(t *testing.T) {
	api := &fakeAPI{updates: [][]telegram.Update{
		{textUpdate(10, 1, "/start"), textUpdate(11, 2, "/start")},
		{textUpdate(12, 3, "/start")},
	}}
	runOnce(t, api, &fakeSubmitter{})

	if len(api.sent) != 3 {
		t.Fatalf("sent: %v", api.sent)
	}
}

func TestInstanceLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.lock")

	release, err := AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	defer release()

	if _, err := AcquireInstanceLock(path); err == nil {
		t.Fatal("second lock should fail while the first is held")
	}

	release()
	release2, err := AcquireInstanceLock(path)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	release2()
}

func TestRunSurfacesBadToken(t *testing.T) {
	api := &badTokenAPI{}
	b, err := New(api, &fakeSubmitter{}, Options{}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected token verification error")
	}
}

type badTokenAPI struct{ fakeAPI }

func (*badTokenAPI) GetMe(context.Context) (telegram.User, error) {
	return telegram.User{}, errors.New("401 Unauthorized")
}
