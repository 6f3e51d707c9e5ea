package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New("123:token", server.URL)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func okResult(result any) []byte {
	payload, _ := json.Marshal(map[string]any{"ok": true, "result": result})
	return payload
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bot123:token/sendMessage") {
			t.Errorf("path: %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("chat_id") != "42" || r.PostForm.Get("text") != "hello" {
			t.Errorf("form: %v", r.PostForm)
		}
		_, _ = w.Write(okResult(Message{MessageID: 7, Chat: Chat{ID: 42}}))
	})

	msg, err := client.SendMessage(context.Background(), 42, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.MessageID != 7 {
		t.Fatalf("message id: %d", msg.MessageID)
	}
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	_, err := client.SendMessage(context.Background(), 1, "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 400 || !strings.Contains(apiErr.Description, "chat not found") {
		t.Fatalf("api error: %+v", apiErr)
	}
}

func TestGetUpdatesCarriesOffsetAndTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("offset") != "100" || r.PostForm.Get("timeout") != "30" {
			t.Errorf("form: %v", r.PostForm)
		}
		_, _ = w.Write(okResult([]Update{{UpdateID: 100, Message: &Message{Text: "hi", Chat: Chat{ID: 5}}}}))
	})

	updates, err := client.GetUpdates(context.Background(), 100, 30*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 1 || updates[0].Message.Text != "hi" {
		t.Fatalf("updates: %+v", updates)
	}
}

func TestSendAudioStreamsMultipartWithProgress(t *testing.T) {
	payload := strings.Repeat("a", 64*1024)
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotTitle, gotFilename string
	var gotFileBytes int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotTitle = r.MultipartForm.Value["title"][0]
		header := r.MultipartForm.File["audio"][0]
		gotFilename = header.Filename
		file, err := header.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFileBytes = len(data)
		_, _ = w.Write(okResult(Message{MessageID: 9}))
	})

	var lastReported int64
	msg, err := client.SendAudio(context.Background(), 42, Audio{
		Path:            path,
		Title:           "My Song",
		DurationSeconds: 187,
		Progress:        func(sent int64) { lastReported = sent },
	})
	if err != nil {
		t.Fatalf("send audio: %v", err)
	}
	if msg.MessageID != 9 {
		t.Fatalf("message id: %d", msg.MessageID)
	}
	if gotTitle != "My Song" || gotFilename != "song.mp3" {
		t.Fatalf("title=%q filename=%q", gotTitle, gotFilename)
	}
	if gotFileBytes != len(payload) {
		t.Fatalf("file bytes: %d", gotFileBytes)
	}
	if lastReported != int64(len(payload)) {
		t.Fatalf("progress final byte count: %d", lastReported)
	}
}

func TestNewRejectsEmptyToken(t *testing.T) {
	if _, err := New("  ", ""); err == nil {
		t.Fatal("expected token validation error")
	}
}

func TestNewDefaultsToHostedEndpoint(t *testing.T) {
	client, err := New("123:token", "")
	if err != nil {
		t.Fatal(err)
	}
	if client.BaseURL() != DefaultBaseURL {
		t.Fatalf("base url: %s", client.BaseURL())
	}
}
