package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"genstudio/internal/generation"
	"genstudio/internal/queue"
)

type sseMessage struct {
	event string
	data  string
}

// readEvents parses server-sent events from body onto a channel.
func readEvents(body *bufio.Reader) <-chan sseMessage {
	out := make(chan sseMessage, 64)
	go func() {
		defer close(out)
		var msg sseMessage
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				msg.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				msg.data = strings.TrimPrefix(line, "data: ")
			case line == "" && msg.event != "":
				out <- msg
				msg = sseMessage{}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseMessage, want string) sseMessage {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				t.Fatalf("stream closed waiting for %q", want)
			}
			if msg.event == want {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

func TestGenerationEventsStream(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := env.queue.Enqueue(generation.Request{ID: "existing", Prompt: "p", Model: "m"}); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, env.gen, "existing")

	srv := httptest.NewServer(http.HandlerFunc(env.h.GenerationEvents))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	events := readEvents(bufio.NewReader(resp.Body))

	var snapshot []JobView
	if err := json.Unmarshal([]byte(nextEvent(t, events, "snapshot").data), &snapshot); err != nil {
		t.Fatal(err)
	}
	if len(snapshot) != 1 || snapshot[0].ID != "existing" {
		t.Fatalf("snapshot = %+v", snapshot)
	}

	var prog ProgressEvent
	if err := json.Unmarshal([]byte(nextEvent(t, events, "progress").data), &prog); err != nil {
		t.Fatal(err)
	}
	if prog.ID != "existing" || prog.Progress.Completed {
		t.Errorf("progress = %+v", prog)
	}

	env.gen.release("existing", &generation.Response{ID: "existing", Status: generation.StatusSucceeded, Images: []string{"https://cdn/out.png"}})

	for {
		var job JobEvent
		if err := json.Unmarshal([]byte(nextEvent(t, events, "job").data), &job); err != nil {
			t.Fatal(err)
		}
		if job.Type != queue.EventSucceeded {
			continue
		}
		if job.Job.ID != "existing" || len(job.Images) != 1 {
			t.Errorf("succeeded event = %+v", job)
		}
		break
	}

	for {
		if err := json.Unmarshal([]byte(nextEvent(t, events, "progress").data), &prog); err != nil {
			t.Fatal(err)
		}
		if prog.Progress.Completed {
			break
		}
	}
	if prog.ID != "existing" || prog.Progress.Percent != 100 {
		t.Errorf("final progress = %+v", prog)
	}
}

func TestGenerationEventsReportsFailure(t *testing.T) {
	env := setupTestEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(env.h.GenerationEvents))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	events := readEvents(bufio.NewReader(resp.Body))
	nextEvent(t, events, "snapshot")

	if _, err := env.queue.Enqueue(generation.Request{ID: "doomed", Prompt: "p", Model: "m"}); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, env.gen, "doomed")
	env.gen.release("doomed", &generation.Response{Status: generation.StatusFailed, Error: "NSFW content detected"})

	for {
		var job JobEvent
		if err := json.Unmarshal([]byte(nextEvent(t, events, "job").data), &job); err != nil {
			t.Fatal(err)
		}
		if job.Type == queue.EventFailed {
			if job.Job.Status != queue.StatusFailed || job.Job.Error != "NSFW content detected" {
				t.Errorf("failed event = %+v", job.Job)
			}
			if job.Job.Progress != nil {
				t.Error("failed job must not carry progress")
			}
			return
		}
	}
}

type nonFlusher struct{ http.ResponseWriter }

func TestGenerationEventsRequiresFlusher(t *testing.T) {
	env := setupTestEnv(t)
	w := httptest.NewRecorder()
	env.h.GenerationEvents(nonFlusher{w}, httptest.NewRequest(http.MethodGet, "/api/generations/events", http.NoBody))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
