package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects everything currently buffered on ch.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countType(msgs []string, kind string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, "event: "+kind+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishChange_Format(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	b.PublishChange(KindGroupCreated, "/root/Math/")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "id: 1\nevent: group.created\n") {
			t.Errorf("unexpected framing %q", s)
		}
		if !strings.Contains(s, `data: {"path":"/root/Math/"}`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_SummaryThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// First change triggers library.updated, the second one inside the
	// throttle window does not.
	b.PublishChange(KindNotebookCreated, "/root/_notebooks/A")
	b.PublishChange(KindArtifactUpdated, "/root/_notebooks/A")
	// Unknown kinds are dropped entirely.
	b.PublishChange("group.deleted", "/root/Math/")

	msgs := drain(ch)
	if got := countType(msgs, KindLibraryUpdated); got != 1 {
		t.Errorf("summary events = %d, want 1 (throttled)", got)
	}
	if got := len(msgs) - countType(msgs, KindLibraryUpdated); got != 2 {
		t.Errorf("change events = %d, want 2", got)
	}
}

func TestPublishChange_Scope(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	math := b.Subscribe("/root/Math/")
	defer b.Unsubscribe(math)
	all := b.Subscribe("")
	defer b.Unsubscribe(all)

	b.PublishChange(KindNotebookCreated, "/root/Bio/_notebooks/Cells")
	b.PublishChange(KindArtifactUpdated, "/root/Math/_notebooks/Calc1")
	b.PublishChange(KindStoreReset, "/root/")

	got := drain(math)
	if countType(got, KindNotebookCreated) != 0 {
		t.Errorf("scoped client received out-of-scope change: %q", got)
	}
	if countType(got, KindArtifactUpdated) != 1 || countType(got, KindStoreReset) != 1 {
		t.Errorf("scoped client messages = %q", got)
	}
	// The summary is unscoped.
	if countType(got, KindLibraryUpdated) != 1 {
		t.Errorf("scoped client summaries = %d", countType(got, KindLibraryUpdated))
	}

	if n := len(drain(all)); n != 4 {
		t.Errorf("unscoped client got %d messages, want 4", n)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?path=/root/Math/", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChange(KindArtifactUpdated, "/root/Math/_notebooks/A")
	b.PublishChange(KindGroupCreated, "/root/Math2/")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: artifact.updated") {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, "event: group.created") {
		t.Errorf("handler output has out-of-scope event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe("")
	defer b.Unsubscribe(ch)

	// Fill the buffer (capacity 64); publishing more must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: "ping", Data: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full client buffer")
	}
	if n := len(drain(ch)); n != 64 {
		t.Errorf("buffered = %d, want 64", n)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe("")
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	late := b.Subscribe("")
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should yield a closed channel")
	}
	b.PublishChange(KindStoreReset, "/root/")
}

func TestSSEHandlerRejectsPartialScope(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	for _, scope := range []string{"/root/Ma", "Math/", "/root/_notebooks/A/"} {
		req := httptest.NewRequest(http.MethodGet, "/api/events?path="+scope, nil)
		w := httptest.NewRecorder()
		b.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("scope %q: status = %d, want 400", scope, w.Code)
		}
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("rejected requests subscribed %d clients", n)
	}
}
