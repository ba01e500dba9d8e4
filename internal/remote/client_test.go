package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lookout/internal/logging"
	"lookout/internal/types"
)

func TestIdentify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/me" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("request id header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","username":"maren","discriminator":"0420"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, logging.Nop())
	id, err := c.Identify(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if id.ID != "u1" || id.Username != "maren" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestIdentifyUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"401: Unauthorized"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, logging.Nop())
	_, err := c.Identify(context.Background(), "tok-revoked")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsUnauthorized(err) {
		t.Fatalf("IsUnauthorized = false for %v", err)
	}
	if IsForbidden(err) {
		t.Fatalf("IsForbidden = true for %v", err)
	}
}

func TestListMessagesQueryAndOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/channels/c1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("after") != "42" || q.Get("limit") != "50" || q.Get("before") != "" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"44","channel_id":"c1","author":{"id":"u2","username":"sorrel"},"content":"later"},
			{"id":"43","channel_id":"c1","author":{"id":"u2","username":"sorrel"},"webhook_id":"wh1","content":"earlier"}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, logging.Nop())
	msgs, err := c.ListMessages(context.Background(), "tok-1", "c1", Window{After: "42"})
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	// Native newest-first order is preserved; reordering is the caller's job.
	if len(msgs) != 2 || msgs[0].ID != "44" || msgs[1].ID != "43" {
		t.Fatalf("messages = %+v", msgs)
	}
	if !msgs[1].Author.Webhook {
		t.Fatalf("webhook sender not flagged")
	}
}

func TestListChannelsSkipsUnfetchableTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"c1","name":"general","type":0,"workspace_id":"w1","last_message_id":"42"},
			{"id":"c2","name":"voice chat","type":2,"workspace_id":"w1"},
			{"id":"c3","name":"bob","type":1}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, logging.Nop())
	chs, err := c.ListWorkspaceChannels(context.Background(), "tok-1", "w1")
	if err != nil {
		t.Fatalf("ListWorkspaceChannels: %v", err)
	}
	if len(chs) != 2 {
		t.Fatalf("channels = %+v, want voice skipped", chs)
	}
	if chs[0].Kind != types.ChannelText || chs[0].LastMessageID != "42" {
		t.Fatalf("c1 = %+v", chs[0])
	}
	if chs[1].Kind != types.ChannelDM {
		t.Fatalf("c3 = %+v", chs[1])
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, logging.Nop())
	if _, err := c.ListWorkspaces(context.Background(), "tok-1"); err != nil {
		t.Fatalf("ListWorkspaces after retry: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestNoRetryOnForbidden(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"403: Forbidden"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, logging.Nop())
	_, err := c.ListMessages(context.Background(), "tok-1", "c1", Window{})
	if !IsForbidden(err) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, forbidden retried", attempts)
	}
}
