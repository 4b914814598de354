package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"
)

func newTestSlack(handler http.Handler) (*SlackClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewSlackClient("xoxb-test")
	c.SetBaseURL(srv.URL)
	return c, srv
}

func TestLookupHandle(t *testing.T) {
	c, srv := newTestSlack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users.lookupByEmail" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer xoxb-test" {
			t.Fatalf("missing bearer token")
		}
		switch r.URL.Query().Get("email") {
		case "jane@x.com":
			fmt.Fprint(w, `{"ok":true,"user":{"id":"U123"}}`)
		default:
			fmt.Fprint(w, `{"ok":false,"error":"users_not_found"}`)
		}
	}))
	defer srv.Close()

	handle, err := c.LookupHandle(context.Background(), "jane@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "U123" {
		t.Fatalf("expected U123, got %q", handle)
	}

	_, err = c.LookupHandle(context.Background(), "ghost@x.com")
	if !errors.Is(err, ErrHandleNotFound) {
		t.Fatalf("expected ErrHandleNotFound, got %v", err)
	}
}

func TestPostMessagePayload(t *testing.T) {
	var gotBody string
	c, srv := newTestSlack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	if err := c.SendDirectMessage(context.Background(), "U123", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gjson.Get(gotBody, "channel").Str != "U123" || gjson.Get(gotBody, "text").Str != "hello" {
		t.Fatalf("unexpected payload: %s", gotBody)
	}
}

func TestPostMessageAPIError(t *testing.T) {
	c, srv := newTestSlack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"error":"channel_not_found"}`)
	}))
	defer srv.Close()

	err := c.SendChannelMessage(context.Background(), "#nope", "hello")
	if err == nil {
		t.Fatal("expected error for ok=false response")
	}
}
