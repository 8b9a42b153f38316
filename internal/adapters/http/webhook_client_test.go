package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/inboxship/internal/domain"
)

const testFP = domain.Fingerprint("31115019fec2d7040bcf9dd0bf8f962b9ca792b80f27659af0501af551f15256")

func testMessage() domain.Message {
	return domain.Message{Fields: map[string]any{
		"date":      json.Number("1700000000000"),
		"address":   "+15551234567",
		"body":      "hello",
		"thread_id": json.Number("7"),
	}}
}

type staticSettings map[string]string

func (s staticSettings) Get(key, def string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return def
}

func TestDeliverStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.OutcomeKind
		reason   string
	}{
		{name: "ok", status: http.StatusOK, wantKind: domain.Delivered},
		{name: "conflict", status: http.StatusConflict, body: "dup", wantKind: domain.AlreadyExists},
		{name: "server error", status: http.StatusInternalServerError, body: "boom\n", wantKind: domain.Rejected, reason: "boom"},
		{name: "created is not ok", status: http.StatusCreated, wantKind: domain.Rejected, reason: "Created"},
		{name: "bad request", status: http.StatusBadRequest, body: "missing field", wantKind: domain.Rejected, reason: "missing field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewWebhookClient(srv.Client(), nil, "inboxship/test", nil)
			out := c.Deliver(context.Background(), testMessage(), testFP, srv.URL)
			if out.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v (%s)", out.Kind, tt.wantKind, out)
			}
			if out.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", out.StatusCode, tt.status)
			}
			if tt.reason != "" && out.Reason != tt.reason {
				t.Fatalf("reason = %q, want %q", out.Reason, tt.reason)
			}
		})
	}
}

func TestDeliverSendsFieldsAndHeaders(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.Client(), nil, "inboxship/1.2.3", staticSettings{"auth_token": "s3cret"})
	out := c.Deliver(context.Background(), testMessage(), testFP, srv.URL+"/hook")
	if out.Kind != domain.Delivered {
		t.Fatalf("unexpected outcome %s", out)
	}

	if gotMethod != http.MethodPost {
		t.Fatalf("method = %s", gotMethod)
	}
	if got := gotHeader.Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", got)
	}
	if got := gotHeader.Get("User-Agent"); got != "inboxship/1.2.3" {
		t.Fatalf("User-Agent = %q", got)
	}
	if got := gotHeader.Get(HeaderFingerprint); got != testFP.String() {
		t.Fatalf("fingerprint header = %q", got)
	}
	if got := gotHeader.Get("Authorization"); got != "Bearer s3cret" {
		t.Fatalf("Authorization = %q", got)
	}

	if len(gotBody) != 4 {
		t.Fatalf("expected the 4 message fields only, got %v", gotBody)
	}
	if gotBody["address"] != "+15551234567" || gotBody["body"] != "hello" {
		t.Fatalf("unexpected body %v", gotBody)
	}
	if n, ok := gotBody["thread_id"].(json.Number); !ok || n.String() != "7" {
		t.Fatalf("extra field not passed through: %#v", gotBody["thread_id"])
	}
}

func TestDeliverOmitsAuthorizationWithoutToken(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.Client(), nil, "", staticSettings{})
	c.Deliver(context.Background(), testMessage(), testFP, srv.URL)
	if got, _ := auth.Load().(string); got != "" {
		t.Fatalf("expected no Authorization header, got %q", got)
	}
}

func TestDeliverRejectsInvalidEndpointWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	client := clientFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("unexpected call")
	})

	c := NewWebhookClient(client, nil, "", nil)
	for _, endpoint := range []string{"", "ftp://example.com", "not a url", "http://"} {
		out := c.Deliver(context.Background(), testMessage(), testFP, endpoint)
		if out.Kind != domain.Rejected {
			t.Fatalf("endpoint %q: kind = %v, want rejected", endpoint, out.Kind)
		}
		if !domain.HasCode(out.Err, domain.CodeConfiguration) {
			t.Fatalf("endpoint %q: err = %v, want CONFIGURATION_ERROR", endpoint, out.Err)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network attempt, got %d", calls.Load())
	}
}

func TestDeliverTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewWebhookClient(&http.Client{Timeout: time.Second}, nil, "", nil)
	out := c.Deliver(context.Background(), testMessage(), testFP, url)
	if out.Kind != domain.TransportError {
		t.Fatalf("kind = %v, want transport_error", out.Kind)
	}
	if out.Err == nil || out.Reason == "" {
		t.Fatalf("expected error and reason, got %+v", out)
	}
}

func TestDeliverTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewWebhookClient(&http.Client{Timeout: 50 * time.Millisecond}, nil, "", nil)
	out := c.Deliver(context.Background(), testMessage(), testFP, srv.URL)
	if out.Kind != domain.TransportError {
		t.Fatalf("kind = %v, want transport_error", out.Kind)
	}
}

func TestDeliverIgnoresRunCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewWebhookClient(srv.Client(), nil, "", nil)
	out := c.Deliver(ctx, testMessage(), testFP, srv.URL)
	if out.Kind != domain.Delivered {
		t.Fatalf("kind = %v, want delivered", out.Kind)
	}
}

func TestDeliverTruncatesReason(t *testing.T) {
	long := strings.Repeat("x", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, long)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.Client(), nil, "", nil)
	out := c.Deliver(context.Background(), testMessage(), testFP, srv.URL)
	if len(out.Reason) != maxReasonBytes {
		t.Fatalf("reason length = %d, want %d", len(out.Reason), maxReasonBytes)
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return errors.New("close failed")
}

func TestDeliverClosesBodyOnEveryPath(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusConflict, http.StatusTeapot} {
		body := &closeTracker{Reader: strings.NewReader("payload")}
		client := clientFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: status, Body: body, Header: make(http.Header)}, nil
		})

		c := NewWebhookClient(client, nil, "", nil)
		c.Deliver(context.Background(), testMessage(), testFP, "https://hooks.example.com/in")
		if !body.closed {
			t.Fatalf("status %d: body not closed", status)
		}
	}
}

type clientFunc func(*http.Request) (*http.Response, error)

func (f clientFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }
