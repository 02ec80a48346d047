package clevertap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/dispatch"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

func newClientForTest(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Options{
		BaseURL:   srv.URL,
		AccountID: "acc-1",
		Passcode:  "pass-1",
	}, logpkg.NewTestLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestSendPayloadAndHeaders(t *testing.T) {
	var gotPath, gotAccount, gotPasscode, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccount = r.Header.Get("X-CleverTap-Account-Id")
		gotPasscode = r.Header.Get("X-CleverTap-Passcode")
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClientForTest(t, srv)
	err := c.Send(context.Background(), []dispatch.Event{{
		Identity: "u1",
		Name:     "TotalItemsInCart",
		Data:     map[string]any{"product_id_0": "p1"},
	}})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotPath != "/1/upload" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAccount != "acc-1" || gotPasscode != "pass-1" || gotContentType != "application/json" {
		t.Fatalf("headers: %q %q %q", gotAccount, gotPasscode, gotContentType)
	}

	d, ok := gotBody["d"].([]any)
	if !ok || len(d) != 1 {
		t.Fatalf("payload missing d array: %v", gotBody)
	}
	rec := d[0].(map[string]any)
	if rec["identity"] != "u1" || rec["type"] != "event" || rec["evtName"] != "TotalItemsInCart" {
		t.Fatalf("record envelope: %v", rec)
	}
	if _, ok := rec["ts"]; ok {
		t.Fatalf("zero timestamp should be omitted: %v", rec)
	}
	data := rec["evtData"].(map[string]any)
	if data["product_id_0"] != "p1" {
		t.Fatalf("evtData: %v", data)
	}
}

func TestSendTimestampIncluded(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	c := newClientForTest(t, srv)
	if err := c.Send(context.Background(), []dispatch.Event{{
		Identity: "u1", Name: "MostViewedItem", Timestamp: 1749000000,
		Data: map[string]any{},
	}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	rec := gotBody["d"].([]any)[0].(map[string]any)
	if rec["ts"] != float64(1749000000) {
		t.Fatalf("ts missing: %v", rec)
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClientForTest(t, srv)
	err := c.Send(context.Background(), []dispatch.Event{{Identity: "u1", Name: "E"}})
	if err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := newClientForTest(t, srv)
	if err := c.Send(context.Background(), []dispatch.Event{{Identity: "u1", Name: "E"}}); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Options{AccountID: "a"}, nil); err == nil {
		t.Fatalf("expected error without passcode")
	}
	if _, err := New(Options{Passcode: "p"}, nil); err == nil {
		t.Fatalf("expected error without account id")
	}
}
