package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testHash = [32]byte{0xde, 0xad, 0xbe, 0xef}

func TestCIDFromHash(t *testing.T) {
	cid := CIDFromHash(testHash)

	if !strings.HasPrefix(cid, "f01701220") {
		t.Errorf("expected base16 CIDv1 prefix, got %s", cid)
	}
	if !strings.Contains(cid, "deadbeef") {
		t.Errorf("expected hash hex in CID, got %s", cid)
	}
	if len(cid) != len("f01701220")+64 {
		t.Errorf("unexpected CID length %d", len(cid))
	}
}

func TestFetchFromGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, CIDFromHash(testHash)) {
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
		w.Write([]byte(`{"name": "Triton Hobbyist", "description": "hobbyist staking program"}`))
	}))
	defer server.Close()

	fetcher := NewFetcher(WithGatewayURL(server.URL + "/ipfs/%s"))

	meta, err := fetcher.Fetch(context.Background(), testHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Name != "Triton Hobbyist" {
		t.Errorf("unexpected name: %s", meta.Name)
	}
	if meta.Description != "hobbyist staking program" {
		t.Errorf("unexpected description: %s", meta.Description)
	}
}

func TestFetchGatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewFetcher(WithGatewayURL(server.URL + "/ipfs/%s"))

	_, err := fetcher.Fetch(context.Background(), testHash)
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("expected status in error, got %v", err)
	}
	if !strings.Contains(err.Error(), server.URL) {
		t.Errorf("expected URL in error, got %v", err)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	fetcher := NewFetcher(WithGatewayURL(server.URL + "/ipfs/%s"))

	if _, err := fetcher.Fetch(context.Background(), testHash); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	fetcher := NewFetcher(
		WithGatewayURL(server.URL+"/ipfs/%s"),
		WithTimeout(20*time.Millisecond),
	)

	if _, err := fetcher.Fetch(context.Background(), testHash); err == nil {
		t.Fatal("expected timeout error")
	}
}
