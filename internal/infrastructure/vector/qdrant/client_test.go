package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestUpsertNoticeProvisionsCollectionOnce(t *testing.T) {
	var getCalls, createCalls int32
	var upserted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/collections/notices":
			atomic.AddInt32(&getCalls, 1)
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/notices":
			atomic.AddInt32(&createCalls, 1)
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			vectors, _ := body["vectors"].(map[string]any)
			if vectors["size"] != float64(3) || vectors["distance"] != "Cosine" {
				t.Errorf("unexpected collection config: %v", body)
			}
			_, _ = w.Write([]byte(`{"result":true}`))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/notices/points":
			_ = json.NewDecoder(r.Body).Decode(&upserted)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "notices")
	payload := map[string]any{"post_id": "n1", "title": "t"}
	for i := 0; i < 2; i++ {
		if err := client.UpsertNotice(context.Background(), "n1", []float32{0.1, 0.2, 0.3}, payload); err != nil {
			t.Fatalf("UpsertNotice() #%d error = %v", i, err)
		}
	}
	if getCalls != 1 || createCalls != 1 {
		t.Fatalf("expected one provisioning round, got get=%d create=%d", getCalls, createCalls)
	}
	points, _ := upserted["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected one point, got %v", upserted)
	}
	point := points[0].(map[string]any)
	if point["id"] != PointID("n1") {
		t.Fatalf("expected deterministic point id, got %v", point["id"])
	}
}

func TestPointIDIsStable(t *testing.T) {
	if PointID("n1") != PointID("n1") || PointID("n1") == PointID("n2") {
		t.Fatalf("point ids must be deterministic per notice")
	}
}

func TestSearchMapsPayloadAndOffset(t *testing.T) {
	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/notices/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = w.Write([]byte(`{"result":[
			{"id":"a","score":0.91,"payload":{"post_id":"n1"}},
			{"id":"b","score":0.80,"payload":{}},
			{"id":"c","score":0.75,"payload":{"post_id":"n2"}}
		]}`))
	}))
	defer server.Close()

	hits, err := New(server.URL, "notices").Search(context.Background(), []float32{0.1}, 8, 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].NoticeID != "n1" || hits[0].Score != 0.91 || hits[1].NoticeID != "n2" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if request["limit"] != float64(8) || request["offset"] != float64(4) {
		t.Fatalf("unexpected search request: %v", request)
	}
}

func TestSearchMissingCollectionReturnsNoHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	hits, err := New(server.URL, "notices").Search(context.Background(), []float32{0.1}, 8, 0)
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected empty result for missing collection, got %v %v", hits, err)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/notices" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	err := New(server.URL, "notices").UpsertNotice(context.Background(), "n1", []float32{0.1}, nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}
