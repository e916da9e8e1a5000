package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotReq embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []embeddingData{{Embedding: []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "test-key", BaseURL: srv.URL})

	vec, err := e.Embed(context.Background(), "Seller: hello\nBuyer: hi")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}

	// Newlines must be normalised to spaces before the API call.
	if gotReq.Input != "Seller: hello Buyer: hi" {
		t.Errorf("request input = %q, want newlines normalised", gotReq.Input)
	}
	if gotReq.Model != defaultEmbeddingModel {
		t.Errorf("request model = %q, want %q", gotReq.Model, defaultEmbeddingModel)
	}
}

func TestOpenAIEmbedder_EmptyText(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{BaseURL: "http://unreachable.invalid"})
	vec, err := e.Embed(context.Background(), "  \n ")
	if err != nil {
		t.Fatalf("Embed() error for empty text: %v", err)
	}
	if vec != nil {
		t.Errorf("expected nil vector for empty text, got %v", vec)
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{BaseURL: srv.URL})
	if _, err := e.Embed(context.Background(), "some text"); err == nil {
		t.Fatal("expected error from rate-limited response")
	}
}

func TestOpenAIEmbedder_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{BaseURL: srv.URL})
	if _, err := e.Embed(context.Background(), "some text"); err == nil {
		t.Fatal("expected error when response has no embedding data")
	}
}
