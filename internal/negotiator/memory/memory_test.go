package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeEmbedder returns scripted vectors, failing or returning nil on demand.
type fakeEmbedder struct {
	vectors [][]float32
	errs    []error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.vectors) {
		return f.vectors[i], nil
	}
	return []float32{1, 0}, nil
}

func TestMemory_IndexLogAlignment(t *testing.T) {
	emb := &fakeEmbedder{vectors: [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "we sell valves", "", "")
	m.RecordTurn(ctx, "Buyer", "what sizes?", "Seller", "we sell valves")
	m.RecordTurn(ctx, "Seller", "all standard sizes", "Buyer", "what sizes?")

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	if m.index.Len() != len(m.records) {
		t.Fatalf("index size %d != record log size %d", m.index.Len(), len(m.records))
	}
	for i, rec := range m.records {
		if rec.VectorIndex != i {
			t.Errorf("record %d: VectorIndex = %d, want %d", i, rec.VectorIndex, i)
		}
		if rec.TurnSequence != i {
			t.Errorf("record %d: TurnSequence = %d, want %d", i, rec.TurnSequence, i)
		}
	}
}

func TestMemory_ChunkPairsPreviousMessage(t *testing.T) {
	emb := &fakeEmbedder{}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "opening pitch", "", "")
	m.RecordTurn(ctx, "Buyer", "tell me more", "Seller", "opening pitch")

	if got := m.records[0].Text; got != "Seller: opening pitch" {
		t.Errorf("first chunk = %q, want bare speaker chunk", got)
	}
	want := "Seller: opening pitch\nBuyer: tell me more"
	if got := m.records[1].Text; got != want {
		t.Errorf("paired chunk = %q, want %q", got, want)
	}
}

func TestMemory_EmbeddingFailureDropsTurn(t *testing.T) {
	emb := &fakeEmbedder{
		vectors: [][]float32{{1, 0}, nil, {0, 1}},
		errs:    []error{nil, errors.New("rate limited"), nil},
	}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "first", "", "")
	m.RecordTurn(ctx, "Buyer", "dropped", "Seller", "first")
	m.RecordTurn(ctx, "Seller", "third", "Buyer", "dropped")

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (failed turn dropped)", m.Len())
	}

	// The dropped turn still consumed a sequence number.
	if m.records[0].TurnSequence != 0 || m.records[1].TurnSequence != 2 {
		t.Errorf("turn sequences = %d, %d; want 0, 2",
			m.records[0].TurnSequence, m.records[1].TurnSequence)
	}
	// Vector positions stay dense.
	if m.records[0].VectorIndex != 0 || m.records[1].VectorIndex != 1 {
		t.Errorf("vector positions = %d, %d; want 0, 1",
			m.records[0].VectorIndex, m.records[1].VectorIndex)
	}
}

func TestMemory_DimensionMismatchDropsTurn(t *testing.T) {
	emb := &fakeEmbedder{vectors: [][]float32{{1, 0, 0}}}
	m := New(emb, nil, 2, nil)

	m.RecordTurn(context.Background(), "Seller", "bad vector", "", "")

	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after index insertion failure", m.Len())
	}
	if m.index.Len() != 0 {
		t.Errorf("index.Len() = %d, want 0", m.index.Len())
	}
}

func TestMemory_RetrievalSentinelsAreDistinct(t *testing.T) {
	sentinels := []string{SentinelNoHistory, SentinelUnavailable, SentinelNothingRelevant}
	for i := range sentinels {
		for j := i + 1; j < len(sentinels); j++ {
			if sentinels[i] == sentinels[j] {
				t.Errorf("sentinels %d and %d are equal: %q", i, j, sentinels[i])
			}
		}
	}

	ctx := context.Background()

	// Empty memory → no-history sentinel, without touching the embedder.
	m := New(&fakeEmbedder{errs: []error{errors.New("must not be called")}}, nil, 2, nil)
	if got := m.RetrieveContext(ctx, "query", 3); got != SentinelNoHistory {
		t.Errorf("empty memory: got %q, want %q", got, SentinelNoHistory)
	}

	// Non-empty memory with failing query embedding → unavailable sentinel.
	emb := &fakeEmbedder{
		vectors: [][]float32{{1, 0}},
		errs:    []error{nil, errors.New("backend down")},
	}
	m = New(emb, nil, 2, nil)
	m.RecordTurn(ctx, "Seller", "hello", "", "")
	if got := m.RetrieveContext(ctx, "query", 3); got != SentinelUnavailable {
		t.Errorf("failing query embed: got %q, want %q", got, SentinelUnavailable)
	}
}

func TestMemory_NoResolvableHitsSentinel(t *testing.T) {
	// The record embeds at the index dimension, but the query embeds at a
	// different one, so the search yields no hits at all.
	emb := &fakeEmbedder{vectors: [][]float32{{1, 0}, {1, 0, 0}}}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "hello", "", "")

	if got := m.RetrieveContext(ctx, "query", 3); got != SentinelNothingRelevant {
		t.Errorf("got %q, want %q", got, SentinelNothingRelevant)
	}
}

// blockingEmbedder parks inside Embed until released.
type blockingEmbedder struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	close(b.entered)
	<-b.release
	return []float32{1, 0}, nil
}

func TestMemory_RetrieveNotBlockedByInFlightRecord(t *testing.T) {
	emb := &blockingEmbedder{entered: make(chan struct{}), release: make(chan struct{})}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	recorded := make(chan struct{})
	go func() {
		m.RecordTurn(ctx, "Seller", "slow turn", "", "")
		close(recorded)
	}()
	<-emb.entered

	// With the embedder mid-call, retrieval must still answer promptly.
	got := make(chan string, 1)
	go func() { got <- m.RetrieveContext(ctx, "query", 1) }()

	select {
	case s := <-got:
		if s != SentinelNoHistory {
			t.Errorf("got %q, want %q", s, SentinelNoHistory)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RetrieveContext blocked behind an in-flight RecordTurn")
	}

	close(emb.release)
	<-recorded
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after the slow turn lands", m.Len())
	}
}

func TestMemory_RetrieveContextTopKClamp(t *testing.T) {
	emb := &fakeEmbedder{vectors: [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}, {1, 0}}}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "one", "", "")
	m.RecordTurn(ctx, "Buyer", "two", "Seller", "one")
	m.RecordTurn(ctx, "Seller", "three", "Buyer", "two")

	got := m.RetrieveContext(ctx, "anything", 100)
	snippets := strings.Count(got, "[turn ")
	if snippets != 3 {
		t.Errorf("expected at most 3 snippets, got %d in %q", snippets, got)
	}
}

func TestMemory_RetrieveContextOrdersBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: [][]float32{
		{0, 1},   // turn 0: orthogonal to query
		{1, 0},   // turn 1: identical to query
		{1, 0},   // query embedding
	}}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "irrelevant", "", "")
	m.RecordTurn(ctx, "Buyer", "relevant", "Seller", "irrelevant")

	got := m.RetrieveContext(ctx, "query", 2)
	first := strings.Index(got, "[turn 1 ")
	second := strings.Index(got, "[turn 0 ")
	if first == -1 || second == -1 {
		t.Fatalf("expected both turns in context block, got %q", got)
	}
	if first > second {
		t.Errorf("most similar turn should come first: %q", got)
	}
}

func TestMemory_RetrieveContextIncludesScoreAndSequence(t *testing.T) {
	emb := &fakeEmbedder{vectors: [][]float32{{1, 0}, {1, 0}}}
	m := New(emb, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "we offer bulk discounts", "", "")

	got := m.RetrieveContext(ctx, "discounts", 1)
	if !strings.Contains(got, "[turn 0 | similarity 1.000]") {
		t.Errorf("snippet label missing sequence/score: %q", got)
	}
	if !strings.Contains(got, "Seller: we offer bulk discounts") {
		t.Errorf("snippet missing chunk text: %q", got)
	}
}

func TestMemory_NoopEmbedderDisablesRetrieval(t *testing.T) {
	m := New(NoopEmbedder{}, nil, 2, nil)
	ctx := context.Background()

	m.RecordTurn(ctx, "Seller", "hello", "", "")
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0 with noop embedder", m.Len())
	}
	if got := m.RetrieveContext(ctx, "query", 3); got != SentinelNoHistory {
		t.Errorf("got %q, want %q", got, SentinelNoHistory)
	}
}
