package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Retrieval sentinels. Each names a distinct reason why no context block
// could be produced; callers pass them to the prompt as-is.
const (
	// SentinelNoHistory is returned when nothing has been stored yet.
	SentinelNoHistory = "(no conversation history yet)"
	// SentinelUnavailable is returned when the query could not be embedded.
	SentinelUnavailable = "(conversation context unavailable)"
	// SentinelNothingRelevant is returned when search produced no usable hits.
	SentinelNothingRelevant = "(no relevant conversation history found)"
)

// DefaultTopK is the default number of chunks returned by RetrieveContext.
const DefaultTopK = 3

// Record is one stored turn-chunk. Records are immutable once appended and
// live for the duration of one negotiation session.
type Record struct {
	// Text is the stored content: the raw "speaker: message" chunk or its
	// summarised form.
	Text string
	// Speaker identifies the author of the current half of the chunk.
	Speaker string
	// VectorIndex is the chunk's position in the vector index, assigned at
	// insertion. Dense and strictly increasing; never reused.
	VectorIndex int
	// TurnSequence is the value of the session turn counter when RecordTurn
	// was called. Distinct from VectorIndex because turns dropped on
	// embedding failure still consume a sequence number.
	TurnSequence int
}

// Memory is the conversation memory for a single negotiation session. It
// owns a vector index and an index-aligned record log: position i of the
// index always corresponds to records[i].
//
// The orchestrator accesses a session's memory sequentially, but a mutex
// guards both structures so the single-writer invariant is enforced rather
// than assumed. The lock is held only for index/log access, never across
// summariser or embedder calls.
type Memory struct {
	mu         sync.Mutex
	embedder   Embedder
	summariser Summariser
	index      *VectorIndex
	records    []Record
	turnSeq    int
	logger     *slog.Logger
}

// New creates an empty Memory for one session. dim must match the embedder's
// output dimensionality. A nil summariser stores chunks verbatim; a nil
// logger uses the default.
func New(embedder Embedder, summariser Summariser, dim int, logger *slog.Logger) *Memory {
	if summariser == nil {
		summariser = IdentitySummariser{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		embedder:   embedder,
		summariser: summariser,
		index:      NewVectorIndex(dim),
		logger:     logger,
	}
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// RecordTurn stores one turn in retrievable memory. When a previous message
// is supplied, the stored chunk pairs it with the current message for fuller
// context; the very first turn is stored alone.
//
// The chunk is summarised (best effort) and embedded. On embedding failure
// the turn is dropped from retrieval memory — it still exists in the
// caller's full-history log, so losing one turn of grounding is preferable
// to aborting the negotiation. RecordTurn therefore never returns an error;
// failures are logged.
func (m *Memory) RecordTurn(ctx context.Context, speaker, message, prevSpeaker, prevMessage string) {
	m.mu.Lock()
	seq := m.turnSeq
	m.turnSeq++
	m.mu.Unlock()

	chunk := fmt.Sprintf("%s: %s", speaker, message)
	if prevMessage != "" {
		chunk = fmt.Sprintf("%s: %s\n%s", prevSpeaker, prevMessage, chunk)
	}

	stored := m.summariser.Summarise(ctx, chunk)

	vec, err := m.embedder.Embed(ctx, stored)
	if err != nil {
		m.logger.Warn("memory: embedding failed, turn dropped from retrieval",
			"turn_sequence", seq, "speaker", speaker, "err", err)
		return
	}
	if vec == nil {
		m.logger.Debug("memory: embedder returned no vector, turn dropped from retrieval",
			"turn_sequence", seq, "speaker", speaker)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.index.Add(vec)
	if err != nil {
		// Treated as "no insertion happened": the record log is not appended
		// either, keeping the two structures aligned.
		m.logger.Warn("memory: index insertion failed, turn dropped from retrieval",
			"turn_sequence", seq, "speaker", speaker, "err", err)
		return
	}

	m.records = append(m.records, Record{
		Text:         stored,
		Speaker:      speaker,
		VectorIndex:  pos,
		TurnSequence: seq,
	})

	m.logger.Debug("memory: turn recorded",
		"turn_sequence", seq, "vector_index", pos, "speaker", speaker, "chunk_len", len(stored))
}

// RetrieveContext returns a context block of the stored chunks most similar
// to query, most similar first. k defaults to DefaultTopK when non-positive
// and is clamped to the number of stored records.
//
// It never returns an error: when no block can be produced, one of the three
// pairwise-distinct sentinels is returned instead (empty memory, query
// embedding unavailable, or no resolvable hits).
func (m *Memory) RetrieveContext(ctx context.Context, query string, k int) string {
	if m.Len() == 0 {
		return SentinelNoHistory
	}

	if k <= 0 {
		k = DefaultTopK
	}

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Warn("memory: query embedding failed", "err", err)
		return SentinelUnavailable
	}
	if vec == nil {
		return SentinelUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := m.index.Search(vec, k)

	var b strings.Builder
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(m.records) {
			m.logger.Warn("memory: search hit outside record log", "position", hit.Position)
			continue
		}
		rec := m.records[hit.Position]
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[turn %d | similarity %.3f] %s", rec.TurnSequence, hit.Score, rec.Text)
	}

	if b.Len() == 0 {
		return SentinelNothingRelevant
	}
	return b.String()
}
