// Package session runs a negotiation from lead lookup to deal close or turn
// exhaustion. The orchestrator drives the seller and buyer personas turn by
// turn, persists every turn before emitting it, and grounds each turn in
// conversation memory retrieved by similarity.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/crosslead/negotiator/common/retry"
	"github.com/crosslead/negotiator/internal/negotiator/agent"
	"github.com/crosslead/negotiator/internal/negotiator/llm"
	"github.com/crosslead/negotiator/internal/negotiator/memory"
	"github.com/crosslead/negotiator/internal/negotiator/store"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxTurnPairs        = 3
	DefaultRetrievalTopK       = 3
	DefaultFinalAssessmentTopK = 5
	DefaultTerminationMarker   = "[DEAL-CLOSED]"
	DefaultChannelBuffer       = 8
)

// Gateway is the slice of the store the orchestrator needs.
type Gateway interface {
	GetLead(ctx context.Context, id int64) (*store.Lead, error)
	GetCompany(ctx context.Context, id int64) (*store.Company, error)
	GetLatestProfileSummary(ctx context.Context, companyID int64) (string, bool, error)
	CreateChatRoom(ctx context.Context, id string, leadID int64) (*store.ChatRoom, error)
	CreateChatMessage(ctx context.Context, roomID string, fromCompanyID, toCompanyID int64, contents string) (*store.ChatMessage, error)
}

// TurnEvent is one item on the negotiation stream: either a persisted turn or
// a terminal error. After an event with Err set, no further events follow.
type TurnEvent struct {
	Message  *store.ChatMessage
	FromName string
	ToName   string
	Err      error
}

// Config tunes a negotiation run. Zero values take the package defaults.
type Config struct {
	// MaxTurnPairs bounds the conversation: each pair is one buyer turn and
	// one seller turn after the opening pitch.
	MaxTurnPairs int
	// RetrievalTopK is how many memory chunks ground an ordinary turn.
	RetrievalTopK int
	// FinalAssessmentTopK is the broadened retrieval for the closing
	// assessment.
	FinalAssessmentTopK int
	// TerminationMarker ends the negotiation when it appears anywhere in a
	// turn's contents.
	TerminationMarker string
	// ChannelBuffer is the event channel's capacity.
	ChannelBuffer int
}

func (c Config) withDefaults() Config {
	if c.MaxTurnPairs <= 0 {
		c.MaxTurnPairs = DefaultMaxTurnPairs
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = DefaultRetrievalTopK
	}
	if c.FinalAssessmentTopK <= 0 {
		c.FinalAssessmentTopK = DefaultFinalAssessmentTopK
	}
	if c.TerminationMarker == "" {
		c.TerminationMarker = DefaultTerminationMarker
	}
	if c.ChannelBuffer <= 0 {
		c.ChannelBuffer = DefaultChannelBuffer
	}
	return c
}

// Orchestrator runs negotiations. It is safe for concurrent use; each
// Negotiate call gets its own conversation memory.
type Orchestrator struct {
	gateway    Gateway
	provider   llm.Provider
	embedder   memory.Embedder
	summariser memory.Summariser
	embedDim   int
	cfg        Config
	logger     *slog.Logger
}

// New creates an Orchestrator. summariser may be nil to store raw chunks;
// logger may be nil for the default.
func New(gateway Gateway, provider llm.Provider, embedder memory.Embedder, summariser memory.Summariser, embedDim int, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:    gateway,
		provider:   provider,
		embedder:   embedder,
		summariser: summariser,
		embedDim:   embedDim,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

const sellerOpeningInstruction = "Open the negotiation: introduce your company and present " +
	"your strongest offer for this buyer in a short message."

const turnFrame = `Relevant context from earlier in this negotiation:
%s

The other party just said:
%s

Write your next reply.`

const finalAssessmentFrame = `The negotiation has reached its turn limit without closing.

Relevant context from the negotiation:
%s

Full transcript:
%s

As the buyer, give your final assessment. State, conservatively, how well this
seller fits your company's needs as a percentage (0-100%%), followed by a one
or two sentence justification. Do not agree to a deal.`

// participant is one side of the table: a persona plus the company it
// persists messages as.
type participant struct {
	agent     *agent.Agent
	companyID int64
}

// session is the state of one Negotiate call.
type session struct {
	o          *Orchestrator
	events     chan<- TurnEvent
	roomID     string
	mem        *memory.Memory
	transcript []string
	log        *slog.Logger
}

// Negotiate runs a full negotiation for the given lead and streams its turns.
// Every event's message is persisted before it is emitted. The channel is
// closed when the negotiation ends, after a terminal error event, or when ctx
// is cancelled.
func (o *Orchestrator) Negotiate(ctx context.Context, leadID int64) <-chan TurnEvent {
	events := make(chan TurnEvent, o.cfg.ChannelBuffer)
	go func() {
		defer close(events)
		o.run(ctx, leadID, events)
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, leadID int64, events chan<- TurnEvent) {
	log := o.logger.With("lead_id", leadID)

	// The lead lookup is the one retried call in the session: it races the
	// caller's own lead creation, and a transient miss here would kill the
	// run before it produced anything.
	var lead *store.Lead
	err := retry.Do(ctx, retry.DefaultConfig, func() error {
		var err error
		lead, err = o.gateway.GetLead(ctx, leadID)
		return err
	})
	if err != nil {
		o.emit(ctx, events, TurnEvent{Err: fmt.Errorf("session: lead lookup: %w", err)})
		return
	}

	seller, buyer, err := o.buildParticipants(ctx, lead)
	if err != nil {
		o.emit(ctx, events, TurnEvent{Err: err})
		return
	}

	roomID := uuid.NewString()
	if _, err := o.gateway.CreateChatRoom(ctx, roomID, lead.ID); err != nil {
		o.emit(ctx, events, TurnEvent{Err: fmt.Errorf("session: create room: %w", err)})
		return
	}
	log = log.With("room_id", roomID)
	log.Info("negotiation started",
		"seller", seller.agent.Name, "buyer", buyer.agent.Name, "max_turn_pairs", o.cfg.MaxTurnPairs)

	s := &session{
		o:      o,
		events: events,
		roomID: roomID,
		mem:    memory.New(o.embedder, o.summariser, o.embedDim, log),
		log:    log,
	}
	s.negotiate(ctx, seller, buyer)
}

// buildParticipants loads both companies and their latest profile summaries
// and constructs the personas. A missing profile document is not an error;
// the persona gets a placeholder and is told nothing more.
func (o *Orchestrator) buildParticipants(ctx context.Context, lead *store.Lead) (seller, buyer participant, err error) {
	sellerCo, err := o.gateway.GetCompany(ctx, lead.SellerCompanyID)
	if err != nil {
		return seller, buyer, fmt.Errorf("session: seller company: %w", err)
	}
	buyerCo, err := o.gateway.GetCompany(ctx, lead.BuyerCompanyID)
	if err != nil {
		return seller, buyer, fmt.Errorf("session: buyer company: %w", err)
	}

	sellerSummary, err := o.profileSummary(ctx, sellerCo.ID)
	if err != nil {
		return seller, buyer, err
	}
	buyerSummary, err := o.profileSummary(ctx, buyerCo.ID)
	if err != nil {
		return seller, buyer, err
	}

	seller = participant{
		agent:     agent.NewSeller(sellerCo.Name, sellerSummary, buyerCo.Name, buyerSummary, o.cfg.TerminationMarker),
		companyID: sellerCo.ID,
	}
	buyer = participant{
		agent:     agent.NewBuyer(buyerCo.Name, buyerSummary, o.cfg.TerminationMarker),
		companyID: buyerCo.ID,
	}
	return seller, buyer, nil
}

func (o *Orchestrator) profileSummary(ctx context.Context, companyID int64) (string, error) {
	summary, ok, err := o.gateway.GetLatestProfileSummary(ctx, companyID)
	if err != nil {
		return "", fmt.Errorf("session: profile summary for company %d: %w", companyID, err)
	}
	if !ok {
		return agent.NoProfilePlaceholder, nil
	}
	return summary, nil
}

// negotiate drives the turn loop: seller opening, then up to MaxTurnPairs of
// buyer/seller exchanges, then the buyer's final assessment if nobody closed.
func (s *session) negotiate(ctx context.Context, seller, buyer participant) {
	opening, ok := s.takeTurn(ctx, seller, buyer, sellerOpeningInstruction, "", "")
	if !ok {
		return
	}
	if s.closed(opening) {
		s.log.Info("negotiation closed by seller opening")
		return
	}

	lastMessage, lastSpeaker := opening, seller.agent.Name

	for pair := 0; pair < s.o.cfg.MaxTurnPairs; pair++ {
		reply, ok := s.takeTurn(ctx, buyer, seller, s.frame(ctx, lastMessage), lastSpeaker, lastMessage)
		if !ok {
			return
		}
		if s.closed(reply) {
			s.log.Info("negotiation closed", "by", buyer.agent.Name, "turn_pair", pair)
			return
		}
		lastMessage, lastSpeaker = reply, buyer.agent.Name

		reply, ok = s.takeTurn(ctx, seller, buyer, s.frame(ctx, lastMessage), lastSpeaker, lastMessage)
		if !ok {
			return
		}
		if s.closed(reply) {
			s.log.Info("negotiation closed", "by", seller.agent.Name, "turn_pair", pair)
			return
		}
		lastMessage, lastSpeaker = reply, seller.agent.Name
	}

	s.finalAssessment(ctx, seller, buyer, lastMessage)
}

// frame builds the input for an ordinary turn: retrieved context plus the
// literal previous message.
func (s *session) frame(ctx context.Context, lastMessage string) string {
	retrieved := s.mem.RetrieveContext(ctx, lastMessage, s.o.cfg.RetrievalTopK)
	return fmt.Sprintf(turnFrame, retrieved, lastMessage)
}

// takeTurn runs one persona turn and carries it through the pipeline:
// generate (fallback on failure), persist (fatal on failure), emit, record in
// memory. Returns the turn's contents and whether the session may continue.
func (s *session) takeTurn(ctx context.Context, from, to participant, input, prevSpeaker, prevMessage string) (string, bool) {
	output, err := from.agent.Run(ctx, s.o.provider, input)
	if err != nil {
		s.log.Warn("turn generation failed, substituting fallback", "from", from.agent.Name, "err", err)
		output = agent.FallbackMessage
	}

	msg, err := s.o.gateway.CreateChatMessage(ctx, s.roomID, from.companyID, to.companyID, output)
	if err != nil {
		s.emit(ctx, TurnEvent{Err: fmt.Errorf("session: persist turn: %w", err)})
		return "", false
	}

	if !s.emit(ctx, TurnEvent{Message: msg, FromName: from.agent.Name, ToName: to.agent.Name}) {
		return "", false
	}

	s.mem.RecordTurn(ctx, from.agent.Name, output, prevSpeaker, prevMessage)
	s.transcript = append(s.transcript, fmt.Sprintf("%s: %s", from.agent.Name, output))
	return output, true
}

// finalAssessment is the buyer's closing turn after turn exhaustion. It gets
// broadened retrieval plus the full transcript, and unlike ordinary turns has
// no fallback: a failed assessment is a terminal error, since this turn's
// whole value is its content.
func (s *session) finalAssessment(ctx context.Context, seller, buyer participant, lastMessage string) {
	retrieved := s.mem.RetrieveContext(ctx, lastMessage, s.o.cfg.FinalAssessmentTopK)
	input := fmt.Sprintf(finalAssessmentFrame, retrieved, strings.Join(s.transcript, "\n"))

	assessment, err := buyer.agent.Run(ctx, s.o.provider, input)
	if err != nil {
		s.emit(ctx, TurnEvent{Err: fmt.Errorf("session: final assessment: %w", err)})
		return
	}

	msg, err := s.o.gateway.CreateChatMessage(ctx, s.roomID, buyer.companyID, seller.companyID, assessment)
	if err != nil {
		s.emit(ctx, TurnEvent{Err: fmt.Errorf("session: persist final assessment: %w", err)})
		return
	}

	s.emit(ctx, TurnEvent{Message: msg, FromName: buyer.agent.Name, ToName: seller.agent.Name})
	s.log.Info("negotiation ended without close, final assessment delivered")
}

// closed reports whether contents carries the termination marker.
func (s *session) closed(contents string) bool {
	return strings.Contains(contents, s.o.cfg.TerminationMarker)
}

func (s *session) emit(ctx context.Context, ev TurnEvent) bool {
	return s.o.emit(ctx, s.events, ev)
}

// emit delivers an event unless the caller has gone away.
func (o *Orchestrator) emit(ctx context.Context, events chan<- TurnEvent, ev TurnEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
