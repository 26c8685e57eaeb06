package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/repository"
)

// State is the phase of a chat turn.
type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateExecuting    State = "executing"
	StateSynthesizing State = "synthesizing"
	StateFailed       State = "failed"
)

// transitions lists the legal next states for each state.
var transitions = map[State][]State{
	StateIdle:         {StateExtracting},
	StateExtracting:   {StateExecuting, StateFailed},
	StateExecuting:    {StateSynthesizing, StateFailed},
	StateSynthesizing: {StateIdle},
	StateFailed:       {StateIdle},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// turnMachine tracks the state of one turn.
type turnMachine struct {
	state State
	trace []State
}

func newTurnMachine() *turnMachine {
	return &turnMachine{state: StateIdle, trace: []State{StateIdle}}
}

// to moves to next. An illegal move is a programming error and panics.
func (m *turnMachine) to(next State) {
	if !CanTransition(m.state, next) {
		panic(fmt.Sprintf("assistant: illegal turn transition %s -> %s", m.state, next))
	}
	m.state = next
	m.trace = append(m.trace, next)
}

// User-visible replies for failed turns.
const (
	msgParseFailure = "Sorry, I didn't understand that request. Could you rephrase it?"
	msgAuthFailure  = "Your calendar connection has expired or was revoked. Please re-authenticate and try again."
	msgCancelled    = "The request was cancelled before it finished."
)

// ChatRequest is one user message.
type ChatRequest struct {
	UserID      string
	Message     string
	History     []domain.Turn
	TimeInfo    *domain.TimeInfo
	SessionID   string
	Personality string
}

// ChatResponse is the reply for one turn. History includes the new turn.
type ChatResponse struct {
	Response   string            `json:"response"`
	Operations []OperationResult `json:"operations"`
	Error      bool              `json:"error,omitempty"`
	History    []domain.Turn     `json:"history"`
	SessionID  string            `json:"sessionId,omitempty"`
	States     []State           `json:"-"`
}

// Orchestrator runs Extract -> Execute -> Synthesize for each turn.
type Orchestrator struct {
	extractor   *Extractor
	executor    *Executor
	synthesizer *Synthesizer
	store       ConversationStore
	observer    UseCaseObserver
	logger      *slog.Logger
	now         func() time.Time
	loc         *time.Location

	mu       sync.Mutex
	inFlight map[string]bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithConversationStore persists history for requests that carry a session id.
func WithConversationStore(store ConversationStore) OrchestratorOption {
	return func(o *Orchestrator) { o.store = store }
}

// WithUseCaseObserver reports each turn to obs.
func WithUseCaseObserver(obs UseCaseObserver) OrchestratorOption {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock sets the clock and zone used when a request has no TimeInfo.
func WithClock(now func() time.Time, loc *time.Location) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
		if loc != nil {
			o.loc = loc
		}
	}
}

// NewOrchestrator wires the three pipeline stages.
func NewOrchestrator(x *Extractor, e *Executor, s *Synthesizer, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		extractor:   x,
		executor:    e,
		synthesizer: s,
		observer:    NoopUseCaseObserver{},
		logger:      logger,
		now:         time.Now,
		loc:         time.UTC,
		inFlight:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// acquire marks key busy. It fails when a turn for key is already running.
func (o *Orchestrator) acquire(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[key] {
		return false
	}
	o.inFlight[key] = true
	return true
}

func (o *Orchestrator) release(key string) {
	o.mu.Lock()
	delete(o.inFlight, key)
	o.mu.Unlock()
}

func turnKey(req ChatRequest) string {
	if req.SessionID != "" {
		return "session:" + req.SessionID
	}
	return "user:" + req.UserID
}

// Turn handles one user message. Pipeline failures end in a reply with
// Error set; the returned error covers only requests that were not run:
// an empty message, a busy session or an unreadable session store.
func (o *Orchestrator) Turn(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	key := turnKey(req)
	if !o.acquire(key) {
		return nil, ErrTurnInProgress
	}
	defer o.release(key)

	start := time.Now()
	history, personality, err := o.loadSession(ctx, req)
	if err != nil {
		return nil, err
	}
	ti := o.timeInfo(req.TimeInfo)

	m := newTurnMachine()
	resp := &ChatResponse{SessionID: req.SessionID}
	turnErr := o.run(ctx, m, resp, message, req.UserID, ti, history, personality)
	m.to(StateIdle)
	resp.States = m.trace
	if resp.Operations == nil {
		resp.Operations = []OperationResult{}
	}

	turn := []domain.Turn{
		domain.NewTurn(domain.RoleUser, message),
		domain.NewTurn(domain.RoleModel, resp.Response),
	}
	resp.History = append(append([]domain.Turn(nil), history...), turn...)
	o.persist(ctx, req, turn)

	observe(ctx, o.observer, "chat_turn", start, turnErr, map[string]any{
		"user":       req.UserID,
		"operations": len(resp.Operations),
		"states":     len(m.trace),
	})
	return resp, nil
}

// run drives the machine from idle to synthesizing or failed, filling resp.
func (o *Orchestrator) run(ctx context.Context, m *turnMachine, resp *ChatResponse, message, userID string, ti domain.TimeInfo, history []domain.Turn, personality string) error {
	m.to(StateExtracting)
	intent, err := o.extractor.Extract(ctx, message, ti, history)
	if err != nil {
		m.to(StateFailed)
		o.logger.WarnContext(ctx, "extraction failed", "user", userID, "error", err)
		resp.Response, resp.Error = failureMessage(err), true
		return err
	}

	m.to(StateExecuting)
	results, err := o.executor.Execute(ctx, intent, userID, ti)
	resp.Operations = results
	if err != nil {
		m.to(StateFailed)
		resp.Response, resp.Error = failureMessage(err), true
		return err
	}

	m.to(StateSynthesizing)
	resp.Response = o.synthesizer.Synthesize(ctx, message, results, history, ti, personality)
	return nil
}

func failureMessage(err error) string {
	var perr *ParseError
	switch {
	case errors.As(err, &perr):
		return msgParseFailure
	case auth.IsAuthError(err):
		return msgAuthFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgCancelled
	default:
		return "Sorry, something went wrong: " + err.Error()
	}
}

func (o *Orchestrator) timeInfo(ti *domain.TimeInfo) domain.TimeInfo {
	if ti != nil && ti.Date != "" {
		return *ti
	}
	fallback := domain.TimeInfoAt(o.now(), o.loc)
	if ti != nil && ti.Timezone != "" {
		fallback = domain.TimeInfoAt(o.now(), ti.Location())
	}
	return fallback
}

// loadSession returns the history and personality for req. Stored history
// replaces the request's history when a session id is given.
func (o *Orchestrator) loadSession(ctx context.Context, req ChatRequest) ([]domain.Turn, string, error) {
	personality := ResolvePersonality(req.Personality)
	if req.SessionID == "" || o.store == nil {
		return req.History, personality, nil
	}

	sess, err := o.store.Ensure(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != req.UserID {
		return nil, "", ErrSessionNotOwned
	}
	if personality != "" && personality != sess.Personality {
		if err := o.store.SetPersonality(ctx, sess.ID, personality); err != nil {
			return nil, "", fmt.Errorf("save personality: %w", err)
		}
	}
	if personality == "" {
		personality = sess.Personality
	}

	stored, err := o.store.List(ctx, sess.ID)
	if err != nil {
		return nil, "", fmt.Errorf("load history: %w", err)
	}
	return repository.History(stored), personality, nil
}

func (o *Orchestrator) persist(ctx context.Context, req ChatRequest, turn []domain.Turn) {
	if req.SessionID == "" || o.store == nil {
		return
	}
	// A cancelled request still records the turn it answered.
	if err := o.store.Append(context.WithoutCancel(ctx), req.SessionID, turn...); err != nil {
		o.logger.ErrorContext(ctx, "persisting chat turn", "session", req.SessionID, "error", err)
	}
}
