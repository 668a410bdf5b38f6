package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/mselway/courtier/internal/action"
	"github.com/mselway/courtier/internal/agent"
	"github.com/mselway/courtier/internal/config"
	"github.com/mselway/courtier/internal/game"
	"github.com/mselway/courtier/internal/llm"
	"github.com/mselway/courtier/internal/metrics"
)

// ErrImpersonation indicates the model tried to speak for the initiating
// participant. The turn is discarded entirely, never partially accepted.
var ErrImpersonation = errors.New("model impersonated the initiating participant")

// ErrSessionClosed indicates a call against an ended session.
var ErrSessionClosed = errors.New("session is closed")

// Dependencies holds the collaborators a session engine needs. Assembled
// by the caller and passed to the constructor.
type Dependencies struct {
	Client     llm.Client
	Summarizer llm.Client // optional; falls back to Client
	Store      *Store
	Pipeline   *action.Pipeline
	Router     *agent.Router          // optional; nil disables delegation
	Sink       *game.RunFileManager   // optional; nil skips session-end signaling
	Metrics    *metrics.Collector     // optional
	Logger     *slog.Logger
}

// Turn is the outcome of one generation: the accepted message (nil when
// the turn was discarded) and any action-pipeline result for the primary
// interlocutor.
type Turn struct {
	Message *Message
	Actions action.Result
}

// Engine orchestrates per-character turn generation for one conversation
// session. It exclusively owns the session's message history and rolling
// summary for its lifetime; generation is strictly sequential.
type Engine struct {
	cfg    config.Config
	deps   Dependencies
	data   *game.Data
	script Script

	initiator game.Character
	primaryID int32

	window    *Window
	memories  map[int32][]string
	summaries map[int32][]Summary

	open    bool
	onChunk func(participantID int32, chunk string)
}

// NewEngine starts a session. primaryID designates the primary
// interlocutor whose turns additionally run the action pipeline. A
// pre-conversation flush of queued agent events runs before any dialogue.
func NewEngine(ctx context.Context, cfg config.Config, deps Dependencies, data *game.Data, script Script, primaryID int32) (*Engine, error) {
	initiator, ok := data.Initiator()
	if !ok {
		return nil, fmt.Errorf("initiator %d not in roster", data.InitiatorID)
	}

	e := &Engine{
		cfg:       cfg,
		deps:      deps,
		data:      data,
		script:    script,
		initiator: initiator,
		primaryID: primaryID,
		memories:  make(map[int32][]string),
		summaries: make(map[int32][]Summary),
		open:      true,
	}

	summarizer := deps.Summarizer
	if summarizer == nil {
		summarizer = deps.Client
	}
	e.window = NewWindow(deps.Client, &llmSummarizer{
		client: summarizer,
		prompt: script.SummarizePrompt,
	}, cfg.PercentOfContextToSummarize, deps.Logger)

	// Guarantee agent memories are current before dialogue begins.
	if deps.Router != nil {
		if err := deps.Router.FlushPending(ctx); err != nil {
			deps.Logger.Warn("pre-conversation event flush failed", "error", err)
		}
	}

	return e, nil
}

// SetChunkRelay installs the presentation boundary's streaming callback.
func (e *Engine) SetChunkRelay(fn func(participantID int32, chunk string)) {
	e.onChunk = fn
}

// SetMemories provides free-text memories for a participant, surfaced in
// prompts at the configured insertion depth.
func (e *Engine) SetMemories(participantID int32, memories []string) {
	e.memories[participantID] = memories
}

// Window exposes the session's context window.
func (e *Engine) Window() *Window {
	return e.window
}

// PushUserTurn records a turn spoken by the initiating participant.
func (e *Engine) PushUserTurn(content string) error {
	if !e.open {
		return ErrSessionClosed
	}
	e.window.Push(Message{Role: llm.RoleUser, Name: e.initiator.ShortName, Content: content})
	return nil
}

// GenerateRound generates one turn per participant with order randomized
// once per round. Generation is strictly sequential; one participant's
// failure is reported but does not stop the round.
func (e *Engine) GenerateRound(ctx context.Context, participantIDs []int32) ([]Turn, []error) {
	order := append([]int32{}, participantIDs...)
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var turns []Turn
	var errs []error
	for _, id := range order {
		turn, err := e.GenerateTurn(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("participant %d: %w", id, err))
			continue
		}
		turns = append(turns, turn)
	}
	return turns, errs
}

// GenerateTurn produces one reply for a non-initiating participant,
// following the full per-turn pipeline: delegation, context fitting,
// completion, cleaning, safety checks, self-talk wrapping, history push
// and the action scan for the primary interlocutor.
func (e *Engine) GenerateTurn(ctx context.Context, participantID int32) (Turn, error) {
	if !e.open {
		return Turn{}, ErrSessionClosed
	}
	participant, ok := e.data.Roster.Get(participantID)
	if !ok {
		return Turn{}, fmt.Errorf("participant %d not in roster", participantID)
	}

	selfTalk := e.cfg.SelfTalk && participantID == e.initiator.ID

	// Delegated participants bypass local context management entirely.
	if e.deps.Router != nil && e.deps.Router.Delegated(participantID) {
		return e.generateDelegated(ctx, participant, selfTalk)
	}

	e.loadSummaries(participant)

	prompt := e.buildPrompt(participant)
	e.window.EnsureFits(ctx, e.deps.Client.TokensFromChat(toChatPrompt(prompt)))
	// History may have shrunk; rebuild against the updated window.
	prompt = e.buildPrompt(participant)

	raw, err := e.complete(ctx, participantID, prompt)
	if err != nil {
		return Turn{}, fmt.Errorf("generate turn: %w", err)
	}

	cleaned := CleanOutput(raw, participant.FullName, participant.ShortName)

	if !selfTalk && startsWithNamePrefix(cleaned, e.initiator.FullName, e.initiator.ShortName) {
		e.deps.Logger.Error("discarding impersonating turn",
			"participant", participant.ShortName, "initiator", e.initiator.ShortName)
		return Turn{}, ErrImpersonation
	}

	if strings.TrimSpace(cleaned) == "" {
		e.deps.Logger.Debug("discarding empty turn", "participant", participant.ShortName)
		return Turn{}, nil
	}

	if selfTalk {
		msg := Message{Role: llm.RoleAssistant, Name: participant.ShortName, Content: wrapMonologue(cleaned)}
		e.window.Push(msg)
		// Self-talk never triggers the action scan.
		return Turn{Message: &msg}, nil
	}

	msg := Message{Role: llm.RoleAssistant, Name: participant.ShortName, Content: cleaned}
	e.window.Push(msg)

	turn := Turn{Message: &msg}
	if participantID == e.primaryID && e.deps.Pipeline != nil {
		turn.Actions = e.scanActions(ctx, participant)
	}
	return turn, nil
}

func (e *Engine) generateDelegated(ctx context.Context, participant game.Character, selfTalk bool) (Turn, error) {
	userTurn := ""
	if msgs := e.window.Messages(); len(msgs) > 0 {
		userTurn = renderContent(msgs[len(msgs)-1])
	}

	start := time.Now()
	reply, err := e.deps.Router.Generate(ctx, participant.ID, userTurn)
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordTiming(metrics.OpAgentChat, time.Since(start))
	}
	if err != nil {
		return Turn{}, fmt.Errorf("delegated turn: %w", err)
	}

	if strings.TrimSpace(reply) == "" {
		return Turn{}, nil
	}
	if selfTalk {
		reply = wrapMonologue(reply)
	}

	msg := Message{Role: llm.RoleAssistant, Name: participant.ShortName, Content: reply}
	e.window.Push(msg)

	turn := Turn{Message: &msg}
	if !selfTalk && participant.ID == e.primaryID && e.deps.Pipeline != nil {
		turn.Actions = e.scanActions(ctx, participant)
	}
	return turn, nil
}

func (e *Engine) complete(ctx context.Context, participantID int32, prompt []Message) (string, error) {
	req := llm.CompletionRequest{
		Messages:    toChatPrompt(prompt),
		MaxTokens:   e.cfg.MaxOutputTokens,
		Temperature: e.cfg.Temperature,
	}
	op := metrics.OpLLMGenerate
	if e.cfg.Stream && e.onChunk != nil {
		op = metrics.OpLLMStream
		req.OnChunk = func(chunk string) { e.onChunk(participantID, chunk) }
	}

	start := time.Now()
	text, err := e.deps.Client.Complete(ctx, req)
	if e.deps.Metrics != nil && err == nil {
		e.deps.Metrics.RecordCompletion(op, time.Since(start),
			int64(e.deps.Client.TokensFromChat(req.Messages)),
			int64(e.deps.Client.TokensFromMessage(llm.ChatMessage{Role: llm.RoleAssistant, Content: text})))
	}
	return text, err
}

// scanActions asks the model for a structured action block covering the
// turn just generated and runs it through the pipeline. Scan failures
// never fail the turn.
func (e *Engine) scanActions(ctx context.Context, participant game.Character) action.Result {
	st := action.State{Data: e.data, Actor: participant, Initiator: e.initiator}
	available := e.deps.Pipeline.Registry().Available(st)
	if len(available) == 0 {
		return action.Result{}
	}

	var sb strings.Builder
	sb.WriteString("Given the conversation so far, decide whether ")
	sb.WriteString(participant.ShortName)
	sb.WriteString(" takes any of these actions:\n")
	for _, a := range available {
		sb.WriteString("- ")
		sb.WriteString(a.Signature)
		sb.WriteString("(")
		for i, arg := range a.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.Name)
			sb.WriteString(" ")
			sb.WriteString(string(arg.Type))
		}
		sb.WriteString("): ")
		sb.WriteString(a.Description)
		sb.WriteString("\n")
	}
	sb.WriteString("\nReply with <rationale>why</rationale><actions>name1(),name2(arg)</actions>. Use <actions></actions> if none apply.")

	prompt := e.buildPrompt(participant)
	prompt = append(prompt, Message{Role: llm.RoleSystem, Content: sb.String()})

	start := time.Now()
	raw, err := e.deps.Client.Complete(ctx, llm.CompletionRequest{
		Messages:    toChatPrompt(prompt),
		MaxTokens:   e.cfg.MaxOutputTokens,
		Temperature: 0.2,
	})
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordTiming(metrics.OpActionExecute, time.Since(start))
	}
	if err != nil {
		e.deps.Logger.Warn("action scan failed", "participant", participant.ShortName, "error", err)
		return action.Result{}
	}

	return e.deps.Pipeline.Process(raw, st)
}

// EndSession closes the session: the transcript is flushed to the
// per-pair history file, a session summary is generated and prepended to
// the primary participant's summary list (skipped below 2 messages or on
// empty output), and the effect sink gets its session-end trigger.
func (e *Engine) EndSession(ctx context.Context) error {
	if !e.open {
		return ErrSessionClosed
	}
	e.open = false

	msgs := e.window.Messages()
	if err := e.deps.Store.WriteHistory(e.initiator.ID, e.primaryID, e.data.Date, msgs); err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	if len(msgs) >= 2 {
		start := time.Now()
		content, err := (&llmSummarizer{
			client: e.summarizerClient(),
			prompt: e.script.SummarizePrompt,
		}).Summarize(ctx, msgs, e.window.RollingSummary())
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordTiming(metrics.OpSummarize, time.Since(start))
		}
		if err != nil {
			e.deps.Logger.Error("session summary failed", "error", err)
		} else if err := e.deps.Store.PrependSummary(e.initiator.ID, e.primaryID, Summary{
			Date:    e.data.Date,
			Content: strings.TrimSpace(content),
		}); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
	}

	if e.deps.Sink != nil {
		if err := e.deps.Sink.SignalSessionEnd(); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
	}
	return nil
}

// UpdateConfig installs a new configuration snapshot and the completion
// client rebuilt for it, and reloads the action registry.
func (e *Engine) UpdateConfig(cfg config.Config, client llm.Client, summarizer llm.Client) {
	e.cfg = cfg
	e.deps.Client = client
	e.deps.Summarizer = summarizer
	e.window.client = client
	if s, ok := e.window.summarizer.(*llmSummarizer); ok {
		e.window.summarizer = &llmSummarizer{client: e.summarizerClient(), prompt: s.prompt}
	}
	if e.deps.Pipeline != nil {
		e.deps.Pipeline.Registry().Reload()
	}
}

func (e *Engine) summarizerClient() llm.Client {
	if e.deps.Summarizer != nil {
		return e.deps.Summarizer
	}
	return e.deps.Client
}

func (e *Engine) loadSummaries(participant game.Character) {
	if _, ok := e.summaries[participant.ID]; ok {
		return
	}
	summaries, err := e.deps.Store.LoadSummaries(e.initiator.ID, participant.ID)
	if err != nil {
		e.deps.Logger.Error("loading summaries failed", "participant", participant.ID, "error", err)
		summaries = nil
	}
	e.summaries[participant.ID] = summaries
}

func (e *Engine) summariesFor(participantID int32) []Summary {
	return e.summaries[participantID]
}

// llmSummarizer folds messages into a summary with one completion call.
type llmSummarizer struct {
	client llm.Client
	prompt string
}

const defaultSummarizePrompt = `Summarize the following conversation segment. Preserve key decisions, revealed information, emotional states and promises made. Be concise but keep every narratively important detail. If an earlier summary is given, fold it in rather than repeating it.`

func (s *llmSummarizer) Summarize(ctx context.Context, removed []Message, current string) (string, error) {
	instruction := s.prompt
	if instruction == "" {
		instruction = defaultSummarizePrompt
	}

	var sb strings.Builder
	if current != "" {
		sb.WriteString("Earlier summary:\n")
		sb.WriteString(current)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Conversation:\n")
	for _, m := range removed {
		sb.WriteString("[")
		if m.Name != "" {
			sb.WriteString(m.Name)
		} else {
			sb.WriteString(string(m.Role))
		}
		sb.WriteString("]: ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	text, err := s.client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: instruction},
			{Role: llm.RoleUser, Content: sb.String()},
		},
		MaxTokens:   512,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(text), nil
}
