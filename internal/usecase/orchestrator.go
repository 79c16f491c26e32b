package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/tracer"
)

// Result is the outcome of one orchestrated turn.
type Result struct {
	Reply        string
	SystemPrompt string
}

// Options tunes the orchestrator.
type Options struct {
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxIterations int
	SystemPrompt  string // empty means the built-in persona
	HistoryLimit  int
	TokenBudget   int
}

// Orchestrator drives the classify -> assemble -> completion/tool loop
// for a single conversation turn.
type Orchestrator struct {
	provider   domain.CompletionProvider
	classifier *Classifier
	assembler  *Assembler
	tools      domain.ToolExecutor
	bus        domain.EventBus
	opts       Options
	logger     *slog.Logger
}

// NewOrchestrator wires the orchestration loop. tools and bus may be
// nil; the loop then runs without tool support or event publication.
func NewOrchestrator(
	provider domain.CompletionProvider,
	classifier *Classifier,
	assembler *Assembler,
	tools domain.ToolExecutor,
	bus domain.EventBus,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 5
	}
	return &Orchestrator{
		provider:   provider,
		classifier: classifier,
		assembler:  assembler,
		tools:      tools,
		bus:        bus,
		opts:       opts,
		logger:     logger,
	}
}

// Respond produces a reply for the given transcript. The transcript is
// the client's view of the conversation; the system message is built
// here and never expected from the client.
//
// Tool failures and the iteration cap degrade to a best-effort reply.
// Only a failed completion call is fatal.
func (o *Orchestrator) Respond(ctx context.Context, history []domain.Message) (*Result, error) {
	ctx, span := tracer.StartSpan(ctx, "orchestrator.respond")
	defer span.End()

	query := lastUserContent(history)
	o.publish(ctx, domain.EventMessageReceived, map[string]any{"query_len": len(query)})

	label := o.classifier.Classify(ctx, query)
	contextBlock := o.assembler.Assemble(ctx, label, query)
	systemPrompt := buildSystemMessage(o.opts.SystemPrompt, contextBlock)

	span.SetAttributes(tracer.StringAttr("respond.label", string(label)))

	history = truncateHistory(history, o.opts.HistoryLimit, o.opts.TokenBudget, o.logger)

	messages := make([]domain.Message, 0, len(history)+1)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)

	var schemas []domain.ToolSchema
	if o.tools != nil {
		schemas = o.tools.Schemas()
	}

	lastContent := ""
	for i := 0; i < o.opts.MaxIterations; i++ {
		resp, err := o.provider.Chat(ctx, domain.ChatRequest{
			Model:       o.opts.Model,
			Messages:    messages,
			Tools:       schemas,
			MaxTokens:   o.opts.MaxTokens,
			Temperature: o.opts.Temperature,
		})
		if err != nil {
			tracer.RecordError(span, err)
			return nil, domain.WrapOp("orchestrator.Respond", err)
		}

		if resp.Message.Content != "" {
			lastContent = resp.Message.Content
		}

		if len(resp.Message.ToolCalls) == 0 {
			span.SetAttributes(tracer.IntAttr("respond.iterations", i+1))
			tracer.SetOK(span)
			o.publish(ctx, domain.EventReplyReady, map[string]any{"iterations": i + 1})
			return &Result{Reply: resp.Message.Content, SystemPrompt: systemPrompt}, nil
		}

		messages = append(messages, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Message.Content,
			ToolCalls: resp.Message.ToolCalls,
		})
		messages = append(messages, o.executeToolCalls(ctx, resp.Message.ToolCalls)...)
	}

	// Cap reached with tool calls still pending. Answer with what we
	// have rather than failing the whole turn.
	o.logger.Warn("iteration cap reached, returning last content",
		"max_iterations", o.opts.MaxIterations)
	span.SetAttributes(tracer.IntAttr("respond.iterations", o.opts.MaxIterations))
	tracer.SetOK(span)
	o.publish(ctx, domain.EventReplyReady, map[string]any{"iterations": o.opts.MaxIterations, "capped": true})
	return &Result{Reply: lastContent, SystemPrompt: systemPrompt}, nil
}

// executeToolCalls runs all calls from one assistant message
// concurrently and returns tool messages in the requested order, one
// per call. Every call gets a response message regardless of outcome,
// keeping tool_call_id references intact.
func (o *Orchestrator) executeToolCalls(ctx context.Context, calls []domain.ToolCall) []domain.Message {
	results := make([]domain.Message, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call domain.ToolCall) {
			defer wg.Done()
			results[i] = o.executeOne(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) executeOne(ctx context.Context, call domain.ToolCall) domain.Message {
	payload := o.runTool(ctx, call)

	o.publish(ctx, domain.EventToolExecuted, map[string]any{
		"tool":    call.Name,
		"success": payload.Success,
	})

	return domain.Message{
		Role:       domain.RoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    payload.Encode(),
	}
}

func (o *Orchestrator) runTool(ctx context.Context, call domain.ToolCall) domain.ToolPayload {
	if o.tools == nil {
		return domain.ToolPayload{Success: false, Message: "Unknown tool."}
	}

	t, err := o.tools.Get(call.Name)
	if err != nil {
		o.logger.Warn("model requested unknown tool", "tool", call.Name)
		return domain.ToolPayload{Success: false, Message: "Unknown tool."}
	}

	args := sanitizeArguments(call.Arguments)

	result, err := t.Execute(ctx, args)
	if err != nil {
		o.logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return domain.ToolPayload{Success: false, Message: "Error: " + err.Error()}
	}
	if result == nil {
		return domain.ToolPayload{Success: false, Message: "Error: empty tool result"}
	}
	if result.IsError {
		msg := result.Content
		if !strings.HasPrefix(msg, "Error: ") {
			msg = "Error: " + msg
		}
		return domain.ToolPayload{Success: false, Message: msg}
	}
	return domain.ToolPayload{Success: true, Message: result.Content}
}

// sanitizeArguments replaces malformed or empty tool arguments with an
// empty object so tools always receive parseable JSON.
func sanitizeArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage("{}")
	}
	return raw
}

func (o *Orchestrator) publish(ctx context.Context, t domain.EventType, payload map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(ctx, domain.Event{Type: t, Timestamp: time.Now(), Payload: payload})
}

// lastUserContent returns the content of the newest user message, or ""
// when the transcript has none.
func lastUserContent(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
