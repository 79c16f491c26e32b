package usecase

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"champ-ai/internal/domain"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens estimates the token footprint of a message. Falls back to
// a character-based heuristic if the encoding fails to load (offline
// builds without the BPE data).
func countTokens(m domain.Message) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	if encoding == nil {
		return len(m.Content)/4 + 8
	}
	// 4 tokens of per-message wire overhead, roughly.
	return len(encoding.Encode(m.Content, nil, nil)) + 4
}

// truncateHistory drops the oldest messages until the transcript fits
// the token budget, keeping at most maxMessages. An assistant message
// bearing tool calls and its tool results form an atomic group that is
// kept or dropped together, preserving tool_call_id referential
// integrity.
func truncateHistory(history []domain.Message, maxMessages, tokenBudget int, logger *slog.Logger) []domain.Message {
	if maxMessages <= 0 {
		maxMessages = 50
	}

	groups := groupMessages(history)

	// Walk groups newest-first, accumulating until either limit trips.
	kept := len(groups)
	var tokens, total int
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		gTokens := 0
		if tokenBudget > 0 {
			for _, m := range g {
				gTokens += countTokens(m)
			}
		}
		if total+len(g) > maxMessages || (tokenBudget > 0 && tokens+gTokens > tokenBudget) {
			break
		}
		total += len(g)
		tokens += gTokens
		kept = i
	}

	if kept == 0 {
		return history
	}

	var result []domain.Message
	for _, g := range groups[kept:] {
		result = append(result, g...)
	}
	if len(result) < len(history) {
		logger.Debug("history truncated",
			"dropped", len(history)-len(result),
			"kept", len(result),
			"tokens", tokens,
		)
	}
	// Never return an empty transcript: keep the newest message even if
	// it alone exceeds the budget.
	if len(result) == 0 && len(history) > 0 {
		result = history[len(history)-1:]
	}
	return result
}

// groupMessages splits a transcript into atomic groups: an assistant
// message with tool calls plus its following tool results stay together.
func groupMessages(history []domain.Message) [][]domain.Message {
	var groups [][]domain.Message
	i := 0
	for i < len(history) {
		m := history[i]
		if m.Role == domain.RoleAssistant && len(m.ToolCalls) > 0 {
			j := i + 1
			for j < len(history) && history[j].Role == domain.RoleTool {
				j++
			}
			groups = append(groups, history[i:j])
			i = j
			continue
		}
		groups = append(groups, history[i:i+1])
		i++
	}
	return groups
}
