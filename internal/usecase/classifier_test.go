package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
)

func TestClassifyByKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  domain.Label
	}{
		{"time question", "现在几点了", domain.LabelRealtime},
		{"weather question", "今天天气怎么样", domain.LabelRealtime},
		{"memory question", "你还记得我们上次去的地方吗", domain.LabelMemory},
		{"past reference", "之前那件事后来怎么样了", domain.LabelMemory},
		{"both", "今天天气如何，对了你还记得上次的计划吗", domain.LabelMixed},
		{"neither", "给我讲个笑话", domain.LabelMemory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyByKeywords(tt.query))
		})
	}
}

func TestClassifyEmptyQuery(t *testing.T) {
	c := NewClassifier(nil, false, "", 0, testLogger())
	assert.Equal(t, domain.LabelMemory, c.Classify(context.Background(), "   "))
}

// answerProvider always replies with a fixed string.
type answerProvider struct {
	answer string
	err    error

	mu    sync.Mutex
	calls int
}

func (p *answerProvider) Chat(_ context.Context, _ domain.ChatRequest) (*domain.ChatResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: p.answer}}, nil
}

func (p *answerProvider) Name() string { return "answer" }

func TestClassifyModelAssisted(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   domain.Label
	}{
		{"clean realtime", "realtime", domain.LabelRealtime},
		{"clean memory", "memory", domain.LabelMemory},
		{"mixed wins over contained realtime", "mixed", domain.LabelMixed},
		{"verbose answer", "答案是 realtime。", domain.LabelRealtime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &answerProvider{answer: tt.answer}
			c := NewClassifier(p, true, "test-model", 0, testLogger())
			got := c.Classify(context.Background(), "随便问问")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, p.calls)
		})
	}
}

func TestClassifyModelFailureFallsBack(t *testing.T) {
	p := &answerProvider{err: errors.New("boom")}
	c := NewClassifier(p, true, "test-model", 0, testLogger())

	got := c.Classify(context.Background(), "现在几点了")
	require.Equal(t, domain.LabelRealtime, got)
}

func TestClassifyModelGarbageFallsBack(t *testing.T) {
	p := &answerProvider{answer: "我不知道该怎么分类"}
	c := NewClassifier(p, true, "test-model", 0, testLogger())

	got := c.Classify(context.Background(), "记得我们的约定吗")
	assert.Equal(t, domain.LabelMemory, got)
}
