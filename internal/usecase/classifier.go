package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/tracer"
)

// Keyword sets for the deterministic classification fallback.
var (
	realtimeKeywords = []string{
		"现在", "当前", "今天", "今日", "此刻", "目前",
		"几点", "什么时间", "什么时候", "多少点",
		"今天是", "现在是", "当前是",
		"天气", "温度", "气温",
		"最新", "现状", "当下",
	}

	memoryKeywords = []string{
		"记得", "回忆", "以前", "之前", "那天", "那时",
		"曾经", "过去", "历史", "上次", "前面",
		"我们", "你还记得", "想起", "回想",
	}
)

const classifyPrompt = `你是一个查询分类器。判断用户的问题属于哪一类，只回答一个词：
- realtime：询问当前时间、日期、天气等实时信息
- memory：询问过去的事情、回忆、计划或提醒
- mixed：两者都涉及

示例：
问：现在几点了 答：realtime
问：记得我们上次去的地方吗 答：memory
问：今天天气怎么样，对了上次说的计划还算数吗 答：mixed

只输出 realtime、memory 或 mixed，不要输出其它内容。`

// Classifier labels a user query as realtime, memory, or mixed.
//
// Two tiers: an optional model-assisted path (more accurate, but a
// network round trip that can fail or time out) and a keyword fallback
// that is always available. Classify never returns an error.
type Classifier struct {
	provider      domain.CompletionProvider
	modelAssisted bool
	model         string
	timeout       time.Duration
	logger        *slog.Logger
}

// NewClassifier creates a classifier. provider may be nil when the
// model-assisted path is disabled.
func NewClassifier(provider domain.CompletionProvider, modelAssisted bool, model string, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Classifier{
		provider:      provider,
		modelAssisted: modelAssisted && provider != nil,
		model:         model,
		timeout:       timeout,
		logger:        logger,
	}
}

// Classify returns one of the three labels. Empty queries default to
// memory, the conservative choice.
func (c *Classifier) Classify(ctx context.Context, query string) domain.Label {
	ctx, span := tracer.StartSpan(ctx, "classifier.classify")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return domain.LabelMemory
	}

	if c.modelAssisted {
		if label, ok := c.classifyByModel(ctx, query); ok {
			span.SetAttributes(tracer.StringAttr("classify.label", string(label)),
				tracer.StringAttr("classify.path", "model"))
			tracer.SetOK(span)
			return label
		}
	}

	label := classifyByKeywords(query)
	span.SetAttributes(tracer.StringAttr("classify.label", string(label)),
		tracer.StringAttr("classify.path", "keyword"))
	tracer.SetOK(span)
	return label
}

// classifyByModel runs a single low-temperature, token-capped completion.
// Any failure or unrecognized answer reports ok=false so the caller
// falls back to keywords.
func (c *Classifier) classifyByModel(ctx context.Context, query string) (domain.Label, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Chat(ctx, domain.ChatRequest{
		Model: c.model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: classifyPrompt},
			{Role: domain.RoleUser, Content: query},
		},
		MaxTokens:   8,
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Warn("model-assisted classification failed, using keywords", "error", err)
		return "", false
	}

	answer := strings.ToLower(resp.Message.Content)
	// mixed first: its presence wins even if the answer rambles.
	switch {
	case strings.Contains(answer, string(domain.LabelMixed)):
		return domain.LabelMixed, true
	case strings.Contains(answer, string(domain.LabelRealtime)):
		return domain.LabelRealtime, true
	case strings.Contains(answer, string(domain.LabelMemory)):
		return domain.LabelMemory, true
	}

	c.logger.Warn("model-assisted classification returned no label", "answer", resp.Message.Content)
	return "", false
}

// classifyByKeywords is the zero-dependency fallback. Neither set
// matching defaults to memory: false negatives on memory are cheaper
// than hallucinated realtime answers.
func classifyByKeywords(query string) domain.Label {
	q := strings.ToLower(query)

	hasRealtime := containsAny(q, realtimeKeywords)
	hasMemory := containsAny(q, memoryKeywords)

	switch {
	case hasRealtime && hasMemory:
		return domain.LabelMixed
	case hasRealtime:
		return domain.LabelRealtime
	default:
		return domain.LabelMemory
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
