package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/tracer"
)

// memorySeparator visually segments retrieved memories so the model can
// tell the sources apart.
const memorySeparator = "\n\n---\n\n"

var weekdaysZh = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// Assembler builds the per-request context string: a realtime block of
// current-time facts, optionally followed by retrieved memories.
// Retrieval is a best-effort enhancement; its failure degrades to the
// realtime-only block.
type Assembler struct {
	memories   domain.MemoryStore
	location   *time.Location
	memoryTopK int
	mixedTopK  int
	logger     *slog.Logger

	now func() time.Time // injectable clock for tests
}

// NewAssembler creates an assembler. memories may be nil, which behaves
// like a retriever that always returns zero results.
func NewAssembler(memories domain.MemoryStore, timezone string, memoryTopK, mixedTopK int, logger *slog.Logger) *Assembler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("invalid timezone, using UTC+8 fallback", "timezone", timezone, "error", err)
		loc = time.FixedZone("UTC+8", 8*60*60)
	}
	if memoryTopK <= 0 {
		memoryTopK = 6
	}
	if mixedTopK <= 0 || mixedTopK > memoryTopK {
		mixedTopK = min(4, memoryTopK)
	}

	return &Assembler{
		memories:   memories,
		location:   loc,
		memoryTopK: memoryTopK,
		mixedTopK:  mixedTopK,
		logger:     logger,
		now:        time.Now,
	}
}

// Assemble returns the context for one request. The realtime block is
// always present; memory snippets are appended for memory and mixed
// labels. The result is never empty.
func (a *Assembler) Assemble(ctx context.Context, label domain.Label, query string) string {
	ctx, span := tracer.StartSpan(ctx, "assembler.assemble")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("assemble.label", string(label)))

	realtime := a.realtimeBlock()
	if label == domain.LabelRealtime {
		tracer.SetOK(span)
		return realtime
	}

	k := a.memoryTopK
	if label == domain.LabelMixed {
		k = a.mixedTopK
	}

	memories := a.retrieve(ctx, query, k)
	span.SetAttributes(tracer.IntAttr("assemble.memories", len(memories)))
	tracer.SetOK(span)

	if len(memories) == 0 {
		return realtime
	}

	formatted := make([]string, len(memories))
	for i, m := range memories {
		formatted[i] = formatMemory(m)
	}

	return realtime +
		"\n\n下面是你们之前的部分记忆，请在合适的时候自然地引用或参考：\n\n" +
		strings.Join(formatted, memorySeparator)
}

// retrieve queries the memory store, absorbing every failure.
func (a *Assembler) retrieve(ctx context.Context, query string, k int) []domain.MemoryEntry {
	if a.memories == nil || strings.TrimSpace(query) == "" {
		return nil
	}

	entries, err := a.memories.Query(ctx, query, k)
	if err != nil {
		a.logger.Warn("memory retrieval failed, continuing without memories", "error", err)
		return nil
	}
	return entries
}

func (a *Assembler) realtimeBlock() string {
	now := a.now().In(a.location)
	weekday := weekdaysZh[now.Weekday()]

	currentTime := fmt.Sprintf("%s %s", now.Format("2006年01月02日 15:04:05"), weekday)
	currentDate := fmt.Sprintf("%s %s", now.Format("2006年1月2日"), weekday)
	_, offset := now.Zone()

	return fmt.Sprintf(`当前时间信息：
- 现在是：%s
- 今天是：%s
- 时区：%s (UTC%+d)`,
		currentTime, currentDate, a.location.String(), offset/3600)
}

// formatMemory renders one memory with header fields followed by its
// raw text.
func formatMemory(m domain.MemoryEntry) string {
	when := m.CreatedAt.Format(time.RFC3339)
	return fmt.Sprintf("【时间】%s  【类型】%s  【来自】%s\n%s", when, m.Type, m.Author, m.Content)
}
