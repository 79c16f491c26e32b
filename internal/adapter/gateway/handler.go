package gateway

import (
	"encoding/json"
	"net/http"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/tracer"
)

type chatRequest struct {
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Reply        string `json:"reply"`
	SystemPrompt string `json:"systemPrompt"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, span := tracer.StartSpan(r.Context(), "gateway.chat")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		tracer.RecordError(span, err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	history := make([]domain.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := domain.Role(m.Role)
		// The client owns only user and assistant turns; anything else
		// is normalized to user so the transcript stays well-formed.
		if role != domain.RoleUser && role != domain.RoleAssistant {
			role = domain.RoleUser
		}
		history = append(history, domain.Message{Role: role, Content: m.Content})
	}

	result, err := s.responder.Respond(ctx, history)
	if err != nil {
		tracer.RecordError(span, err)
		s.logger.Error("reply generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate reply")
		return
	}
	tracer.SetOK(span)

	if req.Stream {
		s.writeStream(w, result.Reply)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(chatResponse{
		Reply:        result.Reply,
		SystemPrompt: result.SystemPrompt,
	}); err != nil {
		s.logger.Warn("failed to write chat response", "error", err)
	}
}

// writeStream emits the whole reply as a single plain-text chunk. The
// reply is already complete when emission starts; the chunked shape
// keeps streaming clients working without incremental generation.
func (s *Server) writeStream(w http.ResponseWriter, reply string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(reply)); err != nil {
		s.logger.Warn("failed to write stream chunk", "error", err)
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
