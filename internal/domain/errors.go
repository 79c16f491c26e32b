package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrNotFound          = fmt.Errorf("not found")
	ErrTimeout           = fmt.Errorf("operation timed out")
	ErrToolNotFound      = fmt.Errorf("tool not found")
	ErrToolFailure       = fmt.Errorf("tool execution failed")
	ErrMaxIterations     = fmt.Errorf("orchestrator reached max iterations")
	ErrMemoryUnavailable = fmt.Errorf("memory store unavailable")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrEncryption        = fmt.Errorf("encryption operation failed")
	ErrDecryption        = fmt.Errorf("decryption failed")
	ErrStorage           = fmt.Errorf("storage operation failed")

	// Completion / embedding provider errors.
	ErrCompletionFailed = fmt.Errorf("completion call failed")
	ErrEmbeddingFailed  = fmt.Errorf("embedding generation failed")
	ErrContextOverflow  = fmt.Errorf("context window exceeded")
	ErrRateLimit        = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid      = fmt.Errorf("authentication failed")

	// Weather subsystem errors.
	ErrWeatherUnavailable = fmt.Errorf("weather service unavailable")
	ErrCityNotFound       = fmt.Errorf("city not found")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is transient and may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category for monitoring.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeToolNotFound       ErrorCode = "TOOL_NOT_FOUND"
	CodeToolFailure        ErrorCode = "TOOL_FAILURE"
	CodeMaxIterations      ErrorCode = "MAX_ITERATIONS"
	CodeMemoryUnavailable  ErrorCode = "MEMORY_UNAVAILABLE"
	CodeCompletionFailed   ErrorCode = "COMPLETION_FAILED"
	CodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"
	CodeContextOverflow    ErrorCode = "CONTEXT_OVERFLOW"
	CodeRateLimit          ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid        ErrorCode = "AUTH_INVALID"
	CodeStorage            ErrorCode = "STORAGE"
	CodeEncryption         ErrorCode = "ENCRYPTION"
	CodeDecryption         ErrorCode = "DECRYPTION"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeWeatherUnavailable ErrorCode = "WEATHER_UNAVAILABLE"
	CodeCityNotFound       ErrorCode = "CITY_NOT_FOUND"
)

var codeMap = map[error]ErrorCode{
	ErrInvalidInput:       CodeInvalidInput,
	ErrNotFound:           CodeNotFound,
	ErrTimeout:            CodeTimeout,
	ErrToolNotFound:       CodeToolNotFound,
	ErrToolFailure:        CodeToolFailure,
	ErrMaxIterations:      CodeMaxIterations,
	ErrMemoryUnavailable:  CodeMemoryUnavailable,
	ErrCompletionFailed:   CodeCompletionFailed,
	ErrEmbeddingFailed:    CodeEmbeddingFailed,
	ErrContextOverflow:    CodeContextOverflow,
	ErrRateLimit:          CodeRateLimit,
	ErrAuthInvalid:        CodeAuthInvalid,
	ErrStorage:            CodeStorage,
	ErrEncryption:         CodeEncryption,
	ErrDecryption:         CodeDecryption,
	ErrConfigLoad:         CodeConfigLoad,
	ErrWeatherUnavailable: CodeWeatherUnavailable,
	ErrCityNotFound:       CodeCityNotFound,
}

// ErrorCodeOf maps an error to its code via errors.Is.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	for sentinel, code := range codeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
