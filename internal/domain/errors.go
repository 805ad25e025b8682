package domain

import (
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"

	// Quiz lifecycle errors
	CodeInsufficientContent ErrorCode = "INSUFFICIENT_CONTENT"
	CodeProviderHTTP        ErrorCode = "PROVIDER_HTTP_ERROR"
	CodeMalformedResponse   ErrorCode = "MALFORMED_RESPONSE"
	CodeUnknownProvider     ErrorCode = "UNKNOWN_PROVIDER"
	CodeGenerationInFlight  ErrorCode = "GENERATION_IN_FLIGHT"
	CodeAnswerRequired      ErrorCode = "ANSWER_REQUIRED"
	CodeNoActiveQuiz        ErrorCode = "NO_ACTIVE_QUIZ"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"details,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Cause }

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, Cause: cause}
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

// NewInsufficientContentError is raised when the selected page content is
// too short to quiz on. Terminal: the session moves to the error state and
// no provider call is issued.
func NewInsufficientContentError(wordCount, minWords int) *DomainError {
	e := NewError(CodeInsufficientContent,
		fmt.Sprintf("Not enough content to generate a quiz (%d words, need at least %d)", wordCount, minWords), nil)
	e.Context = map[string]interface{}{"word_count": wordCount, "min_words": minWords}
	return e
}

func NewGenerationInFlightError() *DomainError {
	return NewError(CodeGenerationInFlight, "A quiz generation is already in progress", nil)
}

func NewAnswerRequiredError(questionIndex int) *DomainError {
	e := NewError(CodeAnswerRequired,
		fmt.Sprintf("Question %d has no recorded answer", questionIndex), nil)
	e.Context = map[string]interface{}{"question_index": questionIndex}
	return e
}

func NewNoActiveQuizError() *DomainError {
	return NewError(CodeNoActiveQuiz, "No active quiz session", nil)
}

// ProviderHTTPError is returned when any LLM backend answers with a non-2xx
// status. The body is carried verbatim to aid debugging; the adapters never
// retry.
type ProviderHTTPError struct {
	Provider ProviderName
	Status   int
	Body     string
}

func (e *ProviderHTTPError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// MalformedResponseError is returned when no valid quiz document could be
// recovered from the raw model output. Raw keeps the original text for
// diagnostics.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("could not parse model response as quiz JSON: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// UnknownProviderError should be unreachable given the closed provider enum;
// it exists as a defensive check on configuration.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown LLM provider: %q", e.Provider)
}
