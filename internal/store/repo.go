package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Event kinds recorded in the local event log.
const (
	KindLLMRequest      = "llm_request"
	KindSlideView       = "slide_view"
	KindQuizAnswer      = "quiz_answer"
	KindModuleCompleted = "module_completed"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit    int       // max results (0 = unlimited)
	After    int64     // sequence > After
	Before   int64     // sequence < Before
	From     time.Time // timestamp >= From
	To       time.Time // timestamp <= To
	CourseID string
}

// Event is a single row of the local event log.
type Event struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Kind      string
	UserID    string
	CourseID  string
	ModuleID  string
	SlideID   string
	Payload   json.RawMessage
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Purpose      string `json:"purpose"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	LatencyMs    int64  `json:"latency_ms"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	RequestBody  string `json:"request_body,omitempty"`
	ResponseBody string `json:"response_body,omitempty"`
}

// SlideViewEventData records a slide the learner settled on.
type SlideViewEventData struct {
	UserID     string `json:"user_id"`
	CourseID   string `json:"course_id"`
	ModuleID   string `json:"module_id"`
	SlideID    string `json:"slide_id"`
	SlideIndex int    `json:"slide_index"`
	Progress   int    `json:"progress"`
}

// QuizAnswerEventData records one answered quiz question.
type QuizAnswerEventData struct {
	UserID    string `json:"user_id"`
	CourseID  string `json:"course_id"`
	ModuleID  string `json:"module_id"`
	SlideID   string `json:"slide_id"`
	Selected  int    `json:"selected"`
	Correct   int    `json:"correct"`
	IsCorrect bool   `json:"is_correct"`
}

// CompletionEventData records a module reaching its final slide.
type CompletionEventData struct {
	UserID       string   `json:"user_id"`
	CourseID     string   `json:"course_id"`
	ModuleID     string   `json:"module_id"`
	AverageScore *float64 `json:"average_score,omitempty"`
	QuizScore    *float64 `json:"quiz_score,omitempty"`
	Dispatched   bool     `json:"dispatched"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// EventRepo provides append and query access to the local event log.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendSlideView records a settled slide.
	AppendSlideView(ctx context.Context, data SlideViewEventData) error

	// AppendQuizAnswer records a quiz answer.
	AppendQuizAnswer(ctx context.Context, data QuizAnswerEventData) error

	// AppendCompletion records a completed module.
	AppendCompletion(ctx context.Context, data CompletionEventData) error

	// QueryEvents returns events of kind (all kinds when empty), newest first.
	QueryEvents(ctx context.Context, kind string, opts QueryOpts) ([]Event, error)

	// GetEvent returns a single event by ID.
	GetEvent(ctx context.Context, id int) (*Event, error)

	// CountEvents returns the number of events of kind (all kinds when empty).
	CountEvents(ctx context.Context, kind string) (int, error)
}

// KVRepo is a small persistent key-value cache.
type KVRepo interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the keys that start with prefix, in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
