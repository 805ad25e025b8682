package domain

import (
	"time"
)

// SessionState identifies where the quiz lifecycle currently stands.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateGenerating SessionState = "generating"
	StateReady      SessionState = "ready"
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
	StateError      SessionState = "error"
)

// Question is a single multiple-choice question. Every question carries
// exactly four options and a terse built-in explanation that serves as the
// fallback when the asynchronous enrichment never lands.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Validate validates the question
func (q *Question) Validate() error {
	if q.Text == "" {
		return NewInvalidInputError("question text is required")
	}
	if len(q.Options) != OptionsPerQuestion {
		return NewInvalidInputError("question must have exactly 4 options")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionsPerQuestion {
		return NewInvalidInputError("correct index must be between 0 and 3")
	}
	return nil
}

// QuizData is the generated document the session carries while a quiz is
// ready, in progress or completed.
type QuizData struct {
	Questions []Question `json:"questions"`
}

// Validate validates the quiz document
func (d *QuizData) Validate() error {
	if len(d.Questions) == 0 {
		return NewInvalidInputError("quiz must contain at least one question")
	}
	for i := range d.Questions {
		if err := d.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

const (
	// OptionsPerQuestion is fixed by the quiz format.
	OptionsPerQuestion = 4

	// MinContentWords is the threshold below which generation is refused.
	MinContentWords = 50

	// WordsPerQuestion drives the derived question count: roughly one
	// question per 150 words of cleaned source text.
	WordsPerQuestion = 150

	// MinQuestions and MaxQuestions bound the derived question count.
	MinQuestions = 3
	MaxQuestions = 15
)

// QuestionCountFor derives the question count from the cleaned word count:
// clamp(wordCount/150, 3, maxQuestions). The configured maximum is itself
// clamped to the [3,15] range the settings contract allows.
func QuestionCountFor(wordCount, maxQuestions int) int {
	if maxQuestions < MinQuestions {
		maxQuestions = MinQuestions
	}
	if maxQuestions > MaxQuestions {
		maxQuestions = MaxQuestions
	}
	n := wordCount / WordsPerQuestion
	if n < MinQuestions {
		n = MinQuestions
	}
	if n > maxQuestions {
		n = maxQuestions
	}
	return n
}

// QuizSession is the single durable record describing quiz progress. Every
// field transition is persisted as one atomic full-record write; a reader
// must never observe quiz data without the matching state.
type QuizSession struct {
	State                SessionState `json:"state"`
	QuizData             *QuizData    `json:"quiz_data,omitempty"`
	CurrentQuestionIndex int          `json:"current_question_index"`
	// UserAnswers holds one slot per question; nil slots mean unanswered.
	UserAnswers []*int `json:"user_answers"`
	Error       string `json:"error,omitempty"`
	// SourceText is retained after generation so the explanation
	// enrichment call can reuse it. Cleared on reset.
	SourceText string `json:"source_text,omitempty"`
	Title      string `json:"title,omitempty"`
	// Explanations are filled asynchronously after the ready transition
	// and may remain absent indefinitely.
	Explanations []string `json:"explanations,omitempty"`
	// Epoch tags the generation this session belongs to. Background
	// writers compare it before writing so a write started before a reset
	// lands nowhere.
	Epoch     string    `json:"epoch,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewIdleSession returns the idle defaults a session is created with, and
// that a reset restores.
func NewIdleSession() *QuizSession {
	return &QuizSession{
		State:     StateIdle,
		UpdatedAt: time.Now(),
	}
}

// QuestionCount returns the number of questions in the active quiz, zero
// when no quiz is loaded.
func (s *QuizSession) QuestionCount() int {
	if s.QuizData == nil {
		return 0
	}
	return len(s.QuizData.Questions)
}

// HasQuiz reports whether the session carries usable quiz data.
func (s *QuizSession) HasQuiz() bool {
	switch s.State {
	case StateReady, StateInProgress, StateCompleted:
		return s.QuizData != nil
	}
	return false
}

// AnswerAt returns the recorded answer for a question, or nil when the slot
// is unanswered or out of range.
func (s *QuizSession) AnswerAt(questionIndex int) *int {
	if questionIndex < 0 || questionIndex >= len(s.UserAnswers) {
		return nil
	}
	return s.UserAnswers[questionIndex]
}

// Score counts correctly answered questions.
func (s *QuizSession) Score() int {
	if s.QuizData == nil {
		return 0
	}
	score := 0
	for i, q := range s.QuizData.Questions {
		if a := s.AnswerAt(i); a != nil && *a == q.CorrectIndex {
			score++
		}
	}
	return score
}

// ExplanationFor returns the enriched explanation for a question when the
// enrichment has landed, falling back to the question's built-in one.
func (s *QuizSession) ExplanationFor(questionIndex int) string {
	if questionIndex >= 0 && questionIndex < len(s.Explanations) && s.Explanations[questionIndex] != "" {
		return s.Explanations[questionIndex]
	}
	if s.QuizData != nil && questionIndex >= 0 && questionIndex < len(s.QuizData.Questions) {
		return s.QuizData.Questions[questionIndex].Explanation
	}
	return ""
}
