package dto

import "pagequiz/internal/domain"

// ErrorResponse is the flat error body some handlers return directly.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StartQuizRequest triggers a new generation. Exactly one of URL or HTML is
// expected: the display surface either points at a page or ships the page.
type StartQuizRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

// AnswerRequest records one answer.
type AnswerRequest struct {
	QuestionIndex int `json:"question_index"`
	AnswerIndex   int `json:"answer_index"`
}

// QuestionView is a question as shown while taking the quiz: the correct
// index stays server-side.
type QuestionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SessionResponse is the session-status projection.
type SessionResponse struct {
	State                string         `json:"state"`
	Title                string         `json:"title,omitempty"`
	Questions            []QuestionView `json:"questions,omitempty"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	UserAnswers          []*int         `json:"user_answers,omitempty"`
	HasExplanations      bool           `json:"has_explanations"`
	Error                string         `json:"error,omitempty"`
}

// QuestionResult is one line of the results view. Explanation carries the
// enriched text when it landed, the terse built-in one otherwise.
type QuestionResult struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	GivenIndex   *int     `json:"given_index,omitempty"`
	Correct      bool     `json:"correct"`
	Explanation  string   `json:"explanation"`
}

// ResultsResponse reports the score for the active quiz.
type ResultsResponse struct {
	State     string           `json:"state"`
	Title     string           `json:"title,omitempty"`
	Score     int              `json:"score"`
	Total     int              `json:"total"`
	Questions []QuestionResult `json:"questions"`
}

// ConnectionTestResponse mirrors the provider probe result.
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NotificationResponse surfaces the most recent lifecycle event for
// polling UIs.
type NotificationResponse struct {
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	QuestionCount int    `json:"question_count,omitempty"`
}

// SessionResponseFrom projects a domain session into its API shape.
func SessionResponseFrom(s *domain.QuizSession) *SessionResponse {
	resp := &SessionResponse{
		State:                string(s.State),
		Title:                s.Title,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		UserAnswers:          s.UserAnswers,
		HasExplanations:      len(s.Explanations) > 0,
		Error:                s.Error,
	}
	if s.QuizData != nil {
		for _, q := range s.QuizData.Questions {
			resp.Questions = append(resp.Questions, QuestionView{
				Text:    q.Text,
				Options: q.Options,
			})
		}
	}
	return resp
}

// ResultsResponseFrom projects a domain session into the results view,
// falling back per-question when enrichment never landed.
func ResultsResponseFrom(s *domain.QuizSession) *ResultsResponse {
	resp := &ResultsResponse{
		State: string(s.State),
		Title: s.Title,
		Score: s.Score(),
		Total: s.QuestionCount(),
	}
	if s.QuizData == nil {
		return resp
	}
	for i, q := range s.QuizData.Questions {
		given := s.AnswerAt(i)
		resp.Questions = append(resp.Questions, QuestionResult{
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			GivenIndex:   given,
			Correct:      given != nil && *given == q.CorrectIndex,
			Explanation:  s.ExplanationFor(i),
		})
	}
	return resp
}
