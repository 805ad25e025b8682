package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"pagequiz/internal/domain"
)

// Models inconsistently wrap JSON in prose or code fences despite being
// instructed not to, so parsing is a double attempt: strict JSON first,
// then the interior of the first fenced block.
var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ParseQuizDocument extracts a strict quiz document from raw model output.
// It fails with *domain.MalformedResponseError when no valid document can
// be recovered; the original raw text rides along for diagnostics.
func ParseQuizDocument(raw string) (*domain.QuizData, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}

	var doc domain.QuizData
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	if err := doc.Validate(); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	return &doc, nil
}

// ParseExplanations extracts the enrichment document: a JSON object with an
// "explanations" array holding exactly one string per question.
func ParseExplanations(raw string, questionCount int) ([]string, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}

	var doc struct {
		Explanations []string `json:"explanations"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, &domain.MalformedResponseError{Raw: raw, Cause: err}
	}
	if len(doc.Explanations) != questionCount {
		return nil, &domain.MalformedResponseError{
			Raw:   raw,
			Cause: fmt.Errorf("expected %d explanations, got %d", questionCount, len(doc.Explanations)),
		}
	}
	return doc.Explanations, nil
}

// extractJSON returns a string expected to be valid JSON: the raw input
// when it already parses, otherwise the interior of the first fenced code
// block when that parses.
func extractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return inner, nil
		}
		return "", fmt.Errorf("fenced block does not contain valid JSON")
	}
	return "", fmt.Errorf("no valid JSON found in response")
}
