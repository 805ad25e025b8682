package parser

import (
	"encoding/json"
	"errors"
	"testing"

	"pagequiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuizJSON = `{
	"questions": [
		{
			"text": "What is the capital of France?",
			"options": ["Paris", "Lyon", "Nice", "Lille"],
			"correct_index": 0,
			"explanation": "Paris is the capital."
		},
		{
			"text": "Which river runs through Paris?",
			"options": ["Loire", "Seine", "Rhone", "Garonne"],
			"correct_index": 1,
			"explanation": "The Seine crosses Paris."
		}
	]
}`

func TestParseQuizDocument_StrictJSON(t *testing.T) {
	doc, err := ParseQuizDocument(validQuizJSON)
	require.NoError(t, err)
	assert.Len(t, doc.Questions, 2)
	assert.Equal(t, 0, doc.Questions[0].CorrectIndex)
	assert.Equal(t, "The Seine crosses Paris.", doc.Questions[1].Explanation)
}

func TestParseQuizDocument_FencedWithLanguageTag(t *testing.T) {
	raw := "Here is your quiz:\n```json\n" + validQuizJSON + "\n```\nEnjoy!"
	doc, err := ParseQuizDocument(raw)
	require.NoError(t, err)
	assert.Len(t, doc.Questions, 2)
}

func TestParseQuizDocument_FencedWithoutLanguageTag(t *testing.T) {
	raw := "```\n" + validQuizJSON + "\n```"
	doc, err := ParseQuizDocument(raw)
	require.NoError(t, err)
	assert.Len(t, doc.Questions, 2)
}

func TestParseQuizDocument_RoundTrip(t *testing.T) {
	original := &domain.QuizData{Questions: []domain.Question{
		{
			Text:         "Q1",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 3,
			Explanation:  "because d",
		},
	}}
	serialized, err := json.Marshal(original)
	require.NoError(t, err)

	parsed, err := ParseQuizDocument(string(serialized))
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	// The same document wrapped in a fenced block parses identically.
	parsed, err = ParseQuizDocument("```json\n" + string(serialized) + "\n```")
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseQuizDocument_NoJSONAnywhere(t *testing.T) {
	raw := "I could not generate a quiz for this content, sorry."
	_, err := ParseQuizDocument(raw)
	require.Error(t, err)

	var malformed *domain.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, raw, malformed.Raw, "raw text rides along for diagnostics")
}

func TestParseQuizDocument_FenceWithGarbage(t *testing.T) {
	_, err := ParseQuizDocument("```json\nnot json at all\n```")
	var malformed *domain.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
}

func TestParseQuizDocument_StructurallyInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty questions", `{"questions": []}`},
		{"three options", `{"questions": [{"text": "Q", "options": ["a","b","c"], "correct_index": 0, "explanation": "e"}]}`},
		{"index out of range", `{"questions": [{"text": "Q", "options": ["a","b","c","d"], "correct_index": 4, "explanation": "e"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuizDocument(tt.raw)
			var malformed *domain.MalformedResponseError
			require.True(t, errors.As(err, &malformed))
		})
	}
}

func TestParseExplanations(t *testing.T) {
	raw := `{"explanations": ["one", "two", "three"]}`
	got, err := ParseExplanations(raw, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestParseExplanations_Fenced(t *testing.T) {
	raw := "```json\n{\"explanations\": [\"one\", \"two\"]}\n```"
	got, err := ParseExplanations(raw, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParseExplanations_CountMismatch(t *testing.T) {
	_, err := ParseExplanations(`{"explanations": ["only one"]}`, 3)
	var malformed *domain.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
}
