package service

import (
	"fmt"
	"strings"

	"pagequiz/internal/domain"
)

const quizSystemPrompt = `You are a quiz generator. You create multiple-choice quizzes from web page content. Respond with ONLY a JSON object, no prose, no code fences.`

const explanationSystemPrompt = `You are a teaching assistant. You write detailed explanations for quiz answers. Respond with ONLY a JSON object, no prose, no code fences.`

// buildQuizPrompt asks for the derived number of questions in the exact
// document shape the parser validates.
func buildQuizPrompt(text, title string, questionCount int, difficulty string) string {
	return fmt.Sprintf(`Create a multiple-choice quiz with exactly %d questions of %s difficulty from the following article.

Respond with a JSON object in this exact format:
{
  "questions": [
    {
      "text": "question here",
      "options": ["option A", "option B", "option C", "option D"],
      "correct_index": 0,
      "explanation": "one short sentence explaining the correct answer"
    }
  ]
}

Rules:
1. Exactly %d questions, each with exactly 4 options
2. correct_index is the zero-based index of the right option
3. Questions must be answerable from the article alone
4. Keep each built-in explanation under 25 words

Title: %s

Article:
%s`, questionCount, difficulty, questionCount, title, text)
}

// buildExplanationPrompt requests the enrichment document: one detailed
// explanation per question, in order.
func buildExplanationPrompt(questions []domain.Question, sourceText string) string {
	var list strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&list, "%d. %s\n   Correct answer: %s\n", i+1, q.Text, q.Options[q.CorrectIndex])
	}

	return fmt.Sprintf(`For each quiz question below, write a detailed explanation (2-4 sentences) of why the correct answer is right, grounded in the article.

Respond with a JSON object in this exact format:
{
  "explanations": ["explanation for question 1", "explanation for question 2", ...]
}

The array must contain exactly %d strings, in question order.

Questions:
%s
Article:
%s`, len(questions), list.String(), sourceText)
}
