package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pagequiz/internal/content"
	"pagequiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo     *memSessionRepository
	gen      *fakeGenerator
	notifier *recordingNotifier
	runner   *TaskRunner
	orch     QuizOrchestrator
}

func newFixture(maxQuestions int) *fixture {
	f := &fixture{
		repo:     newMemSessionRepository(),
		gen:      &fakeGenerator{},
		notifier: &recordingNotifier{},
		runner:   NewTaskRunner(10 * time.Second),
	}
	settings := &stubSettings{settings: domain.ProviderSettings{
		Provider:     domain.ProviderOllama,
		MaxQuestions: maxQuestions,
		Difficulty:   "medium",
	}}
	f.orch = NewQuizOrchestrator(f.repo, f.gen, content.NewSelector(), settings, f.notifier, f.runner)
	return f
}

// drain waits for the background generation and enrichment tasks spawned by
// Start; it is how tests synchronize with the fire-and-forget pipeline.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.runner.Drain(ctx))
}

func (f *fixture) session(t *testing.T) *domain.QuizSession {
	t.Helper()
	session, err := f.repo.Get(context.Background())
	require.NoError(t, err)
	return session
}

func pageWithWords(n int) *stubPageSource {
	words := strings.TrimSpace(strings.Repeat("knowledge ", n))
	return &stubPageSource{root: &domain.PageNode{
		Tag: "body", Width: 800, Height: 600,
		Children: []*domain.PageNode{
			{Tag: "article", Width: 700, Height: 500, Children: []*domain.PageNode{
				{Tag: "p", Width: 700, Height: 480, Text: words},
			}},
		},
	}}
}

func quizJSON(t *testing.T, n int) string {
	t.Helper()
	doc := &domain.QuizData{}
	for i := 0; i < n; i++ {
		doc.Questions = append(doc.Questions, domain.Question{
			Text:         fmt.Sprintf("Question %d?", i+1),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % domain.OptionsPerQuestion,
			Explanation:  fmt.Sprintf("builtin %d", i+1),
		})
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func explanationsJSON(t *testing.T, n int) string {
	t.Helper()
	doc := map[string][]string{"explanations": {}}
	for i := 0; i < n; i++ {
		doc["explanations"] = append(doc["explanations"], fmt.Sprintf("detailed %d", i+1))
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func TestStart_InsufficientContentNeverCallsProvider(t *testing.T) {
	f := newFixture(10)

	resp, err := f.orch.Start(context.Background(), pageWithWords(20))
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateError), resp.State)
	assert.Contains(t, resp.Error, "50")

	assert.Equal(t, 0, f.gen.generateCalls())
	assert.Equal(t, domain.StateError, f.session(t).State)

	events := f.notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.NotifyQuizFailed, events[0].Kind)
}

func TestStart_RejectedWhileGenerating(t *testing.T) {
	f := newFixture(10)

	inFlight := domain.NewIdleSession()
	inFlight.State = domain.StateGenerating
	inFlight.Epoch = "01TESTEPOCH"
	require.NoError(t, f.repo.Save(context.Background(), inFlight))

	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeGenerationInFlight, domainErr.Code)
	assert.Equal(t, 0, f.gen.generateCalls())
}

func TestStart_FullLifecycle(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 5))
	f.gen.returns(explanationsJSON(t, 5))

	// 750 words with a maximum of 10 derives 5 questions.
	resp, err := f.orch.Start(context.Background(), pageWithWords(750))
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateGenerating), resp.State)

	f.drain(t)
	assert.Equal(t, 2, f.gen.generateCalls())
	assert.Contains(t, f.gen.userPrompt(0), "exactly 5 questions")

	status, err := f.orch.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateReady), status.State)
	require.Len(t, status.Questions, 5)
	assert.True(t, status.HasExplanations)

	// Answer everything correctly and walk to completion.
	for i := 0; i < 5; i++ {
		_, err := f.orch.SubmitAnswer(context.Background(), i, i%domain.OptionsPerQuestion)
		require.NoError(t, err)
		status, err = f.orch.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, string(domain.StateCompleted), status.State)

	results, err := f.orch.Results(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, results.Score)
	assert.Equal(t, 5, results.Total)
	require.Len(t, results.Questions, 5)
	assert.True(t, results.Questions[0].Correct)
	assert.Equal(t, "detailed 1", results.Questions[0].Explanation)

	events := f.notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.NotifyQuizReady, events[0].Kind)
	assert.Equal(t, 5, events[0].QuestionCount)
}

func TestStart_ConcurrentStartsLaunchOneGeneration(t *testing.T) {
	f := newFixture(10)
	release := make(chan struct{})
	f.gen.onGenerate = func() { <-release }
	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))

	// Hammer the gate from parallel goroutines the way concurrent HTTP
	// handlers would. Exactly one start may claim the generating state.
	const starters = 8
	var wg sync.WaitGroup
	var accepted, rejected int32
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orch.Start(context.Background(), pageWithWords(400))
			if err == nil {
				atomic.AddInt32(&accepted, 1)
				return
			}
			var domainErr *domain.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == domain.CodeGenerationInFlight {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()
	close(release)
	f.drain(t)

	assert.Equal(t, int32(1), accepted)
	assert.Equal(t, int32(starters-1), rejected)
	// One primary call plus one enrichment call, never a duplicate pipeline.
	assert.Equal(t, 2, f.gen.generateCalls())
	assert.Equal(t, domain.StateReady, f.session(t).State)
}

func TestStart_ProviderHTTPFailureLandsInErrorState(t *testing.T) {
	f := newFixture(10)
	f.gen.fails(&domain.ProviderHTTPError{
		Provider: domain.ProviderOllama,
		Status:   500,
		Body:     `{"error":"overloaded"}`,
	})

	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	session := f.session(t)
	assert.Equal(t, domain.StateError, session.State)
	assert.Contains(t, session.Error, "500")
	assert.Nil(t, session.QuizData)

	events := f.notifier.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.NotifyQuizFailed, events[0].Kind)
}

func TestStart_FencedResponseStillParses(t *testing.T) {
	f := newFixture(10)
	f.gen.returns("Here is your quiz:\n```json\n" + quizJSON(t, 3) + "\n```\n")
	f.gen.returns(explanationsJSON(t, 3))

	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	session := f.session(t)
	assert.Equal(t, domain.StateReady, session.State)
	assert.Equal(t, 3, session.QuestionCount())
}

func TestStart_EnrichmentFailureLeavesQuizReady(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.fails(errors.New("provider timed out"))

	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	session := f.session(t)
	assert.Equal(t, domain.StateReady, session.State)
	assert.Empty(t, session.Explanations)
	assert.Equal(t, "builtin 1", session.ExplanationFor(0))
}

func TestEnrichmentMerge_KeepsAnswersRecordedMeanwhile(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))
	// On the enrichment call, answer a question while the provider round
	// trip is still in flight; the merge must not clobber it.
	f.gen.onGenerate = func() {
		if f.gen.generateCalls() == 2 {
			if _, err := f.orch.SubmitAnswer(context.Background(), 0, 1); err != nil {
				panic(err)
			}
		}
	}

	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	session := f.session(t)
	assert.Equal(t, domain.StateInProgress, session.State)
	require.Len(t, session.Explanations, 3)
	require.NotNil(t, session.AnswerAt(0))
	assert.Equal(t, 1, *session.AnswerAt(0))
}

func TestStart_ResetDuringGenerationDiscardsLateWrite(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.onGenerate = func() {
		_, err := f.orch.Reset(context.Background())
		if err != nil {
			panic(err)
		}
	}

	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	// The generation finished after the reset, so its write landed nowhere.
	session := f.session(t)
	assert.Equal(t, domain.StateIdle, session.State)
	assert.Nil(t, session.QuizData)
	assert.Empty(t, f.notifier.all())
}

func TestSubmitAnswer_OverwritesSlotWithoutAdvancing(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))
	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	_, err = f.orch.SubmitAnswer(context.Background(), 0, 1)
	require.NoError(t, err)
	resp, err := f.orch.SubmitAnswer(context.Background(), 0, 2)
	require.NoError(t, err)

	assert.Equal(t, string(domain.StateInProgress), resp.State)
	assert.Equal(t, 0, resp.CurrentQuestionIndex)
	require.NotNil(t, resp.UserAnswers[0])
	assert.Equal(t, 2, *resp.UserAnswers[0])
}

func TestSubmitAnswer_Validation(t *testing.T) {
	f := newFixture(10)

	_, err := f.orch.SubmitAnswer(context.Background(), 0, 0)
	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeNoActiveQuiz, domainErr.Code)

	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))
	_, err = f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	_, err = f.orch.SubmitAnswer(context.Background(), 7, 0)
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)

	_, err = f.orch.SubmitAnswer(context.Background(), 0, 4)
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)
}

func TestAdvance_RequiresAnswerForCurrentQuestion(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))
	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	_, err = f.orch.Advance(context.Background())
	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeAnswerRequired, domainErr.Code)

	_, err = f.orch.SubmitAnswer(context.Background(), 0, 0)
	require.NoError(t, err)
	resp, err := f.orch.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CurrentQuestionIndex)
	assert.Equal(t, string(domain.StateInProgress), resp.State)
}

func TestAdvance_PastLastQuestionCompletes(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))
	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	for i := 0; i < 3; i++ {
		_, err = f.orch.SubmitAnswer(context.Background(), i, 0)
		require.NoError(t, err)
		status, err := f.orch.Advance(context.Background())
		require.NoError(t, err)
		if i < 2 {
			assert.Equal(t, i+1, status.CurrentQuestionIndex)
		} else {
			assert.Equal(t, string(domain.StateCompleted), status.State)
		}
	}

	_, err = f.orch.Advance(context.Background())
	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)
}

func TestReset_RestoresIdleDefaults(t *testing.T) {
	f := newFixture(10)
	f.gen.returns(quizJSON(t, 3))
	f.gen.returns(explanationsJSON(t, 3))
	_, err := f.orch.Start(context.Background(), pageWithWords(400))
	require.NoError(t, err)
	f.drain(t)

	resp, err := f.orch.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateIdle), resp.State)

	session := f.session(t)
	assert.Equal(t, domain.StateIdle, session.State)
	assert.Nil(t, session.QuizData)
	assert.Empty(t, session.Epoch)
}

func TestResults_WithoutQuiz(t *testing.T) {
	f := newFixture(10)

	_, err := f.orch.Results(context.Background())
	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.CodeNoActiveQuiz, domainErr.Code)
}

func TestTestConnection_Passthrough(t *testing.T) {
	f := newFixture(10)
	f.gen.connectionResult = domain.ConnectionTestResult{Success: true, Message: "connected"}

	resp := f.orch.TestConnection(context.Background())
	assert.True(t, resp.Success)
	assert.Equal(t, "connected", resp.Message)
}
