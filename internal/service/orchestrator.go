package service

import (
	"context"
	"sync"

	"pagequiz/internal/content"
	"pagequiz/internal/domain"
	"pagequiz/internal/dto"
	"pagequiz/internal/logger"
	"pagequiz/internal/parser"
	"pagequiz/internal/util"

	"go.uber.org/zap"
)

// QuizOrchestrator drives the quiz lifecycle: extraction, generation,
// explanation enrichment and the answer/advance/reset operations, with
// every transition persisted to the durable session store.
type QuizOrchestrator interface {
	Start(ctx context.Context, source domain.PageSource) (*dto.SessionResponse, error)
	Session(ctx context.Context) (*dto.SessionResponse, error)
	SubmitAnswer(ctx context.Context, questionIndex, answerIndex int) (*dto.SessionResponse, error)
	Advance(ctx context.Context) (*dto.SessionResponse, error)
	Reset(ctx context.Context) (*dto.SessionResponse, error)
	Results(ctx context.Context) (*dto.ResultsResponse, error)
	TestConnection(ctx context.Context) *dto.ConnectionTestResponse
}

type quizOrchestrator struct {
	sessions  domain.SessionRepository
	generator domain.TextGenerator
	selector  *content.Selector
	settings  domain.SettingsSource
	notifier  domain.Notifier
	runner    *TaskRunner

	// mu serializes every read-modify-write of the session record. HTTP
	// handlers and background tasks run on separate goroutines, and the
	// store only guarantees atomicity per write, not across a Get/Save
	// pair; in particular the generating gate in Start must be atomic
	// with the write that claims it. Provider calls and page fetches run
	// outside the lock.
	mu sync.Mutex
}

// NewQuizOrchestrator creates a new instance of quizOrchestrator
func NewQuizOrchestrator(
	sessions domain.SessionRepository,
	generator domain.TextGenerator,
	selector *content.Selector,
	settings domain.SettingsSource,
	notifier domain.Notifier,
	runner *TaskRunner,
) QuizOrchestrator {
	return &quizOrchestrator{
		sessions:  sessions,
		generator: generator,
		selector:  selector,
		settings:  settings,
		notifier:  notifier,
		runner:    runner,
	}
}

// Start extracts content from the page snapshot and kicks off generation.
// It returns as soon as the generating state is persisted: the caller may
// disappear with no data loss, everything else happens on the task runner
// and lands in the session store.
func (o *quizOrchestrator) Start(ctx context.Context, source domain.PageSource) (*dto.SessionResponse, error) {
	root, err := source.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	extract, err := o.selector.Select(root)
	if err != nil {
		return nil, err
	}

	settings := o.settings.ProviderSettings()
	epoch := util.NewULID()

	session, err := o.beginGeneration(ctx, extract, epoch)
	if err != nil {
		return nil, err
	}

	if session.State == domain.StateError {
		o.notifier.Notify(ctx, domain.Notification{
			Kind:    domain.NotifyQuizFailed,
			Title:   extract.Title,
			Message: session.Error,
		})
		return dto.SessionResponseFrom(session), nil
	}

	logger.Get().Info("quiz generation started",
		zap.String("epoch", epoch),
		zap.String("title", extract.Title),
		zap.Int("word_count", extract.WordCount),
		zap.String("provider", string(settings.Provider)))

	o.runner.Submit("generate-quiz", func(taskCtx context.Context) error {
		o.runGeneration(taskCtx, epoch, extract, settings)
		return nil
	})

	return dto.SessionResponseFrom(session), nil
}

// beginGeneration gates on the current state and persists the claiming
// record under the session lock. The gate check and the write that claims
// the generating state form one critical section, so two concurrent starts
// can never both pass the gate and both dispatch a provider call.
func (o *quizOrchestrator) beginGeneration(ctx context.Context, extract domain.PageExtract, epoch string) (*domain.QuizSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	current, err := o.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if current.State == domain.StateGenerating {
		return nil, domain.NewGenerationInFlightError()
	}

	if extract.WordCount < domain.MinContentWords {
		insufficient := domain.NewInsufficientContentError(extract.WordCount, domain.MinContentWords)
		failed := domain.NewIdleSession()
		failed.State = domain.StateError
		failed.Error = insufficient.Message
		failed.Title = extract.Title
		if err := o.sessions.Save(ctx, failed); err != nil {
			return nil, err
		}
		return failed, nil
	}

	generating := domain.NewIdleSession()
	generating.State = domain.StateGenerating
	generating.SourceText = extract.Text
	generating.Title = extract.Title
	generating.Epoch = epoch
	if err := o.sessions.Save(ctx, generating); err != nil {
		return nil, err
	}
	return generating, nil
}

// runGeneration is the background half of Start: provider call, parse,
// ready transition, then the enrichment task.
func (o *quizOrchestrator) runGeneration(ctx context.Context, epoch string, extract domain.PageExtract, settings domain.ProviderSettings) {
	questionCount := domain.QuestionCountFor(extract.WordCount, settings.MaxQuestions)

	raw, err := o.generator.Generate(ctx, settings,
		quizSystemPrompt,
		buildQuizPrompt(extract.Text, extract.Title, questionCount, settings.Difficulty))
	if err != nil {
		o.failGeneration(ctx, epoch, err)
		return
	}

	doc, err := parser.ParseQuizDocument(raw)
	if err != nil {
		o.failGeneration(ctx, epoch, err)
		return
	}

	o.mu.Lock()
	session, ok := o.sessionForEpoch(ctx, epoch)
	if !ok {
		o.mu.Unlock()
		return
	}
	session.State = domain.StateReady
	session.QuizData = doc
	session.CurrentQuestionIndex = 0
	session.UserAnswers = make([]*int, len(doc.Questions))
	session.Explanations = nil
	session.Error = ""
	if err := o.sessions.Save(ctx, session); err != nil {
		o.mu.Unlock()
		logger.Get().Error("failed to persist ready session", zap.Error(err))
		return
	}
	title := session.Title
	sourceText := session.SourceText
	o.mu.Unlock()

	o.notifier.Notify(ctx, domain.Notification{
		Kind:          domain.NotifyQuizReady,
		Title:         title,
		Message:       "Your quiz is ready",
		QuestionCount: len(doc.Questions),
	})

	questions := doc.Questions
	o.runner.Submit("enrich-explanations", func(taskCtx context.Context) error {
		o.runEnrichment(taskCtx, epoch, questions, sourceText, settings)
		return nil
	})
}

// failGeneration moves the session to the error state. No partial quiz
// data is retained.
func (o *quizOrchestrator) failGeneration(ctx context.Context, epoch string, cause error) {
	o.mu.Lock()
	session, ok := o.sessionForEpoch(ctx, epoch)
	if !ok {
		o.mu.Unlock()
		return
	}
	session.State = domain.StateError
	session.Error = cause.Error()
	session.QuizData = nil
	session.UserAnswers = nil
	session.Explanations = nil
	if err := o.sessions.Save(ctx, session); err != nil {
		o.mu.Unlock()
		logger.Get().Error("failed to persist error session", zap.Error(err))
		return
	}
	title := session.Title
	o.mu.Unlock()

	o.notifier.Notify(ctx, domain.Notification{
		Kind:    domain.NotifyQuizFailed,
		Title:   title,
		Message: cause.Error(),
	})
}

// runEnrichment requests detailed explanations and merges them into the
// session without touching its state. Every failure here is logged and
// swallowed: the quiz is already usable and each question carries a terse
// built-in explanation as fallback.
func (o *quizOrchestrator) runEnrichment(ctx context.Context, epoch string, questions []domain.Question, sourceText string, settings domain.ProviderSettings) {
	raw, err := o.generator.Generate(ctx, settings,
		explanationSystemPrompt,
		buildExplanationPrompt(questions, sourceText))
	if err != nil {
		logger.Get().Warn("explanation enrichment failed", zap.Error(err))
		return
	}

	explanations, err := parser.ParseExplanations(raw, len(questions))
	if err != nil {
		logger.Get().Warn("explanation enrichment returned an unusable document", zap.Error(err))
		return
	}

	// The merge is a read-modify-write under the session lock: answers
	// recorded while the enrichment call was in flight survive it.
	o.mu.Lock()
	defer o.mu.Unlock()
	session, ok := o.sessionForEpoch(ctx, epoch)
	if !ok {
		return
	}
	if !session.HasQuiz() {
		return
	}
	session.Explanations = explanations
	if err := o.sessions.Save(ctx, session); err != nil {
		logger.Get().Warn("failed to persist enriched explanations", zap.Error(err))
		return
	}
	logger.Get().Info("explanations merged into session", zap.Int("count", len(explanations)))
}

// sessionForEpoch re-reads the session and drops the write when the epoch
// no longer matches: the session was reset or restarted while this task
// was in flight, and a late write must land nowhere. Callers hold mu.
func (o *quizOrchestrator) sessionForEpoch(ctx context.Context, epoch string) (*domain.QuizSession, bool) {
	session, err := o.sessions.Get(ctx)
	if err != nil {
		logger.Get().Error("failed to re-read session for background write", zap.Error(err))
		return nil, false
	}
	if session.Epoch != epoch {
		logger.Get().Info("discarding stale background write",
			zap.String("write_epoch", epoch),
			zap.String("session_epoch", session.Epoch))
		return nil, false
	}
	return session, true
}

// Session answers the session-status query.
func (o *quizOrchestrator) Session(ctx context.Context) (*dto.SessionResponse, error) {
	session, err := o.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	return dto.SessionResponseFrom(session), nil
}

// SubmitAnswer records an answer into the slot for the given question,
// overwriting any prior answer there. It never moves the current question
// index.
func (o *quizOrchestrator) SubmitAnswer(ctx context.Context, questionIndex, answerIndex int) (*dto.SessionResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, err := o.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !session.HasQuiz() {
		return nil, domain.NewNoActiveQuizError()
	}
	if session.State == domain.StateCompleted {
		return nil, domain.NewInvalidInputError("quiz is already completed")
	}
	if questionIndex < 0 || questionIndex >= session.QuestionCount() {
		return nil, domain.NewInvalidInputError("question index out of range")
	}
	if answerIndex < 0 || answerIndex >= domain.OptionsPerQuestion {
		return nil, domain.NewInvalidInputError("answer index out of range")
	}

	if len(session.UserAnswers) != session.QuestionCount() {
		answers := make([]*int, session.QuestionCount())
		copy(answers, session.UserAnswers)
		session.UserAnswers = answers
	}
	answer := answerIndex
	session.UserAnswers[questionIndex] = &answer
	session.State = domain.StateInProgress
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return dto.SessionResponseFrom(session), nil
}

// Advance moves to the next question, or to completed when the last
// question is passed. It is rejected while the current question has no
// recorded answer.
func (o *quizOrchestrator) Advance(ctx context.Context) (*dto.SessionResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, err := o.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !session.HasQuiz() {
		return nil, domain.NewNoActiveQuizError()
	}
	if session.State == domain.StateCompleted {
		return nil, domain.NewInvalidInputError("quiz is already completed")
	}
	if session.AnswerAt(session.CurrentQuestionIndex) == nil {
		return nil, domain.NewAnswerRequiredError(session.CurrentQuestionIndex)
	}

	if session.CurrentQuestionIndex+1 >= session.QuestionCount() {
		session.State = domain.StateCompleted
	} else {
		session.CurrentQuestionIndex++
		session.State = domain.StateInProgress
	}
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return dto.SessionResponseFrom(session), nil
}

// Reset discards the quiz and restores idle defaults. Clearing the epoch
// makes any in-flight background write stale; the HTTP call it belongs to
// cannot be aborted, but its result lands nowhere.
func (o *quizOrchestrator) Reset(ctx context.Context) (*dto.SessionResponse, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session := domain.NewIdleSession()
	if err := o.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return dto.SessionResponseFrom(session), nil
}

// Results reports the score and per-question outcomes. Absent enrichment
// is tolerated at read time: the terse built-in explanations fill in.
func (o *quizOrchestrator) Results(ctx context.Context) (*dto.ResultsResponse, error) {
	session, err := o.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !session.HasQuiz() {
		return nil, domain.NewNoActiveQuizError()
	}
	return dto.ResultsResponseFrom(session), nil
}

// TestConnection probes the configured provider.
func (o *quizOrchestrator) TestConnection(ctx context.Context) *dto.ConnectionTestResponse {
	result := o.generator.TestConnection(ctx, o.settings.ProviderSettings())
	return &dto.ConnectionTestResponse{
		Success: result.Success,
		Message: result.Message,
	}
}
