package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"

	"pagequiz/internal/config"
	"pagequiz/internal/domain"
	"pagequiz/internal/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(config.LoggerConfig{Level: "info", Env: "test"}); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// memSessionRepository is an in-memory SessionRepository. It stores the
// record as JSON so tests observe the same copy semantics the real stores
// have: mutating a returned session does nothing until Save.
type memSessionRepository struct {
	mu     sync.Mutex
	record []byte
	saves  int
}

func newMemSessionRepository() *memSessionRepository {
	return &memSessionRepository{}
}

func (r *memSessionRepository) Get(ctx context.Context) (*domain.QuizSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return domain.NewIdleSession(), nil
	}
	var session domain.QuizSession
	if err := json.Unmarshal(r.record, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *memSessionRepository) Save(ctx context.Context, session *domain.QuizSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record = data
	r.saves++
	return nil
}

// fakeGenerator pops scripted results in call order and records the prompts
// it was given. onGenerate, when set, runs before each result is returned;
// the staleness tests use it to reset the session mid-generation.
type fakeGenerator struct {
	mu          sync.Mutex
	results     []generateResult
	calls       int
	userPrompts []string
	onGenerate  func()

	connectionResult domain.ConnectionTestResult
}

type generateResult struct {
	text string
	err  error
}

func (g *fakeGenerator) returns(text string) {
	g.results = append(g.results, generateResult{text: text})
}

func (g *fakeGenerator) fails(err error) {
	g.results = append(g.results, generateResult{err: err})
}

func (g *fakeGenerator) Generate(ctx context.Context, settings domain.ProviderSettings, systemPrompt, userPrompt string) (string, error) {
	g.mu.Lock()
	idx := g.calls
	g.calls++
	g.userPrompts = append(g.userPrompts, userPrompt)
	hook := g.onGenerate
	g.mu.Unlock()

	if hook != nil {
		hook()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if idx >= len(g.results) {
		return "", fmt.Errorf("unexpected Generate call %d", idx+1)
	}
	res := g.results[idx]
	return res.text, res.err
}

func (g *fakeGenerator) TestConnection(ctx context.Context, settings domain.ProviderSettings) domain.ConnectionTestResult {
	return g.connectionResult
}

func (g *fakeGenerator) generateCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) userPrompt(i int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i >= len(g.userPrompts) {
		return ""
	}
	return g.userPrompts[i]
}

// recordingNotifier collects every lifecycle event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, event domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Notification, len(n.events))
	copy(out, n.events)
	return out
}

// stubSettings satisfies domain.SettingsSource with a fixed value.
type stubSettings struct {
	settings domain.ProviderSettings
}

func (s *stubSettings) ProviderSettings() domain.ProviderSettings {
	return s.settings
}

// stubPageSource returns a pre-built snapshot tree.
type stubPageSource struct {
	root *domain.PageNode
	err  error
}

func (s *stubPageSource) Snapshot(ctx context.Context) (*domain.PageNode, error) {
	return s.root, s.err
}
