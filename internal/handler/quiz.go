package handler

import (
	"strings"

	"pagequiz/internal/adapter"
	"pagequiz/internal/adapter/dom"
	"pagequiz/internal/config"
	"pagequiz/internal/domain"
	"pagequiz/internal/dto"
	"pagequiz/internal/service"

	"github.com/gofiber/fiber/v2"
)

// QuizHandler handles quiz lifecycle HTTP requests for the display surface.
type QuizHandler struct {
	orchestrator service.QuizOrchestrator
	events       *adapter.LatestEventNotifier
	snapshotCfg  config.SnapshotConfig
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(orchestrator service.QuizOrchestrator, events *adapter.LatestEventNotifier, snapshotCfg config.SnapshotConfig) *QuizHandler {
	return &QuizHandler{
		orchestrator: orchestrator,
		events:       events,
		snapshotCfg:  snapshotCfg,
	}
}

// StartQuiz handles POST /api/quiz/start. The body carries either a page
// URL to fetch or the page HTML inline; the call returns as soon as the
// generating state is persisted.
func (h *QuizHandler) StartQuiz(c *fiber.Ctx) error {
	var req dto.StartQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body is not valid JSON")
	}

	var source domain.PageSource
	switch {
	case strings.TrimSpace(req.HTML) != "":
		root, err := dom.ParseString(req.HTML)
		if err != nil {
			return err
		}
		source = &dom.StaticPageSource{Root: root}
	case strings.TrimSpace(req.URL) != "":
		source = dom.NewHTTPPageSource(req.URL, h.snapshotCfg.Timeout, h.snapshotCfg.MaxBodyBytes)
	default:
		return domain.NewInvalidInputError("either url or html is required")
	}

	resp, err := h.orchestrator.Start(c.Context(), source)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// GetSession handles GET /api/quiz/session
func (h *QuizHandler) GetSession(c *fiber.Ctx) error {
	resp, err := h.orchestrator.Session(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// SubmitAnswer handles POST /api/quiz/answer
func (h *QuizHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("request body is not valid JSON")
	}

	resp, err := h.orchestrator.SubmitAnswer(c.Context(), req.QuestionIndex, req.AnswerIndex)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Advance handles POST /api/quiz/advance
func (h *QuizHandler) Advance(c *fiber.Ctx) error {
	resp, err := h.orchestrator.Advance(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ResetQuiz handles POST /api/quiz/reset
func (h *QuizHandler) ResetQuiz(c *fiber.Ctx) error {
	resp, err := h.orchestrator.Reset(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetResults handles GET /api/quiz/results
func (h *QuizHandler) GetResults(c *fiber.Ctx) error {
	resp, err := h.orchestrator.Results(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// TestConnection handles POST /api/provider/test. Expected failures come
// back as a 200 with success=false, matching the probe contract.
func (h *QuizHandler) TestConnection(c *fiber.Ctx) error {
	return c.JSON(h.orchestrator.TestConnection(c.Context()))
}

// GetLatestEvent handles GET /api/quiz/events/latest for polling UIs.
func (h *QuizHandler) GetLatestEvent(c *fiber.Ctx) error {
	latest := h.events.Latest()
	if latest == nil {
		return c.Status(fiber.StatusNoContent).Send(nil)
	}
	return c.JSON(dto.NotificationResponse{
		Kind:          string(latest.Kind),
		Message:       latest.Message,
		QuestionCount: latest.QuestionCount,
	})
}
