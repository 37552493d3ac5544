package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"lead-automation-service/internal/campaign"
	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
	"lead-automation-service/internal/service"
)

// EventController exposes HTTP handlers for ingestion and the read-only
// admin surface.
type EventController interface {
	CreateEvent(c *fiber.Ctx) error
	GetMetrics(c *fiber.Ctx) error
	ListRules(c *fiber.Ctx) error
	ListCampaigns(c *fiber.Ctx) error
	ListEnrollments(c *fiber.Ctx) error
	ResumeEnrollment(c *fiber.Ctx) error
	ListAlerts(c *fiber.Ctx) error
	AckAlert(c *fiber.Ctx) error
}

type eventController struct {
	eventService service.EventService
	rules        repository.RuleRepository
	campaigns    repository.CampaignRepository
	enrollments  repository.EnrollmentRepository
	alerts       repository.AlertRepository
	engine       campaign.Engine
}

// NewEventController builds an EventController.
func NewEventController(
	svc service.EventService,
	rules repository.RuleRepository,
	campaigns repository.CampaignRepository,
	enrollments repository.EnrollmentRepository,
	alerts repository.AlertRepository,
	engine campaign.Engine,
) EventController {
	return &eventController{
		eventService: svc,
		rules:        rules,
		campaigns:    campaigns,
		enrollments:  enrollments,
		alerts:       alerts,
		engine:       engine,
	}
}

// CreateEvent accepts single event payloads. Replays of an already-stored
// event id return 200 instead of 202.
func (h *eventController) CreateEvent(c *fiber.Ctx) error {
	var req model.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	event, err := h.eventService.BuildEvent(req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := h.eventService.ProcessEvent(c.Context(), event)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "event storage unavailable")
	}

	status := fiber.StatusAccepted
	if result.Status == "duplicate" {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(result)
}

// GetMetrics returns aggregated metrics for events.
func (h *eventController) GetMetrics(c *fiber.Ctx) error {
	filter, err := buildMetricsFilter(c)
	if err != nil {
		return err
	}

	resp, svcErr := h.eventService.GetMetrics(c.Context(), filter)
	if svcErr != nil {
		var validationErr *service.ValidationError
		if errors.As(svcErr, &validationErr) {
			return fiber.NewError(fiber.StatusBadRequest, svcErr.Error())
		}
		if errors.Is(svcErr, service.ErrAnalyticsDisabled) {
			return fiber.NewError(fiber.StatusServiceUnavailable, svcErr.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch metrics")
	}

	return c.JSON(resp)
}

func (h *eventController) ListRules(c *fiber.Ctx) error {
	rules, err := h.rules.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list rules")
	}
	return c.JSON(fiber.Map{"rules": rules})
}

func (h *eventController) ListCampaigns(c *fiber.Ctx) error {
	campaigns, err := h.campaigns.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list campaigns")
	}
	return c.JSON(fiber.Map{"campaigns": campaigns})
}

func (h *eventController) ListEnrollments(c *fiber.Ctx) error {
	subjectID := c.Params("id")
	if subjectID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "subject id is required")
	}

	enrollments, err := h.enrollments.ListBySubject(c.Context(), subjectID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list enrollments")
	}
	return c.JSON(fiber.Map{"enrollments": enrollments})
}

// ResumeEnrollment reactivates a paused enrollment. Resuming an enrollment
// that is not paused is a no-op and still returns 204.
func (h *eventController) ResumeEnrollment(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.enrollments.Get(c.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "enrollment not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load enrollment")
	}

	if err := h.engine.Resume(c.Context(), id); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to resume enrollment")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *eventController) ListAlerts(c *fiber.Ctx) error {
	alerts, err := h.alerts.ListOpen(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list alerts")
	}
	return c.JSON(fiber.Map{"alerts": alerts})
}

func (h *eventController) AckAlert(c *fiber.Ctx) error {
	id := c.Params("id")
	acked, err := h.alerts.Ack(c.Context(), id)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to ack alert")
	}
	if !acked {
		return fiber.NewError(fiber.StatusNotFound, "alert not found or already acked")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func buildMetricsFilter(c *fiber.Ctx) (model.MetricsFilter, error) {
	eventType := utils.Trim(c.Query("event_type"), ' ')
	if eventType == "" {
		return model.MetricsFilter{}, fiber.NewError(fiber.StatusBadRequest, "event_type is required")
	}

	groupBy := utils.Trim(c.Query("group_by"), ' ')

	var from, to time.Time

	if raw := utils.Trim(c.Query("from"), ' '); raw != "" {
		sec, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return model.MetricsFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid from timestamp")
		}
		from = time.Unix(sec, 0).UTC()
	}

	if raw := utils.Trim(c.Query("to"), ' '); raw != "" {
		sec, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return model.MetricsFilter{}, fiber.NewError(fiber.StatusBadRequest, "invalid to timestamp")
		}
		to = time.Unix(sec, 0).UTC()
	}

	var channel *string
	if raw := utils.Trim(c.Query("channel"), ' '); raw != "" {
		channel = &raw
	}

	return model.MetricsFilter{
		EventType: eventType,
		GroupBy:   groupBy,
		From:      from,
		To:        to,
		Channel:   channel,
	}, nil
}
