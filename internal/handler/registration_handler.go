package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-registration-api/internal/dto"
	"github.com/noah-isme/course-registration-api/internal/middleware"
	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/internal/utils"
)

// RegistrationHandler wires registration period and payment routes.
type RegistrationHandler struct {
	service service.RegistrationService
	logger  zerolog.Logger
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service service.RegistrationService, logger zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		logger:  logger.With().Str("component", "registration_handler").Logger(),
	}
}

// Register attaches registration endpoints to an authenticated router group.
func (h *RegistrationHandler) Register(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	studentOnly := middleware.RequireRole(models.RoleStudent)

	router.Post("/open", adminOnly, h.open)
	router.Get("", adminOnly, h.list)
	router.Get("/current", studentOnly, h.current)
	router.Get("/history", studentOnly, h.history)
	router.Post("/save", studentOnly, h.save)
	router.Post("/pay", studentOnly, h.pay)
	router.Get("/:id", h.get)
}

func (h *RegistrationHandler) open(c *fiber.Ctx) error {
	var payload dto.RegistrationOpenRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	opened, err := h.service.Open(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration period opened", opened)
}

func (h *RegistrationHandler) list(c *fiber.Ctx) error {
	var filter dto.RegistrationFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.List(requestContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendPage(c, "registrations retrieved", result.Items, result.Meta)
}

func (h *RegistrationHandler) current(c *fiber.Ctx) error {
	cart, err := h.service.Current(requestContext(c), actorFromContext(c).ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "registration retrieved", cart)
}

func (h *RegistrationHandler) history(c *fiber.Ctx) error {
	registrations, err := h.service.History(requestContext(c), actorFromContext(c).ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "registrations retrieved", registrations)
}

func (h *RegistrationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	cart, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "registration retrieved", cart)
}

func (h *RegistrationHandler) save(c *fiber.Ctx) error {
	result, err := h.service.Save(requestContext(c), actorFromContext(c).ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendResult(c, result.Message, result.Data)
}

func (h *RegistrationHandler) pay(c *fiber.Ctx) error {
	result, err := h.service.Pay(requestContext(c), actorFromContext(c).ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendResult(c, result.Message, result.Data)
}
