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

// ClassMemberHandler wires the student's cart routes.
type ClassMemberHandler struct {
	service service.RegistrationService
	logger  zerolog.Logger
}

// NewClassMemberHandler constructs the handler.
func NewClassMemberHandler(service service.RegistrationService, logger zerolog.Logger) *ClassMemberHandler {
	return &ClassMemberHandler{
		service: service,
		logger:  logger.With().Str("component", "class_member_handler").Logger(),
	}
}

// Register attaches cart endpoints to an authenticated router group.
func (h *ClassMemberHandler) Register(router fiber.Router) {
	router.Use(middleware.RequireRole(models.RoleStudent))

	router.Get("", h.cart)
	router.Post("", h.add)
	router.Delete("/:courseId", h.remove)
}

func (h *ClassMemberHandler) cart(c *fiber.Ctx) error {
	cart, err := h.service.Current(requestContext(c), actorFromContext(c).ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "cart retrieved", cart)
}

func (h *ClassMemberHandler) add(c *fiber.Ctx) error {
	var payload dto.ClassMemberRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.AddClassMember(requestContext(c), actorFromContext(c).ID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendResult(c, result.Message, result.Data)
}

func (h *ClassMemberHandler) remove(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "courseId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.RemoveClassMember(requestContext(c), actorFromContext(c).ID, courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendResult(c, result.Message, result.Data)
}
