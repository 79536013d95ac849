package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-registration-api/internal/models"
	"github.com/noah-isme/course-registration-api/internal/service"
	"github.com/noah-isme/course-registration-api/internal/utils"
)

// RoleHandler exposes the fixed role catalogue.
type RoleHandler struct {
	service service.RoleService
	logger  zerolog.Logger
}

// NewRoleHandler constructs the handler.
func NewRoleHandler(service service.RoleService, logger zerolog.Logger) *RoleHandler {
	return &RoleHandler{
		service: service,
		logger:  logger.With().Str("component", "role_handler").Logger(),
	}
}

// Register attaches role endpoints to the router group.
func (h *RoleHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *RoleHandler) list(c *fiber.Ctx) error {
	roles, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "roles retrieved", roles)
}

func (h *RoleHandler) get(c *fiber.Ctx) error {
	role, ok := models.ParseRole(c.Params("id"))
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "role not found")
	}

	record, err := h.service.Get(requestContext(c), role)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "role retrieved", record)
}
