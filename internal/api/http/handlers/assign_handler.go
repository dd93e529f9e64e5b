package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

const maxBulkAssign = 500

// AssignHandler exposes automatic assignment.
type AssignHandler struct {
	service *service.AssignmentService
}

// NewAssignHandler constructs handler.
func NewAssignHandler(assignmentService *service.AssignmentService) *AssignHandler {
	return &AssignHandler{service: assignmentService}
}

// AutoAssign POST /emails/auto-assign.
func (h *AssignHandler) AutoAssign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AutoAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	strategy, err := parseStrategy(req.Strategy)
	if err != nil {
		return err
	}

	if len(req.EmailIDs) > 0 {
		if len(req.EmailIDs) > maxBulkAssign {
			return apperrors.NewValidationError("too many emailIds", map[string]any{"max": maxBulkAssign})
		}
		bulk := h.service.AssignBulk(c.UserContext(), principal.OwnerID, req.EmailIDs, strategy)
		return c.JSON(fiber.Map{"data": bulk})
	}
	if strings.TrimSpace(req.EmailID) == "" {
		return apperrors.NewValidationError("emailId or emailIds is required", nil)
	}
	result, err := h.service.Assign(c.UserContext(), principal.OwnerID, req.EmailID, strategy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

// Workload GET /emails/auto-assign/workload.
func (h *AssignHandler) Workload(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	workloads, err := h.service.GetTeamWorkload(c.UserContext(), principal.OwnerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workloads})
}

func parseStrategy(req *dto.StrategyRequest) (service.Strategy, error) {
	if req == nil {
		return service.Strategy{Type: service.StrategyLeastLoaded}, nil
	}
	strategyType, err := service.ParseStrategyType(req.Type)
	if err != nil {
		return service.Strategy{}, err
	}
	return service.Strategy{
		Type:                strategyType,
		ConsiderPriority:    req.ConsiderPriority,
		ConsiderWorkload:    req.ConsiderWorkload,
		ConsiderPerformance: req.ConsiderPerformance,
	}, nil
}
