package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/auth"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.OwnerID == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
