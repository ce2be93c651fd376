package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/yakubjanov004/telecom-support-engine/internal/domain"
	"github.com/yakubjanov004/telecom-support-engine/internal/repository"
	apperrors "github.com/yakubjanov004/telecom-support-engine/pkg/util"
)

const principalKey = "auth_principal"

// Principal is the authenticated actor attached to a request context.
// Staff is populated for operator roles; client principals carry only the
// subject id.
type Principal struct {
	SubjectID string
	Role      domain.Role
	Staff     *domain.StaffMember
}

// AuthMiddleware decodes bearer tokens into principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewAuthMiddleware constructs the middleware.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle parses the Authorization header and stores the principal.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return apperrors.NewUnauthorized("missing bearer token")
	}
	claims, err := m.tokens.Parse(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := Principal{
		SubjectID: claims.Subject,
		Role:      claims.Role,
	}
	if claims.Role.Staff() && m.staff != nil {
		staff, err := m.staff.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("unknown staff member")
			}
			return apperrors.MapError(err)
		}
		if !staff.Active {
			return apperrors.NewForbidden("staff member inactive")
		}
		if staff.Role != claims.Role {
			return apperrors.NewForbidden("token role mismatch")
		}
		principal.Staff = staff
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the stored principal.
func PrincipalFromContext(c *fiber.Ctx) (Principal, bool) {
	principal, ok := c.Locals(principalKey).(Principal)
	return principal, ok
}
