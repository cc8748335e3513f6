package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type studentProfileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

// AccessService decides what a caller may see and mutate. Coarse checks run
// against the role capability table; object checks compare the caller to the
// resolved owner. It performs no side effects.
type AccessService struct {
	students studentProfileReader
	logger   *zap.Logger
}

// NewAccessService constructs an AccessService.
func NewAccessService(students studentProfileReader, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{students: students, logger: logger}
}

// Authorize performs the coarse role-only check for an action.
func (s *AccessService) Authorize(role models.UserRole, action models.Action) error {
	if !models.Can(role, action) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not %s", role, action))
	}
	return nil
}

// AuthorizeObject performs the fine-grained ownership check. ADMIN is always
// allowed; everyone else only passes for objects they own.
func (s *AccessService) AuthorizeObject(role models.UserRole, userID string, action models.Action, ownerUserID string) error {
	if role == models.RoleAdmin {
		return nil
	}
	if userID != "" && userID == ownerUserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("%s denied: not the owner", action))
}

// ScopeEnrollments narrows an enrollment filter to what the caller may see.
// ADMIN and TEACHER see the unrestricted set. A STUDENT is pinned to their
// own profile; the returned flag is true when the caller has no profile at
// all, in which case the result set is empty rather than an error.
func (s *AccessService) ScopeEnrollments(ctx context.Context, claims *models.JWTClaims, filter *models.EnrollmentFilter) (bool, error) {
	if claims.Role != models.RoleStudent {
		return false, nil
	}
	student, err := s.students.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student profile")
	}
	filter.StudentID = student.ID
	return false, nil
}
