package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type profileReaderStub struct {
	students map[string]*models.StudentDetail
	err      error
}

func (s profileReaderStub) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if student, ok := s.students[userID]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func TestAuthorizeDeniedRole(t *testing.T) {
	svc := NewAccessService(profileReaderStub{}, zap.NewNop())

	err := svc.Authorize(models.RoleStudent, models.ActionEditEnrollment)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Authorize(models.RoleTeacher, models.ActionEditEnrollment))
	require.NoError(t, svc.Authorize(models.RoleAdmin, models.ActionDeleteCourse))
}

func TestAuthorizeObject(t *testing.T) {
	svc := NewAccessService(profileReaderStub{}, zap.NewNop())

	assert.NoError(t, svc.AuthorizeObject(models.RoleAdmin, "admin-1", models.ActionViewOwn, "someone-else"))
	assert.NoError(t, svc.AuthorizeObject(models.RoleStudent, "user-1", models.ActionViewOwn, "user-1"))

	err := svc.AuthorizeObject(models.RoleStudent, "user-1", models.ActionViewOwn, "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScopeEnrollmentsStaffUnrestricted(t *testing.T) {
	svc := NewAccessService(profileReaderStub{}, zap.NewNop())
	filter := models.EnrollmentFilter{}

	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeacher} {
		empty, err := svc.ScopeEnrollments(context.Background(), &models.JWTClaims{UserID: "u1", Role: role}, &filter)
		require.NoError(t, err)
		assert.False(t, empty)
		assert.Empty(t, filter.StudentID)
	}
}

func TestScopeEnrollmentsPinsStudent(t *testing.T) {
	reader := profileReaderStub{students: map[string]*models.StudentDetail{
		"user-1": {Student: models.Student{ID: "student-1", UserID: "user-1"}},
	}}
	svc := NewAccessService(reader, zap.NewNop())

	// Any requested filter is overridden with the caller's own profile.
	filter := models.EnrollmentFilter{StudentID: "student-999"}
	empty, err := svc.ScopeEnrollments(context.Background(), &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}, &filter)
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, "student-1", filter.StudentID)
}

func TestScopeEnrollmentsStudentWithoutProfile(t *testing.T) {
	svc := NewAccessService(profileReaderStub{}, zap.NewNop())

	filter := models.EnrollmentFilter{}
	empty, err := svc.ScopeEnrollments(context.Background(), &models.JWTClaims{UserID: "user-x", Role: models.RoleStudent}, &filter)
	require.NoError(t, err)
	assert.True(t, empty)
}
