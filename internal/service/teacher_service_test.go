package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/dto"
	"github.com/noah-isme/school-records-api/internal/models"
	"github.com/noah-isme/school-records-api/internal/repository"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type teacherProfileRepoStub struct {
	createErr error
	created   *models.Teacher
	byID      map[string]*models.TeacherDetail
	listRows  []models.TeacherDetail
	listCalls int
}

func (s *teacherProfileRepoStub) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherProfileRepoStub) FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	for _, t := range s.byID {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *teacherProfileRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	s.listCalls++
	return s.listRows, len(s.listRows), nil
}

func (s *teacherProfileRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if s.createErr != nil {
		return s.createErr
	}
	teacher.ID = "teacher-1"
	s.created = teacher
	return nil
}

func (s *teacherProfileRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	return nil
}

func (s *teacherProfileRepoStub) Delete(ctx context.Context, id string) error {
	return nil
}

func newTeacherFixture(repo *teacherProfileRepoStub) *TeacherService {
	if repo.byID == nil {
		repo.byID = map[string]*models.TeacherDetail{
			"teacher-1": {Teacher: models.Teacher{ID: "teacher-1", UserID: "teacher-user-1", Department: "Mathematics"}},
		}
	}
	access := NewAccessService(profileReaderStub{}, zap.NewNop())
	return NewTeacherService(repo, access, &invalidatorStub{}, validator.New(), zap.NewNop())
}

func TestTeacherListStaffOnly(t *testing.T) {
	repo := &teacherProfileRepoStub{listRows: []models.TeacherDetail{{}}}
	svc := newTeacherFixture(repo)

	student := &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
	_, _, err := svc.List(context.Background(), models.TeacherFilter{}, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.listCalls, "repository must not be queried for a student caller")

	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeacher} {
		rows, pagination, err := svc.List(context.Background(), models.TeacherFilter{}, &models.JWTClaims{UserID: "u1", Role: role})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, 1, pagination.TotalCount)
	}
}

func TestTeacherCreateAdminOnly(t *testing.T) {
	repo := &teacherProfileRepoStub{}
	svc := newTeacherFixture(repo)

	req := dto.CreateTeacherRequest{
		UserID:     "4c8d2e6f-1a3b-4d5e-8f7a-2b4c6d8e0f1a",
		TeacherID:  "T-1001",
		Department: "Mathematics",
	}
	teacher := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}
	_, err := svc.Create(context.Background(), req, teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	detail, err := svc.Create(context.Background(), req, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", detail.ID)
	assert.True(t, repo.created.Active)
}

func TestTeacherCreateDuplicateProfile(t *testing.T) {
	repo := &teacherProfileRepoStub{createErr: repository.ErrDuplicateTeacher}
	svc := newTeacherFixture(repo)

	req := dto.CreateTeacherRequest{
		UserID:     "4c8d2e6f-1a3b-4d5e-8f7a-2b4c6d8e0f1a",
		TeacherID:  "T-1001",
		Department: "Mathematics",
	}
	_, err := svc.Create(context.Background(), req, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
