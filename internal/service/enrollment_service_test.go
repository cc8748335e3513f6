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

const (
	testStudentID = "6f1e1d3a-8c4b-4a1e-9a2b-0d9f6c1b2a3c"
	testCourseID  = "2b7c9e5d-3f1a-4c8e-b6d4-7a5e9c3b1d2f"
)

type enrollmentRepoStub struct {
	createErr       error
	created         *models.Enrollment
	byID            map[string]*models.Enrollment
	details         map[string]*models.EnrollmentDetail
	listRows        []models.EnrollmentDetail
	listTotal       int
	listCalls       int
	lastFilter      models.EnrollmentFilter
	updateStatusErr error
	lastFrom        models.EnrollmentStatus
	lastTo          models.EnrollmentStatus
	lastGrade       *models.Grade
	lastPoints      *float64
	updateGradeErr  error
	deleteErr       error
}

func (s *enrollmentRepoStub) CreateEnrolled(ctx context.Context, enrollment *models.Enrollment) error {
	if s.createErr != nil {
		return s.createErr
	}
	enrollment.ID = "enr-1"
	enrollment.Status = models.EnrollmentStatusEnrolled
	s.created = enrollment
	return nil
}

func (s *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := s.byID[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentRepoStub) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if d, ok := s.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	s.listCalls++
	s.lastFilter = filter
	return s.listRows, s.listTotal, nil
}

func (s *enrollmentRepoStub) UpdateStatusGrade(ctx context.Context, id string, from, to models.EnrollmentStatus, grade *models.Grade, gradePoints *float64) error {
	s.lastFrom = from
	s.lastTo = to
	s.lastGrade = grade
	s.lastPoints = gradePoints
	return s.updateStatusErr
}

func (s *enrollmentRepoStub) UpdateGrade(ctx context.Context, id string, grade models.Grade, gradePoints *float64) error {
	if s.updateGradeErr != nil {
		return s.updateGradeErr
	}
	s.lastGrade = &grade
	s.lastPoints = gradePoints
	return nil
}

func (s *enrollmentRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteErr
}

type studentReaderStub struct {
	students map[string]*models.StudentDetail
}

func (s studentReaderStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type schedulerStub struct {
	calls      int
	studentIDs []string
}

func (s *schedulerStub) ScheduleRecalc(ctx context.Context, studentID string) {
	s.calls++
	s.studentIDs = append(s.studentIDs, studentID)
}

func activeStudent() *models.StudentDetail {
	return &models.StudentDetail{Student: models.Student{ID: testStudentID, UserID: "user-1", Active: true}}
}

func newEnrollmentFixture(repo *enrollmentRepoStub, students studentReaderStub) (*EnrollmentService, *schedulerStub) {
	if repo.details == nil {
		repo.details = map[string]*models.EnrollmentDetail{
			"enr-1": {Enrollment: models.Enrollment{ID: "enr-1", StudentID: testStudentID, CourseID: testCourseID, Status: models.EnrollmentStatusEnrolled}},
		}
	}
	access := NewAccessService(profileReaderStub{}, zap.NewNop())
	scheduler := &schedulerStub{}
	svc := NewEnrollmentService(repo, students, access, scheduler, validator.New(), zap.NewNop())
	return svc, scheduler
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestEnrollSuccess(t *testing.T) {
	repo := &enrollmentRepoStub{}
	students := studentReaderStub{students: map[string]*models.StudentDetail{testStudentID: activeStudent()}}
	svc, _ := newEnrollmentFixture(repo, students)

	detail, err := svc.Enroll(context.Background(), dto.EnrollStudentRequest{StudentID: testStudentID, CourseID: testCourseID}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "enr-1", detail.ID)
	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.created.Status)
}

func TestEnrollStudentSelfOnly(t *testing.T) {
	repo := &enrollmentRepoStub{}
	students := studentReaderStub{students: map[string]*models.StudentDetail{testStudentID: activeStudent()}}
	svc, _ := newEnrollmentFixture(repo, students)

	owner := &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
	_, err := svc.Enroll(context.Background(), dto.EnrollStudentRequest{StudentID: testStudentID, CourseID: testCourseID}, owner)
	require.NoError(t, err)

	stranger := &models.JWTClaims{UserID: "user-2", Role: models.RoleStudent}
	_, err = svc.Enroll(context.Background(), dto.EnrollStudentRequest{StudentID: testStudentID, CourseID: testCourseID}, stranger)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "students may only enroll themselves", appErr.Message)
}

func TestEnrollConflicts(t *testing.T) {
	cases := []struct {
		name     string
		repoErr  error
		wantCode string
		wantMsg  string
	}{
		{"duplicate", repository.ErrDuplicateEnrollment, appErrors.ErrConflict.Code, "student is already enrolled in this course"},
		{"full", repository.ErrCourseFull, appErrors.ErrConflict.Code, "course is full"},
		{"not active", repository.ErrCourseNotActive, appErrors.ErrValidation.Code, "course is not open for enrollment"},
		{"course missing", sql.ErrNoRows, appErrors.ErrNotFound.Code, "course not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &enrollmentRepoStub{createErr: tc.repoErr}
			students := studentReaderStub{students: map[string]*models.StudentDetail{testStudentID: activeStudent()}}
			svc, _ := newEnrollmentFixture(repo, students)

			_, err := svc.Enroll(context.Background(), dto.EnrollStudentRequest{StudentID: testStudentID, CourseID: testCourseID}, adminClaims())
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.wantCode, appErr.Code)
			assert.Equal(t, tc.wantMsg, appErr.Message)
		})
	}
}

func TestEnrollInactiveStudent(t *testing.T) {
	inactive := activeStudent()
	inactive.Active = false
	repo := &enrollmentRepoStub{}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{students: map[string]*models.StudentDetail{testStudentID: inactive}})

	_, err := svc.Enroll(context.Background(), dto.EnrollStudentRequest{StudentID: testStudentID, CourseID: testCourseID}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusStudentForbidden(t *testing.T) {
	repo := &enrollmentRepoStub{}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	student := &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "DROPPED"}, student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusTerminalRowRejected(t *testing.T) {
	repo := &enrollmentRepoStub{
		byID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusDropped},
		},
	}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "COMPLETED"}, adminClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already DROPPED")
}

func TestUpdateStatusConcurrentEdit(t *testing.T) {
	repo := &enrollmentRepoStub{
		byID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusEnrolled},
		},
		updateStatusErr: repository.ErrStaleRow,
	}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "DROPPED"}, adminClaims())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "enrollment was modified concurrently", appErr.Message)
}

func TestUpdateStatusCompleteWithGrade(t *testing.T) {
	repo := &enrollmentRepoStub{
		byID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusEnrolled},
		},
	}
	svc, scheduler := newEnrollmentFixture(repo, studentReaderStub{})

	grade := "A-"
	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "COMPLETED", Grade: &grade}, adminClaims())
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.lastFrom)
	assert.Equal(t, models.EnrollmentStatusCompleted, repo.lastTo)
	require.NotNil(t, repo.lastGrade)
	assert.Equal(t, models.GradeAMinus, *repo.lastGrade)
	require.NotNil(t, repo.lastPoints)
	assert.InDelta(t, 3.70, *repo.lastPoints, 0.001)
	assert.Equal(t, []string{testStudentID}, scheduler.studentIDs)
}

func TestUpdateStatusRejectsEnrolledTarget(t *testing.T) {
	repo := &enrollmentRepoStub{}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "ENROLLED"}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignGradeSchedulesRecalc(t *testing.T) {
	repo := &enrollmentRepoStub{
		byID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusCompleted},
		},
	}
	svc, scheduler := newEnrollmentFixture(repo, studentReaderStub{})

	_, err := svc.AssignGrade(context.Background(), "enr-1", dto.AssignGradeRequest{Grade: "B+"}, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, repo.lastPoints)
	assert.InDelta(t, 3.30, *repo.lastPoints, 0.001)
	assert.Equal(t, 1, scheduler.calls)
}

func TestAssignGradeUnknownLetter(t *testing.T) {
	repo := &enrollmentRepoStub{
		byID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusEnrolled},
		},
	}
	svc, scheduler := newEnrollmentFixture(repo, studentReaderStub{})

	_, err := svc.AssignGrade(context.Background(), "enr-1", dto.AssignGradeRequest{Grade: "Q"}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, scheduler.calls)
}

func TestListStudentWithoutProfileSeesNothing(t *testing.T) {
	repo := &enrollmentRepoStub{listRows: []models.EnrollmentDetail{{}}, listTotal: 1}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	student := &models.JWTClaims{UserID: "user-x", Role: models.RoleStudent}
	rows, pagination, err := svc.List(context.Background(), models.EnrollmentFilter{}, student)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 0, pagination.TotalCount)
	assert.Equal(t, 0, repo.listCalls, "repository must not be queried for a profile-less student")
}

func TestListStaffPassesFilterThrough(t *testing.T) {
	repo := &enrollmentRepoStub{listRows: []models.EnrollmentDetail{{}}, listTotal: 42}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	filter := models.EnrollmentFilter{CourseID: testCourseID, Status: models.EnrollmentStatusEnrolled}
	rows, pagination, err := svc.List(context.Background(), filter, adminClaims())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 42, pagination.TotalCount)
	assert.Equal(t, testCourseID, repo.lastFilter.CourseID)
}

func TestDeleteRequiresStaff(t *testing.T) {
	repo := &enrollmentRepoStub{}
	svc, _ := newEnrollmentFixture(repo, studentReaderStub{})

	student := &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
	err := svc.Delete(context.Background(), "enr-1", student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "enr-1", adminClaims()))
}

func TestGetStudentOwnRowOnly(t *testing.T) {
	repo := &enrollmentRepoStub{
		details: map[string]*models.EnrollmentDetail{
			"enr-1": {Enrollment: models.Enrollment{ID: "enr-1", StudentID: testStudentID}},
		},
	}
	students := studentReaderStub{students: map[string]*models.StudentDetail{testStudentID: activeStudent()}}
	svc, _ := newEnrollmentFixture(repo, students)

	owner := &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
	detail, err := svc.Get(context.Background(), "enr-1", owner)
	require.NoError(t, err)
	assert.Equal(t, "enr-1", detail.ID)

	stranger := &models.JWTClaims{UserID: "user-9", Role: models.RoleStudent}
	_, err = svc.Get(context.Background(), "enr-1", stranger)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
