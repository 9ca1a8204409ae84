package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/taskhive/task-platform/services/task-service/internal/domain"
	"github.com/taskhive/task-platform/services/task-service/internal/service"
	"github.com/taskhive/task-platform/shared/contracts"
	apperrors "github.com/taskhive/task-platform/shared/errors"
)

type mockTaskRepository struct {
	mock.Mock
}

func (m *mockTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	if args.Error(0) == nil {
		task.ID = 10
	}
	return args.Error(0)
}

func (m *mockTaskRepository) Update(ctx context.Context, task *domain.Task, members []int64) error {
	args := m.Called(ctx, task, members)
	return args.Error(0)
}

func (m *mockTaskRepository) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*domain.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskRepository) FindAll(ctx context.Context, filters domain.TaskFilters) ([]domain.Task, error) {
	args := m.Called(ctx, filters)
	if t := args.Get(0); t != nil {
		return t.([]domain.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskRepository) FindByMember(ctx context.Context, userID int64) ([]domain.Task, error) {
	args := m.Called(ctx, userID)
	if t := args.Get(0); t != nil {
		return t.([]domain.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockLogRepository struct {
	mock.Mock
}

func (m *mockLogRepository) Append(ctx context.Context, log *domain.TaskLog) error {
	args := m.Called(ctx, log)
	if args.Error(0) == nil {
		log.ID = 1
	}
	return args.Error(0)
}

type mockCommentRepository struct {
	mock.Mock
}

func (m *mockCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	args := m.Called(ctx, comment)
	if args.Error(0) == nil {
		comment.ID = 5
	}
	return args.Error(0)
}

func (m *mockCommentRepository) FindByTask(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	args := m.Called(ctx, taskID)
	if c := args.Get(0); c != nil {
		return c.([]domain.Comment), args.Error(1)
	}
	return nil, args.Error(1)
}

// emission captures fire-and-forget traffic for assertions.
type emission struct {
	Pattern string
	Payload interface{}
}

type recordingEmitter struct {
	emissions []emission
}

func (r *recordingEmitter) Emit(_ context.Context, pattern string, payload interface{}) error {
	r.emissions = append(r.emissions, emission{Pattern: pattern, Payload: payload})
	return nil
}

type fakeCache struct {
	entries     map[int64]*domain.Task
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64]*domain.Task)}
}

func (c *fakeCache) Get(_ context.Context, id int64) (*domain.Task, bool) {
	t, ok := c.entries[id]
	return t, ok
}

func (c *fakeCache) Set(_ context.Context, task *domain.Task) {
	c.entries[task.ID] = task
}

func (c *fakeCache) Invalidate(_ context.Context, id int64) {
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

type TaskServiceTestSuite struct {
	suite.Suite
	tasks    *mockTaskRepository
	logs     *mockLogRepository
	comments *mockCommentRepository
	cache    *fakeCache
	queue    *recordingEmitter
	notifier *recordingEmitter
	svc      domain.TaskService
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.tasks = new(mockTaskRepository)
	s.logs = new(mockLogRepository)
	s.comments = new(mockCommentRepository)
	s.cache = newFakeCache()
	s.queue = new(recordingEmitter)
	s.notifier = new(recordingEmitter)
	s.svc = service.NewTaskService(service.Options{
		Tasks:     s.tasks,
		Logs:      s.logs,
		Comments:  s.comments,
		Cache:     s.cache,
		TaskQueue: s.queue,
		Notifier:  s.notifier,
	})
}

func (s *TaskServiceTestSuite) TestCreateDefaultsStatusAndPriority() {
	s.tasks.On("Create", mock.Anything, mock.MatchedBy(func(t *domain.Task) bool {
		return t.Status == contracts.TaskStatusTodo && t.Priority == contracts.TaskPriorityMedium
	})).Return(nil)

	resp, err := s.svc.Create(context.Background(), contracts.CreateTask{
		Title:     "write release notes",
		CreatorID: 1,
		UserIDs:   []int64{2, 3},
	})

	s.Require().NoError(err)
	s.Equal(contracts.TaskStatusTodo, resp.Data.Status)
	s.Equal(contracts.TaskPriorityMedium, resp.Data.Priority)
	s.tasks.AssertExpectations(s.T())
}

func (s *TaskServiceTestSuite) TestCreateEmitsLogAndNotifications() {
	s.tasks.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := s.svc.Create(context.Background(), contracts.CreateTask{
		Title:     "triage bug backlog",
		CreatorID: 1,
		UserIDs:   []int64{2, 3},
	})

	s.Require().NoError(err)
	s.Require().Len(s.queue.emissions, 1)
	s.Equal(contracts.AddTaskLogPattern, s.queue.emissions[0].Pattern)

	s.Require().Len(s.notifier.emissions, 2)
	targets := []int64{}
	for _, e := range s.notifier.emissions {
		s.Equal(contracts.HandleNotificationPattern, e.Pattern)
		targets = append(targets, e.Payload.(contracts.NotificationMessage).UserID)
	}
	s.ElementsMatch([]int64{2, 3}, targets)
}

func (s *TaskServiceTestSuite) TestCreateDeduplicatesMembers() {
	s.tasks.On("Create", mock.Anything, mock.MatchedBy(func(t *domain.Task) bool {
		return len(t.Members) == 2
	})).Return(nil)

	_, err := s.svc.Create(context.Background(), contracts.CreateTask{
		Title:     "pair on review",
		CreatorID: 1,
		UserIDs:   []int64{2, 2, 3},
	})

	s.Require().NoError(err)
	s.tasks.AssertExpectations(s.T())
}

func (s *TaskServiceTestSuite) TestCreateRejectsEmptyTitle() {
	_, err := s.svc.Create(context.Background(), contracts.CreateTask{CreatorID: 1})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeValidation))
	s.tasks.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TaskServiceTestSuite) TestUpdateUnknownTaskIsNotFound() {
	s.tasks.On("FindByID", mock.Anything, int64(99)).Return(nil, domain.ErrTaskNotFound)

	title := "renamed"
	_, err := s.svc.Update(context.Background(), contracts.UpdateTask{ID: 99, Title: &title})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func (s *TaskServiceTestSuite) TestUpdatePassesMembershipDiffToRepository() {
	existing := &domain.Task{ID: 10, Title: "old", Status: contracts.TaskStatusTodo, Members: []int64{2}}
	s.tasks.On("FindByID", mock.Anything, int64(10)).Return(existing, nil)
	s.tasks.On("Update", mock.Anything, mock.Anything, []int64{3, 4}).Return(nil)

	_, err := s.svc.Update(context.Background(), contracts.UpdateTask{ID: 10, UserIDs: []int64{3, 4}})

	s.Require().NoError(err)
	s.tasks.AssertExpectations(s.T())
}

func (s *TaskServiceTestSuite) TestUpdateWithoutMembersKeepsRelation() {
	existing := &domain.Task{ID: 10, Title: "old", Status: contracts.TaskStatusTodo}
	s.tasks.On("FindByID", mock.Anything, int64(10)).Return(existing, nil)
	s.tasks.On("Update", mock.Anything, mock.Anything, []int64(nil)).Return(nil)

	title := "new"
	_, err := s.svc.Update(context.Background(), contracts.UpdateTask{ID: 10, Title: &title})

	s.Require().NoError(err)
	s.tasks.AssertExpectations(s.T())
}

func (s *TaskServiceTestSuite) TestUpdateInvalidatesCache() {
	cached := &domain.Task{ID: 10, Title: "stale"}
	s.cache.Set(context.Background(), cached)
	s.tasks.On("FindByID", mock.Anything, int64(10)).Return(&domain.Task{ID: 10, Status: contracts.TaskStatusTodo}, nil)
	s.tasks.On("Update", mock.Anything, mock.Anything, []int64(nil)).Return(nil)

	title := "fresh"
	_, err := s.svc.Update(context.Background(), contracts.UpdateTask{ID: 10, Title: &title})

	s.Require().NoError(err)
	s.Contains(s.cache.invalidated, int64(10))
}

func (s *TaskServiceTestSuite) TestUpdateRejectsUnknownStatus() {
	s.tasks.On("FindByID", mock.Anything, int64(10)).Return(&domain.Task{ID: 10, Status: contracts.TaskStatusTodo}, nil)

	bad := contracts.TaskStatus("SHIPPED")
	_, err := s.svc.Update(context.Background(), contracts.UpdateTask{ID: 10, Status: &bad})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func (s *TaskServiceTestSuite) TestFindOneUsesCacheOnHit() {
	s.cache.Set(context.Background(), &domain.Task{ID: 7, Title: "cached"})

	task, err := s.svc.FindOne(context.Background(), 7)

	s.Require().NoError(err)
	s.Equal("cached", task.Title)
	s.tasks.AssertNotCalled(s.T(), "FindByID", mock.Anything, mock.Anything)
}

func (s *TaskServiceTestSuite) TestFindOnePopulatesCacheOnMiss() {
	s.tasks.On("FindByID", mock.Anything, int64(7)).Return(&domain.Task{ID: 7, Title: "from db"}, nil)

	task, err := s.svc.FindOne(context.Background(), 7)

	s.Require().NoError(err)
	s.Equal("from db", task.Title)
	_, cached := s.cache.Get(context.Background(), 7)
	s.True(cached)
}

func (s *TaskServiceTestSuite) TestFindOneUnknownIsNotFound() {
	s.tasks.On("FindByID", mock.Anything, int64(404)).Return(nil, domain.ErrTaskNotFound)

	_, err := s.svc.FindOne(context.Background(), 404)

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func (s *TaskServiceTestSuite) TestFindAllComposesStatusAndPriority() {
	s.tasks.On("FindAll", mock.Anything, domain.TaskFilters{
		Status:   contracts.TaskStatusTodo,
		Priority: contracts.TaskPriorityHigh,
	}).Return([]domain.Task{{ID: 1, Status: contracts.TaskStatusTodo, Priority: contracts.TaskPriorityHigh}}, nil)

	tasks, err := s.svc.FindAll(context.Background(), contracts.FindAllFilters{
		Status:   contracts.TaskStatusTodo,
		Priority: contracts.TaskPriorityHigh,
	})

	s.Require().NoError(err)
	s.Len(tasks, 1)
	s.tasks.AssertExpectations(s.T())
}

func (s *TaskServiceTestSuite) TestFindAllMembershipTakesPrecedence() {
	// With a userId filter the membership relation is queried first and
	// the remaining filters are intersected in memory.
	s.tasks.On("FindByMember", mock.Anything, int64(2)).Return([]domain.Task{
		{ID: 1, Status: contracts.TaskStatusTodo, Priority: contracts.TaskPriorityHigh},
		{ID: 2, Status: contracts.TaskStatusDone, Priority: contracts.TaskPriorityHigh},
		{ID: 3, Status: contracts.TaskStatusTodo, Priority: contracts.TaskPriorityLow},
	}, nil)

	tasks, err := s.svc.FindAll(context.Background(), contracts.FindAllFilters{
		UserID:   2,
		Status:   contracts.TaskStatusTodo,
		Priority: contracts.TaskPriorityHigh,
	})

	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(int64(1), tasks[0].ID)
	s.tasks.AssertNotCalled(s.T(), "FindAll", mock.Anything, mock.Anything)
}

func (s *TaskServiceTestSuite) TestAddLogAppends() {
	s.tasks.On("Exists", mock.Anything, int64(10)).Return(true, nil)
	s.logs.On("Append", mock.Anything, mock.MatchedBy(func(l *domain.TaskLog) bool {
		return l.TaskID == 10 && l.Change == "moved to review"
	})).Return(nil)

	log, err := s.svc.AddLog(context.Background(), contracts.AddLog{
		TaskID: 10, UserID: 2, Change: "moved to review",
	})

	s.Require().NoError(err)
	s.Equal(int64(10), log.TaskID)
	s.logs.AssertExpectations(s.T())
}

func (s *TaskServiceTestSuite) TestAddLogOnMissingTaskIsNotFound() {
	s.tasks.On("Exists", mock.Anything, int64(404)).Return(false, nil)

	_, err := s.svc.AddLog(context.Background(), contracts.AddLog{
		TaskID: 404, UserID: 2, Change: "ghost change",
	})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	s.logs.AssertNotCalled(s.T(), "Append", mock.Anything, mock.Anything)
}

func (s *TaskServiceTestSuite) TestCreateCommentOnMissingTaskIsNotFound() {
	s.tasks.On("Exists", mock.Anything, int64(404)).Return(false, nil)

	_, err := s.svc.CreateComment(context.Background(), contracts.CreateComment{
		Content: "hello", TaskID: 404, UserID: 2,
	})

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	s.comments.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TaskServiceTestSuite) TestCreateCommentEmitsAuditLog() {
	s.tasks.On("Exists", mock.Anything, int64(10)).Return(true, nil)
	s.comments.On("Create", mock.Anything, mock.Anything).Return(nil)

	resp, err := s.svc.CreateComment(context.Background(), contracts.CreateComment{
		Content: "looks good", TaskID: 10, UserID: 2,
	})

	s.Require().NoError(err)
	s.Equal("looks good", resp.Data.Content)
	s.Require().Len(s.queue.emissions, 1)
	s.Equal(contracts.AddTaskLogPattern, s.queue.emissions[0].Pattern)
}

func (s *TaskServiceTestSuite) TestFindAllCommentsOnMissingTaskIsNotFound() {
	s.tasks.On("Exists", mock.Anything, int64(404)).Return(false, nil)

	_, err := s.svc.FindAllComments(context.Background(), 404)

	s.Require().Error(err)
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func (s *TaskServiceTestSuite) TestFindAllCommentsReturnsEmptySlice() {
	s.tasks.On("Exists", mock.Anything, int64(10)).Return(true, nil)
	s.comments.On("FindByTask", mock.Anything, int64(10)).Return(nil, nil)

	resp, err := s.svc.FindAllComments(context.Background(), 10)

	s.Require().NoError(err)
	s.NotNil(resp.Data)
	s.Empty(resp.Data)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
