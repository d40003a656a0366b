package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/annolab/annolab/internal/models"
	"github.com/google/uuid"
)

// fakeStore is an in-memory TaskStore that mirrors the conditional-update
// semantics of the postgres client, including the compare-and-swap guards
// on the assignment paths.
type fakeStore struct {
	mu      sync.Mutex
	tasks   map[string]*models.Task
	reworks []*models.ReworkRecord
	aiJobs  map[string][]string // taskID -> job ids
	repeats []*models.TaskRepeat

	// afterGet runs once after the next GetTask, with the lock released.
	// Used to interleave a concurrent write between a read and its update.
	afterGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:  make(map[string]*models.Task),
		aiJobs: make(map[string][]string),
	}
}

func cloneTask(t *models.Task) *models.Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Annotator != nil {
		v := *t.Annotator
		c.Annotator = &v
	}
	if t.Reviewer != nil {
		v := *t.Reviewer
		c.Reviewer = &v
	}
	if t.AI != nil {
		v := *t.AI
		c.AI = &v
	}
	return &c
}

func (s *fakeStore) put(t *models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = cloneTask(t)
}

func (s *fakeStore) CreateTasks(ctx context.Context, tasks []*models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.tasks[t.ID] = cloneTask(t)
	}
	return nil
}

func (s *fakeStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	task := cloneTask(s.tasks[id])
	hook := s.afterGet
	s.afterGet = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return task, nil
}

func (s *fakeStore) SubmitTask(ctx context.Context, id, content string, timeTaken int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Content = content
	t.TimeTaken = timeTaken
	t.Submitted = true
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) SetTaskStatus(ctx context.Context, id string, status models.Status) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Status = status
	t.Feedback = ""
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) ReassignTask(ctx context.Context, id string, annotator *string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Submitted = false
	t.Status = models.StatusReassigned
	t.TimeTaken = 0
	t.Feedback = ""
	if annotator != nil {
		v := *annotator
		t.Annotator = &v
	} else {
		t.Annotator = nil
	}
	t.AI = nil
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) RejectTask(ctx context.Context, id, feedback, reviewerID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Submitted = false
	t.Status = models.StatusRejected
	t.TimeTaken = 0
	t.Feedback = feedback
	t.AI = nil
	t.UpdatedAt = time.Now()

	s.reworks = append(s.reworks, models.NewReworkRecord(cloneTask(t), reviewerID))
	return cloneTask(t), nil
}

func (s *fakeStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aiJobs, id)
	delete(s.tasks, id)
	return nil
}

func (s *fakeStore) AssignAI(ctx context.Context, id, agentID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.AI = &agentID
	t.Annotator = nil
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) AssignAnnotator(ctx context.Context, id, annotatorID string) (*models.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}
	if t.Reviewer != nil && *t.Reviewer == annotatorID {
		return nil, false, nil
	}
	t.Annotator = &annotatorID
	t.AI = nil
	t.UpdatedAt = time.Now()
	return cloneTask(t), true, nil
}

func (s *fakeStore) UnassignAnnotator(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Annotator = nil
	t.AI = nil
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) AssignReviewer(ctx context.Context, id, reviewerID string) (*models.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}
	if t.Annotator != nil && *t.Annotator == reviewerID {
		return nil, false, nil
	}
	t.Reviewer = &reviewerID
	t.UpdatedAt = time.Now()
	return cloneTask(t), true, nil
}

func (s *fakeStore) UnassignReviewer(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Reviewer = nil
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) SetReviewer(ctx context.Context, id string, reviewerID *string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	if reviewerID != nil {
		v := *reviewerID
		t.Reviewer = &v
	} else {
		t.Reviewer = nil
	}
	t.AI = nil
	t.UpdatedAt = time.Now()
	return cloneTask(t), nil
}

func (s *fakeStore) ListTasks(ctx context.Context, projectID string, filter models.TaskFilter, limit, offset int) ([]*models.Task, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.Task
	for _, t := range s.tasks {
		if t.ProjectID != projectID {
			continue
		}
		switch filter {
		case models.FilterSubmitted:
			if !t.Submitted {
				continue
			}
		case models.FilterUnassigned:
			if t.Annotator != nil {
				continue
			}
		}
		matched = append(matched, cloneTask(t))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *fakeStore) ListReviewQueue(ctx context.Context, reviewerID string) ([]*models.ReviewTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.ReviewTask
	for _, t := range s.tasks {
		if t.Reviewer == nil || *t.Reviewer != reviewerID || !t.Status.Known() {
			continue
		}
		result = append(result, &models.ReviewTask{Task: *cloneTask(t)})
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Submitted != b.Submitted {
			return a.Submitted
		}
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return result, nil
}

func (s *fakeStore) DistinctProjectsByAnnotator(ctx context.Context, annotatorID string) ([]*models.Project, error) {
	return s.distinctProjects(func(t *models.Task) bool {
		return t.Annotator != nil && *t.Annotator == annotatorID
	}), nil
}

func (s *fakeStore) DistinctProjectsByReviewer(ctx context.Context, reviewerID string) ([]*models.Project, error) {
	return s.distinctProjects(func(t *models.Task) bool {
		return t.Reviewer != nil && *t.Reviewer == reviewerID
	}), nil
}

func (s *fakeStore) distinctProjects(match func(*models.Task) bool) []*models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var projects []*models.Project
	for _, t := range s.tasks {
		if !match(t) || seen[t.ProjectID] {
			continue
		}
		seen[t.ProjectID] = true
		projects = append(projects, &models.Project{ID: t.ProjectID})
	}
	return projects
}

func (s *fakeStore) ListReworks(ctx context.Context, taskID string) ([]*models.ReworkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*models.ReworkRecord
	for _, r := range s.reworks {
		if r.TaskID == taskID {
			records = append(records, r)
		}
	}
	return records, nil
}

func (s *fakeStore) CreateRepeatTasks(ctx context.Context, seeds []*models.TaskRepeat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeats = append(s.repeats, seeds...)
	return nil
}

func (s *fakeStore) ListRepeatTasks(ctx context.Context) ([]*models.TaskRepeat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.TaskRepeat(nil), s.repeats...), nil
}

// fakePublisher records queued side effects.
type fakePublisher struct {
	mu            sync.Mutex
	notifications []*models.NotificationRequest
	events        []*models.StatusMessage
	failNext      error
}

func (p *fakePublisher) PublishNotification(ctx context.Context, req *models.NotificationRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return err
	}
	p.notifications = append(p.notifications, req)
	return nil
}

func (p *fakePublisher) PublishEvent(ctx context.Context, msg *models.StatusMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

func (p *fakePublisher) notificationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notifications)
}

// newTestTask builds a pending task with a valid uuid.
func newTestTask(projectID string) *models.Task {
	now := time.Now()
	return &models.Task{
		ID:             uuid.New().String(),
		ProjectID:      projectID,
		ProjectManager: "manager-1",
		Name:           "label frames",
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func strPtr(s string) *string {
	return &s
}
