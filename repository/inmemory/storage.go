package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/google/uuid"
)

// Storage keeps users and tasks in maps. Name and email uniqueness is checked under the
// write lock, so it holds for concurrent callers.
type Storage struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
	now   func() time.Time
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(user); err != nil {
		return err
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.ID = uuid.New().String()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByName(_ context.Context, name string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Name == name {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

// ListUsers returns users ordered by creation time.
func (s *Storage) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// UpdateUser replaces name, email, password and role of the stored user with user.ID.
func (s *Storage) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.ID]
	if !exists {
		return errors.ErrUserNotFound
	}
	if err := s.checkUnique(user); err != nil {
		return err
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Password = user.Password
	existing.Role = user.Role
	existing.UpdatedAt = s.now()
	s.users[user.ID] = existing
	*user = existing
	return nil
}

// DeleteUser removes the user and every task the user owns.
func (s *Storage) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return errors.ErrUserNotFound
	}
	delete(s.users, id)
	for taskID, task := range s.tasks {
		if task.UserID == id {
			delete(s.tasks, taskID)
		}
	}
	return nil
}

func (s *Storage) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[task.UserID]; !exists {
		return errors.ErrUserNotFound
	}
	task.ID = uuid.New().String()
	task.CreatedAt = s.now()
	task.UpdatedAt = task.CreatedAt
	s.tasks[task.ID] = *task
	return nil
}

func (s *Storage) GetTaskByID(_ context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[id]
	if !exists {
		return nil, errors.ErrTaskNotFound
	}
	return &task, nil
}

// ListTasks returns the tasks matching filter ordered by creation time.
func (s *Storage) ListTasks(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := []models.Task{}
	for _, t := range s.tasks {
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// UpdateTask replaces title, description and completed. The owner never changes.
func (s *Storage) UpdateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.tasks[task.ID]
	if !exists {
		return errors.ErrTaskNotFound
	}
	existing.Title = task.Title
	existing.Description = task.Description
	existing.Completed = task.Completed
	existing.UpdatedAt = s.now()
	s.tasks[task.ID] = existing
	*task = existing
	return nil
}

func (s *Storage) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return errors.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// checkUnique must be called with the write lock held.
func (s *Storage) checkUnique(user *models.User) error {
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if existing.Name == user.Name {
			return errors.ErrNameInUse
		}
		if existing.Email == user.Email {
			return errors.ErrEmailInUse
		}
	}
	return nil
}
