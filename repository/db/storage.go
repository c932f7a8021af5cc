package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainerrors "taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const queryTimeout = 15 * time.Second

const (
	userColumns = `id, name, email, password, role, created_at, updated_at`
	taskColumns = `id, title, description, completed, user_id, created_at, updated_at`

	createUserQuery     = `INSERT INTO users (id, name, email, password, role) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByNameQuery  = `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	listUsersQuery      = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	updateUserQuery     = `UPDATE users SET name = $1, email = $2, password = $3, role = $4, updated_at = now() WHERE id = $5 RETURNING created_at, updated_at`
	deleteUserQuery     = `DELETE FROM users WHERE id = $1`

	createTaskQuery  = `INSERT INTO tasks (id, title, description, completed, user_id) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	getTaskByIDQuery = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	listTasksQuery   = `SELECT ` + taskColumns + ` FROM tasks`
	updateTaskQuery  = `UPDATE tasks SET title = $1, description = $2, completed = $3, updated_at = now() WHERE id = $4 RETURNING user_id, created_at, updated_at`
	deleteTaskQuery  = `DELETE FROM tasks WHERE id = $1`
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Storage struct {
	db     DBTX
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func New(db DBTX, logger *zap.Logger) *Storage {
	return &Storage{db: db, logger: logger.Named("PgStorage")}
}

// NewStorage opens a connection pool and checks that the database answers.
func NewStorage(ctx context.Context, connStr string, logger *zap.Logger) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrDatabaseConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrDatabaseConnection, err)
	}

	s := New(pool, logger)
	s.pool = pool
	s.logger.Info("Database connection established")
	return s, nil
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.ID = uuid.New().String()

	err := s.db.QueryRow(ctx, createUserQuery, user.ID, user.Name, user.Email, user.Password, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			s.logger.Warn("Rejected user insert", zap.String("name", user.Name), zap.Error(mapped))
			return mapped
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("create user: %w", err)
	}
	s.logger.Debug("User created", zap.String("userID", user.ID))
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if !isUUID(id) {
		return nil, domainerrors.ErrUserNotFound
	}
	return s.getUser(ctx, getUserByIDQuery, id)
}

func (s *Storage) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return s.getUser(ctx, getUserByNameQuery, name)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, getUserByEmailQuery, email)
}

func (s *Storage) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	if err := pgxscan.Get(ctx, s.db, &user, query, arg); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domainerrors.ErrUserNotFound
		}
		s.logger.Error("Failed to get user", zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	users := []models.User{}
	if err := pgxscan.Select(ctx, s.db, &users, listUsersQuery); err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *models.User) error {
	if !isUUID(user.ID) {
		return domainerrors.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := s.db.QueryRow(ctx, updateUserQuery, user.Name, user.Email, user.Password, user.Role, user.ID).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainerrors.ErrUserNotFound
		}
		if mapped := mapPgError(err); mapped != nil {
			s.logger.Warn("Rejected user update", zap.String("userID", user.ID), zap.Error(mapped))
			return mapped
		}
		s.logger.Error("Failed to update user", zap.String("userID", user.ID), zap.Error(err))
		return fmt.Errorf("update user: %w", err)
	}
	s.logger.Debug("User updated", zap.String("userID", user.ID))
	return nil
}

// DeleteUser removes the user. Owned tasks go with it through ON DELETE CASCADE.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domainerrors.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.db.Exec(ctx, deleteUserQuery, id)
	if err != nil {
		s.logger.Error("Failed to delete user", zap.String("userID", id), zap.Error(err))
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domainerrors.ErrUserNotFound
	}
	s.logger.Debug("User deleted", zap.String("userID", id))
	return nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	if !isUUID(task.UserID) {
		return domainerrors.ErrUserNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	task.ID = uuid.New().String()
	err := s.db.QueryRow(ctx, createTaskQuery, task.ID, task.Title, task.Description, task.Completed, task.UserID).
		Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		s.logger.Error("Failed to create task", zap.Error(err))
		return fmt.Errorf("create task: %w", err)
	}
	s.logger.Debug("Task created", zap.String("taskID", task.ID), zap.String("userID", task.UserID))
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	if !isUUID(id) {
		return nil, domainerrors.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var task models.Task
	if err := pgxscan.Get(ctx, s.db, &task, getTaskByIDQuery, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, domainerrors.ErrTaskNotFound
		}
		s.logger.Error("Failed to get task", zap.String("taskID", id), zap.Error(err))
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func (s *Storage) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	tasks := []models.Task{}
	if filter.UserID != "" && !isUUID(filter.UserID) {
		return tasks, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args := buildListTasksQuery(filter)
	if err := pgxscan.Select(ctx, s.db, &tasks, query, args...); err != nil {
		s.logger.Error("Failed to list tasks", zap.Error(err))
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func buildListTasksQuery(filter models.TaskFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		conds = append(conds, fmt.Sprintf("completed = $%d", len(args)))
	}

	query := listTasksQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY created_at, id", args
}

// UpdateTask writes title, description and completed. The owner column is never updated.
func (s *Storage) UpdateTask(ctx context.Context, task *models.Task) error {
	if !isUUID(task.ID) {
		return domainerrors.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := s.db.QueryRow(ctx, updateTaskQuery, task.Title, task.Description, task.Completed, task.ID).
		Scan(&task.UserID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainerrors.ErrTaskNotFound
		}
		s.logger.Error("Failed to update task", zap.String("taskID", task.ID), zap.Error(err))
		return fmt.Errorf("update task: %w", err)
	}
	s.logger.Debug("Task updated", zap.String("taskID", task.ID))
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	if !isUUID(id) {
		return domainerrors.ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.db.Exec(ctx, deleteTaskQuery, id)
	if err != nil {
		s.logger.Error("Failed to delete task", zap.String("taskID", id), zap.Error(err))
		return fmt.Errorf("delete task: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domainerrors.ErrTaskNotFound
	}
	s.logger.Debug("Task deleted", zap.String("taskID", id))
	return nil
}

// mapPgError translates constraint violations into domain errors. It returns nil for
// anything else.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case "users_name_key":
			return domainerrors.ErrNameInUse
		case "users_email_key":
			return domainerrors.ErrEmailInUse
		}
	case "23503": // foreign_key_violation
		return domainerrors.ErrUserNotFound
	}
	return nil
}

// Ids are UUID columns; anything that does not parse cannot exist.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
