// Command seed loads demo accounts and tasks into the configured database.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/logger"
	"taskmanager/internal/server"
	"taskmanager/repository/db"

	"go.uber.org/zap"
)

type demoUser struct {
	name     string
	email    string
	password string
	role     models.Role
	tasks    []models.Task
}

var demoUsers = []demoUser{
	{
		name:     "administrator",
		email:    "admin@example.com",
		password: "adminpassword",
		role:     models.RoleAdmin,
	},
	{
		name:     "demo-user",
		email:    "user@example.com",
		password: "userpassword",
		role:     models.RoleUser,
		tasks: []models.Task{
			{Title: "Read the API docs", Description: "Go through every endpoint under /api/v1 once"},
			{Title: "Create a first task", Description: "POST /tasks with a title and a description", Completed: true},
		},
	},
}

type seeder interface {
	server.UserRepository
	server.TaskRepository
}

func main() {
	cfg, err := server.ReadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
		log.Fatal("Migrations failed", zap.Error(err))
	}
	storage, err := db.NewStorage(ctx, cfg.DBStr, log)
	if err != nil {
		log.Fatal("Database unavailable", zap.Error(err))
	}
	defer storage.Close()

	created, err := seed(ctx, storage, log)
	if err != nil {
		log.Fatal("Seeding failed", zap.Error(err))
	}
	log.Info("Seeding finished", zap.Int("users_created", created))
}

// seed creates the demo users that do not exist yet, each with its tasks. Existing
// accounts are left untouched.
func seed(ctx context.Context, store seeder, log *zap.Logger) (int, error) {
	created := 0
	for _, du := range demoUsers {
		_, err := store.GetUserByEmail(ctx, du.email)
		if err == nil {
			log.Info("User already present", zap.String("email", du.email))
			continue
		}
		if !stderrors.Is(err, errors.ErrUserNotFound) {
			return created, fmt.Errorf("lookup %s: %w", du.email, err)
		}

		hash, err := auth.HashPassword(du.password)
		if err != nil {
			return created, err
		}
		user := &models.User{Name: du.name, Email: du.email, Password: hash, Role: du.role}
		if err := store.CreateUser(ctx, user); err != nil {
			return created, fmt.Errorf("create %s: %w", du.email, err)
		}
		created++

		for _, t := range du.tasks {
			task := t
			task.UserID = user.ID
			if err := store.CreateTask(ctx, &task); err != nil {
				return created, fmt.Errorf("create task %q: %w", task.Title, err)
			}
		}
		log.Info("User created", zap.String("email", du.email), zap.String("role", string(du.role)))
	}
	return created, nil
}
