package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"taskmanager/internal/auth"
	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// lookup feeds the store-backed validation rules from both repositories.
type lookup struct {
	UserRepository
	TaskRepository
}

type TaskAPI struct {
	httpSrv   *http.Server
	users     UserRepository
	tasks     TaskRepository
	validator *validation.Validator
	tokens    *auth.TokenIssuer
	redis     *redis.Client
	logger    *zap.Logger
	cfg       *Config
}

func NewTaskAPI(users UserRepository, tasks TaskRepository, cfg *Config, logger *zap.Logger) (*TaskAPI, error) {
	if users == nil || tasks == nil || cfg == nil {
		return nil, fmt.Errorf("%w: repositories and config are required", errors.ErrInternalServer)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn.Std())
	if err != nil {
		return nil, err
	}

	api := &TaskAPI{
		httpSrv: &http.Server{
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 15 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		users:     users,
		tasks:     tasks,
		validator: validation.New(lookup{users, tasks}),
		tokens:    tokens,
		logger:    logger.Named("TaskAPI"),
		cfg:       cfg,
	}
	if cfg.RedisAddr != "" {
		api.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	api.configRoutes()
	return api, nil
}

func (api *TaskAPI) Handler() http.Handler {
	return api.httpSrv.Handler
}

func (api *TaskAPI) Start() error {
	api.logger.Info("Starting HTTP server", zap.String("addr", api.httpSrv.Addr))
	if err := api.httpSrv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	err := api.httpSrv.Shutdown(ctx)
	if api.redis != nil {
		if cerr := api.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (api *TaskAPI) configRoutes() {
	switch {
	case api.cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case api.cfg.Env == "test":
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()
	router.Use(GinZapLogger(api.logger), recovery(api.logger))
	router.Use(corsMiddleware(api.cfg))
	if api.cfg.RateLimit > 0 {
		router.Use(api.rateLimiter())
	}
	if api.cfg.MetricsEnabled {
		p := ginprometheus.NewPrometheus("tasks")
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			if route := c.FullPath(); route != "" {
				return route
			}
			return "unmatched"
		}
		p.Use(router)
	}
	router.Use(api.authenticate())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody(MsgRouteNotFound))
	})
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", health)
	router.HEAD("/health", health)

	v1 := router.Group(api.cfg.APIPrefix)

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", api.register)
		authGroup.POST("/login", api.login)
		authGroup.GET("/me", api.loginRequired(), api.me)
	}

	users := v1.Group("/users", api.loginRequired())
	{
		users.GET("", api.requireRole(models.RoleAdmin), api.listUsers)
		users.POST("/me/delete", api.deleteOwnUser)
		users.GET("/:userID", api.getUser)
		users.PATCH("/:userID", api.updateUser)
		users.DELETE("/:userID", api.requireRole(models.RoleAdmin), api.deleteUser)
	}

	tasks := v1.Group("/tasks", api.loginRequired())
	{
		tasks.GET("", api.listTasks)
		tasks.POST("", api.createTask)
		tasks.GET("/:taskID", api.getTask)
		tasks.PATCH("/:taskID", api.updateTask)
		tasks.DELETE("/:taskID", api.deleteTask)
	}

	api.httpSrv.Handler = router
}
