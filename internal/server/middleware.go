package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"taskmanager/internal/authz"
	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/validation"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	principalKey   = "principal"
	requestIDKey   = "X-Request-ID"
	maxRequestBody = 1 << 20
)

// GinZapLogger logs one line per request, by status class. Health and metrics probes are skipped.
func GinZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		requestID := c.GetHeader(requestIDKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDKey, requestID)

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zapcore.Field{
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		}
		if p := principalFrom(c); p != nil {
			fields = append(fields, zap.String("user_id", p.ID))
		}
		if errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String(); errorMessage != "" {
			fields = append(fields, zap.String("error", errorMessage))
		}

		switch {
		case statusCode >= http.StatusInternalServerError:
			logger.Error("Request handled", fields...)
		case statusCode >= http.StatusBadRequest:
			logger.Warn("Request handled", fields...)
		default:
			logger.Info("Request handled", fields...)
		}
	}
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		abortWithError(c, http.StatusInternalServerError, MsgInternal)
	})
}

func corsMiddleware(cfg *Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour

	origin := strings.TrimSpace(cfg.CORSOrigin)
	if origin == "" || origin == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(strings.ReplaceAll(origin, " ", ""), ",")
		corsConfig.AllowCredentials = cfg.IsProduction()
	}
	return cors.New(corsConfig)
}

func (api *TaskAPI) rateLimiter() gin.HandlerFunc {
	var store ratelimit.Store
	if api.redis != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: api.redis,
			Rate:        api.cfg.RateWindow.Std(),
			Limit:       api.cfg.RateLimit,
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  api.cfg.RateWindow.Std(),
			Limit: api.cfg.RateLimit,
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			api.logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
			)
			abortWithError(c, http.StatusTooManyRequests, MsgRateLimited)
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}

// authenticate attaches a principal when the request carries a valid, current bearer
// token. Any problem with the token leaves the request anonymous.
func (api *TaskAPI) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.Next()
			return
		}

		claims, err := api.tokens.Verify(token)
		if err != nil {
			api.logger.Debug("Rejected bearer token", zap.Error(err))
			c.Next()
			return
		}

		user, err := api.users.GetUserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			if !stderrors.Is(err, errors.ErrUserNotFound) {
				api.logger.Error("Failed to resolve token subject", zap.String("userID", claims.Subject), zap.Error(err))
			}
			c.Next()
			return
		}
		if user.Name != claims.Name || user.Email != claims.Email {
			api.logger.Debug("Rejected bearer token", zap.String("userID", user.ID), zap.Error(errors.ErrStaleToken))
			c.Next()
			return
		}

		c.Set(principalKey, user.Principal())
		c.Next()
	}
}

func (api *TaskAPI) loginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if decision := authz.Decide(principalFrom(c), "", authz.Authenticated); decision != authz.Allow {
			abortWithDecision(c, decision)
			return
		}
		c.Next()
	}
}

// requireRole must run after loginRequired.
func (api *TaskAPI) requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authz.HasRole(principalFrom(c), roles...) {
			abortWithDecision(c, authz.Forbid)
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

// bindObject decodes the body as a JSON object with top-level strings trimmed. An empty
// body is an empty object. On failure the response is already written.
func bindObject(c *gin.Context) (map[string]any, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, validation.MsgObjectType)
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, true
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		abortWithError(c, http.StatusBadRequest, validation.MsgObjectType)
		return nil, false
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		abortWithError(c, http.StatusBadRequest, validation.MsgObjectType)
		return nil, false
	}

	for k, v := range obj {
		if s, isString := v.(string); isString {
			obj[k] = strings.TrimSpace(s)
		}
	}
	return obj, true
}
