package server

import (
	stderrors "errors"
	"net/http"

	"taskmanager/internal/authz"
	"taskmanager/internal/domain/errors"
	"taskmanager/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	MsgRouteNotFound = "The route you are trying to access does not exist"
	MsgUnauthorized  = "You must be logged in to access this resource"
	MsgForbidden     = "You do not have permission to access this resource"
	MsgInternal      = "Something went wrong, please try again later"
	MsgRateLimited   = "You reached the limit of requests"
)

func errorBody(message string) gin.H {
	return gin.H{"err": message}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorBody(message))
}

func abortWithDecision(c *gin.Context, decision authz.Decision) {
	switch decision {
	case authz.Unauthorized:
		abortWithError(c, http.StatusUnauthorized, MsgUnauthorized)
	default:
		abortWithError(c, http.StatusForbidden, MsgForbidden)
	}
}

// respondError maps err to exactly one status and message. Anything unrecognised is a 500
// whose details only reach the log.
func (api *TaskAPI) respondError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case stderrors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.Kind() == validation.KindNotFound {
			status = http.StatusNotFound
		}
		api.logger.Debug("Validation failed", zap.String("schema", verr.Schema), zap.Error(verr))
		abortWithError(c, status, verr.Message())
	case stderrors.Is(err, errors.ErrNameInUse):
		abortWithError(c, http.StatusConflict, validation.MsgNameInUse)
	case stderrors.Is(err, errors.ErrEmailInUse):
		abortWithError(c, http.StatusConflict, validation.MsgEmailInUse)
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		abortWithError(c, http.StatusBadRequest, validation.MsgPasswordIncorrect)
	case stderrors.Is(err, errors.ErrUserNotFound):
		abortWithError(c, http.StatusNotFound, validation.MsgUserNotFoundID)
	case stderrors.Is(err, errors.ErrTaskNotFound):
		abortWithError(c, http.StatusNotFound, validation.MsgTaskNotFound)
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, MsgInternal)
	}
}
