package server

import (
	stderrors "errors"
	"net/http"

	"taskmanager/internal/auth"
	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/validation"

	"github.com/gin-gonic/gin"
)

// authResponse is the body of every endpoint that hands out a token.
type authResponse struct {
	User  models.UserPayload `json:"user"`
	Token string             `json:"token"`
}

func (api *TaskAPI) issue(c *gin.Context, status int, user *models.User) {
	payload := user.Payload()
	token, err := api.tokens.Issue(payload)
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(status, authResponse{User: payload, Token: token})
}

func (api *TaskAPI) register(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	in, err := api.validator.RegisterUser(c.Request.Context(), body)
	if err != nil {
		api.respondError(c, err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		api.respondError(c, err)
		return
	}
	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := api.users.CreateUser(c.Request.Context(), user); err != nil {
		api.respondError(c, err)
		return
	}
	registrationsTotal.Inc()

	api.issue(c, http.StatusCreated, user)
}

func (api *TaskAPI) login(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	in, err := api.validator.LoginUser(c.Request.Context(), body)
	if err != nil {
		loginsTotal.WithLabelValues("rejected").Inc()
		api.respondError(c, err)
		return
	}

	user, err := api.users.GetUserByEmail(c.Request.Context(), in.Email)
	if err != nil {
		// deleted since validation ran
		if stderrors.Is(err, errors.ErrUserNotFound) {
			abortWithError(c, http.StatusNotFound, validation.MsgUserNotFoundEmail)
			return
		}
		api.respondError(c, err)
		return
	}
	if err := auth.ComparePassword(user.Password, in.Password); err != nil {
		if stderrors.Is(err, errors.ErrInvalidCredentials) {
			loginsTotal.WithLabelValues("wrong_password").Inc()
		}
		api.respondError(c, err)
		return
	}
	loginsTotal.WithLabelValues("success").Inc()

	api.issue(c, http.StatusOK, user)
}

// me re-issues a token for the caller.
func (api *TaskAPI) me(c *gin.Context) {
	user, err := api.users.GetUserByID(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		api.respondError(c, err)
		return
	}
	api.issue(c, http.StatusOK, user)
}
