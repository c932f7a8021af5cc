package server

import (
	"net/http"

	"taskmanager/internal/auth"
	"taskmanager/internal/authz"
	"taskmanager/internal/domain/models"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) listUsers(c *gin.Context) {
	users, err := api.users.ListUsers(c.Request.Context())
	if err != nil {
		api.respondError(c, err)
		return
	}
	payloads := make([]models.UserPayload, 0, len(users))
	for i := range users {
		payloads = append(payloads, users[i].Payload())
	}
	c.JSON(http.StatusOK, gin.H{"users": payloads})
}

func (api *TaskAPI) getUser(c *gin.Context) {
	id := c.Param("userID")
	if err := api.validator.GetUser(c.Request.Context(), id); err != nil {
		api.respondError(c, err)
		return
	}
	user, err := api.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Payload()})
}

// updateUser lets a user change their own name, email or password. Admins get no override.
func (api *TaskAPI) updateUser(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	id := c.Param("userID")
	body["id"] = id

	in, err := api.validator.UpdateUser(c.Request.Context(), body)
	if err != nil {
		api.respondError(c, err)
		return
	}
	if decision := authz.Decide(principalFrom(c), id, authz.Self); decision != authz.Allow {
		abortWithDecision(c, decision)
		return
	}

	user, err := api.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err)
		return
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			api.respondError(c, err)
			return
		}
		user.Password = hash
	}
	if err := api.users.UpdateUser(c.Request.Context(), user); err != nil {
		api.respondError(c, err)
		return
	}

	api.issue(c, http.StatusOK, user)
}

func (api *TaskAPI) deleteUser(c *gin.Context) {
	id := c.Param("userID")
	if err := api.validator.GetUser(c.Request.Context(), id); err != nil {
		api.respondError(c, err)
		return
	}
	user, err := api.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err)
		return
	}
	if err := api.users.DeleteUser(c.Request.Context(), id); err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Payload()})
}

// deleteOwnUser removes the caller's account after checking the password again.
func (api *TaskAPI) deleteOwnUser(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	body["id"] = principalFrom(c).ID

	in, err := api.validator.DeleteOwnUser(c.Request.Context(), body)
	if err != nil {
		api.respondError(c, err)
		return
	}
	user, err := api.users.GetUserByID(c.Request.Context(), in.ID)
	if err != nil {
		api.respondError(c, err)
		return
	}
	if err := auth.ComparePassword(user.Password, in.Password); err != nil {
		api.respondError(c, err)
		return
	}
	if err := api.users.DeleteUser(c.Request.Context(), in.ID); err != nil {
		api.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Payload()})
}
