package server

import (
	"net/http"

	"taskmanager/internal/authz"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/validation"

	"github.com/gin-gonic/gin"
)

// listTasks returns every task to admins and the caller's own tasks to everyone else.
func (api *TaskAPI) listTasks(c *gin.Context) {
	p := principalFrom(c)
	filter := models.TaskFilter{}
	if !authz.HasRole(p, models.RoleAdmin) {
		filter.UserID = p.ID
	}
	switch c.Query("completed") {
	case "":
	case "true":
		done := true
		filter.Completed = &done
	case "false":
		open := false
		filter.Completed = &open
	default:
		abortWithError(c, http.StatusBadRequest, validation.MsgCompletedFilter)
		return
	}

	tasks, err := api.tasks.ListTasks(c.Request.Context(), filter)
	if err != nil {
		api.respondError(c, err)
		return
	}
	payloads := make([]models.TaskPayload, 0, len(tasks))
	for i := range tasks {
		payloads = append(payloads, tasks[i].Payload())
	}
	c.JSON(http.StatusOK, gin.H{"tasks": payloads})
}

func (api *TaskAPI) getTask(c *gin.Context) {
	task, ok := api.fetchTask(c, authz.OwnerOrAdmin)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task.Payload()})
}

func (api *TaskAPI) createTask(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	body["userId"] = principalFrom(c).ID

	in, err := api.validator.CreateTask(c.Request.Context(), body)
	if err != nil {
		api.respondError(c, err)
		return
	}
	task := &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		UserID:      in.UserID,
	}
	if err := api.tasks.CreateTask(c.Request.Context(), task); err != nil {
		api.respondError(c, err)
		return
	}
	taskMutationsTotal.WithLabelValues("create").Inc()

	c.JSON(http.StatusCreated, gin.H{"task": task.Payload()})
}

// updateTask is reserved to the owner.
func (api *TaskAPI) updateTask(c *gin.Context) {
	body, ok := bindObject(c)
	if !ok {
		return
	}
	body["id"] = c.Param("taskID")

	in, err := api.validator.UpdateTask(c.Request.Context(), body)
	if err != nil {
		api.respondError(c, err)
		return
	}
	task, err := api.tasks.GetTaskByID(c.Request.Context(), in.ID)
	if err != nil {
		api.respondError(c, err)
		return
	}
	if decision := authz.Decide(principalFrom(c), task.UserID, authz.Owner); decision != authz.Allow {
		abortWithDecision(c, decision)
		return
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}
	if err := api.tasks.UpdateTask(c.Request.Context(), task); err != nil {
		api.respondError(c, err)
		return
	}
	taskMutationsTotal.WithLabelValues("update").Inc()

	c.JSON(http.StatusOK, gin.H{"task": task.Payload()})
}

func (api *TaskAPI) deleteTask(c *gin.Context) {
	task, ok := api.fetchTask(c, authz.OwnerOrAdmin)
	if !ok {
		return
	}
	if err := api.tasks.DeleteTask(c.Request.Context(), task.ID); err != nil {
		api.respondError(c, err)
		return
	}
	taskMutationsTotal.WithLabelValues("delete").Inc()

	c.JSON(http.StatusOK, gin.H{"task": task.Payload()})
}

// fetchTask validates the path id, loads the task and applies the gate.
func (api *TaskAPI) fetchTask(c *gin.Context, rel authz.Relation) (*models.Task, bool) {
	id := c.Param("taskID")
	if err := api.validator.GetTask(c.Request.Context(), id); err != nil {
		api.respondError(c, err)
		return nil, false
	}
	task, err := api.tasks.GetTaskByID(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err)
		return nil, false
	}
	if decision := authz.Decide(principalFrom(c), task.UserID, rel); decision != authz.Allow {
		abortWithDecision(c, decision)
		return nil, false
	}
	return task, true
}
