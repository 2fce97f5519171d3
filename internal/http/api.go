package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) apiSearchSystems(c *gin.Context) {
	searchBy, page, err := searchParams(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	result, err := h.svc.Search(c.Request.Context(), searchBy, page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) apiSystem(c *gin.Context) {
	system, err := h.svc.GetSystem(c.Request.Context(), c.Param("system_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, system)
}

func (h *handler) apiSystemDagRuns(c *gin.Context) {
	result, err := h.svc.GetDagRunsForSystem(c.Request.Context(), c.Param("system_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) apiDagRun(c *gin.Context) {
	dagRun, err := h.svc.GetDagRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dagRun)
}

func (h *handler) apiDagRunSystem(c *gin.Context) {
	system, err := h.svc.GetSystemForRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, system)
}

func (h *handler) apiDagRunTasks(c *gin.Context) {
	result, err := h.svc.GetTasksForDagRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) apiTask(c *gin.Context) {
	task, err := h.svc.GetTask(c.Request.Context(), c.Param("run_id"), c.Param("task_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *handler) apiTaskLog(c *gin.Context) {
	attempt, err := queryUint32(c, "attempt")
	if err != nil {
		_ = c.Error(err)
		return
	}
	taskLog, err := h.svc.ReadTaskLog(c.Request.Context(), c.Param("run_id"), c.Param("task_id"), attempt)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, taskLog)
}
