package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) index(c *gin.Context) {
	search, err := h.svc.Search(c.Request.Context(), "", 0)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":  "Search",
		"Crumbs": Crumbs{},
		"Search": search,
	})
}

func (h *handler) dagRunsPage(c *gin.Context) {
	systemID := c.Param("system_id")
	page, err := h.svc.GetDagRunsForSystem(c.Request.Context(), systemID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, "dag_runs.html", gin.H{
		"Title":  "Dag Runs",
		"Crumbs": Crumbs{SystemID: systemID},
		"Page":   page,
	})
}

func (h *handler) tasksPage(c *gin.Context) {
	runID := c.Param("run_id")
	page, err := h.svc.GetTaskPage(c.Request.Context(), runID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, "tasks.html", gin.H{
		"Title":  "Tasks",
		"Crumbs": Crumbs{SystemID: page.System.SystemID, RunID: runID},
		"Page":   page,
	})
}

func (h *handler) logsPage(c *gin.Context) {
	runID, taskID := c.Param("run_id"), c.Param("task_id")
	page, err := h.svc.GetLogPage(c.Request.Context(), runID, taskID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, "logs.html", gin.H{
		"Title":  "Logs",
		"Crumbs": Crumbs{SystemID: page.System.SystemID, RunID: runID, TaskID: taskID},
		"Page":   page,
	})
}

func (h *handler) searchSystemsComponent(c *gin.Context) {
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
	c.HTML(http.StatusOK, "search_systems.html", result)
}

func (h *handler) logComponent(c *gin.Context) {
	runID, err := requiredQuery(c, "run_id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	taskID, err := requiredQuery(c, "task_id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	attempt, err := queryUint32(c, "attempt")
	if err != nil {
		_ = c.Error(err)
		return
	}
	taskLog, err := h.svc.ReadTaskLog(c.Request.Context(), runID, taskID, attempt)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, "log.html", taskLog)
}
