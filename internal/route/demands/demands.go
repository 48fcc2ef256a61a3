// Package demands exposes the demands collection over HTTP.
package demands

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/thiagomk/eventdesk/internal/gateway"
	"github.com/thiagomk/eventdesk/internal/mirror"
	"github.com/thiagomk/eventdesk/internal/model"
	"github.com/thiagomk/eventdesk/internal/store"
	"github.com/thiagomk/eventdesk/internal/triage"
)

// MountRoutes mounts demand routes.
func MountRoutes(r *gin.Engine, eng *mirror.Engine[model.Demand], gw *gateway.Demands) {
	g := r.Group("/v1")

	g.GET("/demands", func(c *gin.Context) {
		listDemands(c, eng)
	})
	g.POST("/demands", func(c *gin.Context) {
		createDemand(c, gw)
	})
	g.POST("/demands/refresh", func(c *gin.Context) {
		eng.Request(mirror.TriggerExplicit)
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
	})
	g.PATCH("/demands/:demandId", func(c *gin.Context) {
		updateDemand(c, gw)
	})
	g.DELETE("/demands/:demandId", func(c *gin.Context) {
		deleteDemand(c, gw)
	})
}

func listDemands(c *gin.Context, eng *mirror.Engine[model.Demand]) {
	eventID := uuid.Nil
	if raw := c.Query("eventId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid eventId"})
			return
		}
		eventID = id
	}

	snapshot := eng.Snapshot()
	var data any
	switch view := c.DefaultQuery("view", "active"); view {
	case "active":
		data = triage.ActiveDemands(snapshot, eventID, time.Now())
	case "completed":
		data = triage.CompletedDemands(snapshot, eventID)
	case "all":
		data = gin.H{
			"active":    triage.ActiveDemands(snapshot, eventID, time.Now()),
			"completed": triage.CompletedDemands(snapshot, eventID),
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid view"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    data,
		"ready":   eng.Ready(),
		"loading": eng.Loading(),
	})
}

func createDemand(c *gin.Context, gw *gateway.Demands) {
	var req struct {
		EventID uuid.UUID `json:"eventId"`
		Title   string    `json:"title"`
		Subject string    `json:"subject"`
		Date    string    `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	date, err := time.Parse(model.DateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	demand, err := gw.Create(c.Request.Context(), gateway.DemandCreate{
		EventID: req.EventID,
		Title:   req.Title,
		Subject: req.Subject,
		Date:    date,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, demand)
}

func updateDemand(c *gin.Context, gw *gateway.Demands) {
	id, err := uuid.Parse(c.Param("demandId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "demand not found"})
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Subject     *string `json:"subject"`
		Date        *string `json:"date"`
		IsCompleted *bool   `json:"isCompleted"`
		IsArchived  *bool   `json:"isArchived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	update := gateway.DemandUpdate{
		Title:       req.Title,
		Subject:     req.Subject,
		IsCompleted: req.IsCompleted,
		IsArchived:  req.IsArchived,
	}
	if req.Date != nil {
		date, err := time.Parse(model.DateLayout, *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		update.Date = &date
	}

	if err := gw.Update(c.Request.Context(), id, update); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func deleteDemand(c *gin.Context, gw *gateway.Demands) {
	id, err := uuid.Parse(c.Param("demandId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "demand not found"})
		return
	}
	if err := gw.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func handleError(c *gin.Context, err error) {
	var notFound *store.NotFoundError
	var validation *store.ValidationError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
