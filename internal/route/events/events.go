// Package events exposes the events collection over HTTP: reads served from
// the mirror, writes through the mutation gateway.
package events

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

// MountRoutes mounts event routes.
func MountRoutes(r *gin.Engine, eng *mirror.Engine[model.Event], gw *gateway.Events) {
	g := r.Group("/v1")

	g.GET("/events", func(c *gin.Context) {
		listEvents(c, eng)
	})
	g.POST("/events", func(c *gin.Context) {
		createEvent(c, gw)
	})
	g.POST("/events/refresh", func(c *gin.Context) {
		eng.Request(mirror.TriggerExplicit)
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
	})
	g.POST("/events/logo", func(c *gin.Context) {
		uploadLogo(c, gw)
	})
	g.PATCH("/events/:eventId", func(c *gin.Context) {
		updateEvent(c, gw)
	})
	g.POST("/events/:eventId/priority", func(c *gin.Context) {
		togglePriority(c, gw)
	})
	g.DELETE("/events/:eventId", func(c *gin.Context) {
		deleteEvent(c, gw)
	})
}

func listEvents(c *gin.Context, eng *mirror.Engine[model.Event]) {
	active, archived := triage.PartitionEvents(eng.Snapshot())

	var data any
	switch view := c.DefaultQuery("view", "active"); view {
	case "active":
		data = triage.OrderEvents(active)
	case "archived":
		data = archived
	case "all":
		data = gin.H{"active": triage.OrderEvents(active), "archived": archived}
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

func createEvent(c *gin.Context, gw *gateway.Events) {
	var req struct {
		Name string  `json:"name"`
		Logo *string `json:"logo"`
		Date string  `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	event, err := gw.Create(c.Request.Context(), gateway.EventCreate{
		Name: req.Name,
		Logo: req.Logo,
		Date: date,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func updateEvent(c *gin.Context, gw *gateway.Events) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "event not found"})
		return
	}

	var req struct {
		Name       *string `json:"name"`
		Logo       *string `json:"logo"`
		ClearLogo  bool    `json:"clearLogo"`
		Date       *string `json:"date"`
		IsArchived *bool   `json:"isArchived"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	update := gateway.EventUpdate{
		Name:       req.Name,
		Logo:       req.Logo,
		ClearLogo:  req.ClearLogo,
		IsArchived: req.IsArchived,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
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

func togglePriority(c *gin.Context, gw *gateway.Events) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "event not found"})
		return
	}
	if err := gw.TogglePriority(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func deleteEvent(c *gin.Context, gw *gateway.Events) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "event not found"})
		return
	}
	if err := gw.Delete(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func uploadLogo(c *gin.Context, gw *gateway.Events) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "file form field required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := gw.UploadLogo(c.Request.Context(), header.Filename, file, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
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
