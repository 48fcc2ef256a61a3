// Package notes exposes the notes collection over HTTP.
package notes

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
)

// MountRoutes mounts note routes.
func MountRoutes(r *gin.Engine, eng *mirror.Engine[model.Note], gw *gateway.Notes) {
	g := r.Group("/v1")

	g.GET("/notes", func(c *gin.Context) {
		listNotes(c, eng)
	})
	g.POST("/notes", func(c *gin.Context) {
		createNote(c, gw)
	})
	g.POST("/notes/refresh", func(c *gin.Context) {
		eng.Request(mirror.TriggerExplicit)
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
	})
	g.PATCH("/notes/:noteId", func(c *gin.Context) {
		updateNote(c, gw)
	})
	g.DELETE("/notes/:noteId", func(c *gin.Context) {
		deleteNote(c, gw)
	})
}

// listNotes serves the mirror snapshot, optionally filtered by owner. The
// snapshot is already in priority date order.
func listNotes(c *gin.Context, eng *mirror.Engine[model.Note]) {
	notes := eng.Snapshot()

	if raw := c.Query("owner"); raw != "" {
		owner := model.Owner(raw)
		if !owner.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "unknown owner"})
			return
		}
		filtered := notes[:0]
		for _, n := range notes {
			if n.Owner == owner {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    notes,
		"ready":   eng.Ready(),
		"loading": eng.Loading(),
	})
}

func createNote(c *gin.Context, gw *gateway.Notes) {
	var req struct {
		Subject      string `json:"subject"`
		PriorityDate string `json:"priorityDate"`
		Owner        string `json:"owner"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	date, err := time.Parse(model.DateLayout, req.PriorityDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid priorityDate, expected YYYY-MM-DD"})
		return
	}

	note, err := gw.Create(c.Request.Context(), gateway.NoteCreate{
		Subject:      req.Subject,
		PriorityDate: date,
		Owner:        model.Owner(req.Owner),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func updateNote(c *gin.Context, gw *gateway.Notes) {
	id, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "note not found"})
		return
	}

	var req struct {
		Subject      *string `json:"subject"`
		PriorityDate *string `json:"priorityDate"`
		Owner        *string `json:"owner"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	update := gateway.NoteUpdate{Subject: req.Subject}
	if req.PriorityDate != nil {
		date, err := time.Parse(model.DateLayout, *req.PriorityDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid priorityDate, expected YYYY-MM-DD"})
			return
		}
		update.PriorityDate = &date
	}
	if req.Owner != nil {
		owner := model.Owner(*req.Owner)
		update.Owner = &owner
	}

	if err := gw.Update(c.Request.Context(), id, update); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func deleteNote(c *gin.Context, gw *gateway.Notes) {
	id, err := uuid.Parse(c.Param("noteId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "note not found"})
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
