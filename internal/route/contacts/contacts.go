// Package contacts exposes the CRM contacts collection over HTTP.
package contacts

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

// MountRoutes mounts CRM contact routes.
func MountRoutes(r *gin.Engine, eng *mirror.Engine[model.CRMContact], gw *gateway.Contacts) {
	g := r.Group("/v1")

	g.GET("/contacts", func(c *gin.Context) {
		listContacts(c, eng)
	})
	g.POST("/contacts", func(c *gin.Context) {
		createContact(c, gw)
	})
	g.POST("/contacts/refresh", func(c *gin.Context) {
		eng.Request(mirror.TriggerExplicit)
		c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
	})
	g.PATCH("/contacts/:contactId", func(c *gin.Context) {
		updateContact(c, gw)
	})
	g.DELETE("/contacts/:contactId", func(c *gin.Context) {
		deleteContact(c, gw)
	})
}

func listContacts(c *gin.Context, eng *mirror.Engine[model.CRMContact]) {
	c.JSON(http.StatusOK, gin.H{
		"data":    eng.Snapshot(),
		"ready":   eng.Ready(),
		"loading": eng.Loading(),
	})
}

func createContact(c *gin.Context, gw *gateway.Contacts) {
	var req struct {
		Name         string  `json:"name"`
		Email        string  `json:"email"`
		Phone        *string `json:"phone"`
		Subject      string  `json:"subject"`
		PriorityDate string  `json:"priorityDate"`
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

	contact, err := gw.Create(c.Request.Context(), gateway.ContactCreate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Subject:      req.Subject,
		PriorityDate: date,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

func updateContact(c *gin.Context, gw *gateway.Contacts) {
	id, err := uuid.Parse(c.Param("contactId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "contact not found"})
		return
	}

	var req struct {
		Name         *string `json:"name"`
		Email        *string `json:"email"`
		Phone        *string `json:"phone"`
		ClearPhone   bool    `json:"clearPhone"`
		Subject      *string `json:"subject"`
		PriorityDate *string `json:"priorityDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}

	update := gateway.ContactUpdate{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		ClearPhone: req.ClearPhone,
		Subject:    req.Subject,
	}
	if req.PriorityDate != nil {
		date, err := time.Parse(model.DateLayout, *req.PriorityDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "invalid priorityDate, expected YYYY-MM-DD"})
			return
		}
		update.PriorityDate = &date
	}

	if err := gw.Update(c.Request.Context(), id, update); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func deleteContact(c *gin.Context, gw *gateway.Contacts) {
	id, err := uuid.Parse(c.Param("contactId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "contact not found"})
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
