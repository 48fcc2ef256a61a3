// Package system exposes liveness, readiness, metrics and the recent
// notification feed.
package system

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thiagomk/eventdesk/internal/mirror"
	"github.com/thiagomk/eventdesk/internal/notify"
)

// MountRoutes mounts the system endpoints. ring may be nil when no
// notification history is retained.
func MountRoutes(r *gin.Engine, syncers []mirror.Syncer, ring *notify.Ring) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Ready once every collection has applied its first snapshot.
	r.GET("/ready", func(c *gin.Context) {
		collections := gin.H{}
		ready := true
		for _, s := range syncers {
			collections[s.Collection()] = s.Ready()
			if !s.Ready() {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "loading"
		}
		c.JSON(status, gin.H{"status": state, "collections": collections})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/v1/notifications", func(c *gin.Context) {
		var recent []notify.Notification
		if ring != nil {
			recent = ring.Recent()
		}
		if recent == nil {
			recent = []notify.Notification{}
		}
		c.JSON(http.StatusOK, gin.H{"data": recent})
	})
}
