package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// GetDashboardStats returns the admin dashboard counters
func GetDashboardStats(c *gin.Context) {
	stats, err := statsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetRecentBorrows returns the newest borrows, limit defaults to 10
func GetRecentBorrows(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	borrows, err := borrowService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrows)
}

// MarkOverdueBorrows flags approved borrows past their due date
func MarkOverdueBorrows(c *gin.Context) {
	marked, err := borrowService.MarkOverdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info().Int64("marked", marked).Str("by", currentUser(c).Username).Msg("⏰ Overdue sweep run")
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// GetSystemStats returns host and broker statistics
func GetSystemStats(c *gin.Context) {
	resp := gin.H{"system": statsService.System(c.Request.Context())}
	if natsStats != nil {
		resp["nats"] = natsStats.GetStats()
	}
	c.JSON(http.StatusOK, resp)
}

// GetNotificationStats returns live notification hub statistics
func GetNotificationStats(c *gin.Context) {
	if notifyHub == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	stats := notifyHub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"enabled":   true,
		"clients":   stats.Clients,
		"admins":    stats.Admins,
		"delivered": stats.Delivered,
		"dropped":   stats.Dropped,
	})
}
