package handlers

import (
	"net/http"

	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
)

// GetUsers lists every account
func GetUsers(c *gin.Context) {
	page, err := userService.List(c.Request.Context(), pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetUser returns an account to an admin or to its owner
func GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !canAccessUser(c, id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}
	user, err := userService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser changes a profile. Role and status changes need an admin.
func UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !canAccessUser(c, id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}

	var req services.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	user, err := userService.Update(c.Request.Context(), id, req, currentUser(c).IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account without active borrows
func DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := userService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	statsService.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
