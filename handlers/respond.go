package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps a service error to its HTTP status
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidFileName):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrAccountDisabled):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNoCopiesAvailable),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrDuplicateISBN),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrHasActiveBorrows):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("❌ Request failed")
		c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseID reads a numeric path parameter, answering 400 when it is malformed
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// pageRequest reads page, size, sortBy and direction from the query.
// sort=field,desc is accepted as well.
func pageRequest(c *gin.Context) services.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(services.DefaultPageSize)))

	req := services.PageRequest{
		Page:      page,
		Size:      size,
		SortBy:    c.Query("sortBy"),
		Direction: strings.ToLower(c.Query("direction")),
	}
	if sort := c.Query("sort"); sort != "" && req.SortBy == "" {
		field, dir, _ := strings.Cut(sort, ",")
		req.SortBy = field
		if req.Direction == "" {
			req.Direction = strings.ToLower(dir)
		}
	}
	return req
}
