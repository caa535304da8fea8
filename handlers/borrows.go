package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Cherishclears/library-backend/models"
	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
)

// CreateBorrow files a borrow request for the current reader
func CreateBorrow(c *gin.Context) {
	var req services.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.BookID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bookId is required"})
		return
	}

	borrow, err := borrowService.Borrow(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, borrow)
}

// ApproveBorrow hands a copy to the reader
func ApproveBorrow(c *gin.Context) {
	transitionBorrow(c, borrowService.Approve)
}

// RejectBorrow declines a pending request
func RejectBorrow(c *gin.Context) {
	transitionBorrow(c, borrowService.Reject)
}

// ReturnBorrow puts the copy back on the shelf
func ReturnBorrow(c *gin.Context) {
	transitionBorrow(c, borrowService.Return)
}

func transitionBorrow(c *gin.Context, apply func(ctx context.Context, id uint) (*models.Borrow, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	borrow, err := apply(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrow)
}

// GetBorrow returns a borrow to an admin or to its owner
func GetBorrow(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	borrow, err := borrowService.Get(c.Request.Context(), id)
	if err == nil && !canAccessUser(c, borrow.UserID) {
		// Someone else's borrow looks the same as a missing one
		err = fmt.Errorf("borrow %v: %w", id, services.ErrNotFound)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrow)
}

// GetBorrows lists every borrow, optionally filtered by status
func GetBorrows(c *gin.Context) {
	var filter services.BorrowFilter
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseBorrowStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = &status
	}
	listBorrows(c, filter)
}

// GetUserBorrows lists one user's borrows to an admin or to that user
func GetUserBorrows(c *gin.Context) {
	userID, ok := parseID(c, "userId")
	if !ok {
		return
	}
	if !canAccessUser(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}
	listBorrows(c, services.BorrowFilter{UserID: &userID})
}

// GetBookBorrows lists the borrow history of a book
func GetBookBorrows(c *gin.Context) {
	bookID, ok := parseID(c, "bookId")
	if !ok {
		return
	}
	listBorrows(c, services.BorrowFilter{BookID: &bookID})
}

// GetBorrowsByStatus lists borrows in one state
func GetBorrowsByStatus(c *gin.Context) {
	status, err := models.ParseBorrowStatus(c.Param("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listBorrows(c, services.BorrowFilter{Status: &status})
}

func listBorrows(c *gin.Context, filter services.BorrowFilter) {
	page, err := borrowService.List(c.Request.Context(), filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetCurrentBorrows lists the books the caller holds right now
func GetCurrentBorrows(c *gin.Context) {
	borrows, err := borrowService.ListCurrentByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrows)
}

// GetOverdueBorrows lists unreturned borrows past their due date
func GetOverdueBorrows(c *gin.Context) {
	borrows, err := borrowService.ListOverdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrows)
}
