package handlers

import (
	"net/http"
	"strconv"

	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
)

// GetBooks lists the catalog with optional filters
func GetBooks(c *gin.Context) {
	available, _ := strconv.ParseBool(c.Query("available"))
	query := services.BookQuery{
		Keyword:       c.Query("keyword"),
		Category:      c.Query("category"),
		Author:        c.Query("author"),
		AvailableOnly: available,
	}
	listBooks(c, query)
}

// SearchBooks matches a keyword against title, author, ISBN and category
func SearchBooks(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}
	listBooks(c, services.BookQuery{Keyword: keyword})
}

// GetBooksByCategory lists one category
func GetBooksByCategory(c *gin.Context) {
	listBooks(c, services.BookQuery{Category: c.Param("category")})
}

// GetBooksByAuthor lists books whose author contains the given name
func GetBooksByAuthor(c *gin.Context) {
	listBooks(c, services.BookQuery{Author: c.Param("author")})
}

func listBooks(c *gin.Context, query services.BookQuery) {
	page, err := bookService.List(c.Request.Context(), query, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetAvailableBooks lists every book with a copy on the shelf
func GetAvailableBooks(c *gin.Context) {
	books, err := bookService.ListAvailable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook returns one book
func GetBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	book, err := bookService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// GetBookByISBN returns one book by ISBN
func GetBookByISBN(c *gin.Context) {
	book, err := bookService.GetByISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook adds a title to the catalog
func CreateBook(c *gin.Context) {
	var req services.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	book, err := bookService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	statsService.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, book)
}

// UpdateBook replaces a book's details
func UpdateBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	book, err := bookService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	statsService.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book without active borrows
func DeleteBook(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := bookService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	statsService.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

// UploadBookCover stores a cover image. With a bookId form field the
// book is pointed at the new image as well.
func UploadBookCover(c *gin.Context) {
	url, ok := storeUpload(c)
	if !ok {
		return
	}

	if raw := c.PostForm("bookId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bookId"})
			return
		}
		book, err := bookService.SetCover(c.Request.Context(), uint(id), url)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url, "book": book})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
