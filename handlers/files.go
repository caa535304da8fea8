package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxUploadSize bounds a single image upload
const maxUploadSize = 5 << 20

// UploadFile stores an image from the "file" form field
func UploadFile(c *gin.Context) {
	url, ok := storeUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DownloadFile serves a stored image
func DownloadFile(c *gin.Context) {
	path, err := fileStorage.Path(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.File(path)
}

func storeUpload(c *gin.Context) (string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", false
	}

	src, err := header.Open()
	if err != nil {
		log.Warn().Err(err).Str("filename", header.Filename).Msg("⚠️ Failed to open upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return "", false
	}
	defer src.Close()

	url, err := fileStorage.Store(header.Filename, src)
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return url, true
}
