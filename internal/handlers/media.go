package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zlc1004/Carpool-sub000/internal/models"
	"github.com/zlc1004/Carpool-sub000/internal/service"
)

type batchMetadataRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h HandlerSet) UploadImage(c *gin.Context) {
	sessionID := c.PostForm("sessionId")
	answer := c.PostForm("answer")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_required"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	// The pipeline's 20MB gate runs on the decoded length; reading one
	// byte past the limit lets oversized bodies fail without buffering
	// the whole stream first.
	data, err := io.ReadAll(io.LimitReader(file, h.cfg.Pipeline.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read_failed"})
		return
	}

	var uploaderID *string
	if uploader := c.PostForm("uploaderId"); uploader != "" {
		uploaderID = &uploader
	}

	result, err := h.uploadService.Upload(c.Request.Context(), service.UploadInput{
		Data:       data,
		MimeType:   header.Header.Get("Content-Type"),
		FileName:   header.Filename,
		SessionID:  sessionID,
		Answer:     answer,
		UploaderID: uploaderID,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("file_name", header.Filename).Msg("upload rejected")
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": result})
}

// GetImage returns the record without its payload; only the binary
// surface pulls bytes from the object store.
func (h HandlerSet) GetImage(c *gin.Context) {
	meta, err := h.imageService.GetMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"image": meta})
}

func (h HandlerSet) GetImageMetadata(c *gin.Context) {
	meta, err := h.imageService.GetMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"metadata": meta})
}

func (h HandlerSet) GetImageMetadataBatch(c *gin.Context) {
	var req batchMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids_required"})
		return
	}

	metas, err := h.imageService.GetMetadataBatch(c.Request.Context(), req.IDs)
	if err != nil {
		writeError(c, err)
		return
	}

	if metas == nil {
		metas = []models.ImageMetadata{}
	}
	c.JSON(http.StatusOK, gin.H{"metadata": metas})
}
