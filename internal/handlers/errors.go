package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zlc1004/Carpool-sub000/internal/challenge"
	"github.com/zlc1004/Carpool-sub000/internal/media/sniffer"
	"github.com/zlc1004/Carpool-sub000/internal/media/transcode"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
	"github.com/zlc1004/Carpool-sub000/internal/service"
)

// writeError maps pipeline sentinels onto HTTP statuses and stable
// error codes. Anything unmapped is a storage-layer failure and stays
// opaque to the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
	case errors.Is(err, challenge.ErrUnknownSession):
		c.JSON(http.StatusForbidden, gin.H{"error": "challenge_expired"})
	case errors.Is(err, challenge.ErrWrongAnswer):
		c.JSON(http.StatusForbidden, gin.H{"error": "challenge_wrong_answer"})
	case errors.Is(err, sniffer.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported_type"})
	case errors.Is(err, transcode.ErrDecode):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "decode_failed"})
	case errors.Is(err, repository.ErrDuplicateImage):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_image"})
	case errors.Is(err, repository.ErrTooManyRequested):
		c.JSON(http.StatusBadRequest, gin.H{"error": "too_many_requested"})
	case errors.Is(err, repository.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "image_not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_error"})
	}
}
