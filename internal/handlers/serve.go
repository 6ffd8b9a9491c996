package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ServeImage is the raw binary surface. Records are immutable and
// content-addressed, so the payload for an id can never change and the
// response is cacheable forever.
func (h HandlerSet) ServeImage(c *gin.Context) {
	image, err := h.imageService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Length", strconv.Itoa(len(image.Payload)))
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Header("ETag", `"`+image.StorageHash+`"`)
	c.Data(http.StatusOK, image.MimeType, image.Payload)
}
