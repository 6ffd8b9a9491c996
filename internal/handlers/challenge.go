package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) GenerateChallenge(c *gin.Context) {
	ch, err := h.challengeService.Generate()
	if err != nil {
		h.log.Error().Err(err).Msg("challenge generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "challenge_unavailable"})
		return
	}

	c.JSON(http.StatusOK, ch)
}
