package http

import (
	"errors"
	"net/http"

	"anoa.com/karmaforum/internal/modules/search/service"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type SearchHandler struct {
	service service.SearchService
}

func NewSearchHandler(service service.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) GetSearchToken(c *gin.Context) {
	token, err := h.service.GenerateSearchToken()
	if err != nil {
		if errors.Is(err, service.ErrSearchDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).Error("failed to generate search token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate search token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
