package http

import (
	"net/http"

	"anoa.com/karmaforum/internal/modules/karma/service"
	"anoa.com/karmaforum/pkg/response"
	"github.com/gin-gonic/gin"
)

type KarmaHandler struct {
	service service.KarmaService
}

func NewKarmaHandler(service service.KarmaService) *KarmaHandler {
	return &KarmaHandler{service: service}
}

func (h *KarmaHandler) GetUserKarma(c *gin.Context) {
	userID, ok := response.ParseUUIDParam(c, "user_id")
	if !ok {
		return
	}

	resp, err := h.service.GetUserKarma(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
