package handler

import (
	"net/http"

	"anoa.com/karmaforum/internal/modules/reaction/dto"
	reaction "anoa.com/karmaforum/internal/modules/reaction/service"
	"anoa.com/karmaforum/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReactionHandler struct {
	service reaction.ReactionService
}

func NewReactionHandler(service reaction.ReactionService) *ReactionHandler {
	return &ReactionHandler{service: service}
}

func (h *ReactionHandler) LikePost(c *gin.Context) {
	h.like(c, "post_id", dto.PostTarget)
}

func (h *ReactionHandler) LikeComment(c *gin.Context) {
	h.like(c, "comment_id", dto.CommentTarget)
}

func (h *ReactionHandler) GetPostLikes(c *gin.Context) {
	h.count(c, "post_id", dto.PostTarget)
}

func (h *ReactionHandler) GetCommentLikes(c *gin.Context) {
	h.count(c, "comment_id", dto.CommentTarget)
}

func (h *ReactionHandler) like(c *gin.Context, param string, target func(uuid.UUID) dto.Target) {
	id, ok := response.ParseUUIDParam(c, param)
	if !ok {
		return
	}

	result, err := h.service.Like(c.Request.Context(), target(id))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReactionHandler) count(c *gin.Context, param string, target func(uuid.UUID) dto.Target) {
	id, ok := response.ParseUUIDParam(c, param)
	if !ok {
		return
	}

	resp, err := h.service.GetLikeCount(c.Request.Context(), target(id))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
