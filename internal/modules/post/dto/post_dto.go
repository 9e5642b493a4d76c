package dto

import (
	"time"

	"anoa.com/karmaforum/internal/entity"
	commentService "anoa.com/karmaforum/internal/modules/comment/service"
	userDto "anoa.com/karmaforum/internal/modules/user/dto"
	"github.com/google/uuid"
)

type CreatePostRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

// PostResponse is a post with its whole comment forest.
type PostResponse struct {
	ID        uuid.UUID                     `json:"id"`
	Author    userDto.UserResponse          `json:"author"`
	Content   string                        `json:"content"`
	LikeCount int64                         `json:"like_count"`
	Comments  []*commentService.CommentNode `json:"comments"`
	CreatedAt time.Time                     `json:"created_at"`
}

func ToPostResponse(post *entity.Post, comments []*commentService.CommentNode) PostResponse {
	if comments == nil {
		comments = []*commentService.CommentNode{}
	}
	return PostResponse{
		ID:        post.ID,
		Author:    userDto.ToUserResponse(post.Author),
		Content:   post.Content,
		LikeCount: post.LikeCount,
		Comments:  comments,
		CreatedAt: post.CreatedAt,
	}
}
