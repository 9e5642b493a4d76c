package dto

import "github.com/google/uuid"

type CreateCommentRequest struct {
	Content  string     `json:"content" binding:"required,max=10000"`
	ParentID *uuid.UUID `json:"parent_id"`
}
