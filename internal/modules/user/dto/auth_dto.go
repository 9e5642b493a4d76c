package dto

import "anoa.com/karmaforum/internal/entity"

type DevTokenRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *entity.User `json:"user"`
}

// UserResponse is the public shape of a user embedded in other responses.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func ToUserResponse(u entity.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Username: u.Username, DisplayName: u.DisplayName}
}
