package dto

import userDto "anoa.com/karmaforum/internal/modules/user/dto"

// LeaderboardEntry is one ranked user. Position is 1-based.
type LeaderboardEntry struct {
	User     userDto.UserResponse `json:"user"`
	Karma24h int64                `json:"karma_24h"`
	Position int                  `json:"position"`
}
