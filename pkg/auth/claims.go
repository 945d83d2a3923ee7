package auth

import (
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
// JTI doubles as the session id in Redis; an empty value is generated.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	IsVerified bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID      `json:"user_id"`
	Role       enums.UserRole `json:"role"`
	IsVerified bool           `json:"is_verified"`
	jwt.RegisteredClaims
}
