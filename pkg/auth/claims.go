package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/serranodev/quickcart-backend/pkg/enums"
)

// AccessTokenPayload is the identity material minted into an access token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	Role   enums.MemberRole
	JTI    string
}

// AccessTokenClaims is the JWT claim set carried by quickcart access tokens.
type AccessTokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Payload reconstructs the typed payload from parsed claims.
func (c AccessTokenClaims) Payload() (AccessTokenPayload, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return AccessTokenPayload{}, err
	}
	role, err := enums.ParseMemberRole(c.Role)
	if err != nil {
		return AccessTokenPayload{}, err
	}
	return AccessTokenPayload{UserID: userID, Email: c.Email, Role: role}, nil
}
