package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/agromarket/agromarket-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	Email  string
	JTI    string
}

// AccessTokenClaims is the typed body of an access token. The jti names the server-side
// session, so revoking the session revokes the token.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	Email  string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after the registered-claims checks during parsing.
func (c *AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("token has no user id")
	case c.Subject != c.UserID.String():
		return errors.New("token subject does not match user id")
	case !c.Role.IsValid():
		return fmt.Errorf("invalid role %q", c.Role)
	case c.ID == "":
		return errors.New("token has no session id")
	}
	return nil
}
