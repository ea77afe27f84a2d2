// Package identity resolves the acting user from configuration or the bearer credential.
package identity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/park285/IgKnight-client/pkg/gamedto"
)

var ErrUnknownUser = errors.New("acting user unknown")

// User is the acting user. A zero ID means spectator.
type User struct {
	ID       gamedto.ID
	Username string
}

// Resolve prefers an explicit id and otherwise reads the credential's claims.
// The signature is not verified; the server remains the authority.
func Resolve(explicitID, credential string) (User, error) {
	if id := strings.TrimSpace(explicitID); id != "" {
		u := User{ID: gamedto.ID(id)}
		if c, err := claims(credential); err == nil {
			u.Username = username(c)
		}
		return u, nil
	}
	if strings.TrimSpace(credential) == "" {
		return User{}, ErrUnknownUser
	}
	c, err := claims(credential)
	if err != nil {
		return User{}, err
	}
	id := userID(c)
	if id == "" {
		return User{}, fmt.Errorf("%w: token has no userId claim", ErrUnknownUser)
	}
	return User{ID: id, Username: username(c)}, nil
}

func claims(credential string) (jwt.MapClaims, error) {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("parse credential: %w", err)
	}
	return mc, nil
}

func userID(c jwt.MapClaims) gamedto.ID {
	switch v := c["userId"].(type) {
	case float64:
		return gamedto.ID(strconv.FormatInt(int64(v), 10))
	case string:
		return gamedto.ID(strings.TrimSpace(v))
	}
	return ""
}

func username(c jwt.MapClaims) string {
	if v, ok := c["username"].(string); ok && v != "" {
		return v
	}
	sub, _ := c.GetSubject()
	return sub
}
