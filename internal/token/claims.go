package token

import (
	"github.com/golang-jwt/jwt/v5"

	"vn.io.arda/directory/internal/domain"
)

// Claims is the subset of access-token claims the gateway cares about.
type Claims struct {
	Subject           string
	Email             string
	PreferredUsername string
	Roles             []string
	Company           string
}

// Decode parses the payload segment of a bearer token without checking the
// signature. It runs opportunistically to enrich an identity the guard has
// already verified and must never be a source of trust on its own.
// Malformed input yields (nil, false), never an error.
func Decode(raw string) (*Claims, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	return FromMap(mc), true
}

// FromMap extracts the gateway claims from a decoded claim map. Roles come
// from realm_access.roles; the company tag is either a direct claim or the
// first element of the list-valued attributes.company.
func FromMap(mc map[string]any) *Claims {
	c := &Claims{}
	c.Subject, _ = mc["sub"].(string)
	c.Email, _ = mc["email"].(string)
	c.PreferredUsername, _ = mc["preferred_username"].(string)

	if ra, ok := mc["realm_access"].(map[string]any); ok {
		if roles, ok := ra["roles"].([]any); ok {
			for _, r := range roles {
				if s, ok := r.(string); ok {
					c.Roles = append(c.Roles, s)
				}
			}
		}
	}

	if s, ok := mc["company"].(string); ok {
		c.Company = s
	} else if attrs, ok := mc["attributes"].(map[string]any); ok {
		if list, ok := attrs["company"].([]any); ok && len(list) > 0 {
			c.Company, _ = list[0].(string)
		}
	}

	return c
}

// MergeInto copies each present claim onto id. An absent claim never
// erases a value an earlier source already supplied.
func (c *Claims) MergeInto(id *domain.Identity) {
	if c.Subject != "" {
		id.Subject = c.Subject
	}
	if c.Email != "" {
		id.Email = c.Email
	}
	if c.PreferredUsername != "" {
		id.PreferredUsername = c.PreferredUsername
	}
	if len(c.Roles) > 0 {
		id.Roles = c.Roles
	}
	if c.Company != "" {
		id.Company = c.Company
	}
}
