package domain

// DirectoryUser is one record from the identity provider's admin user
// listing. Records are fetched per request and never persisted by the
// gateway; the IdP is the only source of truth.
type DirectoryUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	// Company is the tenant tag, stored in the IdP under a list-valued
	// custom attribute. Empty when the record carries no tag.
	Company string `json:"company"`
}

// Identity is the request-scoped caller identity. It is assembled by
// merging, in order: claims verified by the bearer guard, claims decoded
// straight from the raw token, and the caller's own IdP record. Later
// sources win field-by-field but never erase a field they do not carry.
type Identity struct {
	Subject           string
	Email             string
	PreferredUsername string
	FirstName         string
	LastName          string
	Roles             []string
	Company           string
}

// HasRole reports whether the identity carries the given realm role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RegistrationRequest is the self-service signup payload. All five fields
// are mandatory; everything beyond presence and email shape (uniqueness,
// password policy) is the IdP's call and surfaces via error translation.
type RegistrationRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Company   string `json:"company" validate:"required"`
}
