package application

import "vn.io.arda/directory/internal/domain"

const adminRole = "admin"

// superuserEmail is a legacy realm fixture that predates the admin role.
// Existing realm data still depends on it, so it is kept beside the role
// check; the role claim is the preferred path.
const superuserEmail = "admin@test.com"

// VisibleUsers decides which directory records the caller may see.
// Admins see the whole directory. Everyone else sees exactly the records
// whose company matches their own, case-sensitively, in the order the IdP
// returned them. An identity with no resolvable company sees nothing —
// that is a valid empty result, not an error.
func VisibleUsers(id domain.Identity, all []domain.DirectoryUser) []domain.DirectoryUser {
	// Tokens are not guaranteed to carry an email claim; the username is
	// the caller's address in that case.
	email := id.Email
	if email == "" {
		email = id.PreferredUsername
	}

	if email == superuserEmail || id.HasRole(adminRole) {
		return all
	}

	if id.Company == "" {
		return []domain.DirectoryUser{}
	}

	visible := make([]domain.DirectoryUser, 0, len(all))
	for _, u := range all {
		if u.Company == id.Company {
			visible = append(visible, u)
		}
	}
	return visible
}
