package identity

import "strings"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Category is a project category an identity may be granted access to.
type Category string

const (
	CategoryWebApp     Category = "Web App"
	CategoryMobileApp  Category = "Mobile App"
	CategoryWebsite    Category = "Website"
	CategoryDesktopApp Category = "Desktop App"
)

// Identity is the resolved application-level user record.
type Identity struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Permissions []Category `json:"permissions,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanAccess reports whether the identity may manage projects in the given
// category. Admins have unrestricted category access regardless of the
// permissions set.
func (i Identity) CanAccess(c Category) bool {
	if i.IsAdmin() {
		return true
	}
	for _, p := range i.Permissions {
		if p == c {
			return true
		}
	}
	return false
}

// NameFromEmail derives a display name from the local part of an email
// address. Used as the last-resort default during profile resolution.
func NameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
