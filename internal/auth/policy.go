package auth

import (
	"launchdeck/internal/models"
)

// legacyAdminRole grants admin rights by name alone. Kept for documents
// written before roles carried an explicit is_admin flag.
const legacyAdminRole = "Admins"

// Identity is the resolved caller of a single request. Local marks the
// loopback bypass; such identities have no backing user record.
type Identity struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Local    bool     `json:"is_local"`
}

// Access is the result of evaluating an identity against the role and
// category lists.
type Access struct {
	Admin      bool
	Categories map[string]bool
}

// CanSee reports whether a category is visible under this access.
func (a Access) CanSee(category string) bool {
	return a.Admin || a.Categories[category]
}

// IsAdmin reports whether the identity holds any admin-flagged role.
// A nil identity is anonymous and never admin.
func IsAdmin(id *Identity, roles []models.Role) bool {
	if id == nil {
		return false
	}
	if id.Local {
		return true
	}
	byName := make(map[string]models.Role, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}
	for _, name := range id.Roles {
		r, ok := byName[name]
		if !ok {
			// Dangling role reference: no extra access, not an error.
			continue
		}
		if r.IsAdmin || r.Name == legacyAdminRole {
			return true
		}
	}
	return false
}

// Evaluate computes the visible category set for an identity. Non-admins
// see the union of their roles' grants intersected with the categories
// that actually exist.
func Evaluate(id *Identity, roles []models.Role, categories []models.Category) Access {
	access := Access{Categories: make(map[string]bool)}

	if id == nil {
		return access
	}

	existing := make(map[string]bool, len(categories))
	for _, c := range categories {
		existing[c.Name] = true
	}

	if IsAdmin(id, roles) {
		access.Admin = true
		for name := range existing {
			access.Categories[name] = true
		}
		return access
	}

	byName := make(map[string]models.Role, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}
	for _, name := range id.Roles {
		r, ok := byName[name]
		if !ok {
			continue
		}
		for _, grant := range r.Categories {
			if existing[grant] {
				access.Categories[grant] = true
			}
		}
	}
	return access
}

// FilterConfig returns a copy of the document restricted to what the given
// access may see. Services are filtered transitively through their category;
// a service whose category no longer exists is kept for admins only.
func FilterConfig(doc *models.ConfigDocument, access Access) *models.ConfigDocument {
	out := doc.Clone()
	if access.Admin {
		return out
	}

	categories := out.Categories[:0]
	for _, c := range out.Categories {
		if access.Categories[c.Name] {
			categories = append(categories, c)
		}
	}
	out.Categories = categories

	services := out.Services[:0]
	for _, s := range out.Services {
		if access.Categories[s.Category] {
			services = append(services, s)
		}
	}
	out.Services = services

	return out
}
