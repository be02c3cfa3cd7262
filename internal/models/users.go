package models

// User is a dashboard account. Password holds a bcrypt hash, or a legacy
// plaintext value that is rewritten as a hash on first successful login.
// Version counts credential changes (password or role edits) and is what
// invalidates outstanding sessions.
type User struct {
	Username  string   `yaml:"username" json:"username"`
	Password  string   `yaml:"password" json:"-"`
	Email     string   `yaml:"email" json:"email"`
	FirstName string   `yaml:"first_name" json:"first_name"`
	LastName  string   `yaml:"last_name" json:"last_name"`
	Roles     []string `yaml:"roles" json:"roles"`
	Version   int64    `yaml:"version" json:"-"`
}

// Role bundles category grants. IsAdmin makes every category visible and
// unlocks the write endpoints regardless of the grant list.
type Role struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	IsAdmin     bool     `yaml:"is_admin" json:"is_admin"`
	Categories  []string `yaml:"categories" json:"categories"`
}

// CredentialDocument is the full credential document as persisted in
// users.yaml.
type CredentialDocument struct {
	Users []User `yaml:"users" json:"users"`
	Roles []Role `yaml:"roles" json:"roles"`
}

// Clone returns a deep copy of the document.
func (d *CredentialDocument) Clone() *CredentialDocument {
	out := &CredentialDocument{}
	for _, u := range d.Users {
		u.Roles = append([]string(nil), u.Roles...)
		out.Users = append(out.Users, u)
	}
	for _, r := range d.Roles {
		r.Categories = append([]string(nil), r.Categories...)
		out.Roles = append(out.Roles, r)
	}
	return out
}
