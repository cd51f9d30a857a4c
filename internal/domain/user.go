package domain

// Role names known to the panel. ROLE_SUPER_ADMIN grants everything.
const (
	RoleTest       = "role_test"
	RoleTable      = "role_table"
	RoleTemplate   = "role_template"
	RoleWizard     = "role_wizard"
	RoleFile       = "role_file"
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
)

// RoleNames lists every role in seeding order.
var RoleNames = []string{RoleTest, RoleTable, RoleTemplate, RoleWizard, RoleFile, RoleSuperAdmin}

type Role struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Role string `db:"role"`
}

type User struct {
	ID       string `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	Hash     string `db:"password_hash"`
	Salt     string `db:"salt"`
	Roles    []Role `db:"-"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
