package model

// Permission names a right granted to a user.
type Permission string

const (
	PermAddItem           Permission = "add_item"
	PermChangeItem        Permission = "change_item"
	PermLimitedChangeItem Permission = "limited_change_item"
	PermDeleteItem        Permission = "delete_item"
	PermViewComment       Permission = "view_comment"
	PermAddComment        Permission = "add_comment"
	PermViewWorkLog       Permission = "view_worklog"
	PermAddWorkLog        Permission = "add_worklog"
	PermChangeWorkLog     Permission = "change_worklog"
	PermDeleteWorkLog     Permission = "delete_worklog"
	PermSuperuser         Permission = "superuser"
)

// AllPermissions is the full set, granted to the default local user.
var AllPermissions = []Permission{
	PermAddItem, PermChangeItem, PermLimitedChangeItem, PermDeleteItem,
	PermViewComment, PermAddComment,
	PermViewWorkLog, PermAddWorkLog, PermChangeWorkLog, PermDeleteWorkLog,
	PermSuperuser,
}

// User is the acting person for an operation.
type User struct {
	Name        string
	Permissions map[Permission]bool
}

// NewUser creates a user holding the given permissions.
func NewUser(name string, perms ...Permission) User {
	u := User{Name: name, Permissions: make(map[Permission]bool, len(perms))}
	for _, p := range perms {
		u.Permissions[p] = true
	}
	return u
}

// Has reports whether the user holds p. Superusers hold everything.
func (u User) Has(p Permission) bool {
	return u.Permissions[PermSuperuser] || u.Permissions[p]
}

// IsSuperuser reports whether the user holds the superuser right.
func (u User) IsSuperuser() bool {
	return u.Permissions[PermSuperuser]
}

// LimitedItemEditor reports whether the user may edit items only through
// the limited form, which keeps estimate and billing fields read-only.
func (u User) LimitedItemEditor() bool {
	return !u.Has(PermChangeItem) && u.Has(PermLimitedChangeItem)
}

// CanModify reports whether the user may apply perm to a record created
// by createdBy. Only the author or a superuser qualifies, and either must
// hold perm.
func (u User) CanModify(perm Permission, createdBy string) bool {
	if !u.Has(perm) {
		return false
	}
	return u.IsSuperuser() || (createdBy != "" && createdBy == u.Name)
}
