package models

// Roles granted to accounts. Storage roles guard raw blob access, blog roles guard posting.
const (
	RoleStorageSave  = "STORAGE_SAVE"
	RoleStorageLoad  = "STORAGE_LOAD"
	RoleReadPosts    = "BLOG_READ_POSTS"
	RoleMakePosts    = "BLOG_MAKE_POSTS"
	RoleReadComments = "BLOG_READ_COMMENTS"
	RoleMakeComments = "BLOG_MAKE_COMMENTS"
)

// DefaultUserRoles are given to every registered or dummy account.
var DefaultUserRoles = []string{RoleStorageLoad, RoleReadPosts, RoleReadComments, RoleMakeComments}

// AdminRoles additionally allow publishing.
var AdminRoles = []string{RoleStorageSave, RoleStorageLoad, RoleReadPosts, RoleMakePosts, RoleReadComments, RoleMakeComments}

// Validate checks if the user meets all validation requirements
func (u *User) Validate() error {
	return validate.Struct(u)
}

// HasRole reports whether the user was granted role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRoles appends roles the user does not have yet.
func (u *User) AddRoles(roles ...string) {
	for _, r := range roles {
		if !u.HasRole(r) {
			u.Roles = append(u.Roles, r)
		}
	}
}

// Author returns the moderation view of the user.
func (u *User) Author() Author {
	return Author{
		ID:                u.ID,
		Name:              u.Name,
		IsShadowBanned:    u.ShadowBanned,
		IsAccountDisabled: u.AccountDisabled,
	}
}
