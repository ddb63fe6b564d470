package models

// Role is the club role of a user. It drives contact visibility and
// broadcast authority.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCoach   Role = "COACH"
	RoleSportif Role = "SPORTIF"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoach, RoleSportif:
		return true
	}
	return false
}
