package models

// User is a club member as seen by the messaging core. Coaches carry their
// assignments; sportifs carry their category and optional team.
type User struct {
	Model
	ClubID     uint   `json:"club_id" gorm:"index;not null"`
	Fullname   string `json:"fullname" gorm:"not null"`
	Email      string `json:"email" gorm:"uniqueIndex;not null"`
	Role       Role   `json:"role" gorm:"type:varchar(16);not null"`
	CategoryID *uint  `json:"category_id,omitempty" gorm:"index"`
	TeamID     *uint  `json:"team_id,omitempty" gorm:"index"`

	CoachedCategories []Category `json:"coached_categories,omitempty" gorm:"many2many:coach_categories;"`
	CoachedTeams      []Team     `json:"coached_teams,omitempty" gorm:"many2many:coach_teams;"`
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsCoach() bool   { return u.Role == RoleCoach }
func (u *User) IsSportif() bool { return u.Role == RoleSportif }

// InCategory reports whether a sportif belongs to the category.
func (u *User) InCategory(categoryID uint) bool {
	return u.CategoryID != nil && *u.CategoryID == categoryID
}

// InTeam reports whether a sportif belongs to the team.
func (u *User) InTeam(teamID uint) bool {
	return u.TeamID != nil && *u.TeamID == teamID
}

// CoachesCategory reports whether a coach is assigned to the category.
func (u *User) CoachesCategory(categoryID uint) bool {
	for _, c := range u.CoachedCategories {
		if c.ID == categoryID {
			return true
		}
	}
	return false
}

// CoachesTeam reports whether a coach has authority over the team, either
// directly or through the team's category.
func (u *User) CoachesTeam(team *Team) bool {
	for _, t := range u.CoachedTeams {
		if t.ID == team.ID {
			return true
		}
	}
	return u.CoachesCategory(team.CategoryID)
}
