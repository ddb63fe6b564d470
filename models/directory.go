package models

// Directory is a snapshot of one club used for contact resolution.
type Directory struct {
	ClubID     uint
	Users      []User
	Categories []Category
	Teams      []Team
}

func (d *Directory) Category(id uint) (Category, bool) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (d *Directory) Team(id uint) (Team, bool) {
	for _, t := range d.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

func (d *Directory) CategoryName(id *uint) string {
	if id == nil {
		return ""
	}
	c, _ := d.Category(*id)
	return c.Name
}

// UserContact denormalizes u for display.
func (d *Directory) UserContact(u *User) Contact {
	return Contact{
		Kind:         ContactUser,
		ID:           u.ID,
		Name:         u.Fullname,
		Role:         u.Role,
		CategoryID:   u.CategoryID,
		CategoryName: d.CategoryName(u.CategoryID),
		TeamID:       u.TeamID,
	}
}

func (d *Directory) CategoryContact(c Category) Contact {
	return Contact{Kind: ContactCategory, ID: c.ID, Name: c.Name}
}

func (d *Directory) TeamContact(t Team) Contact {
	categoryID := t.CategoryID
	return Contact{
		Kind:         ContactTeam,
		ID:           t.ID,
		Name:         t.Name,
		CategoryID:   &categoryID,
		CategoryName: d.CategoryName(&categoryID),
	}
}

func (d *Directory) User(id uint) (*User, bool) {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i], true
		}
	}
	return nil, false
}
