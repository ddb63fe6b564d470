package models

type ContactKind string

const (
	ContactUser     ContactKind = "user"
	ContactCategory ContactKind = "category"
	ContactTeam     ContactKind = "team"
)

// Contact is an addressable party for the current viewer, denormalized so it
// can be rendered without further lookups.
type Contact struct {
	Kind         ContactKind `json:"kind"`
	ID           uint        `json:"id"`
	Name         string      `json:"name"`
	Role         Role        `json:"role,omitempty"`
	CategoryID   *uint       `json:"category_id,omitempty"`
	CategoryName string      `json:"category_name,omitempty"`
	TeamID       *uint       `json:"team_id,omitempty"`
}

// Thread returns the thread opened by selecting this contact.
func (c Contact) Thread() Thread {
	switch c.Kind {
	case ContactCategory:
		return CategoryThread(c.ID)
	case ContactTeam:
		return TeamThread(c.ID)
	}
	return DirectThread(c.ID)
}

type SportifGroup struct {
	CategoryID   uint      `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Sportifs     []Contact `json:"sportifs"`
}

// Contacts is the resolved address book of one viewer.
type Contacts struct {
	Coaches            []Contact      `json:"coaches"`
	Admins             []Contact      `json:"admins"`
	Sportifs           []Contact      `json:"sportifs"`
	SportifsByCategory []SportifGroup `json:"sportifs_by_category,omitempty"`
	Categories         []Contact      `json:"categories"`
	Teams              []Contact      `json:"teams"`
}

// HasUser reports whether userID is a directly addressable contact.
func (c *Contacts) HasUser(userID uint) bool {
	for _, list := range [][]Contact{c.Coaches, c.Admins, c.Sportifs} {
		for _, ct := range list {
			if ct.ID == userID {
				return true
			}
		}
	}
	return false
}
