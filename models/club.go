package models

// Club is the tenant boundary. Every user, category, team and message
// belongs to exactly one club.
type Club struct {
	Model
	Name string `json:"name" gorm:"not null"`
}

type Category struct {
	Model
	ClubID uint   `json:"club_id" gorm:"index;not null"`
	Name   string `json:"name" gorm:"not null"`
}

type Team struct {
	Model
	ClubID     uint     `json:"club_id" gorm:"index;not null"`
	CategoryID uint     `json:"category_id" gorm:"index;not null"`
	Category   Category `json:"-" gorm:"foreignKey:CategoryID"`
	Name       string   `json:"name" gorm:"not null"`
}
