package models

// ClientModel represents an agency client whose accounts we post to.
type ClientModel struct {
	Base
	Name    string `json:"name"    gorm:"not null;index"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Color   string `json:"color"   gorm:"default:#3498db"`
}

func (ClientModel) TableName() string { return "clients" }
