package model

import (
	"strings"
	"time"
)

type ContactType string

const (
	ContactTypeCompany ContactType = "company"
	ContactTypePerson  ContactType = "person"
)

func (t ContactType) Valid() bool {
	return t == ContactTypeCompany || t == ContactTypePerson
}

type Contact struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	ContactType    ContactType `gorm:"size:20;default:company" json:"contact_type"`
	CompanyName    string      `gorm:"size:255" json:"company_name,omitempty"`
	Salutation     string      `gorm:"size:20" json:"salutation,omitempty"`
	FirstName      string      `gorm:"size:100" json:"first_name,omitempty"`
	LastName       string      `gorm:"size:100" json:"last_name,omitempty"`
	Street         string      `gorm:"size:255" json:"street,omitempty"`
	ZipCode        string      `gorm:"size:20" json:"zip_code,omitempty"`
	City           string      `gorm:"size:100" json:"city,omitempty"`
	Country        string      `gorm:"size:100;default:Deutschland" json:"country"`
	Email          string      `gorm:"size:255" json:"email,omitempty"`
	Phone          string      `gorm:"size:50" json:"phone,omitempty"`
	CustomerNumber string      `gorm:"size:50" json:"customer_number,omitempty"`
	Notes          string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// DisplayName is the name used as correspondent on documents: the company
// name for companies, otherwise first and last name.
func (c Contact) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
