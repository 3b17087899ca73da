package models

import (
	"gorm.io/gorm"
)

type Client struct {
	ID          string         `gorm:"primarykey;size:50" json:"id"`
	Nome        string         `gorm:"size:50" json:"nome,omitempty"`
	Telefone    string         `gorm:"size:20" json:"telefone,omitempty"`
	Email       string         `gorm:"size:50;index" json:"email,omitempty"`
	Viagens     string         `gorm:"size:100" json:"viagens,omitempty"`
	Comprovante string         `gorm:"size:200" json:"comprovante,omitempty"`
	Passagens   string         `gorm:"size:200" json:"passagens,omitempty"`
	Role        string         `gorm:"size:10" json:"role,omitempty"`
	Confirmed   bool           `json:"confirmed,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted,omitempty"`

	Reservations []*Reservation `gorm:"foreignKey:ClientID" json:"reservations,omitempty"`
	Payments     []*Payment     `gorm:"foreignKey:ClientID" json:"payments,omitempty"`
}
