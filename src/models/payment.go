package models

import (
	"time"

	"flamengo/src/types"
)

// Payment tracks one MercadoPago transaction. PaymentID is the processor's
// id and carries a unique index: two rows can never point at the same real
// payment.
type Payment struct {
	ID                string              `gorm:"primarykey;size:50" json:"id"`
	ClientID          string              `gorm:"size:50;index" json:"client_id,omitempty"`
	OnibusID          string              `gorm:"size:50;index" json:"onibus_id,omitempty"`
	PaymentID         string              `gorm:"size:50;uniqueIndex" json:"payment_id"`
	Status            types.PaymentStatus `gorm:"size:50;default:'pending'" json:"status"`
	Timestamp         time.Time           `gorm:"autoCreateTime;index" json:"timestamp"`
	TransactionAmount float64             `json:"transaction_amount"`
	Email             string              `gorm:"size:100" json:"email,omitempty"`
	Approved          bool                `gorm:"default:false" json:"approved"`
	Seats             types.SeatList      `gorm:"type:jsonb" json:"seats,omitempty"`

	Client *Client `gorm:"foreignKey:ClientID" json:"-"`
	Onibus *Onibus `gorm:"foreignKey:OnibusID" json:"-"`
}
