package models

import (
	"time"
)

// Reservation is a claim on one seat of one onibus by one client. The
// composite unique index keeps a seat from being reserved twice regardless
// of which path (direct hold or payment confirmation) created the row.
type Reservation struct {
	ID         string    `gorm:"primarykey;size:50" json:"id"`
	ClientID   string    `gorm:"size:50;index" json:"client_id,omitempty"`
	OnibusID   string    `gorm:"size:50;uniqueIndex:idx_onibus_seat" json:"onibus_id,omitempty"`
	SeatRow    int       `gorm:"uniqueIndex:idx_onibus_seat" json:"seat_row"`
	SeatColumn int       `gorm:"uniqueIndex:idx_onibus_seat" json:"seat_column"`
	Timestamp  time.Time `gorm:"autoCreateTime" json:"timestamp"`
	Confirmed  bool      `gorm:"default:false" json:"confirmed"`

	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Onibus *Onibus `gorm:"foreignKey:OnibusID" json:"onibus,omitempty"`
}
