package models

// Onibus is one scheduled excursion vehicle. Vagas is the cached count of
// remaining seats; every mutation goes through a conditional update so the
// counter can never go below zero.
type Onibus struct {
	ID         string `gorm:"primarykey;size:50" json:"id"`
	FotoCasa   string `gorm:"size:200" json:"foto_casa,omitempty"`
	FotoVisita string `gorm:"size:200" json:"foto_visita,omitempty"`
	Evento     string `gorm:"size:100" json:"evento,omitempty"`
	Descricao  string `gorm:"size:255" json:"descricao,omitempty"`
	Horario    string `gorm:"size:50" json:"horario,omitempty"`
	Vagas      int    `gorm:"check:vagas >= 0" json:"vagas"`

	Reservations []*Reservation `gorm:"foreignKey:OnibusID" json:"reservations,omitempty"`
	Payments     []*Payment     `gorm:"foreignKey:OnibusID" json:"payments,omitempty"`
}

func (Onibus) TableName() string {
	return "onibus"
}
