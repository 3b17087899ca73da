package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

// Seat is one seat coordinate on an onibus. Row and Column are 1-based.
type Seat struct {
	Row    int `json:"row" binding:"required,gte=1"`
	Column int `json:"column" binding:"required,gte=1"`
}

// SeatList is stored on payments as a JSON column.
type SeatList []Seat

func (s SeatList) Value() (driver.Value, error) {
	valueString, err := json.Marshal(s)
	return string(valueString), err
}
func (s *SeatList) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(str)
	}
	return json.Unmarshal(b, s)
}

type PaymentStatus string

const (
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_APPROVED PaymentStatus = "approved"
	PAYMENT_DENIED   PaymentStatus = "denied"
)

// Terminal reports whether no further transition is allowed out of s.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PAYMENT_APPROVED, PAYMENT_DENIED:
		return true
	case PAYMENT_PENDING:
		return false
	}
	return false
}

// CanTransition reports whether s -> to is a legal transition. The only
// transitions are pending -> approved and pending -> denied.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	if s != PAYMENT_PENDING {
		return false
	}
	return to == PAYMENT_APPROVED || to == PAYMENT_DENIED
}

type Env string

const (
	Local      Env = "local"
	Test       Env = "test"
	Production Env = "production"
)

type ClientRequestBody struct {
	ID          string `json:"id,omitempty"`
	Nome        string `json:"nome" binding:"required"`
	Telefone    string `json:"telefone,omitempty"`
	Email       string `json:"email" binding:"required,email"`
	Viagens     string `json:"viagens,omitempty"`
	Comprovante string `json:"comprovante,omitempty"`
	Passagens   string `json:"passagens,omitempty"`
	Role        string `json:"role,omitempty"`
	Confirmed   bool   `json:"confirmed,omitempty"`
}

type UpdateClientRequestBody struct {
	Nome        *string `json:"nome,omitempty"`
	Telefone    *string `json:"telefone,omitempty"`
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
	Viagens     *string `json:"viagens,omitempty"`
	Comprovante *string `json:"comprovante,omitempty"`
	Passagens   *string `json:"passagens,omitempty"`
	Role        *string `json:"role,omitempty"`
	Confirmed   *bool   `json:"confirmed,omitempty"`
}

type OnibusRequestBody struct {
	ID         string `json:"id,omitempty"`
	Evento     string `json:"evento" binding:"required"`
	Descricao  string `json:"descricao,omitempty"`
	Horario    string `json:"horario,omitempty"`
	Vagas      int    `json:"vagas" binding:"required,gte=0"`
	FotoCasa   string `json:"foto_casa,omitempty"`
	FotoVisita string `json:"foto_visita,omitempty"`
}

type UpdateOnibusRequestBody struct {
	Evento     *string `json:"evento,omitempty"`
	Descricao  *string `json:"descricao,omitempty"`
	Horario    *string `json:"horario,omitempty"`
	Vagas      *int    `json:"vagas,omitempty" binding:"omitempty,gte=0"`
	FotoCasa   *string `json:"foto_casa,omitempty"`
	FotoVisita *string `json:"foto_visita,omitempty"`
}

type ReserveRequestBody struct {
	ClientID string `json:"client_id" binding:"required"`
	Seats    []Seat `json:"seats" binding:"required,min=1,dive"`
}

type CreatePaymentRequestBody struct {
	TransactionAmount float64 `json:"transaction_amount" binding:"required,gt=0"`
	Email             string  `json:"email" binding:"required,email"`
}

type CreateDBPaymentRequestBody struct {
	TransactionAmount float64 `json:"transaction_amount" binding:"required,gt=0"`
	Email             string  `json:"email" binding:"required,email"`
	ClientID          string  `json:"client_id" binding:"required"`
	OnibusID          string  `json:"onibus_id" binding:"required"`
	PaymentID         string  `json:"payment_id" binding:"required"`
	Seats             []Seat  `json:"seats" binding:"required,min=1,dive"`
}

type EditPaymentRequestBody struct {
	Status *PaymentStatus `json:"status,omitempty" binding:"omitempty,paymentstatus"`
	Amount *float64       `json:"amount,omitempty" binding:"omitempty,gt=0"`
}

// NotificationRequestBody is the payload MercadoPago posts to the webhook
// endpoint on payment status changes.
type NotificationRequestBody struct {
	Action      string         `json:"action" binding:"required"`
	APIVersion  string         `json:"api_version,omitempty"`
	Data        map[string]any `json:"data" binding:"required"`
	DateCreated string         `json:"date_created,omitempty"`
	ID          int64          `json:"id,omitempty"`
	LiveMode    bool           `json:"live_mode,omitempty"`
	Type        string         `json:"type,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
}

// ReservationDetails is the body for the explicit confirmation-email resend.
type ReservationDetails struct {
	ClientID string `json:"client_id" binding:"required"`
	OnibusID string `json:"onibus_id" binding:"required"`
	Seats    []Seat `json:"seats" binding:"required,min=1,dive"`
	Email    string `json:"email" binding:"required,email"`
}

type SimpleRequestParams struct {
	ID string `uri:"id" binding:"required"`
}

type ReservationStatusQuery struct {
	OnibusID string `form:"onibus_id" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
}

type APIResponseReservation struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	OnibusID   string `json:"onibus_id"`
	SeatRow    int    `json:"seat_row"`
	SeatColumn int    `json:"seat_column"`
	Confirmed  bool   `json:"confirmed"`
	Timestamp  string `json:"timestamp"`
}

type APIResponsePayment struct {
	ID                string        `json:"id"`
	ClientID          string        `json:"client_id"`
	OnibusID          string        `json:"onibus_id"`
	PaymentID         string        `json:"payment_id"`
	Status            PaymentStatus `json:"status"`
	TransactionAmount float64       `json:"transaction_amount"`
	Email             string        `json:"email"`
	Approved          bool          `json:"approved"`
	Seats             SeatList      `json:"seats,omitempty"`
	Timestamp         *time.Time    `json:"timestamp,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Handler func(payload string)
