package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"flamengo/src/db"
	"flamengo/src/lib"
	awslib "flamengo/src/lib/aws"
	"flamengo/src/lib/mailer"
	"flamengo/src/models"
	"flamengo/src/types"

	"github.com/google/uuid"
	"github.com/yeqown/go-qrcode"
	"gorm.io/gorm"
)

var (
	ErrOnibusNotFound      = errors.New("onibus not found")
	ErrClientNotFound      = errors.New("client not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrSeatTaken           = errors.New("seat is already reserved")
	ErrNoVagas             = errors.New("not enough vagas left")
	ErrPaymentNotPending   = errors.New("payment not pending or already processed")
)

func IsProd() bool {
	return os.Getenv("API_ENV") == string(types.Production)
}

func seatTaken(tx *gorm.DB, onibusId string, seat types.Seat, excludeId string) (bool, error) {
	var count int64
	q := tx.
		Model(&models.Reservation{}).
		Where("onibus_id = ? AND seat_row = ? AND seat_column = ?", onibusId, seat.Row, seat.Column)
	if excludeId != "" {
		q = q.Where("id <> ?", excludeId)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateReservation holds seats on an onibus for a client. Seat collision
// and capacity are checked inside the same transaction as the inserts, and
// the vagas counter only moves through a conditional update, so concurrent
// requests cannot overbook.
func CreateReservation(onibusId string, clientId string, seats []types.Seat) ([]string, error) {
	gdb := db.GetDb()
	ids := make([]string, 0, len(seats))
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var onibus models.Onibus
		if err := tx.Where(&models.Onibus{ID: onibusId}).First(&onibus).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOnibusNotFound
			}
			return err
		}
		for _, seat := range seats {
			taken, err := seatTaken(tx, onibusId, seat, "")
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: (%d,%d)", ErrSeatTaken, seat.Row, seat.Column)
			}
		}
		res := tx.
			Model(&models.Onibus{}).
			Where("id = ? AND vagas >= ?", onibusId, len(seats)).
			UpdateColumn("vagas", gorm.Expr("vagas - ?", len(seats)))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoVagas
		}
		for _, seat := range seats {
			reservation := models.Reservation{
				ID:         uuid.NewString(),
				ClientID:   clientId,
				OnibusID:   onibusId,
				SeatRow:    seat.Row,
				SeatColumn: seat.Column,
				Timestamp:  time.Now(),
			}
			if err := tx.Create(&reservation).Error; err != nil {
				return err
			}
			ids = append(ids, reservation.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	lib.InvalidateSeatMap(context.Background(), onibusId)
	return ids, nil
}

// UpdateReservation repoints a reservation to a new client and seat. The new
// seat is collision-checked in the same transaction. Capacity does not move:
// the reservation still occupies exactly one seat.
func UpdateReservation(reservationId string, clientId string, seat types.Seat) (*models.Reservation, error) {
	gdb := db.GetDb()
	var reservation models.Reservation
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Reservation{ID: reservationId}).First(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		taken, err := seatTaken(tx, reservation.OnibusID, seat, reservationId)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: (%d,%d)", ErrSeatTaken, seat.Row, seat.Column)
		}
		if err := tx.
			Model(&models.Reservation{}).
			Where("id = ?", reservationId).
			Updates(map[string]any{
				"client_id":   clientId,
				"seat_row":    seat.Row,
				"seat_column": seat.Column,
			}).Error; err != nil {
			return err
		}
		reservation.ClientID = clientId
		reservation.SeatRow = seat.Row
		reservation.SeatColumn = seat.Column
		return nil
	})
	if err != nil {
		return nil, err
	}
	lib.InvalidateSeatMap(context.Background(), reservation.OnibusID)
	return &reservation, nil
}

// DeleteReservation removes the row and gives the seat back to the onibus.
func DeleteReservation(reservationId string) error {
	gdb := db.GetDb()
	var onibusId string
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var reservation models.Reservation
		if err := tx.Where(&models.Reservation{ID: reservationId}).First(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		var onibus models.Onibus
		if err := tx.Where(&models.Onibus{ID: reservation.OnibusID}).First(&onibus).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOnibusNotFound
			}
			return err
		}
		if err := tx.Delete(&models.Reservation{}, "id = ?", reservationId).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.Onibus{}).
			Where("id = ?", reservation.OnibusID).
			UpdateColumn("vagas", gorm.Expr("vagas + ?", 1)).Error; err != nil {
			return err
		}
		onibusId = reservation.OnibusID
		return nil
	})
	if err != nil {
		return err
	}
	lib.InvalidateSeatMap(context.Background(), onibusId)
	return nil
}

// ListReservedSeats returns the seat coordinates currently reserved on an
// onibus, through the redis cache when warm.
func ListReservedSeats(ctx context.Context, onibusId string) (types.SeatList, error) {
	if cached := lib.GetCachedSeatMap(ctx, onibusId); cached != nil {
		return cached, nil
	}
	gdb := db.GetDb()
	var reservations []models.Reservation
	if err := gdb.
		Model(&models.Reservation{}).
		Where(&models.Reservation{OnibusID: onibusId}).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	seats := make(types.SeatList, 0, len(reservations))
	for _, r := range reservations {
		seats = append(seats, types.Seat{Row: r.SeatRow, Column: r.SeatColumn})
	}
	lib.CacheSeatMap(ctx, onibusId, seats)
	return seats, nil
}

// ConfirmPayment is the confirmation action: pending -> approved plus the
// materialized reservation rows, in one transaction. Calling it again for an
// already settled payment is a no-op, so the webhook, the polling monitor
// and the synchronous check can race without duplicating reservations. The
// confirmation email and the approved event are best-effort and never roll
// back the transition.
func ConfirmPayment(paymentId string) error {
	gdb := db.GetDb()
	var payment models.Payment
	alreadySettled := false
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Payment{ID: paymentId}).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		res := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentId, types.PAYMENT_PENDING).
			Updates(map[string]any{
				"status":   types.PAYMENT_APPROVED,
				"approved": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			alreadySettled = true
			return nil
		}
		inserted := 0
		for _, seat := range payment.Seats {
			taken, err := seatTaken(tx, payment.OnibusID, seat, "")
			if err != nil {
				return err
			}
			if taken {
				// seat already held through the direct reservation path
				continue
			}
			reservation := models.Reservation{
				ID:         uuid.NewString(),
				ClientID:   payment.ClientID,
				OnibusID:   payment.OnibusID,
				SeatRow:    seat.Row,
				SeatColumn: seat.Column,
				Timestamp:  time.Now(),
				Confirmed:  true,
			}
			if err := tx.Create(&reservation).Error; err != nil {
				return err
			}
			inserted++
		}
		if inserted > 0 {
			res := tx.
				Model(&models.Onibus{}).
				Where("id = ? AND vagas >= ?", payment.OnibusID, inserted).
				UpdateColumn("vagas", gorm.Expr("vagas - ?", inserted))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNoVagas
			}
		}
		if err := tx.
			Model(&models.Reservation{}).
			Where("onibus_id = ? AND client_id = ?", payment.OnibusID, payment.ClientID).
			Update("confirmed", true).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if alreadySettled {
		log.Printf("Payment %s is already settled, skipping confirmation\n", paymentId)
		return nil
	}
	lib.InvalidateSeatMap(context.Background(), payment.OnibusID)
	go SendReservationConfirmation(&payment)
	go PublishPaymentApproved(&payment)
	return nil
}

// DenyPayment settles a pending payment as denied.
func DenyPayment(paymentId string) error {
	gdb := db.GetDb()
	return gdb.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Where(&models.Payment{ID: paymentId}).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		res := tx.
			Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentId, types.PAYMENT_PENDING).
			Update("status", types.PAYMENT_DENIED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPaymentNotPending
		}
		return nil
	})
}

// SendReservationConfirmation emails the payer that the seats are theirs.
// Failure is reported in the logs and nowhere else.
func SendReservationConfirmation(payment *models.Payment) {
	seats := make([]string, 0, len(payment.Seats))
	for _, seat := range payment.Seats {
		seats = append(seats, fmt.Sprintf("<li>fileira %d, assento %d</li>", seat.Row, seat.Column))
	}
	body := fmt.Sprintf(`<h1>Confirmação de Reserva</h1>
<p>Olá,</p>
<p>Sua reserva para o ônibus %s foi confirmada.</p>
<p>Assentos:</p>
<ul>
%s
</ul>
<p>Obrigado por escolher nosso serviço!</p>`, payment.OnibusID, strings.Join(seats, "\n"))

	input := lib.SendMailInput{
		From:     os.Getenv("MAIL_FROM"),
		FromName: "Flamengo Excursões",
		To:       []string{payment.Email},
		Subject:  "Confirmação de Reserva",
		Body:     body,
		Html:     true,
	}
	if err := mailer.NewMailerMessage(&input); err != nil {
		log.Printf("Error sending confirmation email for payment %s: %s\n", payment.ID, err.Error())
	}
}

// PublishPaymentApproved emits the approved event for downstream consumers.
func PublishPaymentApproved(payment *models.Payment) {
	payload := types.JSONB{
		"payment_id":  payment.ID,
		"external_id": payment.PaymentID,
		"client_id":   payment.ClientID,
		"onibus_id":   payment.OnibusID,
		"amount":      payment.TransactionAmount,
		"seats":       payment.Seats,
	}
	if err := lib.KafkaProduceMessage("payments_approved_producer", "payments-approved", payload); err != nil {
		log.Printf("Error publishing approved event for payment %s: %s\n", payment.ID, err.Error())
	}
}

// GeneratePIXQRCode renders the PIX copy-and-paste code as an image and
// stores it next to the other assets, returning the presigned URL.
func GeneratePIXQRCode(pix *lib.PIXPayment) (*string, error) {
	content := pix.QRCode
	if content == "" {
		content = pix.TicketURL
	}
	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("%s.jpeg", pix.ID)
	filepath := path.Join(os.TempDir(), filename)
	if err := qrc.Save(filepath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		return nil, err
	}
	defer os.Remove(filepath)
	key := path.Join("pix", filename)
	url, err := awslib.S3UploadFile(context.Background(), key, filepath, "image/jpeg")
	if err != nil {
		log.Printf("Error uploading asset to S3 bucket: %s\n", err.Error())
		return nil, err
	}
	return url, nil
}
