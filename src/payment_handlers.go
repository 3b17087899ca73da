package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"flamengo/src/config"
	"flamengo/src/db"
	"flamengo/src/lib"
	"flamengo/src/models"
	"flamengo/src/monitor"
	"flamengo/src/types"
	"flamengo/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// findPaymentByExternalID resolves the processor's payment id to the local
// row. Every public payment route keys on the external id.
func findPaymentByExternalID(externalId string) (*models.Payment, error) {
	db := db.GetDb()
	var payment models.Payment
	if err := db.
		Model(&models.Payment{}).
		Where(&models.Payment{PaymentID: externalId}).
		First(&payment).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func toAPIPayment(p *models.Payment) types.APIResponsePayment {
	ts := p.Timestamp
	return types.APIResponsePayment{
		ID:                p.ID,
		ClientID:          p.ClientID,
		OnibusID:          p.OnibusID,
		PaymentID:         p.PaymentID,
		Status:            p.Status,
		TransactionAmount: p.TransactionAmount,
		Email:             p.Email,
		Approved:          p.Approved,
		Seats:             p.Seats,
		Timestamp:         &ts,
	}
}

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/create_payment", func(ctx *gin.Context) {
			var body types.CreatePaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			mp := lib.GetMercadoPagoClient()
			pix, err := mp.CreatePIXPayment(ctx.Request.Context(), body.TransactionAmount, body.Email)
			if err != nil {
				var gwerr *lib.GatewayError
				if errors.As(err, &gwerr) && gwerr.StatusCode >= http.StatusBadRequest && gwerr.StatusCode < http.StatusInternalServerError {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": gwerr.Message})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			response := gin.H{
				"message":    "PIX payment created",
				"payment_id": pix.ID,
				"pix_link":   pix.TicketURL,
			}
			qrUrl, err := utils.GeneratePIXQRCode(pix)
			if err != nil {
				log.Printf("Error generating QR code for payment %s: %s\n", pix.ID, err.Error())
			} else {
				response["qr_code_url"] = qrUrl
			}
			ctx.JSON(http.StatusCreated, response)
		}).
		POST("/create_db_payment", func(ctx *gin.Context) {
			var body types.CreateDBPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			payment := models.Payment{
				ID:                uuid.NewString(),
				ClientID:          body.ClientID,
				OnibusID:          body.OnibusID,
				PaymentID:         body.PaymentID,
				Status:            types.PAYMENT_PENDING,
				TransactionAmount: body.TransactionAmount,
				Email:             body.Email,
				Seats:             body.Seats,
			}
			err := db.Transaction(func(tx *gorm.DB) error {
				var client models.Client
				if err := tx.Where(&models.Client{ID: body.ClientID}).First(&client).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return utils.ErrClientNotFound
					}
					return err
				}
				var onibus models.Onibus
				if err := tx.Where(&models.Onibus{ID: body.OnibusID}).First(&onibus).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return utils.ErrOnibusNotFound
					}
					return err
				}
				return tx.Create(&payment).Error
			})
			if err != nil {
				if errors.Is(err, utils.ErrClientNotFound) || errors.Is(err, utils.ErrOnibusNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					ctx.JSON(http.StatusConflict, gin.H{"error": "payment already registered"})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": toAPIPayment(&payment)})
		}).
		GET("/payments/status/:payment_id", func(ctx *gin.Context) {
			externalId := ctx.Params.ByName("payment_id")
			payment, err := findPaymentByExternalID(externalId)
			if err != nil {
				if errors.Is(err, utils.ErrPaymentNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			mp := lib.GetMercadoPagoClient()
			status, err := mp.FetchPaymentStatus(ctx.Request.Context(), externalId)
			if err != nil {
				ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			switch status {
			case types.PAYMENT_APPROVED:
				if err := utils.ConfirmPayment(payment.ID); err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"message": "Payment confirmed and processed"})
			case types.PAYMENT_PENDING:
				monitor.Get().Start(payment.ID, payment.PaymentID)
				ctx.JSON(http.StatusOK, gin.H{"message": "Payment is pending confirmation. Monitoring initiated."})
			default:
				ctx.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Payment status: %s", status)})
			}
		}).
		GET("/payments/recent", func(ctx *gin.Context) {
			db := db.GetDb()
			cutoff := time.Now().Add(-30 * time.Minute)
			var payments []models.Payment
			if err := db.
				Model(&models.Payment{}).
				Where("timestamp >= ?", cutoff).
				Order("timestamp desc").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			data := make([]types.APIResponsePayment, 0, len(payments))
			for i := range payments {
				data = append(data, toAPIPayment(&payments[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/get_payment_by_client/:client_id", func(ctx *gin.Context) {
			clientId := ctx.Params.ByName("client_id")
			db := db.GetDb()
			var payments []models.Payment
			if err := db.
				Model(&models.Payment{}).
				Where(&models.Payment{ClientID: clientId}).
				Order("timestamp desc").
				Find(&payments).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if len(payments) == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "no payments found for client"})
				return
			}
			data := make([]types.APIResponsePayment, 0, len(payments))
			for i := range payments {
				data = append(data, toAPIPayment(&payments[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		PUT("/edit_payment/:payment_id", func(ctx *gin.Context) {
			externalId := ctx.Params.ByName("payment_id")
			var body types.EditPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment, err := findPaymentByExternalID(externalId)
			if err != nil {
				if errors.Is(err, utils.ErrPaymentNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Status != nil && *body.Status != payment.Status {
				if !payment.Status.CanTransition(*body.Status) {
					ctx.JSON(http.StatusBadRequest, gin.H{
						"error": fmt.Sprintf("illegal status transition %s -> %s", payment.Status, *body.Status),
					})
					return
				}
				updates["status"] = *body.Status
				updates["approved"] = *body.Status == types.PAYMENT_APPROVED
			}
			if body.Amount != nil {
				updates["transaction_amount"] = *body.Amount
			}
			if len(updates) > 0 {
				db := db.GetDb()
				if err := db.
					Model(&models.Payment{}).
					Where(&models.Payment{ID: payment.ID}).
					Updates(updates).
					Error; err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}
			updated, err := findPaymentByExternalID(externalId)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": toAPIPayment(updated)})
		})
	return g
}

func paymentAdminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/approve_payment/:payment_id", func(ctx *gin.Context) {
			externalId := ctx.Params.ByName("payment_id")
			payment, err := findPaymentByExternalID(externalId)
			if err != nil {
				if errors.Is(err, utils.ErrPaymentNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if payment.Status != types.PAYMENT_PENDING {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrPaymentNotPending.Error()})
				return
			}
			if err := utils.ConfirmPayment(payment.ID); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			monitor.Get().Cancel(payment.ID)
			ctx.JSON(http.StatusOK, gin.H{"message": "Payment approved"})
		}).
		POST("/deny_payment/:payment_id", func(ctx *gin.Context) {
			externalId := ctx.Params.ByName("payment_id")
			payment, err := findPaymentByExternalID(externalId)
			if err != nil {
				if errors.Is(err, utils.ErrPaymentNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if err := utils.DenyPayment(payment.ID); err != nil {
				if errors.Is(err, utils.ErrPaymentNotPending) {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			monitor.Get().Cancel(payment.ID)
			ctx.JSON(http.StatusOK, gin.H{"message": "Payment denied"})
		}).
		DELETE("/delete_payment/:payment_id", func(ctx *gin.Context) {
			externalId := ctx.Params.ByName("payment_id")
			payment, err := findPaymentByExternalID(externalId)
			if err != nil {
				if errors.Is(err, utils.ErrPaymentNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			if err := db.Delete(&models.Payment{}, "id = ?", payment.ID).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			monitor.Get().Cancel(payment.ID)
			ctx.Status(http.StatusNoContent)
		})
	return g
}

func notificationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/notification", func(ctx *gin.Context) {
			var body types.NotificationRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if body.Action != "payment.updated" {
				ctx.JSON(http.StatusOK, gin.H{"message": "Notification ignored"})
				return
			}
			// MercadoPago sends data.id as a string today but has shipped it
			// as a number before.
			raw, ok := body.Data["id"]
			if !ok {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "notification carries no data.id"})
				return
			}
			id := fmt.Sprint(raw)
			if id == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "notification carries no data.id"})
				return
			}
			switch config.WebhookLookupKey() {
			case "payment":
				payment, err := findPaymentByExternalID(id)
				if err != nil {
					if errors.Is(err, utils.ErrPaymentNotFound) {
						ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
						return
					}
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				if err := utils.ConfirmPayment(payment.ID); err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				monitor.Get().Cancel(payment.ID)
			default:
				db := db.GetDb()
				var reservation models.Reservation
				if err := db.
					Model(&models.Reservation{}).
					Where(&models.Reservation{ID: id}).
					First(&reservation).
					Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrReservationNotFound.Error()})
						return
					}
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				if err := db.
					Model(&models.Reservation{}).
					Where(&models.Reservation{ID: reservation.ID}).
					Update("confirmed", true).
					Error; err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"message": "Notification processed"})
		}).
		POST("/send-confirmation-email", func(ctx *gin.Context) {
			var body types.ReservationDetails
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			payment := models.Payment{
				ClientID: body.ClientID,
				OnibusID: body.OnibusID,
				Email:    body.Email,
				Seats:    body.Seats,
			}
			go utils.SendReservationConfirmation(&payment)
			ctx.JSON(http.StatusOK, gin.H{"message": "Confirmation email queued"})
		})
	return g
}
