package main

import (
	"errors"
	"net/http"

	"flamengo/src/config"
	"flamengo/src/db"
	"flamengo/src/models"
	"flamengo/src/types"
	"flamengo/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func reservationStatusCode(err error) int {
	switch {
	case errors.Is(err, utils.ErrOnibusNotFound),
		errors.Is(err, utils.ErrClientNotFound),
		errors.Is(err, utils.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrSeatTaken), errors.Is(err, utils.ErrNoVagas):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func toAPIReservation(r *models.Reservation) types.APIResponseReservation {
	return types.APIResponseReservation{
		ID:         r.ID,
		ClientID:   r.ClientID,
		OnibusID:   r.OnibusID,
		SeatRow:    r.SeatRow,
		SeatColumn: r.SeatColumn,
		Confirmed:  r.Confirmed,
		Timestamp:  r.Timestamp.Format(config.TIME_PARSE_FORMAT),
	}
}

func reservationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/reserve/:onibus_id", func(ctx *gin.Context) {
			onibusId := ctx.Params.ByName("onibus_id")
			var body types.ReserveRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ids, err := utils.CreateReservation(onibusId, body.ClientID, body.Seats)
			if err != nil {
				ctx.JSON(reservationStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{
				"message":         "Reserva criada com sucesso",
				"reservation_ids": ids,
			})
		}).
		GET("/reserve", func(ctx *gin.Context) {
			db := db.GetDb()
			var reservations []models.Reservation
			if err := db.
				Model(&models.Reservation{}).
				Order("timestamp desc").
				Limit(100).
				Find(&reservations).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			data := make([]types.APIResponseReservation, 0, len(reservations))
			for i := range reservations {
				data = append(data, toAPIReservation(&reservations[i]))
			}
			ctx.JSON(http.StatusOK, gin.H{"data": data, "count": len(data)})
		}).
		GET("/reserve/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var reservation models.Reservation
			if err := db.
				Model(&models.Reservation{}).
				Where(&models.Reservation{ID: params.ID}).
				First(&reservation).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrReservationNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": toAPIReservation(&reservation)})
		}).
		PUT("/reserve/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ReserveRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			reservation, err := utils.UpdateReservation(params.ID, body.ClientID, body.Seats[0])
			if err != nil {
				ctx.JSON(reservationStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": toAPIReservation(reservation)})
		}).
		DELETE("/reserve/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := utils.DeleteReservation(params.ID); err != nil {
				ctx.JSON(reservationStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/reservation_status", func(ctx *gin.Context) {
			var query types.ReservationStatusQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var client models.Client
			if err := db.
				Model(&models.Client{}).
				Where(&models.Client{Email: query.Email}).
				First(&client).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrClientNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			var reservation models.Reservation
			if err := db.
				Model(&models.Reservation{}).
				Where(&models.Reservation{OnibusID: query.OnibusID, ClientID: client.ID}).
				Order("timestamp desc").
				First(&reservation).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrReservationNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"confirmed": reservation.Confirmed})
		})
	return g
}
