package main

import (
	"errors"
	"fmt"
	"net/http"

	"flamengo/src/db"
	awslib "flamengo/src/lib/aws"
	"flamengo/src/models"
	"flamengo/src/types"
	"flamengo/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// uploadOnibusPhoto backs the /upload/home and /upload/visita routes. The
// photo lands in the assets bucket and the presigned URL is written to the
// given column.
func uploadOnibusPhoto(ctx *gin.Context, category string, column string) {
	onibusId := ctx.Query("onibus_id")
	if onibusId == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "onibus_id is required"})
		return
	}
	db := db.GetDb()
	var onibus models.Onibus
	if err := db.Where(&models.Onibus{ID: onibusId}).First(&onibus).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrOnibusNotFound.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()
	key := fmt.Sprintf("onibus/%s-%s/%s/%s", slug.Make(onibus.Evento), onibus.ID, category, slug.Make(header.Filename))
	url, err := awslib.S3UploadObject(ctx.Request.Context(), key, file, header.Header.Get("Content-Type"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := db.
		Model(&models.Onibus{}).
		Where("id = ?", onibusId).
		Update(column, url).
		Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"file_url": url})
}

func onibusHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/onibus", func(ctx *gin.Context) {
			var body types.OnibusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if body.ID == "" {
				body.ID = uuid.NewString()
			}
			onibus := models.Onibus{
				ID:         body.ID,
				Evento:     body.Evento,
				Descricao:  body.Descricao,
				Horario:    body.Horario,
				Vagas:      body.Vagas,
				FotoCasa:   body.FotoCasa,
				FotoVisita: body.FotoVisita,
			}
			db := db.GetDb()
			if err := db.Create(&onibus).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": onibus})
		}).
		GET("/onibus", func(ctx *gin.Context) {
			db := db.GetDb()
			var buses []models.Onibus
			if err := db.
				Model(&models.Onibus{}).
				Limit(100).
				Find(&buses).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": buses, "count": len(buses)})
		}).
		GET("/onibus/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var onibus models.Onibus
			if err := db.
				Model(&models.Onibus{}).
				Where(&models.Onibus{ID: params.ID}).
				First(&onibus).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrOnibusNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": onibus})
		}).
		GET("/onibus/:id/seats", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var onibus models.Onibus
			if err := db.Where(&models.Onibus{ID: params.ID}).First(&onibus).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrOnibusNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			seats, err := utils.ListReservedSeats(ctx.Request.Context(), params.ID)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": seats, "count": len(seats), "vagas": onibus.Vagas})
		}).
		PUT("/onibus/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateOnibusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var onibus models.Onibus
			if err := db.Where(&models.Onibus{ID: params.ID}).First(&onibus).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrOnibusNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Evento != nil {
				updates["evento"] = *body.Evento
			}
			if body.Descricao != nil {
				updates["descricao"] = *body.Descricao
			}
			if body.Horario != nil {
				updates["horario"] = *body.Horario
			}
			if body.Vagas != nil {
				updates["vagas"] = *body.Vagas
			}
			if body.FotoCasa != nil {
				updates["foto_casa"] = *body.FotoCasa
			}
			if body.FotoVisita != nil {
				updates["foto_visita"] = *body.FotoVisita
			}
			if len(updates) > 0 {
				if err := db.
					Model(&models.Onibus{}).
					Where("id = ?", params.ID).
					Updates(updates).
					Error; err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				if err := db.Where(&models.Onibus{ID: params.ID}).First(&onibus).Error; err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"data": onibus})
		}).
		DELETE("/onibus/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			res := db.Delete(&models.Onibus{}, "id = ?", params.ID)
			if res.Error != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrOnibusNotFound.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/upload/home", func(ctx *gin.Context) {
			uploadOnibusPhoto(ctx, "home", "foto_casa")
		}).
		POST("/upload/visita", func(ctx *gin.Context) {
			uploadOnibusPhoto(ctx, "visita", "foto_visita")
		})
	return g
}
