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

func clientHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/clients", func(ctx *gin.Context) {
			var body types.ClientRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if body.ID == "" {
				body.ID = uuid.NewString()
			}
			client := models.Client{
				ID:          body.ID,
				Nome:        body.Nome,
				Telefone:    body.Telefone,
				Email:       body.Email,
				Viagens:     body.Viagens,
				Comprovante: body.Comprovante,
				Passagens:   body.Passagens,
				Role:        body.Role,
				Confirmed:   body.Confirmed,
			}
			db := db.GetDb()
			if err := db.Create(&client).Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": client})
		}).
		GET("/clients", func(ctx *gin.Context) {
			db := db.GetDb()
			var clients []models.Client
			if err := db.
				Model(&models.Client{}).
				Limit(100).
				Find(&clients).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": clients, "count": len(clients)})
		}).
		GET("/clients/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var client models.Client
			if err := db.
				Model(&models.Client{}).
				Where(&models.Client{ID: params.ID}).
				Preload("Reservations").
				First(&client).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrClientNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": client})
		}).
		PUT("/clients/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateClientRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			var client models.Client
			if err := db.Where(&models.Client{ID: params.ID}).First(&client).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrClientNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			updates := map[string]any{}
			if body.Nome != nil {
				updates["nome"] = *body.Nome
			}
			if body.Telefone != nil {
				updates["telefone"] = *body.Telefone
			}
			if body.Email != nil {
				updates["email"] = *body.Email
			}
			if body.Viagens != nil {
				updates["viagens"] = *body.Viagens
			}
			if body.Comprovante != nil {
				updates["comprovante"] = *body.Comprovante
			}
			if body.Passagens != nil {
				updates["passagens"] = *body.Passagens
			}
			if body.Role != nil {
				updates["role"] = *body.Role
			}
			if body.Confirmed != nil {
				updates["confirmed"] = *body.Confirmed
			}
			if len(updates) > 0 {
				if err := db.
					Model(&models.Client{}).
					Where("id = ?", params.ID).
					Updates(updates).
					Error; err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				if err := db.Where(&models.Client{ID: params.ID}).First(&client).Error; err != nil {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}
			ctx.JSON(http.StatusOK, gin.H{"data": client})
		}).
		DELETE("/clients/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			db := db.GetDb()
			res := db.Delete(&models.Client{}, "id = ?", params.ID)
			if res.Error != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
				return
			}
			if res.RowsAffected == 0 {
				ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrClientNotFound.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		POST("/upload", func(ctx *gin.Context) {
			clientId := ctx.Query("client_id")
			if clientId == "" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
				return
			}
			db := db.GetDb()
			var client models.Client
			if err := db.Where(&models.Client{ID: clientId}).First(&client).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrClientNotFound.Error()})
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
			key := fmt.Sprintf("comprovantes/%s/%s", clientId, slug.Make(header.Filename))
			url, err := awslib.S3UploadObject(ctx.Request.Context(), key, file, header.Header.Get("Content-Type"))
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if err := db.
				Model(&models.Client{}).
				Where("id = ?", clientId).
				Update("comprovante", url).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"file_url": url})
		})
	return g
}
