package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"flamengo/src/db"
	"flamengo/src/models"
	"flamengo/src/types"
	"flamengo/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// authHandlers mints the tokens the settle endpoints require. The route is
// gated by a shared secret so only the operator's tooling can request one.
func authHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/auth/token", func(ctx *gin.Context) {
			secret := os.Getenv("ADMIN_API_SECRET")
			if secret == "" || ctx.GetHeader("x-secret") != secret {
				ctx.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			var body struct {
				Email string `json:"email" binding:"required,email"`
			}
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			gdb := db.GetDb()
			var client models.Client
			if err := gdb.
				Model(&models.Client{}).
				Where(&models.Client{Email: body.Email}).
				First(&client).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusNotFound, gin.H{"error": utils.ErrClientNotFound.Error()})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if client.Role != "admin" {
				ctx.AbortWithStatus(http.StatusForbidden)
				return
			}
			claims := types.AdminClaims{
				Username: client.Nome,
				Role:     client.Role,
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   client.ID,
					IssuedAt:  jwt.NewNumericDate(time.Now()),
					ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
				},
			}
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"token": signed})
		})
	return g
}
