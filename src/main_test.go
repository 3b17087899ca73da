package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"flamengo/src/db"
	"flamengo/src/lib"
	"flamengo/src/middlewares"
	"flamengo/src/models"
	"flamengo/src/monitor"
	"flamengo/src/types"
	"flamengo/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "secret"

var testJwtKey = []byte(testSecret)

type TestSuite struct {
	suite.Suite
	DB     *gorm.DB
	Router *gin.Engine

	mp       *httptest.Server
	mpStatus map[string]string
}

var dbi *gorm.DB

func authTestMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	reqToken := strings.Split(bearerToken, " ")[1]
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return testJwtKey, nil
	})
	if err != nil || !tkn.Valid {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	ctx.Set("id", claims.Subject)
	ctx.Set("role", claims.Role)
}

func generateJWT(sub string, role string) string {
	claims := types.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(testJwtKey)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	return signed
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	os.Setenv("API_ENV", string(types.Test))

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("paymentstatus", paymentStatusValidatorFunc)
	}

	d, err := gorm.Open(sqlite.Open("file:maintest?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database: %s", err.Error())
	}
	db.NewDB(d)
	s.DB = d
	dbi = d

	if err := dbi.AutoMigrate(
		&models.Client{},
		&models.Onibus{},
		&models.Reservation{},
		&models.Payment{},
	); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	s.mpStatus = map[string]string{}
	s.mp = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/payments" {
			body, _ := json.Marshal(map[string]any{
				"id":     777001,
				"status": "pending",
				"point_of_interaction": map[string]any{
					"transaction_data": map[string]any{
						"ticket_url": "https://www.mercadopago.com.br/payments/777001/ticket",
						"qr_code":    "00020126580014br.gov.bcb.pix",
					},
				},
			})
			w.WriteHeader(http.StatusCreated)
			w.Write(body)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
		if status, ok := s.mpStatus[id]; ok {
			body, _ := json.Marshal(map[string]any{"id": id, "status": status})
			w.Write(body)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"payment not found"}`))
	}))
	lib.NewMercadoPagoClientWithBaseURL(s.mp.URL)

	monitor.Init(monitor.NewRegistry(
		20*time.Millisecond,
		5,
		func(ctx context.Context, externalId string) (types.PaymentStatus, error) {
			return lib.GetMercadoPagoClient().FetchPaymentStatus(ctx, externalId)
		},
		utils.ConfirmPayment,
	))

	router := setupRouter()
	publicRoutes(router)
	admin := router.Group("/")
	admin.Use(authTestMiddleware)
	admin.Use(middlewares.AdminMiddleware)
	paymentAdminHandlers(admin)
	s.Router = router
}

func (s *TestSuite) TearDownSuite() {
	s.mp.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	monitor.Get().Shutdown(ctx)
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) request(method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		assert.Nil(s.T(), err)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, target, reader)
	assert.Nil(s.T(), err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *TestSuite) createClient() *models.Client {
	client := models.Client{
		ID:    uuid.NewString(),
		Nome:  "Test Client",
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()),
	}
	assert.Nil(s.T(), dbi.Create(&client).Error)
	return &client
}

func (s *TestSuite) createOnibus(vagas int) *models.Onibus {
	onibus := models.Onibus{
		ID:     uuid.NewString(),
		Evento: "Flamengo x Vasco",
		Vagas:  vagas,
	}
	assert.Nil(s.T(), dbi.Create(&onibus).Error)
	return &onibus
}

func (s *TestSuite) createPayment(client *models.Client, onibus *models.Onibus, externalId string, seats types.SeatList) *models.Payment {
	payment := models.Payment{
		ID:                uuid.NewString(),
		ClientID:          client.ID,
		OnibusID:          onibus.ID,
		PaymentID:         externalId,
		Status:            types.PAYMENT_PENDING,
		TransactionAmount: 150,
		Email:             client.Email,
		Seats:             seats,
	}
	assert.Nil(s.T(), dbi.Create(&payment).Error)
	return &payment
}

func (s *TestSuite) reloadVagas(onibusId string) int {
	var onibus models.Onibus
	assert.Nil(s.T(), dbi.Where(&models.Onibus{ID: onibusId}).First(&onibus).Error)
	return onibus.Vagas
}

func (s *TestSuite) TestPingRoute() {
	w := s.request("GET", "/", nil, nil)
	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	publicRoutes(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/clients", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestClients() {
	var clientId string
	s.Run("Should create a Client with 201 status", func() {
		w := s.request("POST", "/clients", types.ClientRequestBody{
			Nome:  "Gabriel Barbosa",
			Email: "gabigol@example.com",
		}, nil)
		assert.Equal(s.T(), 201, w.Code)
		clientId = gjson.Get(w.Body.String(), "data.id").String()
		assert.NotEmpty(s.T(), clientId)
	})

	s.Run("Should reject a Client without email", func() {
		w := s.request("POST", "/clients", map[string]any{"nome": "no email"}, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return the Client", func() {
		w := s.request("GET", fmt.Sprintf("/clients/%s", clientId), nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "Gabriel Barbosa", gjson.Get(w.Body.String(), "data.nome").String())
	})

	s.Run("Should update the Client", func() {
		w := s.request("PUT", fmt.Sprintf("/clients/%s", clientId), map[string]any{
			"telefone": "+55 21 99999-0000",
		}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "+55 21 99999-0000", gjson.Get(w.Body.String(), "data.telefone").String())
	})

	s.Run("Should keep the Client on an empty update body", func() {
		w := s.request("PUT", fmt.Sprintf("/clients/%s", clientId), map[string]any{}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "+55 21 99999-0000", gjson.Get(w.Body.String(), "data.telefone").String())

		w = s.request("PUT", fmt.Sprintf("/clients/%s", uuid.NewString()), map[string]any{}, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should return 404 for a missing Client", func() {
		w := s.request("GET", fmt.Sprintf("/clients/%s", uuid.NewString()), nil, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should delete the Client", func() {
		w := s.request("DELETE", fmt.Sprintf("/clients/%s", clientId), nil, nil)
		assert.Equal(s.T(), 204, w.Code)

		w = s.request("GET", fmt.Sprintf("/clients/%s", clientId), nil, nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestOnibus() {
	var onibusId string
	s.Run("Should create an Onibus with 201 status", func() {
		w := s.request("POST", "/onibus", types.OnibusRequestBody{
			Evento:  "Flamengo x Botafogo",
			Horario: "2026-09-12 16:00:00",
			Vagas:   42,
		}, nil)
		assert.Equal(s.T(), 201, w.Code)
		onibusId = gjson.Get(w.Body.String(), "data.id").String()
		assert.NotEmpty(s.T(), onibusId)
	})

	s.Run("Should return list of Onibus with 200 status", func() {
		w := s.request("GET", "/onibus", nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Greater(s.T(), gjson.Get(w.Body.String(), "count").Int(), int64(0))
	})

	s.Run("Should update the Onibus", func() {
		w := s.request("PUT", fmt.Sprintf("/onibus/%s", onibusId), map[string]any{
			"descricao": "Saída do Maracanã",
		}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "Saída do Maracanã", gjson.Get(w.Body.String(), "data.descricao").String())
	})

	s.Run("Should keep the Onibus on an empty update body", func() {
		w := s.request("PUT", fmt.Sprintf("/onibus/%s", onibusId), map[string]any{}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "Saída do Maracanã", gjson.Get(w.Body.String(), "data.descricao").String())

		w = s.request("PUT", fmt.Sprintf("/onibus/%s", uuid.NewString()), map[string]any{}, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should return the seat map", func() {
		w := s.request("GET", fmt.Sprintf("/onibus/%s/seats", onibusId), nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.EqualValues(s.T(), 42, gjson.Get(w.Body.String(), "vagas").Int())
	})

	s.Run("Should delete the Onibus", func() {
		w := s.request("DELETE", fmt.Sprintf("/onibus/%s", onibusId), nil, nil)
		assert.Equal(s.T(), 204, w.Code)

		w = s.request("GET", fmt.Sprintf("/onibus/%s", onibusId), nil, nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestReservations() {
	client := s.createClient()
	onibus := s.createOnibus(10)

	var reservationIds []string
	s.Run("Should reserve two seats and move capacity", func() {
		w := s.request("POST", fmt.Sprintf("/reserve/%s", onibus.ID), types.ReserveRequestBody{
			ClientID: client.ID,
			Seats:    []types.Seat{{Row: 1, Column: 1}, {Row: 1, Column: 2}},
		}, nil)
		assert.Equal(s.T(), 201, w.Code)
		for _, id := range gjson.Get(w.Body.String(), "reservation_ids").Array() {
			reservationIds = append(reservationIds, id.String())
		}
		assert.Len(s.T(), reservationIds, 2)
		assert.Equal(s.T(), 8, s.reloadVagas(onibus.ID))
	})

	s.Run("Should reject a taken seat with 409", func() {
		w := s.request("POST", fmt.Sprintf("/reserve/%s", onibus.ID), types.ReserveRequestBody{
			ClientID: client.ID,
			Seats:    []types.Seat{{Row: 1, Column: 1}},
		}, nil)
		assert.Equal(s.T(), 409, w.Code)
		assert.Equal(s.T(), 8, s.reloadVagas(onibus.ID))
	})

	s.Run("Should return 404 for a missing Onibus", func() {
		w := s.request("POST", fmt.Sprintf("/reserve/%s", uuid.NewString()), types.ReserveRequestBody{
			ClientID: client.ID,
			Seats:    []types.Seat{{Row: 1, Column: 3}},
		}, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should reject an empty seat list", func() {
		w := s.request("POST", fmt.Sprintf("/reserve/%s", onibus.ID), map[string]any{
			"client_id": client.ID,
			"seats":     []any{},
		}, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return the reservation", func() {
		w := s.request("GET", fmt.Sprintf("/reserve/%s", reservationIds[0]), nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), client.ID, gjson.Get(w.Body.String(), "data.client_id").String())
	})

	s.Run("Should move the reservation to a free seat", func() {
		w := s.request("PUT", fmt.Sprintf("/reserve/%s", reservationIds[1]), types.ReserveRequestBody{
			ClientID: client.ID,
			Seats:    []types.Seat{{Row: 4, Column: 4}},
		}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.EqualValues(s.T(), 4, gjson.Get(w.Body.String(), "data.seat_row").Int())
	})

	s.Run("Should release a seat on delete", func() {
		w := s.request("DELETE", fmt.Sprintf("/reserve/%s", reservationIds[0]), nil, nil)
		assert.Equal(s.T(), 204, w.Code)
		assert.Equal(s.T(), 9, s.reloadVagas(onibus.ID))
	})

	s.Run("Should report the reservation status by email", func() {
		w := s.request("GET", fmt.Sprintf("/reservation_status?onibus_id=%s&email=%s", onibus.ID, client.Email), nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "confirmed").Bool())
	})

	s.Run("Should return 404 for an unknown email", func() {
		w := s.request("GET", fmt.Sprintf("/reservation_status?onibus_id=%s&email=nobody@example.com", onibus.ID), nil, nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestCreatePayment() {
	s.Run("Should create a PIX payment with 201 status", func() {
		w := s.request("POST", "/create_payment", types.CreatePaymentRequestBody{
			TransactionAmount: 150,
			Email:             "someone@example.com",
		}, nil)
		assert.Equal(s.T(), 201, w.Code)
		body := w.Body.String()
		assert.Equal(s.T(), "777001", gjson.Get(body, "payment_id").String())
		assert.NotEmpty(s.T(), gjson.Get(body, "pix_link").String())
	})

	s.Run("Should reject a zero amount", func() {
		w := s.request("POST", "/create_payment", map[string]any{
			"transaction_amount": 0,
			"email":              "someone@example.com",
		}, nil)
		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestCreateDBPayment() {
	client := s.createClient()
	onibus := s.createOnibus(10)

	s.Run("Should register the payment with 201 status", func() {
		w := s.request("POST", "/create_db_payment", types.CreateDBPaymentRequestBody{
			TransactionAmount: 150,
			Email:             client.Email,
			ClientID:          client.ID,
			OnibusID:          onibus.ID,
			PaymentID:         "700100",
			Seats:             []types.Seat{{Row: 2, Column: 1}},
		}, nil)
		assert.Equal(s.T(), 201, w.Code)
		assert.Equal(s.T(), "pending", gjson.Get(w.Body.String(), "data.status").String())
	})

	s.Run("Should return 404 for an unknown Client", func() {
		w := s.request("POST", "/create_db_payment", types.CreateDBPaymentRequestBody{
			TransactionAmount: 150,
			Email:             client.Email,
			ClientID:          uuid.NewString(),
			OnibusID:          onibus.ID,
			PaymentID:         "700101",
			Seats:             []types.Seat{{Row: 2, Column: 2}},
		}, nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestPaymentStatus() {
	client := s.createClient()
	onibus := s.createOnibus(10)
	payment := s.createPayment(client, onibus, "700200", types.SeatList{
		{Row: 7, Column: 1},
		{Row: 7, Column: 2},
	})

	s.Run("Should return 404 for an unknown payment", func() {
		w := s.request("GET", "/payments/status/000000", nil, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should confirm an approved payment", func() {
		s.mpStatus["700200"] = "approved"
		w := s.request("GET", "/payments/status/700200", nil, nil)
		assert.Equal(s.T(), 200, w.Code)

		var updated models.Payment
		assert.Nil(s.T(), dbi.Where(&models.Payment{ID: payment.ID}).First(&updated).Error)
		assert.Equal(s.T(), types.PAYMENT_APPROVED, updated.Status)
		assert.Equal(s.T(), 8, s.reloadVagas(onibus.ID))
	})

	s.Run("Should not duplicate reservations on a second check", func() {
		w := s.request("GET", "/payments/status/700200", nil, nil)
		assert.Equal(s.T(), 200, w.Code)

		var count int64
		assert.Nil(s.T(), dbi.
			Model(&models.Reservation{}).
			Where("onibus_id = ?", onibus.ID).
			Count(&count).Error)
		assert.EqualValues(s.T(), 2, count)
		assert.Equal(s.T(), 8, s.reloadVagas(onibus.ID))
	})

	s.Run("Should start a monitor for a pending payment", func() {
		pending := s.createPayment(client, onibus, "700201", types.SeatList{{Row: 9, Column: 1}})
		s.mpStatus["700201"] = "pending"
		w := s.request("GET", "/payments/status/700201", nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Contains(s.T(), gjson.Get(w.Body.String(), "message").String(), "Monitoring")
		assert.True(s.T(), monitor.Get().Cancel(pending.ID))
	})
}

func (s *TestSuite) TestAdminPaymentRoutes() {
	client := s.createClient()
	onibus := s.createOnibus(10)
	adminToken := generateJWT(client.ID, "admin")
	adminHeaders := map[string]string{"Authorization": fmt.Sprintf("Bearer %s", adminToken)}

	s.createPayment(client, onibus, "700300", types.SeatList{{Row: 6, Column: 1}})
	s.createPayment(client, onibus, "700301", types.SeatList{{Row: 6, Column: 2}})

	s.Run("Should require a token", func() {
		w := s.request("POST", "/approve_payment/700300", nil, nil)
		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should forbid non-admin users", func() {
		token := generateJWT(client.ID, "client")
		w := s.request("POST", "/approve_payment/700300", nil, map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", token),
		})
		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Should approve a pending payment once", func() {
		w := s.request("POST", "/approve_payment/700300", nil, adminHeaders)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), 9, s.reloadVagas(onibus.ID))

		w = s.request("POST", "/approve_payment/700300", nil, adminHeaders)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should deny a pending payment once", func() {
		w := s.request("POST", "/deny_payment/700301", nil, adminHeaders)
		assert.Equal(s.T(), 200, w.Code)

		w = s.request("POST", "/deny_payment/700301", nil, adminHeaders)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should return 404 for an unknown payment", func() {
		w := s.request("POST", "/approve_payment/000000", nil, adminHeaders)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestNotificationWebhook() {
	client := s.createClient()
	onibus := s.createOnibus(10)

	s.Run("Should ignore other actions", func() {
		w := s.request("POST", "/notification", types.NotificationRequestBody{
			Action: "payment.created",
			Data:   map[string]any{"id": "whatever"},
		}, nil)
		assert.Equal(s.T(), 200, w.Code)
	})

	s.Run("Should return 404 for an unknown reservation", func() {
		w := s.request("POST", "/notification", types.NotificationRequestBody{
			Action: "payment.updated",
			Data:   map[string]any{"id": uuid.NewString()},
		}, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should confirm the reservation it points at", func() {
		ids, err := utils.CreateReservation(onibus.ID, client.ID, []types.Seat{{Row: 5, Column: 5}})
		assert.Nil(s.T(), err)

		w := s.request("POST", "/notification", types.NotificationRequestBody{
			Action: "payment.updated",
			Data:   map[string]any{"id": ids[0]},
		}, nil)
		assert.Equal(s.T(), 200, w.Code)

		var reservation models.Reservation
		assert.Nil(s.T(), dbi.Where(&models.Reservation{ID: ids[0]}).First(&reservation).Error)
		assert.True(s.T(), reservation.Confirmed)
	})

	s.Run("Should confirm payments when configured to", func() {
		os.Setenv("WEBHOOK_LOOKUP_KEY", "payment")
		defer os.Unsetenv("WEBHOOK_LOOKUP_KEY")

		payment := s.createPayment(client, onibus, "700400", types.SeatList{{Row: 5, Column: 6}})
		w := s.request("POST", "/notification", types.NotificationRequestBody{
			Action: "payment.updated",
			Data:   map[string]any{"id": "700400"},
		}, nil)
		assert.Equal(s.T(), 200, w.Code)

		var updated models.Payment
		assert.Nil(s.T(), dbi.Where(&models.Payment{ID: payment.ID}).First(&updated).Error)
		assert.Equal(s.T(), types.PAYMENT_APPROVED, updated.Status)

		w = s.request("POST", "/notification", types.NotificationRequestBody{
			Action: "payment.updated",
			Data:   map[string]any{"id": "000000"},
		}, nil)
		assert.Equal(s.T(), 404, w.Code)
	})

	s.Run("Should accept a numeric data.id", func() {
		os.Setenv("WEBHOOK_LOOKUP_KEY", "payment")
		defer os.Unsetenv("WEBHOOK_LOOKUP_KEY")

		payment := s.createPayment(client, onibus, "700401", types.SeatList{{Row: 5, Column: 7}})
		w := s.request("POST", "/notification", types.NotificationRequestBody{
			Action: "payment.updated",
			Data:   map[string]any{"id": 700401},
		}, nil)
		assert.Equal(s.T(), 200, w.Code)

		var updated models.Payment
		assert.Nil(s.T(), dbi.Where(&models.Payment{ID: payment.ID}).First(&updated).Error)
		assert.Equal(s.T(), types.PAYMENT_APPROVED, updated.Status)
	})
}

func (s *TestSuite) TestEditAndDeletePayment() {
	client := s.createClient()
	onibus := s.createOnibus(10)
	s.createPayment(client, onibus, "700500", types.SeatList{{Row: 3, Column: 3}})
	adminHeaders := map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", generateJWT(client.ID, "admin")),
	}

	s.Run("Should update the amount", func() {
		w := s.request("PUT", "/edit_payment/700500", map[string]any{"amount": 200}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.EqualValues(s.T(), 200, gjson.Get(w.Body.String(), "data.transaction_amount").Int())
	})

	s.Run("Should reject an unknown status value", func() {
		w := s.request("PUT", "/edit_payment/700500", map[string]any{"status": "refunded"}, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should apply a legal transition and refuse to leave it", func() {
		w := s.request("PUT", "/edit_payment/700500", map[string]any{"status": "approved"}, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Equal(s.T(), "approved", gjson.Get(w.Body.String(), "data.status").String())

		w = s.request("PUT", "/edit_payment/700500", map[string]any{"status": "pending"}, nil)
		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should require admin to delete the payment", func() {
		w := s.request("DELETE", "/delete_payment/700500", nil, nil)
		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should delete the payment", func() {
		w := s.request("DELETE", "/delete_payment/700500", nil, adminHeaders)
		assert.Equal(s.T(), 204, w.Code)

		w = s.request("DELETE", "/delete_payment/700500", nil, adminHeaders)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestPaymentQueries() {
	client := s.createClient()
	onibus := s.createOnibus(10)
	s.createPayment(client, onibus, "700600", types.SeatList{{Row: 4, Column: 1}})

	s.Run("Should list recent payments", func() {
		w := s.request("GET", "/payments/recent", nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.Greater(s.T(), gjson.Get(w.Body.String(), "count").Int(), int64(0))
	})

	s.Run("Should list payments by client", func() {
		w := s.request("GET", fmt.Sprintf("/get_payment_by_client/%s", client.ID), nil, nil)
		assert.Equal(s.T(), 200, w.Code)
		assert.EqualValues(s.T(), 1, gjson.Get(w.Body.String(), "count").Int())
	})

	s.Run("Should return 404 for a client without payments", func() {
		w := s.request("GET", fmt.Sprintf("/get_payment_by_client/%s", uuid.NewString()), nil, nil)
		assert.Equal(s.T(), 404, w.Code)
	})
}

func (s *TestSuite) TestAuthToken() {
	os.Setenv("ADMIN_API_SECRET", testSecret)
	defer os.Unsetenv("ADMIN_API_SECRET")

	admin := models.Client{
		ID:    uuid.NewString(),
		Nome:  "Operator",
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()),
		Role:  "admin",
	}
	assert.Nil(s.T(), dbi.Create(&admin).Error)

	s.Run("Should reject a missing shared secret", func() {
		w := s.request("POST", "/auth/token", map[string]any{"email": admin.Email}, nil)
		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should mint a token for an admin", func() {
		w := s.request("POST", "/auth/token", map[string]any{"email": admin.Email}, map[string]string{
			"x-secret": testSecret,
		})
		assert.Equal(s.T(), 200, w.Code)
		assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "token").String())
	})

	s.Run("Should refuse non-admin clients", func() {
		client := s.createClient()
		w := s.request("POST", "/auth/token", map[string]any{"email": client.Email}, map[string]string{
			"x-secret": testSecret,
		})
		assert.Equal(s.T(), 403, w.Code)
	})
}

func (s *TestSuite) TestSendConfirmationEmail() {
	client := s.createClient()
	onibus := s.createOnibus(10)

	w := s.request("POST", "/send-confirmation-email", types.ReservationDetails{
		ClientID: client.ID,
		OnibusID: onibus.ID,
		Seats:    []types.Seat{{Row: 1, Column: 1}},
		Email:    client.Email,
	}, nil)
	assert.Equal(s.T(), 200, w.Code)
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
