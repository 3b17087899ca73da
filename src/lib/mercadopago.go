package lib

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"flamengo/src/types"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// GatewayError is returned for any MercadoPago call that fails, whether at
// the transport level or because the processor rejected the request.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("mercadopago: %s (status %d)", e.Message, e.StatusCode)
}

// PIXPayment is the subset of the processor response the workflows need.
type PIXPayment struct {
	ID        string
	Status    types.PaymentStatus
	TicketURL string
	QRCode    string
}

type MercadoPagoClient struct {
	BaseURL     string
	AccessToken string

	inner *http.Client
}

var mpClient *MercadoPagoClient

func GetMercadoPagoClient() *MercadoPagoClient {
	if mpClient != nil {
		return mpClient
	}
	baseURL := os.Getenv("MERCADO_PAGO_API_URL")
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	c := &MercadoPagoClient{
		BaseURL:     baseURL,
		AccessToken: os.Getenv("MERCADO_PAGO_ACCESS_TOKEN"),
		inner:       &http.Client{Timeout: 10 * time.Second},
	}
	mpClient = c
	return c
}

// NewMercadoPagoClient replaces the singleton with a custom client implementation
func NewMercadoPagoClient(c *MercadoPagoClient) *MercadoPagoClient {
	mpClient = c
	return mpClient
}

func NewMercadoPagoClientWithBaseURL(baseURL string) *MercadoPagoClient {
	return NewMercadoPagoClient(&MercadoPagoClient{
		BaseURL:     baseURL,
		AccessToken: os.Getenv("MERCADO_PAGO_ACCESS_TOKEN"),
		inner:       &http.Client{Timeout: 10 * time.Second},
	})
}

func (c *MercadoPagoClient) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.AccessToken))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, 0, &GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &GatewayError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return body, resp.StatusCode, nil
}

// CreatePIXPayment asks the processor for a new PIX transaction. The payment
// is only usable when the processor reports it pending; any other status is
// an error.
func (c *MercadoPagoClient) CreatePIXPayment(ctx context.Context, amount float64, email string) (*PIXPayment, error) {
	payload := map[string]any{
		"transaction_amount": amount,
		"description":        "PIX payment",
		"payment_method_id":  "pix",
		"payer": map[string]any{
			"email": email,
		},
		"notification_url": os.Getenv("MERCADO_PAGO_NOTIFICATION_URL"),
	}
	b, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/payments", c.BaseURL), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Idempotency-Key", uuid.NewString())
	body, code, err := c.do(req)
	if err != nil {
		log.Printf("[MercadoPago] Error creating PIX payment: %s\n", err.Error())
		return nil, err
	}
	if code != http.StatusCreated && code != http.StatusOK {
		return nil, &GatewayError{StatusCode: code, Message: "failed to create PIX payment"}
	}
	rjson := gjson.ParseBytes(body)
	status := types.PaymentStatus(rjson.Get("status").String())
	if status != types.PAYMENT_PENDING {
		return nil, &GatewayError{StatusCode: code, Message: fmt.Sprintf("unexpected payment status %q", status)}
	}
	pix := PIXPayment{
		ID:        rjson.Get("id").String(),
		Status:    status,
		TicketURL: rjson.Get("point_of_interaction.transaction_data.ticket_url").String(),
		QRCode:    rjson.Get("point_of_interaction.transaction_data.qr_code").String(),
	}
	return &pix, nil
}

// FetchPaymentStatus queries the processor for the current status of a
// previously created payment, identified by the processor's own id.
func (c *MercadoPagoClient) FetchPaymentStatus(ctx context.Context, paymentId string) (types.PaymentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/payments/%s", c.BaseURL, paymentId), nil)
	if err != nil {
		return "", err
	}
	body, code, err := c.do(req)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", &GatewayError{StatusCode: code, Message: "failed to fetch payment status"}
	}
	status := gjson.GetBytes(body, "status").String()
	if status == "" {
		return "", &GatewayError{StatusCode: code, Message: "response carries no status field"}
	}
	return types.PaymentStatus(status), nil
}
