// Package flow talks to the Flow payment API. Every request carries apiKey and
// a signature "s": HMAC-SHA256 (hex) over the parameters sorted by name and
// concatenated as name+value.
package flow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider status codes returned by payment/getStatus.
const (
	StatusPending   = 1
	StatusPaid      = 2
	StatusRejected  = 3
	StatusCancelled = 4
)

type Client struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	HTTP      *http.Client
}

func New(baseURL, apiKey, secretKey string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

type APIError struct {
	HTTPStatus int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flow: http %d code %d: %s", e.HTTPStatus, e.Code, e.Message)
}

type CreatePaymentRequest struct {
	CommerceOrder   string
	Subject         string
	Currency        string
	Amount          decimal.Decimal
	Email           string
	URLConfirmation string
	URLReturn       string
}

type CreatePaymentResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	FlowOrder int64  `json:"flowOrder"`
}

// RedirectURL is where the buyer must be sent to pay.
func (r CreatePaymentResponse) RedirectURL() string {
	return r.URL + "?token=" + url.QueryEscape(r.Token)
}

type PaymentStatus struct {
	FlowOrder     int64           `json:"flowOrder"`
	CommerceOrder string          `json:"commerceOrder"`
	RequestDate   string          `json:"requestDate"`
	Status        int             `json:"status"`
	Subject       string          `json:"subject"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	Payer         string          `json:"payer"`
}

func (s PaymentStatus) Paid() bool { return s.Status == StatusPaid }

func (c *Client) CreatePayment(ctx context.Context, in CreatePaymentRequest) (CreatePaymentResponse, error) {
	var out CreatePaymentResponse
	params := url.Values{
		"commerceOrder":   {in.CommerceOrder},
		"subject":         {in.Subject},
		"currency":        {in.Currency},
		"amount":          {in.Amount.String()},
		"email":           {in.Email},
		"urlConfirmation": {in.URLConfirmation},
		"urlReturn":       {in.URLReturn},
	}
	body := c.signed(params).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payment/create", strings.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return out, c.do(req, &out)
}

func (c *Client) GetStatus(ctx context.Context, token string) (PaymentStatus, error) {
	var out PaymentStatus
	q := c.signed(url.Values{"token": {token}})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/payment/getStatus?"+q.Encode(), nil)
	if err != nil {
		return out, err
	}
	return out, c.do(req, &out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		_ = json.Unmarshal(b, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("flow: decode response: %w", err)
	}
	return nil
}

// signed returns a copy of params with apiKey and s added.
func (c *Client) signed(params url.Values) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = v
	}
	out.Set("apiKey", c.APIKey)
	out.Set("s", Sign(c.SecretKey, out))
	return out
}

// Sign computes the request signature; an existing "s" is ignored.
func Sign(secret string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "s" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params.Get(k))
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Amount converts minor units to the decimal amount Flow expects for currency.
func Amount(cents int64, currency string) decimal.Decimal {
	return decimal.New(cents, -exponent(currency))
}

// Cents is the inverse of Amount.
func Cents(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(exponent(currency)).Round(0).IntPart()
}

func exponent(currency string) int32 {
	switch strings.ToUpper(currency) {
	case "CLP", "JPY", "PYG":
		return 0
	default:
		return 2
	}
}

// FormatStatus is used in logs.
func FormatStatus(code int) string {
	switch code {
	case StatusPending:
		return "pending"
	case StatusPaid:
		return "paid"
	case StatusRejected:
		return "rejected"
	case StatusCancelled:
		return "cancelled"
	}
	return "unknown(" + strconv.Itoa(code) + ")"
}
