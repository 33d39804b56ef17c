// REST client for the paper-trading order API.
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// APIResponse is the envelope every paper-trading endpoint returns.
type APIResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type accountPayload struct {
	Cash       string `json:"cash"`
	TotalValue string `json:"totalValue"`
}

type positionPayload struct {
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
	AvgPrice string `json:"avgPrice"`
}

type instrumentPayload struct {
	Symbol           string  `json:"symbol"`
	MinNotional      string  `json:"minNotional"`
	MaxPositionSize  *string `json:"maxPositionSize,omitempty"`
	MinLotSize       string  `json:"minLotSize"`
	StepSize         string  `json:"stepSize"`
	FractionalShares bool    `json:"fractionalShares"`
}

type orderPayload struct {
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	FilledQty   string `json:"filledQty"`
	FilledPrice string `json:"filledPrice"`
	Reason      string `json:"reason,omitempty"`
}

// PaperClient talks to the paper-trading REST API. The connection mutex
// serializes every request: the session is stateful on the server side
// and the client is shared across the cycle and the control API.
type PaperClient struct {
	http      *resty.Client
	apiKey    string
	apiSecret string
	connMu    sync.Mutex
	connected bool
}

// NewPaperClient builds a client against baseURL, e.g.
// "https://paper-api.example.com".
func NewPaperClient(apiKey, apiSecret, baseURL string) *PaperClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)

	return &PaperClient{
		http:      client,
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// Connect verifies credentials against the account endpoint.
func (c *PaperClient) Connect() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	var payload accountPayload
	if err := c.doGet("/api/v1/account", &payload); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c.connected = true
	logger.WithField("broker", "paper").Info("broker connection established")
	return nil
}

// GetAccountInfo fetches the cash and total value snapshot.
func (c *PaperClient) GetAccountInfo() (model.AccountInfo, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return model.AccountInfo{}, ErrNotConnected
	}

	var payload accountPayload
	if err := c.doGet("/api/v1/account", &payload); err != nil {
		return model.AccountInfo{}, err
	}

	cash, err := decimal.NewFromString(payload.Cash)
	if err != nil {
		return model.AccountInfo{}, fmt.Errorf("parsing cash %q: %w", payload.Cash, err)
	}
	total, err := decimal.NewFromString(payload.TotalValue)
	if err != nil {
		return model.AccountInfo{}, fmt.Errorf("parsing totalValue %q: %w", payload.TotalValue, err)
	}

	return model.AccountInfo{Cash: cash, TotalValue: total}, nil
}

// GetPositions fetches the account's open positions keyed by symbol.
func (c *PaperClient) GetPositions() (map[string]model.BrokerPosition, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}

	var payloads []positionPayload
	if err := c.doGet("/api/v1/positions", &payloads); err != nil {
		return nil, err
	}

	positions := make(map[string]model.BrokerPosition, len(payloads))
	for _, p := range payloads {
		qty, err := decimal.NewFromString(p.Quantity)
		if err != nil {
			logger.WithError(err).WithField("symbol", p.Symbol).
				Warn("skipping position with unparseable quantity")
			continue
		}
		avg, err := decimal.NewFromString(p.AvgPrice)
		if err != nil {
			avg = decimal.Zero
		}
		positions[p.Symbol] = model.BrokerPosition{
			Symbol:   p.Symbol,
			Quantity: qty,
			AvgPrice: avg,
		}
	}
	return positions, nil
}

// GetCapabilities fetches the instrument's legal order shape.
func (c *PaperClient) GetCapabilities(symbol string) (model.BrokerCapabilities, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return model.BrokerCapabilities{}, ErrNotConnected
	}

	var payload instrumentPayload
	if err := c.doGet("/api/v1/instruments/"+symbol, &payload); err != nil {
		return model.BrokerCapabilities{}, err
	}

	caps := model.BrokerCapabilities{FractionalShares: payload.FractionalShares}

	var err error
	if caps.MinNotional, err = decimal.NewFromString(payload.MinNotional); err != nil {
		return model.BrokerCapabilities{}, fmt.Errorf("parsing minNotional: %w", err)
	}
	if caps.MinLotSize, err = decimal.NewFromString(payload.MinLotSize); err != nil {
		return model.BrokerCapabilities{}, fmt.Errorf("parsing minLotSize: %w", err)
	}
	if caps.StepSize, err = decimal.NewFromString(payload.StepSize); err != nil {
		return model.BrokerCapabilities{}, fmt.Errorf("parsing stepSize: %w", err)
	}
	if payload.MaxPositionSize != nil {
		maxPos, err := decimal.NewFromString(*payload.MaxPositionSize)
		if err != nil {
			return model.BrokerCapabilities{}, fmt.Errorf("parsing maxPositionSize: %w", err)
		}
		caps.MaxPositionSize = &maxPos
	}

	return caps, nil
}

// ExecuteSignal submits one market order sized by the position sizer.
func (c *PaperClient) ExecuteSignal(symbol string, signal model.TradingSignal, quantity decimal.Decimal) (model.OrderResult, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if !c.connected {
		return model.OrderResult{}, ErrNotConnected
	}

	side := "buy"
	if signal.IsSellSide() {
		side = "sell"
	}

	body := map[string]string{
		"clOrdId":  uuid.NewString(),
		"symbol":   symbol,
		"side":     side,
		"type":     "market",
		"quantity": quantity.Abs().String(),
		"signal":   string(signal.Type),
	}

	var payload orderPayload
	if err := c.doPost("/api/v1/orders", body, &payload); err != nil {
		return model.OrderResult{}, err
	}

	result := model.OrderResult{
		Success: payload.Status == "filled",
		Message: payload.Reason,
		OrderID: payload.OrderID,
	}
	if qty, err := decimal.NewFromString(payload.FilledQty); err == nil {
		result.FilledQuantity = qty
	}
	if price, err := decimal.NewFromString(payload.FilledPrice); err == nil {
		result.FilledPrice = price
	}

	logger.WithFields(logger.Fields{
		"symbol":   symbol,
		"side":     side,
		"quantity": quantity,
		"order_id": payload.OrderID,
		"status":   payload.Status,
	}).Info("order submitted")

	return result, nil
}

// ----- transport -----

func (c *PaperClient) doGet(path string, out any) error {
	return c.do(func() (*resty.Response, error) {
		return c.signedRequest().Get(path)
	}, out)
}

func (c *PaperClient) doPost(path string, body any, out any) error {
	return c.do(func() (*resty.Response, error) {
		return c.signedRequest().SetBody(body).Post(path)
	}, out)
}

// do runs the request with bounded exponential retry on transport errors.
// Non-zero API codes are terminal: the server saw the request, retrying
// could double-submit an order.
func (c *PaperClient) do(send func() (*resty.Response, error), out any) error {
	var lastErr error
	delay := defaultRetryBaseDelay

	for attempt := 1; attempt <= defaultRetryAttempts; attempt++ {
		resp, err := send()
		if err != nil {
			lastErr = err
			logger.WithError(err).WithField("attempt", attempt).
				Warn("broker request transport error, backing off")
			time.Sleep(delay)
			delay *= 2
			if delay > defaultRetryMaxBackoff {
				delay = defaultRetryMaxBackoff
			}
			continue
		}

		if resp.StatusCode() >= 500 {
			lastErr = fmt.Errorf("broker returned status %d", resp.StatusCode())
			time.Sleep(delay)
			delay *= 2
			if delay > defaultRetryMaxBackoff {
				delay = defaultRetryMaxBackoff
			}
			continue
		}

		var envelope APIResponse
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return fmt.Errorf("decoding broker response: %w", err)
		}
		if envelope.Code != 0 {
			return fmt.Errorf("broker error %d: %s", envelope.Code, envelope.Msg)
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(envelope.Data, out)
	}

	return fmt.Errorf("broker request failed after %d attempts: %w", defaultRetryAttempts, lastErr)
}

// signedRequest attaches the HMAC-SHA256 auth headers the paper API
// expects: key, millisecond timestamp and a signature over the timestamp.
func (c *PaperClient) signedRequest() *resty.Request {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(ts))
	signature := hex.EncodeToString(mac.Sum(nil))

	return c.http.R().
		SetHeader("x-api-key", c.apiKey).
		SetHeader("x-timestamp", ts).
		SetHeader("x-signature", signature)
}

var _ BrokerExecutor = (*PaperClient)(nil)

// ErrNotConnected is returned by callers that require Connect first.
var ErrNotConnected = errors.New("broker not connected")
