package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/domain/upstream"
	"github.com/sendback/service-dashboard/internal/metrics"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// OrderClient handles communication with the order service
type OrderClient struct {
	baseURL     string
	httpClient  *http.Client
	retryPolicy *upstream.RetryPolicy
	limiter     *upstream.RateLimiter
	logger      *zap.Logger
}

// OrderClientConfig holds configuration for the order client
type OrderClientConfig struct {
	BaseURL     string
	Timeout     time.Duration
	RetryPolicy *upstream.RetryPolicy
	RateLimit   *upstream.RateLimitConfig
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// NewOrderClient creates a new OrderClient
func NewOrderClient(cfg *OrderClientConfig) *OrderClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	retryPolicy := cfg.RetryPolicy
	if retryPolicy == nil {
		retryPolicy = upstream.DefaultRetryPolicy()
	}

	rateLimit := upstream.DefaultRateLimitConfig(0, 0)
	if cfg.RateLimit != nil {
		rateLimit = *cfg.RateLimit
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		retryPolicy: retryPolicy,
		limiter:     upstream.NewRateLimiter(rateLimit),
		logger:      logger,
	}
}

// Limiter exposes the outbound rate limiter for health reporting.
func (c *OrderClient) Limiter() *upstream.RateLimiter {
	return c.limiter
}

// Response is an upstream response passed through unchanged.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func orderPath(orderID string, suffix string) string {
	return "/order/" + url.PathEscape(orderID) + suffix
}

// GetOrder fetches the order header.
// GET /order/{id}
func (c *OrderClient) GetOrder(ctx context.Context, orderID string) (*returns.OrderSummary, error) {
	resp, err := c.read(ctx, "get_order", orderPath(orderID, ""))
	if err != nil {
		return nil, err
	}

	order, err := returns.DecodeOrderSummary(resp.Body)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetItems fetches the line items of an order.
// GET /order/{id}/items
func (c *OrderClient) GetItems(ctx context.Context, orderID string) ([]returns.LineItem, error) {
	resp, err := c.read(ctx, "get_items", orderPath(orderID, "/items"))
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []returns.LineItem `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: items: %v", returns.ErrMalformedPayload, err)
	}
	if result.Items == nil {
		return nil, fmt.Errorf("%w: items field missing", returns.ErrMalformedPayload)
	}
	if err := returns.ValidateItems(result.Items); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// GetEligibility fetches whether a return may be started.
// GET /order/{id}/eligibility
func (c *OrderClient) GetEligibility(ctx context.Context, orderID string) (returns.Eligibility, error) {
	resp, err := c.read(ctx, "get_eligibility", orderPath(orderID, "/eligibility"))
	if err != nil {
		return returns.Eligibility{}, err
	}
	return returns.DecodeEligibility(resp.Body)
}

// GetOptions fetches the return options offered for an order.
// Options that cannot be decoded are dropped and logged.
// GET /order/{id}/options
func (c *OrderClient) GetOptions(ctx context.Context, orderID string) ([]returns.ReturnOption, error) {
	resp, err := c.read(ctx, "get_options", orderPath(orderID, "/options"))
	if err != nil {
		return nil, err
	}

	var result struct {
		Options []json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: options: %v", returns.ErrMalformedPayload, err)
	}
	if result.Options == nil {
		return nil, fmt.Errorf("%w: options field missing", returns.ErrMalformedPayload)
	}

	options, skipped := returns.DecodeReturnOptions(result.Options)
	for _, skipErr := range skipped {
		c.logger.Warn("Dropped return option",
			zap.String("order_id", orderID),
			zap.Error(skipErr),
		)
	}
	return options, nil
}

// InitiateReturn submits a return request. It is never retried.
// POST /order/{id}/initiate
func (c *OrderClient) InitiateReturn(ctx context.Context, req *returns.ReturnRequest) (*returns.InitiateResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	path := orderPath(strconv.FormatInt(req.OrderID, 10), "/initiate")
	resp, err := c.do(ctx, "initiate_return", http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}

	var result returns.InitiateResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: initiate response: %v", returns.ErrMalformedPayload, err)
	}
	if err := returns.ValidateInitiateResult(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOrders fetches every tracked order. Malformed entries are dropped.
// GET /orders
func (c *OrderClient) ListOrders(ctx context.Context) ([]returns.OrderSummary, error) {
	resp, err := c.read(ctx, "list_orders", "/orders")
	if err != nil {
		return nil, err
	}

	var result struct {
		Orders []json.RawMessage `json:"orders"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("%w: orders: %v", returns.ErrMalformedPayload, err)
	}

	orders := make([]returns.OrderSummary, 0, len(result.Orders))
	for _, raw := range result.Orders {
		order, err := returns.DecodeOrderSummary(raw)
		if err != nil {
			c.logger.Warn("Dropped malformed order from list", zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// GetCalendar fetches the .ics reminder for an order's return deadline.
// GET /order/{id}/calendar
func (c *OrderClient) GetCalendar(ctx context.Context, orderID string) (*Response, error) {
	return c.read(ctx, "get_calendar", orderPath(orderID, "/calendar"))
}

// GetPolicy fetches the summarized return policy of a merchant.
// GET /policy?merchant=
func (c *OrderClient) GetPolicy(ctx context.Context, merchant string) (json.RawMessage, error) {
	resp, err := c.read(ctx, "get_policy", "/policy?merchant="+url.QueryEscape(merchant))
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("%w: policy body is not JSON", returns.ErrMalformedPayload)
	}
	return json.RawMessage(resp.Body), nil
}

// UploadReceipt forwards a receipt file to the ingest endpoint. The
// upstream status and body are returned as-is, including non-2xx.
// POST /ingest/receipt
func (c *OrderClient) UploadReceipt(ctx context.Context, filename string, file io.Reader) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy receipt: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return c.roundTrip(ctx, "upload_receipt", http.MethodPost, "/ingest/receipt", &buf, mw.FormDataContentType())
}

// read performs an idempotent GET with retries.
func (c *OrderClient) read(ctx context.Context, op, path string) (*Response, error) {
	var resp *Response
	executor := upstream.NewExecutor(c.retryPolicy)
	result := executor.Execute(ctx, func() error {
		var err error
		resp, err = c.do(ctx, op, http.MethodGet, path, nil, "")
		return err
	})

	if result.LastError != nil {
		c.logger.Debug("Order service read failed",
			zap.String("operation", op),
			zap.String("path", path),
			zap.Int("attempts", result.Attempts),
			zap.Duration("duration", result.Duration),
			zap.Error(result.LastError),
		)
		return nil, result.LastError
	}
	return resp, nil
}

// do performs a single request and turns non-2xx into *upstream.APIError.
func (c *OrderClient) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*Response, error) {
	resp, err := c.roundTrip(ctx, op, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, upstream.NewAPIError(method, path, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// roundTrip performs a single request without interpreting the status.
func (c *OrderClient) roundTrip(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*Response, error) {
	if err := c.limiter.Wait(ctx, path); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, &upstream.TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.UpstreamRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return nil, &upstream.TransportError{Method: method, Path: path, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	latency := time.Since(start)
	metrics.UpstreamRequestDuration.WithLabelValues(op, statusClass(resp.StatusCode)).Observe(latency.Seconds())

	c.logger.Debug("Order service request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", latency),
		zap.String("response", upstream.Truncate(string(respBody), 500)),
	)

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
