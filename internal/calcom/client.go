package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dentalcare-connect/portal/internal/observability/metrics"
	"github.com/dentalcare-connect/portal/pkg/logging"
)

const (
	defaultBaseURL  = "https://api.cal.com/v1"
	defaultTimeout  = 15 * time.Second
	defaultTimeZone = "UTC"
)

// Options configures the scheduling service client. Credentials are passed
// in explicitly; the client reads nothing from the environment.
type Options struct {
	BaseURL     string
	APIKey      string
	EventTypeID int
	TimeZone    string
	Timeout     time.Duration
}

// Client is the booking gateway: the single typed facade over the remote
// scheduling service. It does no caching and no retries.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	eventTypeID int
	timeZone    string
	logger      *logging.Logger
	metrics     *metrics.PortalMetrics
}

// NewClient constructs a scheduling service client.
func NewClient(opts Options, logger *logging.Logger, m *metrics.PortalMetrics) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if strings.TrimSpace(opts.TimeZone) == "" {
		opts.TimeZone = defaultTimeZone
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		eventTypeID: opts.EventTypeID,
		timeZone:    opts.TimeZone,
		logger:      logger,
		metrics:     m,
	}
}

// ListBookings fetches the full remote booking set for the configured event
// type. It fails soft: any transport error or non-2xx response degrades to
// an empty slice. Callers cannot distinguish a truly empty schedule from a
// failed fetch; the failure is logged and counted instead.
func (c *Client) ListBookings(ctx context.Context) []Booking {
	start := time.Now()

	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("eventTypeId", strconv.Itoa(c.eventTypeID))
	endpoint := c.baseURL + "/bookings?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.listFailed(start, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.listFailed(start, "http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.listFailed(start, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var wrapped struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapped); err != nil {
		return c.listFailed(start, "decode response", err)
	}

	c.metrics.ObserveGatewayCall("list", "ok", time.Since(start).Seconds())
	if wrapped.Bookings == nil {
		return []Booking{}
	}
	return wrapped.Bookings
}

func (c *Client) listFailed(start time.Time, reason string, err error) []Booking {
	c.logger.Warn("calcom: list bookings degraded to empty result", "reason", reason, "error", err)
	c.metrics.ObserveGatewayCall("list", "error", time.Since(start).Seconds())
	c.metrics.ObserveListFailure()
	return []Booking{}
}

// CreateBooking validates the request locally, then submits it with the
// fixed 30-minute end time and the configured time zone. Remote rejections
// surface the service's message verbatim when present.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	payload := bookingPayload{
		EventTypeID: c.eventTypeID,
		Start:       req.StartTime.UTC().Format(time.RFC3339),
		End:         req.EndTime().UTC().Format(time.RFC3339),
		Responses: bookingResponses{
			Name:  req.Name,
			Email: req.Email,
			Notes: req.Notes,
		},
		Metadata: map[string]string{},
		TimeZone: c.timeZone,
		Language: "en",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("calcom: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/bookings?" + url.Values{"apiKey": {c.apiKey}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("calcom: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveGatewayCall("create", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("calcom: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveGatewayCall("create", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("calcom: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveGatewayCall("create", "rejected", time.Since(start).Seconds())
		var remote struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &remote)
		if strings.TrimSpace(remote.Message) == "" {
			remote.Message = "failed to create booking"
		}
		c.logger.Warn("calcom: create booking rejected", "status", resp.StatusCode, "message", remote.Message)
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: remote.Message}
	}

	var created Booking
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &created); err != nil {
			c.metrics.ObserveGatewayCall("create", "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("calcom: decode response: %w", err)
		}
	}

	c.metrics.ObserveGatewayCall("create", "ok", time.Since(start).Seconds())
	c.logger.Info("calcom: booking created", "booking_id", created.ID, "start", payload.Start)
	return &created, nil
}

// CancelBooking deletes a booking. Any success-class response counts as
// success; anything else, including transport failure, is false. No retry.
func (c *Client) CancelBooking(ctx context.Context, id int) bool {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/bookings/%d?%s", c.baseURL, id, url.Values{"apiKey": {c.apiKey}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		c.metrics.ObserveGatewayCall("cancel", "error", time.Since(start).Seconds())
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("calcom: cancel booking failed", "booking_id", id, "error", err)
		c.metrics.ObserveGatewayCall("cancel", "error", time.Since(start).Seconds())
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	status := "ok"
	if !ok {
		status = "rejected"
		c.logger.Warn("calcom: cancel booking rejected", "booking_id", id, "status", resp.StatusCode)
	}
	c.metrics.ObserveGatewayCall("cancel", status, time.Since(start).Seconds())
	return ok
}
