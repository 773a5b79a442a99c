package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/embedchat/embedchat/internal/chat"
)

// ErrSendInFlight is returned when a send is attempted while another one is
// still outstanding. The widget serializes sends instead of letting
// overlapping responses race into history in arrival order.
var ErrSendInFlight = errors.New("a send is already in flight")

// maxErrorBodySize bounds how much of an error body is read for messaging.
const maxErrorBodySize = 4096

// Request is the wire contract for one outbound chat request.
type Request struct {
	Message string         `json:"message"`
	History []chat.Message `json:"history"`
	Model   string         `json:"model"`
	TraceID string         `json:"traceId,omitempty"`
}

// Client talks to the edge proxy. It enforces the single-slot in-flight
// guard: only one Send may be outstanding at a time.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	inFlight   atomic.Bool
}

// NewClient creates a transport client for the given proxy endpoint.
// httpClient may be nil, in which case http.DefaultClient is used.
func NewClient(endpoint, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		model:      model,
		httpClient: httpClient,
	}
}

// Send posts the message and its optimized history view to the proxy and
// returns the normalized reply. It does not retry; failures come back as a
// *SendError classified for user-facing messaging. A second Send while one
// is outstanding fails immediately with ErrSendInFlight.
func (c *Client) Send(ctx context.Context, message string, optimizedHistory []chat.Message, traceID string) (*Reply, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}
	defer c.inFlight.Store(false)

	payload, err := json.Marshal(Request{
		Message: message,
		History: optimizedHistory,
		Model:   c.model,
		TraceID: traceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SendError{Category: classifyErr(err), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SendError{
			Category:   ClassifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SendError{Category: ErrorNetwork, Message: err.Error()}
	}

	reply, err := parseReply(body)
	if err != nil {
		return nil, &SendError{Category: ErrorUnknown, Message: err.Error()}
	}
	return reply, nil
}

// readErrorMessage extracts the {error} message from a failure body, if any.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return ""
	}
	var wire struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return ""
	}
	return wire.Error
}
