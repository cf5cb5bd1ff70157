package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/craftkart/storefront-backend/pkg/config"
	pkgerrors "github.com/craftkart/storefront-backend/pkg/errors"
	"github.com/craftkart/storefront-backend/pkg/logger"
)

var errLoggerRequired = errors.New("mailer logger is required")

// Message is a single transactional email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Client sends transactional email through the provider's REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	defaultFrom string
	logger      *logger.Logger
}

type sendResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// NewClient builds the mailer wrapper. An empty API key is allowed so local
// environments can boot without credentials; Send fails fast in that case.
func NewClient(ctx context.Context, cfg config.MailerConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		defaultFrom: cfg.DefaultFrom,
		logger:      logg,
	}

	logg.Info(ctx, "mailer client initialized")
	return c, nil
}

// DefaultFrom returns the configured sender address.
func (c *Client) DefaultFrom() string {
	if c == nil {
		return ""
	}
	return c.defaultFrom
}

// Send delivers one email and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c.apiKey == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "mailer api key not configured")
	}
	if len(msg.To) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email subject is required")
	}
	if msg.From == "" {
		msg.From = c.defaultFrom
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building email request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling email provider")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading email provider response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return "", c.mapAPIError(resp.StatusCode, data)
	}

	var parsed sendResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding email provider response")
	}

	fields := map[string]any{
		"message_id": parsed.ID,
		"subject":    msg.Subject,
		"recipients": len(msg.To),
	}
	c.logger.Info(c.logger.WithFields(ctx, fields), "email sent")
	return parsed.ID, nil
}

func (c *Client) mapAPIError(status int, data []byte) error {
	var parsed apiError
	_ = json.Unmarshal(data, &parsed)

	msg := parsed.Message
	if msg == "" {
		msg = fmt.Sprintf("email provider returned status %d", status)
	}

	code := pkgerrors.CodeDependency
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = pkgerrors.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		code = pkgerrors.CodeUnauthorized
	case http.StatusTooManyRequests:
		code = pkgerrors.CodeRateLimit
	}
	return pkgerrors.New(code, msg)
}
