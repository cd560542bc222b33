package whatsapp

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

	"github.com/bairdservice/baird-backend/pkg/config"
	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://graph.facebook.com/v21.0"
	defaultSendTimeout          = 10 * time.Second
	defaultCountryCode          = "57"
	responseBodyReadLimit int64 = 1024
)

// ErrMissingCredentials is returned when the phone number id or access token is blank.
var ErrMissingCredentials = errors.New("whatsapp phone id and api token are required")

// DeliveryError describes a send the Cloud API did not accept.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("whatsapp delivery: %v", e.Err)
	}
	return fmt.Sprintf("whatsapp delivery: status %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Client sends text and image messages through the WhatsApp Cloud API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	phoneID     string
	apiToken    string
	countryCode string
	sendTimeout time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Graph API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a Cloud API client from configuration.
func NewClient(cfg config.WhatsAppConfig, opts ...Option) (*Client, error) {
	phoneID := strings.TrimSpace(cfg.PhoneID)
	token := strings.TrimSpace(cfg.APIToken)
	if phoneID == "" || token == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, ErrMissingCredentials, "whatsapp client not configured")
	}

	client := &Client{
		httpClient:  &http.Client{},
		baseURL:     defaultBaseURL,
		phoneID:     phoneID,
		apiToken:    token,
		countryCode: defaultCountryCode,
		sendTimeout: defaultSendTimeout,
	}
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		client.baseURL = base
	}
	if cc := strings.TrimSpace(cfg.CountryCode); cc != "" {
		client.countryCode = cc
	}
	if cfg.SendTimeout > 0 {
		client.sendTimeout = cfg.SendTimeout
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// CountryCode is the dialing prefix applied to national numbers.
func (c *Client) CountryCode() string {
	return c.countryCode
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type imageBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

type messageRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	RecipientType    string     `json:"recipient_type"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Text             *textBody  `json:"text,omitempty"`
	Image            *imageBody `json:"image,omitempty"`
}

// SendText delivers a text message with link previews enabled.
func (c *Client) SendText(ctx context.Context, recipientPhone, body string) error {
	if strings.TrimSpace(body) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	return c.send(ctx, recipientPhone, "text", func(req *messageRequest) {
		req.Text = &textBody{Body: body, PreviewURL: true}
	})
}

// SendImage delivers an image by public URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, recipientPhone, imageURL, caption string) error {
	if strings.TrimSpace(imageURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "image url is required")
	}
	return c.send(ctx, recipientPhone, "image", func(req *messageRequest) {
		req.Image = &imageBody{Link: imageURL, Caption: caption}
	})
}

func (c *Client) send(ctx context.Context, recipientPhone, kind string, fill func(*messageRequest)) error {
	if c == nil {
		return pkgerrors.Wrap(pkgerrors.CodeConfiguration, ErrMissingCredentials, "whatsapp client not configured")
	}
	to := NormalizePhone(recipientPhone, c.countryCode)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient phone is required")
	}

	msg := messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             kind,
	}
	fill(&msg)

	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal whatsapp message")
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(sendCtx, http.MethodPost, c.messagesURL(), bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build whatsapp request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &DeliveryError{Err: err}, "execute whatsapp request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, &DeliveryError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}, "whatsapp request rejected")
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
	return nil
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.baseURL, "/"), c.phoneID)
}
