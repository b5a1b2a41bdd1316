// Package mailjet sends templated transactional mail through the Mailjet
// Send API v3.1.
package mailjet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/sandpiper/backend/internal/config"
)

const (
	WelcomeSubject       = "Welcome to Sandpiper"
	ResetPasswordSubject = "Reset your password"
)

type Address struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

// Message is a single entry of the Messages array accepted by /send.
type Message struct {
	From             Address           `json:"From"`
	To               []Address         `json:"To"`
	TemplateID       int               `json:"TemplateID"`
	TemplateLanguage bool              `json:"TemplateLanguage"`
	Subject          string            `json:"Subject"`
	Variables        map[string]string `json:"Variables,omitempty"`
}

type sendRequest struct {
	Messages []Message `json:"Messages"`
}

type sendResponse struct {
	Messages []struct {
		Status string `json:"Status"`
		Errors []struct {
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Errors"`
	} `json:"Messages"`
}

// SendError reports a rejected request.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mailjet: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Mailjet API over fasthttp.
type Client struct {
	http    *fasthttp.Client
	cfg     config.MailConfig
	logger  *zap.Logger
	authHdr string
}

// NewClient builds a client. A nil httpClient gets a default fasthttp.Client.
func NewClient(cfg config.MailConfig, httpClient *fasthttp.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &fasthttp.Client{
			Name:         "sandpiper-mailer",
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.APIKey + ":" + cfg.APISecret))
	return &Client{
		http:    httpClient,
		cfg:     cfg,
		logger:  logger,
		authHdr: "Basic " + creds,
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// WelcomeMessage carries the email verification link.
func (c *Client) WelcomeMessage(to, name, confirmationLink string) Message {
	return c.message(Address{Email: to, Name: name}, c.cfg.WelcomeTemplateID, WelcomeSubject,
		map[string]string{"confirmation_link": confirmationLink})
}

// ResetPasswordMessage carries the password reset link.
func (c *Client) ResetPasswordMessage(to, resetLink string) Message {
	return c.message(Address{Email: to}, c.cfg.ResetPasswordTemplateID, ResetPasswordSubject,
		map[string]string{"reset_password_link": resetLink})
}

func (c *Client) message(to Address, templateID int, subject string, vars map[string]string) Message {
	return Message{
		From:             Address{Email: c.cfg.SenderEmail, Name: c.cfg.SenderName},
		To:               []Address{to},
		TemplateID:       templateID,
		TemplateLanguage: true,
		Subject:          subject,
		Variables:        vars,
	}
}

// Send posts the messages in a single request. It fails on a non-2xx status
// or when any message is reported with a status other than success.
func (c *Client) Send(ctx context.Context, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	if !c.Configured() {
		return fmt.Errorf("mailjet: api credentials not configured")
	}

	body, err := json.Marshal(sendRequest{Messages: messages})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimRight(c.cfg.BaseURL, "/") + "/send")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(fasthttp.HeaderAuthorization, c.authHdr)
	req.SetBody(body)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	for _, m := range messages {
		c.logger.Info("sending email",
			zap.Strings("to", recipients(m)),
			zap.Int("template_id", m.TemplateID))
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("mailjet: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &SendError{StatusCode: status, Body: string(resp.Body())}
	}

	var parsed sendResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		// Delivery was accepted; an unexpected body is not a failure.
		c.logger.Warn("unreadable mailjet response", zap.Error(err))
		return nil
	}
	for _, m := range parsed.Messages {
		if m.Status != "" && m.Status != "success" {
			msg := m.Status
			if len(m.Errors) > 0 {
				msg = m.Errors[0].ErrorMessage
			}
			return &SendError{StatusCode: status, Body: msg}
		}
	}
	return nil
}

func recipients(m Message) []string {
	out := make([]string, 0, len(m.To))
	for _, to := range m.To {
		out = append(out, to.Email)
	}
	return out
}
