package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/buzz-lite/delivery-coordinator/internal/phone"
	"github.com/buzz-lite/delivery-coordinator/pkg/logger"

	"go.uber.org/zap"
)

// ErrNotAllowed is returned when the target phone is not on the allow-list.
// No network call is made in that case.
var ErrNotAllowed = errors.New("phone not on allow-list")

// Sender dispatches a message to a canonical phone.
type Sender interface {
	Send(ctx context.Context, canonicalPhone, text string) error
}

// Config holds Green API connection settings.
type Config struct {
	BaseURL    string // default https://api.green-api.com
	InstanceID string
	Token      string
	Timeout    time.Duration
}

const defaultBaseURL = "https://api.green-api.com"

// GreenAPIGateway sends WhatsApp messages through Green API, gated by the
// allow-list. Network failures are reported to the caller, not retried here.
type GreenAPIGateway struct {
	httpClient *http.Client
	baseURL    string
	instanceID string
	token      string
	allowlist  *Allowlist
	logger     *logger.Logger
}

// NewGreenAPIGateway creates a gateway client.
func NewGreenAPIGateway(cfg Config, allowlist *Allowlist, log *logger.Logger) (*GreenAPIGateway, error) {
	if cfg.InstanceID == "" || cfg.Token == "" {
		return nil, errors.New("Green API instance ID and token are required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GreenAPIGateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		instanceID: cfg.InstanceID,
		token:      cfg.Token,
		allowlist:  allowlist,
		logger:     log,
	}, nil
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Send delivers text to the canonical phone. The allow-list is checked
// before any network activity.
func (g *GreenAPIGateway) Send(ctx context.Context, canonicalPhone, text string) error {
	if !g.allowlist.Allowed(canonicalPhone) {
		g.logger.Warn("refusing send to phone outside allow-list",
			zap.String("phone", canonicalPhone))
		return ErrNotAllowed
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:  phone.ToChatID(canonicalPhone),
		Message: text,
	})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", g.baseURL, g.instanceID, g.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("send message: provider returned %d", resp.StatusCode)
	}
	return nil
}
