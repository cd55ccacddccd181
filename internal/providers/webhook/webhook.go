// webhook is a generic Provider implementation that posts the rendered
// OTP message to a URL. Useful for handing delivery to an external
// mailer service or for capturing codes in dev setups.
package webhook

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adminguard/adminguard/pkg/models"
)

// Webhook is the default representation of the Webhook interface.
type Webhook struct {
	cfg        Config
	authHeader string
	http       *http.Client
}

// Payload is posted to the upstream URL.
type Payload struct {
	Message models.Message `json:"message"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
}

// Config contains the webhook provider configuration.
type Config struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`

	MaxOTPLen int `json:"max_otp_len"`

	Timeout  time.Duration `json:"timeout"`
	MaxConns int           `json:"max_conns"`
}

// New returns a webhook delivery provider.
func New(cfg Config) (*Webhook, error) {
	// Initialize the HTTP client.
	if cfg.Timeout.Seconds() < 1 {
		cfg.Timeout = time.Second * 3
	}
	if cfg.MaxConns < 1 {
		cfg.MaxConns = 1
	}
	if cfg.MaxOTPLen < 1 {
		cfg.MaxOTPLen = 6
	}

	authHeader := ""
	if cfg.Username != "" && cfg.Password != "" {
		authHeader = fmt.Sprintf("Basic %s", base64.StdEncoding.EncodeToString(
			[]byte(cfg.Username+":"+cfg.Password)))
	}

	return &Webhook{
		cfg:        cfg,
		authHeader: authHeader,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost:   cfg.MaxConns,
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
	}, nil
}

// ID returns the Provider's ID.
func (w *Webhook) ID() string {
	return "webhook"
}

// ValidateAddress "validates" an address. What constitutes a valid
// address is up to the upstream handler.
func (w *Webhook) ValidateAddress(to string) error {
	return nil
}

// Push posts the rendered message to the configured URL.
func (w *Webhook) Push(msg models.Message, subject string, body []byte) error {
	p := Payload{
		Subject: subject,
		Body:    string(body),
		Message: msg,
	}

	b, err := json.Marshal(p)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, w.cfg.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", "adminguard")
	req.Header.Add("Content-Type", "application/json")

	// Optional BasicAuth.
	if w.authHeader != "" {
		req.Header.Set("Authorization", w.authHeader)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		// Drain and close the body to let the Transport reuse the connection
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}

	return nil
}

// MaxOTPLen returns the maximum allowed length of the OTP value.
func (w *Webhook) MaxOTPLen() int {
	return w.cfg.MaxOTPLen
}
