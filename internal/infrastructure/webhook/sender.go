// Package webhook delivers completed results to caller-supplied callback
// URLs as a single signed POST.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/kb-orchestrator/internal/core/domain"
)

const signatureHeader = "X-Signature"

type Sender struct {
	httpClient *http.Client
	secret     []byte
}

type Options struct {
	// Timeout bounds the whole delivery attempt. Defaults to 15s.
	Timeout time.Duration
	// Secret enables the HMAC signature header when non-empty.
	Secret string
}

func NewSender(options Options) *Sender {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var secret []byte
	if options.Secret != "" {
		secret = []byte(options.Secret)
	}
	return &Sender{
		httpClient: &http.Client{Timeout: timeout},
		secret:     secret,
	}
}

// Send POSTs the body to callbackURL exactly once. Any transport failure or
// non-2xx status is a delivery error; the caller decides how to degrade.
func (s *Sender) Send(ctx context.Context, callbackURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return domain.WrapError(domain.ErrDelivery, "webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(s.secret) > 0 {
		req.Header.Set(signatureHeader, sign(s.secret, body))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrDelivery, "webhook delivery", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.WrapError(domain.ErrDelivery, "webhook delivery",
			fmt.Errorf("callback status: %s", resp.Status))
	}
	return nil
}

// sign computes the signature over the exact request body.
func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
