package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
	"contex/internal/platform/apperr"
)

// Sender POSTs the update body and signs it with HMAC-SHA256 over the exact
// serialized bytes sent on the wire, matching the headers a verifying
// receiver is told to expect: X-Contex-Signature, X-Contex-Event and
// X-Contex-Delivery.
type Sender struct {
	Client *http.Client
}

func NewSender() *Sender {
	return &Sender{Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *Sender) Send(ctx context.Context, url, hmacSecret string, update entities.Update) error {
	body, err := json.Marshal(update)
	if err != nil {
		return apperr.Wrap(apperr.KindPermanent, "webhook payload encode failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.KindPermanent, "webhook request build failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Contex-Event", update.Type)
	req.Header.Set("X-Contex-Delivery", uuid.NewString())
	if hmacSecret != "" {
		req.Header.Set("X-Contex-Signature", sign(hmacSecret, body))
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return classifyStatus(resp.StatusCode)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// classifyStatus implements the retry policy's exception list: every 4xx
// is permanent except 408 (request timeout) and 429 (rate limited), which
// behave like a 5xx and get retried.
func classifyStatus(status int) error {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return apperr.New(apperr.KindTransient, fmt.Sprintf("webhook responded %d", status))
	}
	if status >= 400 && status < 500 {
		return apperr.New(apperr.KindPermanent, fmt.Sprintf("webhook responded %d", status))
	}
	return apperr.New(apperr.KindTransient, fmt.Sprintf("webhook responded %d", status))
}
