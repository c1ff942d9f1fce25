package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const linePushEndpoint = "https://api.line.me/v2/bot/message/push"

// LineNotifier pushes a text message to one LINE user through the
// Messaging API. Delivery failures are the caller's concern; nothing is
// retried here.
type LineNotifier struct {
	token    string
	toUserID string
	endpoint string
	httpc    *http.Client
}

// NewLineNotifier creates a notifier for the given channel access token
// and destination user.
func NewLineNotifier(channelAccessToken, toUserID string, timeout time.Duration) *LineNotifier {
	return &LineNotifier{
		token:    channelAccessToken,
		toUserID: toUserID,
		endpoint: linePushEndpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// Send pushes one text message.
func (n *LineNotifier) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]any{
		"to": n.toUserID,
		"messages": []map[string]string{
			{"type": "text", "text": text},
		},
	})
	if err != nil {
		return errors.Wrap(err, "marshal LINE payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "LINE push failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("LINE push -> %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
