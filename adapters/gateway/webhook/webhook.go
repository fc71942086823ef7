package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Go-routine-4595/sensor-watch/model"
)

type WebhookConfig struct {
	URL string `yaml:"URL"`
}

// Webhook POSTs each alarm event as JSON. Any non 2xx answer is a failure; the
// response body is not interpreted.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook uses http.DefaultClient when client is nil. The per call deadline
// comes from the context passed to SendAlarm.
func NewWebhook(conf WebhookConfig, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{
		url:    conf.URL,
		client: client,
	}
}

func (w *Webhook) SendAlarm(ctx context.Context, event model.AlarmEvent) error {
	var (
		body []byte
		req  *http.Request
		resp *http.Response
		err  error
	)

	body, err = json.Marshal(event)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal event webhook.SendAlarm"))
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Join(err, errors.New("failed to build webhook request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = w.client.Do(req)
	if err != nil {
		return errors.Join(err, errors.New("webhook request failed"))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook answered %s", resp.Status)
	}
	return nil
}
