package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/sensor-watch/model"
)

func testEvent() model.AlarmEvent {
	return model.NewAlarmEvent(model.AlarmHigh, model.Record{Name: "Temperature", Value: 120, Timestamp: 1700000000, Status: "OK"}, "Temperature Above High limit")
}

func TestSendAlarmPostsJSON(t *testing.T) {
	var (
		body        []byte
		contentType string
		method      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(WebhookConfig{URL: srv.URL}, srv.Client())
	require.NoError(t, wh.SendAlarm(context.Background(), testEvent()))

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"event":"ALARM_TRIGGERED","sensor":"Temperature","value":120,"timestamp":1700000000,"message":"Temperature Above High limit"}`, string(body))
}

func TestSendAlarmNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(WebhookConfig{URL: srv.URL}, srv.Client()).SendAlarm(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendAlarmHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewWebhook(WebhookConfig{URL: srv.URL}, srv.Client()).SendAlarm(ctx, testEvent())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAlarmUnreachable(t *testing.T) {
	err := NewWebhook(WebhookConfig{URL: "http://127.0.0.1:1"}, nil).SendAlarm(context.Background(), testEvent())
	assert.Error(t, err)
}
