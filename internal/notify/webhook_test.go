package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookName(t *testing.T) {
	p := NewWebhook("http://localhost/hook", "", nil)
	assert.Equal(t, "webhook", p.Name())
}

func TestWebhookSendJSON(t *testing.T) {
	var got webhookPayload
	var gotContentType, gotRunID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotRunID = r.Header.Get("X-Tempdb-Run-Id")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL+"/hook", "", nil)
	notif := model.Notification{
		Kind:      "ingest_run",
		Severity:  "warning",
		Title:     "Ingested 2 of 3 files into Attic_2025",
		Message:   "1 files failed",
		RunID:     "run-7",
		Subject:   "Attic_2025",
		Timestamp: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"site": "Home", "files": "3", "ingested": "2", "failed": "1"},
	}

	require.NoError(t, p.Send(context.Background(), notif))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "run-7", gotRunID)
	assert.Equal(t, "tempdb", got.Source)
	assert.Equal(t, "ingest_run", got.Event)
	assert.Equal(t, "partial", got.Outcome)
	assert.Equal(t, "run-7", got.RunID)
	assert.Equal(t, "Attic_2025", got.Deployment)
	assert.Equal(t, map[string]int{"files": 3, "ingested": 2, "failed": 1}, got.Counts)
	assert.Equal(t, "warning", got.Notification.Severity)
	assert.Equal(t, "Attic_2025", got.Notification.Subject)
	assert.Equal(t, "Home", got.Notification.Metadata["site"])
	assert.True(t, notif.Timestamp.Equal(got.Notification.Timestamp))
}

func TestWebhookCustomHeaders(t *testing.T) {
	var gotAuth, gotCustom string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	headers := map[string]string{
		"Authorization": "Bearer tok123",
		"X-Custom":      "my-value",
	}
	p := NewWebhook(srv.URL, "", headers)
	require.NoError(t, p.Send(context.Background(), model.Notification{Severity: "info", Title: "Test", Message: "test"}))

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "my-value", gotCustom)
}

func TestWebhookMethod(t *testing.T) {
	for _, tt := range []struct {
		configured, want string
	}{
		{"", http.MethodPost},
		{http.MethodPut, http.MethodPut},
	} {
		var gotMethod string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			w.WriteHeader(http.StatusNoContent)
		}))

		p := NewWebhook(srv.URL, tt.configured, nil)
		require.NoError(t, p.Send(context.Background(), model.Notification{Severity: "info", Title: "Test"}))
		assert.Equal(t, tt.want, gotMethod)
		srv.Close()
	}
}

func TestWebhookServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", nil)
	err := p.Send(context.Background(), model.Notification{Severity: "info", Title: "Test", Message: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookSendCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Send(ctx, model.Notification{Severity: "info", Title: "Test", Message: "cancelled"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook: send:")
}

func TestWebhookSendBadURL(t *testing.T) {
	p := NewWebhook("://invalid", "", nil)
	err := p.Send(context.Background(), model.Notification{Severity: "info", Title: "Test", Message: "bad url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook:")
}

func TestWebhookPayloadOutcome(t *testing.T) {
	tests := []struct {
		name   string
		notif  model.Notification
		want   string
		counts map[string]int
	}{
		{"stopped", model.Notification{Severity: "critical"}, "stopped", nil},
		{"complete", model.Notification{Severity: "info", Metadata: map[string]string{"ingested": "4"}}, "complete", map[string]int{"ingested": 4}},
		{"nothing new", model.Notification{Severity: "info", Metadata: map[string]string{"ingested": "0", "duplicates": "2"}}, "no_new_files", map[string]int{"ingested": 0, "duplicates": 2}},
		{"unknown severity", model.Notification{Severity: "debug"}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newWebhookPayload(tt.notif)
			assert.Equal(t, tt.want, p.Outcome)
			assert.Equal(t, tt.counts, p.Counts)
		})
	}
}
