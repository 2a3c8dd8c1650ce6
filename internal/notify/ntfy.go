package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/model"
)

// NtfyProvider sends notifications via an ntfy server.
type NtfyProvider struct {
	url    string
	topic  string
	client *http.Client
}

// NewNtfy creates a new ntfy notification provider.
func NewNtfy(url, topic string) *NtfyProvider {
	return &NtfyProvider{
		url:    strings.TrimRight(url, "/"),
		topic:  topic,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NtfyProvider) Name() string { return "ntfy" }

func (n *NtfyProvider) Send(ctx context.Context, notif model.Notification) error {
	endpoint := fmt.Sprintf("%s/%s", n.url, n.topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(ntfyBody(notif)))
	if err != nil {
		return fmt.Errorf("ntfy: build request: %w", err)
	}

	req.Header.Set("Title", notif.Title)
	req.Header.Set("Priority", ntfyPriority(notif))
	req.Header.Set("Tags", ntfyTags(notif))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ntfyBody appends the run id to the message so it can be matched against
// the files table.
func ntfyBody(n model.Notification) string {
	if n.RunID == "" {
		return n.Message
	}
	return n.Message + "\nrun " + n.RunID
}

func ntfyPriority(n model.Notification) string {
	switch outcome(n) {
	case "stopped":
		return "5"
	case "partial":
		return "4"
	case "complete":
		return "2"
	case "no_new_files":
		return "1"
	default:
		return "3"
	}
}

func ntfyTags(n model.Notification) string {
	tags := []string{"thermometer"}
	switch o := outcome(n); o {
	case "stopped":
		tags = append(tags, "rotating_light", o)
	case "partial":
		tags = append(tags, "warning", o)
	case "complete":
		tags = append(tags, "white_check_mark", o)
	case "no_new_files":
		tags = append(tags, "zzz", o)
	}
	if n.Kind != "" {
		tags = append(tags, n.Kind)
	}
	return strings.Join(tags, ",")
}
