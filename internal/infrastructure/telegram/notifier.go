package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LinkScanner/internal/ports"
)

const defaultBaseURL = "https://api.telegram.org"

// maxMessageLen is the Bot API limit for one sendMessage text.
const maxMessageLen = 4096

// Notifier sends digests to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// Option customises a Notifier.
type Option func(*Notifier)

// WithBaseURL points the notifier at another Bot API host.
func WithBaseURL(base string) Option {
	return func(n *Notifier) { n.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient swaps the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, opts ...Option) *Notifier {
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ErrMisconfigured is returned when the bot token or chat is missing.
var ErrMisconfigured = errors.New("telegram: bot token and chat id are required")

// apiReply is the envelope every Bot API method answers with.
type apiReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// PublishDigest sends the broken-link digest as a plain-text message, cut to
// the Bot API limit. Link previews are disabled since every line is a URL.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return ErrMisconfigured
	}

	form := url.Values{
		"chat_id":                  {n.chatID},
		"text":                     {truncate(digest, maxMessageLen)},
		"disable_web_page_preview": {"true"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/bot"+n.botToken+"/sendMessage", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send digest to chat %s: %w", n.chatID, err)
	}
	defer resp.Body.Close()

	var reply apiReply
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&reply)
	if resp.StatusCode != http.StatusOK || (decodeErr == nil && !reply.OK) {
		if reply.Description != "" {
			return fmt.Errorf("telegram rejected digest (%s): %s", resp.Status, reply.Description)
		}
		return fmt.Errorf("telegram rejected digest: %s", resp.Status)
	}

	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
