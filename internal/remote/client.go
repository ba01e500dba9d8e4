package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"lookout/internal/logging"
	"lookout/internal/types"
)

const (
	defaultTimeout  = 15 * time.Second
	maxAttempts     = 3
	retryBaseDelay  = 500 * time.Millisecond
	defaultPageSize = 50
)

// Window selects the slice of a channel's history to fetch. Zero value
// asks for the service's default latest page.
type Window struct {
	Before string
	After  string
	Limit  int
}

// Client talks to the chat service's HTTP API. Credentials are passed per
// call; one client serves any number of accounts.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

func New(baseURL string, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
}

type identityPayload struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	AvatarURL     string `json:"avatar_url"`
}

type workspacePayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
}

type channelPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        int    `json:"type"`
	WorkspaceID string `json:"workspace_id"`
	LastMessage string `json:"last_message_id"`
}

type authorPayload struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Bot       bool   `json:"bot"`
}

type messagePayload struct {
	ID          string             `json:"id"`
	ChannelID   string             `json:"channel_id"`
	Author      authorPayload      `json:"author"`
	WebhookID   string             `json:"webhook_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Content     string             `json:"content"`
	Embeds      []types.Embed      `json:"embeds"`
	Attachments []types.Attachment `json:"attachments"`
}

// Identify resolves a credential to the account it belongs to.
func (c *Client) Identify(ctx context.Context, credential string) (types.Identity, error) {
	var payload identityPayload
	if err := c.doJSON(ctx, credential, "/v1/users/me", nil, &payload); err != nil {
		return types.Identity{}, err
	}
	return types.Identity{
		ID:            payload.ID,
		Username:      payload.Username,
		Discriminator: payload.Discriminator,
		AvatarURL:     payload.AvatarURL,
	}, nil
}

// ListWorkspaces returns every workspace the account is a member of.
func (c *Client) ListWorkspaces(ctx context.Context, credential string) ([]types.Workspace, error) {
	var payload []workspacePayload
	if err := c.doJSON(ctx, credential, "/v1/users/me/workspaces", nil, &payload); err != nil {
		return nil, err
	}
	out := make([]types.Workspace, 0, len(payload))
	for _, ws := range payload {
		out = append(out, types.Workspace{ID: ws.ID, Name: ws.Name, IconURL: ws.IconURL})
	}
	return out, nil
}

// ListWorkspaceChannels returns the text channels of one workspace.
func (c *Client) ListWorkspaceChannels(ctx context.Context, credential, workspaceID string) ([]types.Channel, error) {
	path := "/v1/workspaces/" + url.PathEscape(workspaceID) + "/channels"
	var payload []channelPayload
	if err := c.doJSON(ctx, credential, path, nil, &payload); err != nil {
		return nil, err
	}
	return decodeChannels(payload), nil
}

// ListDirectChannels returns the account's direct and group conversations.
func (c *Client) ListDirectChannels(ctx context.Context, credential string) ([]types.Channel, error) {
	var payload []channelPayload
	if err := c.doJSON(ctx, credential, "/v1/users/me/channels", nil, &payload); err != nil {
		return nil, err
	}
	return decodeChannels(payload), nil
}

// ListMessages fetches one window of a channel's history, in the service's
// native newest-first order.
func (c *Client) ListMessages(ctx context.Context, credential, channelID string, w Window) ([]types.Message, error) {
	q := url.Values{}
	if w.Before != "" {
		q.Set("before", w.Before)
	}
	if w.After != "" {
		q.Set("after", w.After)
	}
	limit := w.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	q.Set("limit", strconv.Itoa(limit))

	path := "/v1/channels/" + url.PathEscape(channelID) + "/messages"
	var payload []messagePayload
	if err := c.doJSON(ctx, credential, path, q, &payload); err != nil {
		return nil, err
	}
	out := make([]types.Message, 0, len(payload))
	for _, m := range payload {
		out = append(out, types.Message{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			Author: types.Author{
				ID:        m.Author.ID,
				Name:      m.Author.Username,
				AvatarURL: m.Author.AvatarURL,
				Webhook:   m.WebhookID != "" || m.Author.Bot,
			},
			Timestamp:   m.Timestamp,
			Body:        m.Content,
			Embeds:      m.Embeds,
			Attachments: m.Attachments,
		})
	}
	return out, nil
}

func decodeChannels(payload []channelPayload) []types.Channel {
	out := make([]types.Channel, 0, len(payload))
	for _, ch := range payload {
		kind, ok := channelKind(ch.Type)
		if !ok {
			// Voice, category and other unfetchable channel types.
			continue
		}
		out = append(out, types.Channel{
			ID:            ch.ID,
			Name:          ch.Name,
			Kind:          kind,
			WorkspaceID:   ch.WorkspaceID,
			LastMessageID: ch.LastMessage,
		})
	}
	return out
}

func channelKind(wire int) (types.ChannelKind, bool) {
	switch wire {
	case 0:
		return types.ChannelText, true
	case 1:
		return types.ChannelDM, true
	case 3:
		return types.ChannelGroup, true
	}
	return "", false
}

// doJSON issues one GET with retry. 429 waits out Retry-After; 5xx and
// transport failures back off briefly. 4xx other than 429 is final.
func (c *Client) doJSON(ctx context.Context, credential, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	requestID := uuid.NewString()
	log := c.log.With(logging.F("request_id", requestID), logging.F("path", path))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := retryDelay(lastErr, attempt)
			log.Debug("retrying request", logging.F("attempt", attempt), logging.F("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = c.doOnce(ctx, credential, requestID, target, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, credential, requestID, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = resp.Status
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

func retryable(err error) bool {
	apiErr := asAPIError(err)
	if apiErr == nil {
		// Transport-level failure.
		return true
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}

func retryDelay(err error, attempt int) time.Duration {
	if apiErr := asAPIError(err); apiErr != nil && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter
	}
	return retryBaseDelay * time.Duration(attempt-1)
}
