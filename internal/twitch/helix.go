package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/vtftk/app/internal/domain"
)

// ErrNotAuthenticated is returned when the client has no usable
// credentials.
var ErrNotAuthenticated = errors.New("twitch: not authenticated")

const helixBaseURL = "https://api.twitch.tv/helix"

// HelixClient talks to the Twitch Helix API with a user access token.
type HelixClient struct {
	clientID    string
	accessToken string
	baseURL     string
	client      *http.Client

	mu            sync.Mutex
	broadcasterID string
}

type HelixOption func(*HelixClient)

// WithBaseURL overrides the API base URL, for tests.
func WithBaseURL(baseURL string) HelixOption {
	return func(c *HelixClient) { c.baseURL = baseURL }
}

func NewHelixClient(clientID, accessToken string, opts ...HelixOption) *HelixClient {
	c := &HelixClient{
		clientID:    clientID,
		accessToken: accessToken,
		baseURL:     helixBaseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type userData struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	UserID      string `json:"user_id"`
	UserLogin   string `json:"user_login"`
	UserName    string `json:"user_name"`
}

type helixPage struct {
	Data       []userData `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

// BroadcasterID resolves and memoizes the token owner's user id.
func (c *HelixClient) BroadcasterID(ctx context.Context) (string, error) {
	if c.accessToken == "" {
		return "", ErrNotAuthenticated
	}

	c.mu.Lock()
	cached := c.broadcasterID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var page helixPage
	if err := c.get(ctx, "/users", nil, &page); err != nil {
		return "", err
	}
	if len(page.Data) == 0 {
		return "", ErrNotAuthenticated
	}

	c.mu.Lock()
	c.broadcasterID = page.Data[0].ID
	c.mu.Unlock()
	return page.Data[0].ID, nil
}

func (c *HelixClient) IsFollower(ctx context.Context, userID string) (bool, error) {
	broadcasterID, err := c.BroadcasterID(ctx)
	if err != nil {
		return false, err
	}

	query := url.Values{}
	query.Set("broadcaster_id", broadcasterID)
	query.Set("user_id", userID)

	var page helixPage
	if err := c.get(ctx, "/channels/followers", query, &page); err != nil {
		return false, err
	}
	return len(page.Data) > 0, nil
}

func (c *HelixClient) GetModeratorList(ctx context.Context) ([]domain.TwitchUser, error) {
	return c.listUsers(ctx, "/moderation/moderators")
}

func (c *HelixClient) GetVipList(ctx context.Context) ([]domain.TwitchUser, error) {
	return c.listUsers(ctx, "/channels/vips")
}

// listUsers pages through a broadcaster-scoped user list endpoint.
func (c *HelixClient) listUsers(ctx context.Context, path string) ([]domain.TwitchUser, error) {
	broadcasterID, err := c.BroadcasterID(ctx)
	if err != nil {
		return nil, err
	}

	var users []domain.TwitchUser
	cursor := ""
	for {
		query := url.Values{}
		query.Set("broadcaster_id", broadcasterID)
		query.Set("first", "100")
		if cursor != "" {
			query.Set("after", cursor)
		}

		var page helixPage
		if err := c.get(ctx, path, query, &page); err != nil {
			return nil, err
		}
		for _, data := range page.Data {
			users = append(users, domain.TwitchUser{
				ID:          data.UserID,
				Name:        data.UserLogin,
				DisplayName: data.UserName,
			})
		}

		cursor = page.Pagination.Cursor
		if cursor == "" {
			return users, nil
		}
	}
}

func (c *HelixClient) SendChatMessage(ctx context.Context, text string) error {
	broadcasterID, err := c.BroadcasterID(ctx)
	if err != nil {
		return err
	}

	body := map[string]string{
		"broadcaster_id": broadcasterID,
		"sender_id":      broadcasterID,
		"message":        text,
	}
	return c.post(ctx, "/chat/messages", body)
}

type emoteData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Images struct {
		URL4x string `json:"url_4x"`
		URL2x string `json:"url_2x"`
		URL1x string `json:"url_1x"`
	} `json:"images"`
}

func (c *HelixClient) GetChannelEmotes(ctx context.Context, userID string) ([]Emote, error) {
	query := url.Values{}
	query.Set("broadcaster_id", userID)

	var page struct {
		Data []emoteData `json:"data"`
	}
	if err := c.get(ctx, "/chat/emotes", query, &page); err != nil {
		return nil, err
	}

	emotes := make([]Emote, len(page.Data))
	for i, data := range page.Data {
		imageURL := data.Images.URL4x
		if imageURL == "" {
			imageURL = data.Images.URL1x
		}
		emotes[i] = Emote{ID: data.ID, Name: data.Name, ImageURL: imageURL}
	}
	return emotes, nil
}

func (c *HelixClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *HelixClient) post(ctx context.Context, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *HelixClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Client-Id", c.clientID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrNotAuthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twitch: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
