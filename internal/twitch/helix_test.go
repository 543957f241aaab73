package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newHelixServer(t *testing.T, handler http.HandlerFunc) (*HelixClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewHelixClient("client-id", "token", WithBaseURL(srv.URL))
	return client, srv
}

func TestHelixClient_BroadcasterIDMemoized(t *testing.T) {
	calls := 0
	client, _ := newHelixServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Client-Id"); got != "client-id" {
			t.Errorf("expected client id header, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		calls++
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "100", "login": "streamer"}},
		})
	})

	for i := 0; i < 3; i++ {
		id, err := client.BroadcasterID(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "100" {
			t.Fatalf("expected broadcaster id 100, got %q", id)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func TestHelixClient_NoToken(t *testing.T) {
	client := NewHelixClient("client-id", "")

	_, err := client.BroadcasterID(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestHelixClient_ModeratorListPaginates(t *testing.T) {
	client, _ := newHelixServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"id": "100"}},
			})
		case "/moderation/moderators":
			if r.URL.Query().Get("broadcaster_id") != "100" {
				t.Errorf("expected broadcaster_id=100, got %q", r.URL.Query().Get("broadcaster_id"))
			}
			if r.URL.Query().Get("after") == "" {
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]string{
						{"user_id": "1", "user_login": "alice", "user_name": "Alice"},
					},
					"pagination": map[string]string{"cursor": "next"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{
					{"user_id": "2", "user_login": "bob", "user_name": "Bob"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	mods, err := client.GetModeratorList(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mods) != 2 {
		t.Fatalf("expected 2 moderators, got %d", len(mods))
	}
	if mods[0].ID != "1" || mods[0].DisplayName != "Alice" {
		t.Errorf("unexpected first moderator %+v", mods[0])
	}
	if mods[1].ID != "2" || mods[1].Name != "bob" {
		t.Errorf("unexpected second moderator %+v", mods[1])
	}
}

func TestHelixClient_SendChatMessage(t *testing.T) {
	var sent map[string]string
	client, _ := newHelixServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{{"id": "100"}},
			})
		case "/chat/messages":
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
				t.Errorf("decode body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	if err := client.SendChatMessage(context.Background(), "hello chat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent["message"] != "hello chat" {
		t.Errorf("expected message body, got %v", sent)
	}
	if sent["broadcaster_id"] != "100" || sent["sender_id"] != "100" {
		t.Errorf("expected broadcaster as sender, got %v", sent)
	}
}

func TestHelixClient_UnauthorizedMapsToSentinel(t *testing.T) {
	client, _ := newHelixServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.BroadcasterID(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestHelixClient_ChannelEmotes(t *testing.T) {
	client, _ := newHelixServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/emotes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":     "e1",
					"name":   "streamHype",
					"images": map[string]string{"url_4x": "https://cdn/e1/4x.png"},
				},
			},
		})
	})

	emotes, err := client.GetChannelEmotes(context.Background(), "100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emotes) != 1 {
		t.Fatalf("expected 1 emote, got %d", len(emotes))
	}
	if emotes[0].Name != "streamHype" || emotes[0].ImageURL != "https://cdn/e1/4x.png" {
		t.Errorf("unexpected emote %+v", emotes[0])
	}
}
