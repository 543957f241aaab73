package twitch

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/vtftk/app/internal/circuitbreaker"
)

// MaxChatMessageLength is the platform's chat message size limit.
const MaxChatMessageLength = 500

const chatSendOp = "send_chat"

// ChatSender sends chat messages, splitting oversized messages into
// multiple sends and refusing sends while the platform is failing.
type ChatSender struct {
	client  Client
	breaker *circuitbreaker.CircuitBreaker
	log     *zap.SugaredLogger
}

func NewChatSender(client Client, breaker *circuitbreaker.CircuitBreaker, log *zap.SugaredLogger) *ChatSender {
	return &ChatSender{
		client:  client,
		breaker: breaker,
		log:     log,
	}
}

// SendChunked sends the message, split at the platform length limit.
// Chunks after a failed send are abandoned.
func (s *ChatSender) SendChunked(ctx context.Context, message string) error {
	for _, chunk := range chunkMessage(message, MaxChatMessageLength) {
		if s.breaker != nil {
			if err := s.breaker.Allow(chatSendOp); err != nil {
				return fmt.Errorf("chat send rejected: %w", err)
			}
		}

		err := s.client.SendChatMessage(ctx, chunk)
		if s.breaker != nil {
			if err != nil {
				s.breaker.RecordFailure(chatSendOp)
			} else {
				s.breaker.RecordSuccess(chatSendOp)
			}
		}
		if err != nil {
			return fmt.Errorf("send chat message: %w", err)
		}
	}
	return nil
}

// chunkMessage splits a message into rune-safe pieces of at most limit
// characters.
func chunkMessage(message string, limit int) []string {
	if utf8.RuneCountInString(message) <= limit {
		return []string{message}
	}

	var chunks []string
	runes := []rune(message)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
