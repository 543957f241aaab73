package script

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

type fakeHost struct {
	sent []string
	err  error
}

func (f *fakeHost) SendChatMessage(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestExecute_SendChat(t *testing.T) {
	host := &fakeHost{}
	e := NewLuaExecutor(host, zap.NewNop().Sugar())

	err := e.Execute(context.Background(), `api.send_chat("hello chat")`, Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.sent) != 1 || host.sent[0] != "hello chat" {
		t.Fatalf("expected one chat message, got %v", host.sent)
	}
}

func TestExecute_EventContextExposed(t *testing.T) {
	host := &fakeHost{}
	e := NewLuaExecutor(host, zap.NewNop().Sugar())

	sctx := Context{
		User: &domain.TwitchUser{ID: "u1", Name: "alice", DisplayName: "Alice"},
		Input: domain.EventInput{
			Kind: domain.InputBits,
			Bits: 250,
		},
	}
	source := `api.send_chat(event.user.display_name .. " cheered " .. event.input.bits)`

	if err := e.Execute(context.Background(), source, sctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.sent) != 1 || host.sent[0] != "Alice cheered 250" {
		t.Fatalf("unexpected chat output: %v", host.sent)
	}
}

func TestExecute_CommandArgs(t *testing.T) {
	host := &fakeHost{}
	e := NewLuaExecutor(host, zap.NewNop().Sugar())

	sctx := Context{
		User:    &domain.TwitchUser{ID: "u1", Name: "alice"},
		Input:   domain.EventInput{Kind: domain.InputChat, Message: "!so bob extra"},
		Message: "bob extra",
		Args:    []string{"bob", "extra"},
	}
	source := `api.send_chat("first arg: " .. event.args[1])`

	if err := e.Execute(context.Background(), source, sctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.sent) != 1 || host.sent[0] != "first arg: bob" {
		t.Fatalf("unexpected chat output: %v", host.sent)
	}
}

func TestExecute_SyntaxErrorReported(t *testing.T) {
	e := NewLuaExecutor(&fakeHost{}, zap.NewNop().Sugar())

	err := e.Execute(context.Background(), `this is not lua (`, Context{})
	if err == nil {
		t.Fatal("expected error for invalid script")
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	host := &fakeHost{}
	e := NewLuaExecutor(host, zap.NewNop().Sugar())

	if err := e.Execute(ctx, `api.send_chat("never")`, Context{}); err == nil {
		t.Fatal("expected cancelled-context error")
	}
	if len(host.sent) != 0 {
		t.Fatalf("script should not run after cancellation, sent %v", host.sent)
	}
}
