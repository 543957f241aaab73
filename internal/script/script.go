// Package script runs user-authored Lua automation scripts with the
// triggering event context exposed as globals.
package script

import (
	"context"
	"fmt"

	"github.com/Shopify/go-lua"
	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

// Host is the side-effect surface scripts may call into.
type Host interface {
	SendChatMessage(ctx context.Context, text string) error
}

// Context is the event context handed to one script run. Message and
// Args are only set for chat-command scripts.
type Context struct {
	User    *domain.TwitchUser
	Input   domain.EventInput
	Message string
	Args    []string
}

// Executor runs one script to completion.
type Executor interface {
	Execute(ctx context.Context, source string, sctx Context) error
}

// LuaExecutor runs scripts on a fresh Lua state per execution. Scripts
// see an `event` global describing the trigger and an `api` global for
// side effects.
type LuaExecutor struct {
	host Host
	log  *zap.SugaredLogger
}

func NewLuaExecutor(host Host, log *zap.SugaredLogger) *LuaExecutor {
	return &LuaExecutor{host: host, log: log}
}

func (e *LuaExecutor) Execute(ctx context.Context, source string, sctx Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := lua.NewState()
	lua.OpenLibraries(state)

	pushEventTable(state, sctx)
	state.SetGlobal("event")

	e.registerAPI(ctx, state)

	if err := lua.DoString(state, source); err != nil {
		return fmt.Errorf("run script: %w", err)
	}
	return nil
}

func (e *LuaExecutor) registerAPI(ctx context.Context, state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "send_chat", Function: func(state *lua.State) int {
			text := lua.CheckString(state, 1)
			if err := e.host.SendChatMessage(ctx, text); err != nil {
				e.log.Errorw("script: send_chat failed", "error", err)
				state.PushBoolean(false)
				return 1
			}
			state.PushBoolean(true)
			return 1
		}},
		{Name: "log", Function: func(state *lua.State) int {
			e.log.Infow("script log", "message", lua.CheckString(state, 1))
			return 0
		}},
	}, 0)
	state.SetGlobal("api")
}

// pushEventTable leaves the event table on top of the stack.
func pushEventTable(state *lua.State, sctx Context) {
	state.NewTable()

	if sctx.User != nil {
		state.NewTable()
		setStringField(state, "id", sctx.User.ID)
		setStringField(state, "name", sctx.User.Name)
		setStringField(state, "display_name", sctx.User.DisplayName)
		state.SetField(-2, "user")
	}

	state.NewTable()
	setStringField(state, "kind", string(sctx.Input.Kind))
	setStringField(state, "reward_id", sctx.Input.RewardID)
	setStringField(state, "reward_name", sctx.Input.RewardName)
	setIntField(state, "reward_cost", sctx.Input.RewardCost)
	setStringField(state, "user_input", sctx.Input.UserInput)
	setIntField(state, "bits", sctx.Input.Bits)
	setStringField(state, "tier", string(sctx.Input.Tier))
	setIntField(state, "total", sctx.Input.Total)
	setIntField(state, "cumulative_months", sctx.Input.CumulativeMonths)
	setIntField(state, "duration_months", sctx.Input.DurationMonths)
	setStringField(state, "message", sctx.Input.Message)
	setIntField(state, "viewers", sctx.Input.Viewers)
	setIntField(state, "duration_seconds", sctx.Input.DurationSeconds)
	state.SetField(-2, "input")

	if sctx.Message != "" {
		setStringField(state, "message", sctx.Message)
	}
	if len(sctx.Args) > 0 {
		state.NewTable()
		for i, arg := range sctx.Args {
			state.PushString(arg)
			state.RawSetInt(-2, i+1)
		}
		state.SetField(-2, "args")
	}
}

func setStringField(state *lua.State, name, value string) {
	if value == "" {
		return
	}
	state.PushString(value)
	state.SetField(-2, name)
}

func setIntField(state *lua.State, name string, value int64) {
	if value == 0 {
		return
	}
	state.PushInteger(int(value))
	state.SetField(-2, name)
}
