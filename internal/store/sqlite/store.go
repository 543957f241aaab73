// Package sqlite persists automations, assets, executions, and chat
// history in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vtftk/app/internal/domain"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Store implements the record-store interfaces consumed by the matcher,
// gate, outcome resolver, dispatcher, retention cleaner, and API.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path and applies the schema.
// Pass ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent dispatch.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// CreateEvent inserts a new event automation.
func (s *Store) CreateEvent(ctx context.Context, event domain.Event) error {
	config, err := json.Marshal(event.Config)
	if err != nil {
		return fmt.Errorf("encode event config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertEvent,
		event.ID.String(),
		event.Enabled,
		event.Name,
		string(event.Config.Trigger.Type),
		string(config),
		event.Order,
		toMillis(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// UpdateEvent replaces the stored event's mutable fields.
func (s *Store) UpdateEvent(ctx context.Context, event domain.Event) error {
	config, err := json.Marshal(event.Config)
	if err != nil {
		return fmt.Errorf("encode event config: %w", err)
	}

	res, err := s.db.ExecContext(ctx, queryUpdateEvent,
		event.Enabled,
		event.Name,
		string(event.Config.Trigger.Type),
		string(config),
		event.Order,
		event.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, queryDeleteEvent, id.String())
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return requireAffected(res)
}

// GetEventByID returns a single event automation, enabled or not.
func (s *Store) GetEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	row := s.db.QueryRowContext(ctx, queryGetEventByID, id.String())
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, ErrNotFound
	}
	return event, err
}

// GetEventsByTriggerType returns every enabled event automation with the
// given trigger kind.
func (s *Store) GetEventsByTriggerType(ctx context.Context, trigger domain.TriggerType) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, queryGetEventsByTriggerType, string(trigger))
	if err != nil {
		return nil, fmt.Errorf("query events by trigger: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, queryListEvents)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var event domain.Event
	var id, config string
	var createdAt int64

	if err := row.Scan(&id, &event.Enabled, &event.Name, &config, &event.Order, &createdAt); err != nil {
		return domain.Event{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("parse event id: %w", err)
	}
	event.ID = parsed

	if err := json.Unmarshal([]byte(config), &event.Config); err != nil {
		return domain.Event{}, fmt.Errorf("decode event config: %w", err)
	}
	event.CreatedAt = fromMillis(createdAt)
	return event, nil
}

func collectEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CreateCommand inserts a command automation with its aliases.
func (s *Store) CreateCommand(ctx context.Context, command domain.Command) error {
	outcome, cooldown, err := encodeCommandConfig(command)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, queryInsertCommand,
		command.ID.String(),
		command.Enabled,
		command.Name,
		command.Command,
		outcome,
		cooldown,
		string(command.RequireRole),
		command.Order,
		toMillis(command.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return s.replaceAliases(ctx, command.ID, command.Aliases)
}

// UpdateCommand replaces the stored command's mutable fields and aliases.
func (s *Store) UpdateCommand(ctx context.Context, command domain.Command) error {
	outcome, cooldown, err := encodeCommandConfig(command)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, queryUpdateCommand,
		command.Enabled,
		command.Name,
		command.Command,
		outcome,
		cooldown,
		string(command.RequireRole),
		command.Order,
		command.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update command: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return s.replaceAliases(ctx, command.ID, command.Aliases)
}

func (s *Store) DeleteCommand(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, queryDeleteCommand, id.String())
	if err != nil {
		return fmt.Errorf("delete command: %w", err)
	}
	return requireAffected(res)
}

func encodeCommandConfig(command domain.Command) (outcome, cooldown string, err error) {
	outcomeRaw, err := json.Marshal(command.Outcome)
	if err != nil {
		return "", "", fmt.Errorf("encode command outcome: %w", err)
	}
	cooldownRaw, err := json.Marshal(command.Cooldown)
	if err != nil {
		return "", "", fmt.Errorf("encode command cooldown: %w", err)
	}
	return string(outcomeRaw), string(cooldownRaw), nil
}

func (s *Store) replaceAliases(ctx context.Context, commandID uuid.UUID, aliases []string) error {
	if _, err := s.db.ExecContext(ctx, queryDeleteCommandAliases, commandID.String()); err != nil {
		return fmt.Errorf("clear command aliases: %w", err)
	}
	for i, alias := range aliases {
		_, err := s.db.ExecContext(ctx, queryInsertCommandAlias,
			uuid.NewString(), commandID.String(), alias, i)
		if err != nil {
			return fmt.Errorf("insert command alias: %w", err)
		}
	}
	return nil
}

// GetCommandByID returns a single command automation with its aliases.
func (s *Store) GetCommandByID(ctx context.Context, id uuid.UUID) (domain.Command, error) {
	row := s.db.QueryRowContext(ctx, queryGetCommandByID, id.String())
	command, err := scanCommand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Command{}, ErrNotFound
	}
	if err != nil {
		return domain.Command{}, err
	}
	return s.attachAliases(ctx, command)
}

// GetCommandsByTrigger returns every enabled command whose trigger text
// or alias equals the given lower-cased token.
func (s *Store) GetCommandsByTrigger(ctx context.Context, token string) ([]domain.Command, error) {
	token = strings.ToLower(token)
	rows, err := s.db.QueryContext(ctx, queryGetCommandsByTrigger, token, token)
	if err != nil {
		return nil, fmt.Errorf("query commands by trigger: %w", err)
	}
	defer rows.Close()

	commands, err := collectCommands(rows)
	if err != nil {
		return nil, err
	}
	for i := range commands {
		commands[i], err = s.attachAliases(ctx, commands[i])
		if err != nil {
			return nil, err
		}
	}
	return commands, nil
}

func (s *Store) ListCommands(ctx context.Context) ([]domain.Command, error) {
	rows, err := s.db.QueryContext(ctx, queryListCommands)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	commands, err := collectCommands(rows)
	if err != nil {
		return nil, err
	}
	for i := range commands {
		commands[i], err = s.attachAliases(ctx, commands[i])
		if err != nil {
			return nil, err
		}
	}
	return commands, nil
}

func scanCommand(row rowScanner) (domain.Command, error) {
	var command domain.Command
	var id, outcome, cooldown, role string
	var createdAt int64

	err := row.Scan(&id, &command.Enabled, &command.Name, &command.Command,
		&outcome, &cooldown, &role, &command.Order, &createdAt)
	if err != nil {
		return domain.Command{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Command{}, fmt.Errorf("parse command id: %w", err)
	}
	command.ID = parsed

	if err := json.Unmarshal([]byte(outcome), &command.Outcome); err != nil {
		return domain.Command{}, fmt.Errorf("decode command outcome: %w", err)
	}
	if err := json.Unmarshal([]byte(cooldown), &command.Cooldown); err != nil {
		return domain.Command{}, fmt.Errorf("decode command cooldown: %w", err)
	}
	command.RequireRole = domain.MinimumRole(role)
	command.CreatedAt = fromMillis(createdAt)
	return command, nil
}

func collectCommands(rows *sql.Rows) ([]domain.Command, error) {
	var commands []domain.Command
	for rows.Next() {
		command, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, command)
	}
	return commands, rows.Err()
}

func (s *Store) attachAliases(ctx context.Context, command domain.Command) (domain.Command, error) {
	rows, err := s.db.QueryContext(ctx, queryGetCommandAliases, command.ID.String())
	if err != nil {
		return domain.Command{}, fmt.Errorf("query command aliases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return domain.Command{}, err
		}
		command.Aliases = append(command.Aliases, alias)
	}
	return command, rows.Err()
}

// CreateExecution appends one execution record.
func (s *Store) CreateExecution(ctx context.Context, exec domain.Execution) error {
	input, err := json.Marshal(exec.Input)
	if err != nil {
		return fmt.Errorf("encode execution input: %w", err)
	}

	var user sql.NullString
	if exec.User != nil {
		raw, err := json.Marshal(exec.User)
		if err != nil {
			return fmt.Errorf("encode execution user: %w", err)
		}
		user = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, queryInsertExecution,
		exec.ID.String(),
		exec.AutomationID.String(),
		string(exec.Kind),
		user,
		string(input),
		toMillis(exec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetLastExecution returns the execution at the given offset from the
// most recent for an automation, or nil past the end of history.
func (s *Store) GetLastExecution(ctx context.Context, automationID uuid.UUID, offset int64) (*domain.Execution, error) {
	row := s.db.QueryRowContext(ctx, queryGetLastExecution, automationID.String(), offset)
	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// ListExecutions returns execution history for an automation filtered by
// the query's date range, newest first.
func (s *Store) ListExecutions(ctx context.Context, automationID uuid.UUID, query domain.ExecutionsQuery) ([]domain.Execution, error) {
	start := int64(0)
	if query.StartDate != nil {
		start = toMillis(*query.StartDate)
	}
	end := toMillis(time.Now())
	if query.EndDate != nil {
		end = toMillis(*query.EndDate)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, queryListExecutions,
		automationID.String(), start, end, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	return execs, rows.Err()
}

// DeleteExecutionsBefore removes execution records older than cutoff and
// reports how many were removed.
func (s *Store) DeleteExecutionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, queryDeleteExecutionsBefore, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete executions: %w", err)
	}
	return res.RowsAffected()
}

func scanExecution(row rowScanner) (domain.Execution, error) {
	var exec domain.Execution
	var id, automationID, kind, input string
	var user sql.NullString
	var createdAt int64

	if err := row.Scan(&id, &automationID, &kind, &user, &input, &createdAt); err != nil {
		return domain.Execution{}, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("parse execution id: %w", err)
	}
	parsedAutomation, err := uuid.Parse(automationID)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("parse automation id: %w", err)
	}

	exec.ID = parsedID
	exec.AutomationID = parsedAutomation
	exec.Kind = domain.AutomationKind(kind)
	exec.CreatedAt = fromMillis(createdAt)

	if err := json.Unmarshal([]byte(input), &exec.Input); err != nil {
		return domain.Execution{}, fmt.Errorf("decode execution input: %w", err)
	}
	if user.Valid {
		exec.User = &domain.TwitchUser{}
		if err := json.Unmarshal([]byte(user.String), exec.User); err != nil {
			return domain.Execution{}, fmt.Errorf("decode execution user: %w", err)
		}
	}
	return exec, nil
}

// CreateItem inserts an item with its impact sound references.
func (s *Store) CreateItem(ctx context.Context, item domain.ItemWithImpactSounds) error {
	image, err := json.Marshal(item.Image)
	if err != nil {
		return fmt.Errorf("encode item image: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsertItem,
		item.ID.String(), item.Name, string(image), item.Order, toMillis(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, queryReplaceItemImpactSounds, item.ID.String()); err != nil {
		return fmt.Errorf("clear impact sounds: %w", err)
	}
	for _, soundID := range item.ImpactSoundIDs {
		_, err := s.db.ExecContext(ctx, queryInsertItemImpactSound,
			item.ID.String(), soundID.String())
		if err != nil {
			return fmt.Errorf("insert impact sound: %w", err)
		}
	}
	return nil
}

// GetItemsByIDsWithImpactSounds resolves items and their attached impact
// sound ids. Unknown ids are silently absent from the result.
func (s *Store) GetItemsByIDsWithImpactSounds(ctx context.Context, ids []uuid.UUID) ([]domain.ItemWithImpactSounds, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := idArgs(ids)
	query := fmt.Sprintf(queryGetItemsByIDs, placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.ItemWithImpactSounds
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var item domain.ItemWithImpactSounds
		var id, image string
		var createdAt int64

		if err := rows.Scan(&id, &item.Name, &image, &item.Order, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse item id: %w", err)
		}
		item.ID = parsed
		item.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(image), &item.Image); err != nil {
			return nil, fmt.Errorf("decode item image: %w", err)
		}

		index[item.ID] = len(items)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	soundQuery := fmt.Sprintf(queryGetItemImpactSounds, placeholders(len(ids)))
	soundRows, err := s.db.QueryContext(ctx, soundQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query impact sounds: %w", err)
	}
	defer soundRows.Close()

	for soundRows.Next() {
		var itemID, soundID string
		if err := soundRows.Scan(&itemID, &soundID); err != nil {
			return nil, err
		}
		parsedItem, err := uuid.Parse(itemID)
		if err != nil {
			return nil, fmt.Errorf("parse item id: %w", err)
		}
		parsedSound, err := uuid.Parse(soundID)
		if err != nil {
			return nil, fmt.Errorf("parse sound id: %w", err)
		}
		if i, ok := index[parsedItem]; ok {
			items[i].ImpactSoundIDs = append(items[i].ImpactSoundIDs, parsedSound)
		}
	}
	return items, soundRows.Err()
}

func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, queryListItems)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		var id, image string
		var createdAt int64
		if err := rows.Scan(&id, &item.Name, &image, &item.Order, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse item id: %w", err)
		}
		item.ID = parsed
		item.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(image), &item.Image); err != nil {
			return nil, fmt.Errorf("decode item image: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CreateSound inserts a sound asset.
func (s *Store) CreateSound(ctx context.Context, sound domain.Sound) error {
	_, err := s.db.ExecContext(ctx, queryInsertSound,
		sound.ID.String(), sound.Name, sound.Src, sound.Volume, sound.Order, toMillis(sound.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert sound: %w", err)
	}
	return nil
}

// GetSoundByID resolves a single sound.
func (s *Store) GetSoundByID(ctx context.Context, id uuid.UUID) (domain.Sound, error) {
	row := s.db.QueryRowContext(ctx, queryGetSoundByID, id.String())
	sound, err := scanSound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sound{}, ErrNotFound
	}
	return sound, err
}

// GetSoundsByIDs resolves a set of sounds. Unknown ids are silently
// absent from the result.
func (s *Store) GetSoundsByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Sound, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(queryGetSoundsByIDs, placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query sounds: %w", err)
	}
	defer rows.Close()

	var sounds []domain.Sound
	for rows.Next() {
		sound, err := scanSound(rows)
		if err != nil {
			return nil, err
		}
		sounds = append(sounds, sound)
	}
	return sounds, rows.Err()
}

func (s *Store) ListSounds(ctx context.Context) ([]domain.Sound, error) {
	rows, err := s.db.QueryContext(ctx, queryListSounds)
	if err != nil {
		return nil, fmt.Errorf("list sounds: %w", err)
	}
	defer rows.Close()

	var sounds []domain.Sound
	for rows.Next() {
		sound, err := scanSound(rows)
		if err != nil {
			return nil, err
		}
		sounds = append(sounds, sound)
	}
	return sounds, rows.Err()
}

func scanSound(row rowScanner) (domain.Sound, error) {
	var sound domain.Sound
	var id string
	var createdAt int64

	if err := row.Scan(&id, &sound.Name, &sound.Src, &sound.Volume, &sound.Order, &createdAt); err != nil {
		return domain.Sound{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.Sound{}, fmt.Errorf("parse sound id: %w", err)
	}
	sound.ID = parsed
	sound.CreatedAt = fromMillis(createdAt)
	return sound, nil
}

// InsertChatMessage records one chat message for timer guards and
// retention-bounded history.
func (s *Store) InsertChatMessage(ctx context.Context, messageID, userID, message string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, queryInsertChatMessage,
		messageID, userID, message, toMillis(createdAt))
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// CountChatMessagesSince counts chat messages received after the given
// instant.
func (s *Store) CountChatMessagesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, queryCountChatMessagesSince, toMillis(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chat messages: %w", err)
	}
	return count, nil
}

// DeleteChatHistoryBefore removes chat messages older than cutoff.
func (s *Store) DeleteChatHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, queryDeleteChatHistoryBefore, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete chat history: %w", err)
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}
