package sqlite

const (
	queryInsertEvent = `
		INSERT INTO events (id, enabled, name, trigger_type, config, "order", created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryUpdateEvent = `
		UPDATE events SET enabled = ?, name = ?, trigger_type = ?, config = ?, "order" = ?
		WHERE id = ?`

	queryDeleteEvent = `DELETE FROM events WHERE id = ?`

	queryGetEventByID = `
		SELECT id, enabled, name, config, "order", created_at
		FROM events WHERE id = ?`

	queryGetEventsByTriggerType = `
		SELECT id, enabled, name, config, "order", created_at
		FROM events
		WHERE trigger_type = ? AND enabled = TRUE
		ORDER BY "order" ASC, created_at DESC`

	queryListEvents = `
		SELECT id, enabled, name, config, "order", created_at
		FROM events
		ORDER BY "order" ASC, created_at DESC`

	queryInsertCommand = `
		INSERT INTO commands (id, enabled, name, command, outcome, cooldown, require_role, "order", created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateCommand = `
		UPDATE commands SET enabled = ?, name = ?, command = ?, outcome = ?, cooldown = ?, require_role = ?, "order" = ?
		WHERE id = ?`

	queryDeleteCommand = `DELETE FROM commands WHERE id = ?`

	queryGetCommandByID = `
		SELECT id, enabled, name, command, outcome, cooldown, require_role, "order", created_at
		FROM commands WHERE id = ?`

	queryListCommands = `
		SELECT id, enabled, name, command, outcome, cooldown, require_role, "order", created_at
		FROM commands
		ORDER BY "order" ASC, created_at DESC`

	// The trigger word matches either the primary command text or any
	// alias, all lower-cased.
	queryGetCommandsByTrigger = `
		SELECT DISTINCT c.id, c.enabled, c.name, c.command, c.outcome, c.cooldown, c.require_role, c."order", c.created_at
		FROM commands c
		LEFT JOIN command_aliases a ON a.command_id = c.id
		WHERE c.enabled = TRUE AND (LOWER(c.command) = ? OR LOWER(a.alias) = ?)
		ORDER BY c."order" ASC, c.created_at DESC`

	queryDeleteCommandAliases = `DELETE FROM command_aliases WHERE command_id = ?`

	queryInsertCommandAlias = `
		INSERT INTO command_aliases (id, command_id, alias, "order")
		VALUES (?, ?, ?, ?)`

	queryGetCommandAliases = `
		SELECT alias FROM command_aliases
		WHERE command_id = ?
		ORDER BY "order" ASC`

	queryInsertExecution = `
		INSERT INTO executions (id, automation_id, kind, user_data, input_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetLastExecution = `
		SELECT id, automation_id, kind, user_data, input_data, created_at
		FROM executions
		WHERE automation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1 OFFSET ?`

	queryListExecutions = `
		SELECT id, automation_id, kind, user_data, input_data, created_at
		FROM executions
		WHERE automation_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`

	queryDeleteExecutionsBefore = `DELETE FROM executions WHERE created_at < ?`

	queryInsertItem = `
		INSERT INTO items (id, name, image, "order", created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryGetItemsByIDs = `
		SELECT id, name, image, "order", created_at
		FROM items WHERE id IN (%s)
		ORDER BY "order" ASC, created_at DESC`

	queryListItems = `
		SELECT id, name, image, "order", created_at
		FROM items
		ORDER BY "order" ASC, created_at DESC`

	queryGetItemImpactSounds = `
		SELECT item_id, sound_id FROM item_impact_sounds
		WHERE item_id IN (%s)`

	queryReplaceItemImpactSounds = `DELETE FROM item_impact_sounds WHERE item_id = ?`

	queryInsertItemImpactSound = `
		INSERT INTO item_impact_sounds (item_id, sound_id)
		VALUES (?, ?)`

	queryInsertSound = `
		INSERT INTO sounds (id, name, src, volume, "order", created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetSoundByID = `
		SELECT id, name, src, volume, "order", created_at
		FROM sounds WHERE id = ?`

	queryGetSoundsByIDs = `
		SELECT id, name, src, volume, "order", created_at
		FROM sounds WHERE id IN (%s)
		ORDER BY "order" ASC, created_at DESC`

	queryListSounds = `
		SELECT id, name, src, volume, "order", created_at
		FROM sounds
		ORDER BY "order" ASC, created_at DESC`

	queryInsertChatMessage = `
		INSERT INTO chat_history (id, user_id, message, created_at)
		VALUES (?, ?, ?, ?)`

	queryCountChatMessagesSince = `
		SELECT COUNT(*) FROM chat_history WHERE created_at > ?`

	queryDeleteChatHistoryBefore = `DELETE FROM chat_history WHERE created_at < ?`
)
