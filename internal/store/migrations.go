// Package store содержит миграции журнала прогонов.
package store

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Таблица прогонов
	`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		work_item_id TEXT NOT NULL,
		source_url TEXT NOT NULL,
		state TEXT NOT NULL,
		failed_at TEXT,
		item_id TEXT,
		error TEXT,
		started_at INTEGER,
		finished_at INTEGER
	);`,

	// Миграция 2: Индекс для поиска прогонов по элементу очереди
	`CREATE INDEX IF NOT EXISTS ix_runs_work_item ON runs (work_item_id);`,

	// Миграция 3: Индекс для выборки прогонов по состоянию
	`CREATE INDEX IF NOT EXISTS ix_runs_state ON runs (state);`,

	// Миграция 4: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 5: Запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}
