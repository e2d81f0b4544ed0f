// Package store содержит журнал прогонов конвейера в SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store предоставляет методы для работы с журналом прогонов.
type Store struct {
	db *sql.DB
}

// New создаёт подключение к SQLite и выполняет миграции.
func New(dbPath string) (*Store, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает concurrent writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return s, nil
}

// migrate выполняет все SQL-миграции.
func (s *Store) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun записывает начало прогона и возвращает его идентификатор.
func (s *Store) StartRun(workItemID, sourceURL string) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO runs (work_item_id, source_url, state, started_at) VALUES (?, ?, ?, ?)`,
		workItemID, sourceURL, StateClaimed, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось записать прогон: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("не удалось получить ID прогона: %w", err)
	}
	return id, nil
}

// UpdateState записывает достигнутое состояние прогона.
func (s *Store) UpdateState(runID int64, state RunState) error {
	if _, err := s.db.Exec(`UPDATE runs SET state = ? WHERE id = ?`, state, runID); err != nil {
		return fmt.Errorf("не удалось обновить состояние прогона %d: %w", runID, err)
	}
	return nil
}

// FinishOK отмечает прогон завершённым с идентификатором каталожной записи.
func (s *Store) FinishOK(runID int64, itemID string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET state = ?, item_id = ?, finished_at = ? WHERE id = ?`,
		StateOK, itemID, time.Now().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("не удалось завершить прогон %d: %w", runID, err)
	}
	return nil
}

// FinishFailed отмечает прогон прерванным, сохраняя стадию и текст ошибки.
func (s *Store) FinishFailed(runID int64, failedAt RunState, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET state = ?, failed_at = ?, error = ?, finished_at = ? WHERE id = ?`,
		StateFailed, string(failedAt), errMsg, time.Now().Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("не удалось записать ошибку прогона %d: %w", runID, err)
	}
	return nil
}

// RecentRuns возвращает последние прогоны, новые первыми.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, work_item_id, source_url, state, failed_at, item_id, error, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать журнал: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// ErrorRuns возвращает прогоны с ошибками для ручной сверки:
// их элементы очереди остались в статусе claimed без завершения.
func (s *Store) ErrorRuns() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, work_item_id, source_url, state, failed_at, item_id, error, started_at, finished_at
		 FROM runs WHERE state = ? ORDER BY id DESC`, StateFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать прогоны с ошибками: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// scanRuns читает строки выборки в слайс Run.
func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run

	for rows.Next() {
		var (
			r          Run
			startedAt  sql.NullInt64
			finishedAt sql.NullInt64
		)

		err := rows.Scan(&r.ID, &r.WorkItemID, &r.SourceURL, &r.State,
			&r.FailedAt, &r.ItemID, &r.Error, &startedAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("не удалось прочитать прогон: %w", err)
		}

		if startedAt.Valid {
			t := time.Unix(startedAt.Int64, 0)
			r.StartedAt = &t
		}
		if finishedAt.Valid {
			t := time.Unix(finishedAt.Int64, 0)
			r.FinishedAt = &t
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}
