// Package actuator реализует взаимодействие с внешним приложением
// через поиск шаблонов на экране и эмуляцию ввода.
//
// Это ненадёжный мост к софту без программного API: единственный
// механизм устойчивости - ограниченные повторы с паузами.
package actuator

import (
	"context"
	"fmt"
	"time"
)

// DefaultConfidence - минимальная степень совпадения шаблона.
const DefaultConfidence = 0.8

// Target описывает один акт поиска и активации элемента на экране.
type Target struct {
	// Template - имя шаблона (см. пакет templates).
	Template string

	// Confidence - минимальная степень совпадения (0 = DefaultConfidence).
	Confidence float64

	// Clicks - количество кликов по центру найденной области.
	Clicks int

	// ClickDelay - пауза между кликами.
	ClickDelay time.Duration

	// MaxRetries - количество повторных попыток поиска.
	// Всего выполняется MaxRetries+1 попыток.
	MaxRetries int

	// RetryDelay - пауза между попытками поиска.
	RetryDelay time.Duration
}

// Actuator управляет внешним приложением через экран.
// Реализации: Screen (реальный экран) и тестовые дублёры.
type Actuator interface {
	// LocateAndActivate ищет шаблон на экране и кликает по центру
	// найденной области. Возвращает DetectionError после исчерпания
	// всех попыток.
	LocateAndActivate(ctx context.Context, t Target) error

	// TypeText печатает текст и отправляет его (нажатием enter).
	TypeText(ctx context.Context, text string) error
}

// DetectionError означает, что шаблон не найден на экране
// после исчерпания всех попыток.
type DetectionError struct {
	// Template - имя искомого шаблона.
	Template string

	// Attempts - количество выполненных попыток.
	Attempts int

	// BestScore - лучшая достигнутая степень совпадения.
	BestScore float64
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("шаблон %q не найден за %d попыток (лучшее совпадение %.2f)",
		e.Template, e.Attempts, e.BestScore)
}
