// Package cli содержит CLI команды приложения.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/wallgen/internal/queue"
)

// newAddCmd создаёт команду добавления заявки в очередь ожидания.
func newAddCmd() *cobra.Command {
	var (
		note     string
		source   string
		priority int
		review   bool
	)

	cmd := &cobra.Command{
		Use:   "add [url...]",
		Short: "Добавить заявки в очередь ожидания",
		Long: `Добавить заявки в очередь ожидания.

Каждый URL становится отдельным элементом очереди с тегом назначения
текущего воркера (--assign-tag). Конвейер заберёт их при следующем опросе.

Примеры:
  wallgen add https://example.com/photo.jpg
  wallgen add https://a.jpg https://b.jpg --note "серия закатов" --priority 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.QueueBaseURL == "" {
				return fmt.Errorf("не задан URL сервиса очереди (WALLGEN_QUEUE_URL)")
			}

			logger := log.New(os.Stderr, "", log.LstdFlags)
			client := queue.NewClient(cfg.QueueBaseURL, logger)

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			added := 0
			for _, url := range args {
				url = strings.TrimSpace(url)
				if url == "" {
					continue
				}

				err := client.Add(ctx, queue.AddRequest{
					Source:   source,
					Note:     note,
					URL:      url,
					Priority: priority,
					Assign:   cfg.AssignTag,
					Review:   review,
				})
				if err != nil {
					return fmt.Errorf("не удалось добавить %s: %w", url, err)
				}

				fmt.Printf("✅ Добавлено: %s\n", url)
				added++
			}

			fmt.Printf("\n📊 Добавлено заявок: %d\n", added)
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Заметка к заявке")
	cmd.Flags().StringVar(&source, "source", "manual", "Источник заявки")
	cmd.Flags().IntVar(&priority, "priority", 0, "Приоритет обработки")
	cmd.Flags().BoolVar(&review, "review", false, "Требовать ручную проверку результата")

	return cmd
}
