// Package cli содержит CLI команды приложения.
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/wallgen/internal/store"
)

// newRunsCmd создаёт команду просмотра журнала прогонов.
func newRunsCmd() *cobra.Command {
	var (
		limit      int
		onlyFailed bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Показать журнал прогонов конвейера",
		Long: `Показать журнал прогонов конвейера.

Прогоны с ошибками требуют ручной сверки: их элементы очереди остались
в статусе claimed, а загруженные blob'ы не откатывались.

Примеры:
  wallgen runs --limit 20
  wallgen runs --failed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("не удалось открыть журнал: %w", err)
			}
			defer func() { _ = st.Close() }()

			var runs []store.Run
			if onlyFailed {
				runs, err = st.ErrorRuns()
			} else {
				runs, err = st.RecentRuns(limit)
			}
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("Журнал пуст.")
				return nil
			}

			fmt.Printf("📊 Прогоны (%d):\n\n", len(runs))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tЭЛЕМЕНТ\tСОСТОЯНИЕ\tРЕЗУЛЬТАТ\tНАЧАЛО")
			fmt.Fprintln(w, "--\t-------\t---------\t---------\t------")

			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					r.ID, r.WorkItemID, formatState(&r), formatResult(&r), formatTime(r.StartedAt))
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Количество прогонов")
	cmd.Flags().BoolVar(&onlyFailed, "failed", false, "Только прогоны с ошибками")

	return cmd
}

// formatState форматирует состояние прогона.
func formatState(r *store.Run) string {
	if r.State == store.StateFailed && r.FailedAt != nil {
		return fmt.Sprintf("❌ failed (%s)", *r.FailedAt)
	}
	if r.State == store.StateOK {
		return "✅ ok"
	}
	return string(r.State)
}

// formatResult форматирует результат прогона.
func formatResult(r *store.Run) string {
	if r.ItemID != nil && *r.ItemID != "" {
		return "itemId=" + *r.ItemID
	}
	if r.Error != nil && *r.Error != "" {
		msg := *r.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		return msg
	}
	return "-"
}

// formatTime форматирует время начала прогона.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
