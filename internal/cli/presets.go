// Package cli содержит CLI команды приложения.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/wallgen/internal/config"
)

// newPresetsCmd создаёт команду для управления пресетами публикации.
func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Управление именованными пресетами публикации",
		Long: `Управление именованными пресетами публикации.

Пресеты хранятся в ~/.config/wallgen/presets/ и позволяют публиковать
разные серии с разными ценами, рейтингами и типами без правки
основной конфигурации.

Примеры:
  # Сохранить текущие значения публикации как пресет
  wallgen presets save premium --price 5.5 --stars 5

  # Запустить конвейер с пресетом
  wallgen --preset premium

  # Список пресетов
  wallgen presets list

  # Удалить пресет
  wallgen presets delete premium`,
	}

	cmd.AddCommand(newPresetsListCmd())
	cmd.AddCommand(newPresetsSaveCmd())
	cmd.AddCommand(newPresetsDeleteCmd())

	return cmd
}

// newPresetsListCmd создаёт команду для списка пресетов.
func newPresetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать список сохранённых пресетов",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := config.ListPresets()
			if err != nil {
				return fmt.Errorf("ошибка получения списка пресетов: %w", err)
			}

			if len(names) == 0 {
				fmt.Println("Пресеты не найдены.")
				fmt.Println()
				fmt.Println("Сохраните пресет командой:")
				fmt.Println("  wallgen presets save premium --price 5.5")
				return nil
			}

			fmt.Printf("📦 Сохранённые пресеты (%d):\n\n", len(names))
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}

			return nil
		},
	}
}

// newPresetsSaveCmd создаёт команду для сохранения пресета.
func newPresetsSaveCmd() *cobra.Command {
	d := &config.PublishDefaults{}

	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Сохранить пресет публикации",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := config.SavePreset(name, d); err != nil {
				return err
			}

			fmt.Printf("✅ Пресет '%s' сохранён\n", name)
			return nil
		},
	}

	cmd.Flags().Float64Var(&d.Price, "price", cfg.Publish.Price, "Цена")
	cmd.Flags().IntVar(&d.Stars, "stars", cfg.Publish.Stars, "Рейтинг (1-5)")
	cmd.Flags().StringVar(&d.PhotoType, "photo-type", cfg.Publish.PhotoType, "Тип фотографии")
	cmd.Flags().BoolVar(&d.FreeDownload, "free-download", cfg.Publish.FreeDownload, "Бесплатная загрузка")
	cmd.Flags().StringVar(&d.Title, "title", cfg.Publish.Title, "Заголовок по умолчанию")

	return cmd
}

// newPresetsDeleteCmd создаёт команду для удаления пресета.
func newPresetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Удалить пресет",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !config.PresetExists(name) {
				return fmt.Errorf("пресет '%s' не найден", name)
			}

			if err := config.DeletePreset(name); err != nil {
				return fmt.Errorf("ошибка удаления пресета: %w", err)
			}

			fmt.Printf("✅ Пресет '%s' удалён\n", name)
			return nil
		},
	}
}
