package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/verifypanel/internal/prefs"
)

func themeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark|toggle]",
		Short:     "Show or change the stored theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"light", "dark", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := prefs.Open(ctx, a.cfg.Preferences, a.cfg.Panel.ID)
			if err != nil {
				return fmt.Errorf("open preferences: %w", err)
			}
			defer store.Close()

			themes := prefs.NewThemes(store)
			theme, err := themes.Load(ctx)
			if err != nil {
				return fmt.Errorf("read theme: %w", err)
			}

			if len(args) == 1 {
				switch args[0] {
				case "toggle":
					theme, err = themes.Toggle(ctx)
				default:
					theme, err = prefs.ParseTheme(args[0])
					if err == nil {
						err = themes.Set(ctx, theme)
					}
				}
				if err != nil {
					return err
				}
			}

			printf(cmd, "%s\n", theme)
			return nil
		},
	}
}
