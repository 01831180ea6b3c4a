package main

import (
	"fmt"
	"sort"

	"fruity/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd groups preference commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved preferences",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration and saved preferences",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetURLCmd = &cobra.Command{
	Use:   "set-url <url>",
	Short: "Save the backend URL (trailing slashes are trimmed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(p *store.Preferences) error {
			url, err := p.SetBaseURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", store.KeyBaseURL, url)
			return nil
		})
	},
}

var configSetRegionCmd = &cobra.Command{
	Use:   "set-region <region>",
	Short: "Save the region used for insights and new logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(p *store.Preferences) error {
			if err := p.SetRegion(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", store.KeyRegion, p.Region())
			return nil
		})
	},
}

var configSetLangCmd = &cobra.Command{
	Use:   "set-lang <en|fr>",
	Short: "Save the display language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPrefs(func(p *store.Preferences) error {
			l, err := p.SetLanguage(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", store.KeyLanguage, l)
			return nil
		})
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetURLCmd)
	configCmd.AddCommand(configSetRegionCmd)
	configCmd.AddCommand(configSetLangCmd)
}

// withPrefs opens the preference store without building a controller.
func withPrefs(fn func(*store.Preferences) error) error {
	p, err := store.OpenPreferences(cfg.Preferences.Path, store.Defaults{
		BaseURL:  cfg.API.BaseURL,
		Region:   cfg.Preferences.DefaultRegion,
		Language: cfg.DefaultLanguage(),
	})
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(out, "# config\n%s\n", data)

	return withPrefs(func(p *store.Preferences) error {
		saved, err := p.All()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# preferences (%s)\n", p.Path())
		effective := map[string]string{
			store.KeyBaseURL:  p.BaseURL(),
			store.KeyRegion:   p.Region(),
			store.KeyLanguage: string(p.Language()),
		}
		keys := make([]string, 0, len(effective))
		for k := range effective {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			origin := "default"
			if _, ok := saved[k]; ok {
				origin = "saved"
			}
			fmt.Fprintf(out, "%s: %s (%s)\n", k, effective[k], origin)
		}
		return nil
	})
}
