package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fechador/internal/config"
)

func newPresetCmd(root *rootOptions) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Save or show the effective text style",
	}

	saveCmd := &cobra.Command{
		Use:   "save [flags] <file>",
		Short: "Write the effective style to a .yaml, .toml or .json preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, true)
			if err != nil {
				return err
			}
			if err := config.SavePreset(args[0], cfg.StylePreset()); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Preset written to: %s\n", args[0])
			return nil
		},
	}
	addStyleFlags(saveCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective style as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, false)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg.StylePreset())
			if err != nil {
				return err
			}
			_, err = out(cmd).Write(data)
			return err
		},
	}
	addStyleFlags(showCmd)

	presetCmd.AddCommand(saveCmd, showCmd)
	return presetCmd
}
