package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fechador/internal/config"
)

// flagKeys maps flag names to configuration keys where the plain
// dash-to-underscore rule does not apply. An empty key leaves the flag
// unbound.
var flagKeys = map[string]string{
	"config":     "",
	"help":       "",
	"no-tui":     "",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"font-dir":   "font_dirs",
}

type rootOptions struct {
	configFile string
}

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "fechador",
		Short: "fechador 📅 - stamp dates and captions onto photos",
		Long: `fechador 📅 stamps a date or caption onto a batch of images and writes
annotated copies to an output folder, in parallel by default.

Examples:
  fechador stamp ~/Fotos/viaje
  fechador stamp --text "24/12/2023" --anchor top-left -o out a.jpg b.jpg
  fechador stamp --exif-date --recursive ~/Fotos`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default is fechador.{yaml,toml,json} in . or $HOME/.config/fechador)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("log-file", "", "write logs to this file")
	pf.StringSlice("font-dir", []string{"fonts"}, "directories searched for font files")

	rootCmd.AddCommand(newStampCmd(opts))
	rootCmd.AddCommand(newFontsCmd(opts))
	rootCmd.AddCommand(newPresetCmd(opts))
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, errorTextStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}

// loadConfig resolves the configuration for cmd after its flags are parsed.
func loadConfig(cmd *cobra.Command, opts *rootOptions, validate bool) (*config.Config, error) {
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags(), flagKeys); err != nil {
		return nil, err
	}
	if validate {
		return loader.Load(opts.configFile)
	}
	return loader.LoadWithoutValidation(opts.configFile)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
