package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"fechador/internal/stamp"
	"fechador/internal/tui"
)

func newFontsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fonts",
		Short: "List the fonts --font can name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, false)
			if err != nil {
				return err
			}
			fonts := cfg.Fonts()
			w := out(cmd)

			fmt.Fprintln(w, fontsHeaderStyle.Render("Built-in"))
			for _, name := range stamp.BuiltinFonts() {
				fmt.Fprintf(w, "  %s %s\n", fontsBulletStyle.Render("-"), fontsNameStyle.Render(name))
			}

			found := fonts.List()
			fmt.Fprintln(w)
			fmt.Fprintln(w, fontsHeaderStyle.Render("Font directories"))
			for _, dir := range fonts.Dirs {
				fmt.Fprintf(w, "  %s %s\n", fontsBulletStyle.Render("-"), fontsDimStyle.Render(dir))
			}
			if len(found) == 0 {
				fmt.Fprintf(w, "  %s %s\n", fontsBulletStyle.Render("-"), fontsDimStyle.Render("no .ttf or .otf files"))
				return nil
			}
			for _, name := range found {
				fmt.Fprintf(w, "  %s %s\n", fontsBulletStyle.Render("-"), fontsNameStyle.Render(name))
			}
			return nil
		},
	}
}

var (
	fontsHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	fontsNameStyle   = lipgloss.NewStyle().Foreground(tui.ColorInk)
	fontsDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	fontsBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)
