package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/previewforge/previewforge/pkg/platform"
)

// platformsCommand creates the platforms command for listing supported
// re-targeting profiles.
func (c *CLI) platformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported platform profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(StyleTitle.Render("Platform profiles"))
			for _, name := range platform.Names() {
				p, err := platform.Lookup(name)
				if err != nil {
					return err
				}
				dims := fmt.Sprintf("%dx%d", p.Width, p.Height)
				safe := ""
				if p.Safe != (platform.Insets{}) {
					safe = fmt.Sprintf("  safe zone: top %d, bottom %d, left %d, right %d",
						p.Safe.Top, p.Safe.Bottom, p.Safe.Left, p.Safe.Right)
				}
				printKeyValue(name, dims+StyleDim.Render(safe))
			}
			return nil
		},
	}
}
