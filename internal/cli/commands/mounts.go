package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/mstools/internal/catalog"
	"github.com/leapstack-labs/mstools/internal/engine"
	"github.com/spf13/cobra"
)

func newPrintMountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "print_mounts <ms>",
		Short: "List the antenna mount types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			mounts, err := cc.Engine.Mounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return renderMounts(cc, mounts)
		},
	}
}

func renderMounts(cc *CommandContext, mounts []catalog.Mount) error {
	r := cc.Renderer
	if ok, err := r.Structured(mounts); ok || err != nil {
		return err
	}
	rows := make([][]any, len(mounts))
	for i, m := range mounts {
		rows[i] = []any{m.ID, r.Styles().Antenna.Render(m.Name), m.Station, m.Mount}
	}
	r.Table([]string{"ID", "Name", "Station", "Mount"}, rows)
	return nil
}

func newModifyMountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modify_mounts <ms> <antenna> <mount>",
		Short: "Change the mount type of an antenna",
		Long: `Set the MOUNT column of one ANTENNA row. Mount edits are always
written, even with --dry-run.`,
		Example: `  mstools run modify_mounts n24l1.ms Ys ALT-AZ-NASMYTH-RH`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			m, err := cc.Engine.SetMount(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if ok, err := cc.Renderer.Structured(m); ok || err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("%s mount set to %s", m.Name, m.Mount))
			return nil
		},
	}
}

type mountFixFunc func(e *engine.Engine, ctx context.Context, path string) ([]catalog.Mount, error)

func newMountFixCommand(use, short, station string, fix mountFixFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ms>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			fixed, err := fix(cc.Engine, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ok, err := cc.Renderer.Structured(fixed); ok || err != nil {
				return err
			}
			if len(fixed) == 0 {
				cc.Renderer.Warning(fmt.Sprintf("%s is not in the antenna table", station))
				return nil
			}
			for _, m := range fixed {
				cc.Renderer.Success(fmt.Sprintf("%s mount set to %s", m.Name, m.Mount))
			}
			return nil
		},
	}
}

func newYsFocusCommand() *cobra.Command {
	return newMountFixCommand("ysfocus", "Set the Yebes 40 m mount to Nasmyth right-handed", "Yebes",
		(*engine.Engine).FixYebesMount)
}

func newHoFocusCommand() *cobra.Command {
	return newMountFixCommand("hofocus", "Set the Hobart mount to X-YEW", "Hobart",
		(*engine.Engine).FixHobartMount)
}
