package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config [path]",
		Short: "Print the effective configuration, or save it to path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := a.cfg.Save(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("Config saved")+" "+args[0])
				return nil
			}
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
