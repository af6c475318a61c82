package main

import (
	"github.com/spf13/cobra"

	"github.com/danmuck/phawd/internal/config"
	logs "github.com/danmuck/smplog"
)

func newConfiggenCommand() *cobra.Command {
	var (
		kind     string
		output   string
		validate bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "configgen",
		Short: "Write or validate a phawd config template",
		RunE: func(_ *cobra.Command, _ []string) error {
			if output == "" {
				output = "phawd.toml"
			}
			if validate {
				if _, err := config.Load(output); err != nil {
					return err
				}
				logs.Infof("phawdctl configgen validated path=%s", output)
				return nil
			}
			if err := config.WriteTemplate(output, kind, force); err != nil {
				return err
			}
			logs.Infof("phawdctl configgen wrote kind=%s path=%s", kind, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "phawd", "template kind: phawd|shm|socket")
	cmd.Flags().StringVar(&output, "output", "", "config path to write or validate (default phawd.toml)")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate an existing config instead of writing one")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
