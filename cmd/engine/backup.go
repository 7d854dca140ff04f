package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobreview-engine/internal/persist"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a session snapshot of the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		p, err := a.rotator().RotateFile(a.cfg.JobsPath(), persist.ClassSession)
		if err != nil {
			return err
		}
		if p == "" {
			fmt.Println("nothing to back up:", a.cfg.JobsPath())
			return nil
		}
		fmt.Println(p)
		return nil
	},
}
