package main

import (
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Inspects or resets the demo account slot",
}

var demoStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the demo usage record as seen by the current tab",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		status, err := engine.DemoStatus(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), status)
	},
}

var demoResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Deletes the demo usage record so any tab may claim it",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()
		engine, err := rt.engine(tabID)
		if err != nil {
			return err
		}
		defer engine.Close()

		return engine.ResetDemo(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(demoStatusCmd, demoResetCmd)
}
