package main

import (
	"fmt"
	"os"

	"kyri56xcaesar/capstone-pms/internal/mproject"

	"github.com/spf13/cobra"

	_ "time/tzdata"
)

const defaultConfig = "configs/pms.env"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var confPath string

	root := &cobra.Command{
		Use:           "pms",
		Short:         "Capstone project tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&confPath, "config", "c", defaultConfig, "path to the .env configuration file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return mproject.InitAndServe(confPath)
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the resolved configuration with secrets masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return mproject.PrintConfig(confPath, cmd.OutOrStdout())
			},
		},
	)
	return root
}
