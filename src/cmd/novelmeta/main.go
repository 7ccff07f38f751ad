package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "novelmeta",
		Short:         "Resolve Jinjiang novel metadata from a title, author or novel id",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (a sibling .local file overrides it)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides the config)")

	// Attach subcommands
	root.AddCommand(newIdentifyCmd(a))
	root.AddCommand(newCoverCmd(a))
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newServeCmd(a))
	return root
}

func execute() error {
	return newRootCmd().Execute()
}

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
