package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/docrag/docrag/cmd/docrag/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docrag",
		Short: "Document retrieval engine with vector search",
	}

	rootCmd.AddCommand(
		commands.NewIndexCommand(),
		commands.NewSearchCommand(),
		commands.NewCountCommand(),
		commands.NewPruneCommand(),
		commands.NewMCPServeCommand(),
		commands.NewMCPClientCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
