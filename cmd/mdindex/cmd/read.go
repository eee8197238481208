package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a document's contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := lib.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
