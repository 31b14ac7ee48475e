package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerved-io/lsp-ws-proxy/internal/version"
)

// versionCmd supplements the root --version/-v flag with a -o json form,
// following bennypowers-cem/cmd/version.go's shape.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, err := cmd.Flags().GetString("output")
		if err != nil {
			return err
		}
		if output == "json" {
			return printVersionJSON()
		}
		fmt.Printf("lsp-ws-proxy %s\n", version.GetVersion())
		return nil
	},
}

func printVersionJSON() error {
	out, err := json.MarshalIndent(version.GetBuildInfo(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringP("output", "o", "text", "output format: text or json")
}
