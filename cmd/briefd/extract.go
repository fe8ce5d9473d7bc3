package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

func newExtractCmd() *cobra.Command {
	var asText bool

	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract tasks from a saved model reply",
		Long: `Run the task extractor on model output without calling a model.

Lines of the form "N. **Title**: Description" become tasks. Everything else
is ignored. Useful for checking a prompt template against captured replies.

Examples:
  briefd extract reply.txt
  ollama run deepseek-r1:1.5b < prompt.txt | briefd extract -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			found := tasks.Extract(string(reply))
			out := cmd.OutOrStdout()
			if asText {
				for _, t := range found {
					fmt.Fprintf(out, "%s\t%s\t%s\n", t.ID, t.Title, t.Description)
				}
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string][]tasks.Task{"tasks": found})
		},
	}
	cmd.Flags().BoolVar(&asText, "text", false, "print tab-separated ID, title and description instead of JSON")
	return cmd
}

// readInput reads args[0], or stdin when it is absent or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", args[0], err)
	}
	return data, nil
}
