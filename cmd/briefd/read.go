package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/briefd/internal/document"
)

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <file>",
		Short: "Print the text of a .txt, .pdf or .docx file",
		Long: `Run the document reader on a local file and print the extracted text.

Examples:
  briefd read requirements.docx
  briefd read brief.pdf > brief.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			// Check the extension before reading the file.
			if _, err := document.Format(path); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file %s: %w", path, err)
			}

			text, err := document.NewReader(nil).Read(cmd.Context(), data, filepath.Base(path))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
