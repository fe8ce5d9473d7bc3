// Package main implements briefctl, a command-line client for a running
// briefd HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/briefd/internal/tasks"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	server  string
	timeout time.Duration
	json    bool
}

func (o *rootOptions) client() *Client {
	return NewClient(o.server, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "briefctl",
		Short: "CLI for a briefd HTTP server",
		Long: `briefctl talks to a running briefd server. It can check health, caption
images, extract document text and generate tasks from a project brief.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8000", "briefd server URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "request timeout; model calls can be slow")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")

	root.AddCommand(
		newHealthCmd(opts),
		newImageCmd(opts),
		newDocCmd(opts),
		newTasksCmd(opts),
	)
	return root
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check briefd server health",
		Long: `Check the health of the briefd server and show the configured models.

Examples:
  briefctl health
  briefctl health --server http://localhost:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := opts.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, health)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server Status: %s\n", health.Status)
			fmt.Fprintf(out, "Server URL:    %s\n", opts.server)
			if health.Version != "" {
				fmt.Fprintf(out, "Version:       %s\n", health.Version)
			}
			if health.Provider != "" {
				fmt.Fprintf(out, "Provider:      %s\n", health.Provider)
				fmt.Fprintf(out, "Text Model:    %s\n", health.TextModel)
				fmt.Fprintf(out, "Vision Model:  %s\n", health.VisionModel)
			}
			return nil
		},
	}
}

func newImageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "image <file>",
		Short: "Caption an image",
		Long: `Upload an image to /process-image and print the caption.

Examples:
  briefctl image sketch.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().ProcessImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
}

func newDocCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doc <file>",
		Short: "Extract text from a .txt, .pdf or .docx file",
		Long: `Upload a document to /process-document and print its text.

Examples:
  briefctl doc requirements.docx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().ProcessDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
}

func newTasksCmd(opts *rootOptions) *cobra.Command {
	var (
		description     string
		requirements    string
		requirementsDoc string
		inspiration     string
		image           string
		integrations    []string
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Generate development tasks from a project brief",
		Long: `Send a project brief to /generate-tasks and print the tasks.

--requirements-file and --image run the document and image endpoints first
and feed their output into the brief, the same flow the web front end uses.

Examples:
  briefctl tasks --description "Recipe sharing app" --requirements "Auth, search, offline mode"
  briefctl tasks -d "Habit tracker" --requirements-file reqs.pdf --image mockup.png --integration "Google Calendar"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := opts.client()
			ctx := cmd.Context()

			if requirementsDoc != "" {
				doc, err := client.ProcessDocument(ctx, requirementsDoc)
				if err != nil {
					return fmt.Errorf("requirements file: %w", err)
				}
				requirements = strings.TrimSpace(strings.Join([]string{requirements, doc.Text}, "\n"))
			}
			if image != "" {
				caption, err := client.ProcessImage(ctx, image)
				if err != nil {
					return fmt.Errorf("inspiration image: %w", err)
				}
				inspiration = strings.TrimSpace(strings.Join([]string{inspiration, caption.Text}, "\n"))
			}

			brief := tasks.ProjectBrief{
				Description:  description,
				Requirements: requirements,
				Integrations: integrations,
			}
			if inspiration != "" {
				brief.InspirationText = &inspiration
			}

			resp, err := client.GenerateTasks(ctx, brief)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if len(resp.Tasks) == 0 {
				fmt.Fprintln(out, "No tasks found in the model reply.")
				return nil
			}
			for _, t := range resp.Tasks {
				fmt.Fprintf(out, "%d. %s\n   %s\n", t.Order+1, t.Title, t.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "what the project is (required)")
	cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "functional and technical requirements")
	cmd.Flags().StringVar(&requirementsDoc, "requirements-file", "", "document whose text is appended to the requirements")
	cmd.Flags().StringVar(&inspiration, "inspiration", "", "description of visual inspiration")
	cmd.Flags().StringVar(&image, "image", "", "image whose caption is appended to the inspiration")
	cmd.Flags().StringSliceVar(&integrations, "integration", nil, "integration needed (repeatable)")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
