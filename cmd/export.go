package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

const exportSummaryLimit = 10

// newExportCmd dumps the account's conversation threads to a JSON file, for
// keeping a message history outside the platform.
func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the message history to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := app.ensureSession(cmd.Context()); err != nil {
				return err
			}

			conversations, err := app.client.Conversations(cmd.Context(), 1)
			if err != nil {
				return err
			}
			if len(conversations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations found")
				return nil
			}

			if err := writeConversationExport(output, conversations); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d conversations to %s\n", len(conversations), output)
			printConversationSummary(cmd.OutOrStdout(), conversations)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "messages_export.json", "export file path")
	return cmd
}

func writeConversationExport(path string, conversations []map[string]any) error {
	data, err := json.MarshalIndent(conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// printConversationSummary previews the most recent threads: ad title, last
// message snippet and the thread id.
func printConversationSummary(w io.Writer, conversations []map[string]any) {
	for i, conv := range conversations {
		if i == exportSummaryLimit {
			fmt.Fprintf(w, "... and %d more\n", len(conversations)-exportSummaryLimit)
			break
		}

		title := fieldText(conv, "ad_title")
		if title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(w, "%d. %s (id %s)\n", i+1, title, fieldText(conv, "conversation_id"))

		if last, ok := conv["last_message"].(map[string]any); ok {
			if content := fieldText(last, "content"); content != "" {
				fmt.Fprintf(w, "   Last: %s\n", snippet(content, 50))
			}
		}
	}
}

func fieldText(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func snippet(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
