package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/workflow"
)

// NewWorkflowsCommand creates the workflows command.
func NewWorkflowsCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Validate and print the workflow tables",
		Long: `Load the workflow file (WORKFLOW_FILE or --file), validate every table
and print them as JSON. Without a file the built-in default is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("file") {
				file = config.Load().Vault.WorkflowFile
			}
			reg, err := workflow.LoadFile(file)
			if err != nil {
				return err
			}

			out := struct {
				Default workflow.Definition            `json:"default"`
				Classes map[string]workflow.Definition `json:"classes"`
			}{Classes: make(map[string]workflow.Definition)}
			for class, def := range reg.Definitions() {
				if class == "" {
					out.Default = def
					continue
				}
				out.Classes[class] = def
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "workflow YAML file")
	return cmd
}
