package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/pipeline"
)

// definitionsCmd prints the checklist categories and keys
var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "List checklist categories and keys",
	Long:  `Print the checklist definitions in use: built-in, or checklist.definitions_file when set.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		defs := checklist.Default()
		if cfg.Checklist.DefinitionsFile != "" {
			defs, err = checklist.LoadFile(cfg.Checklist.DefinitionsFile)
			if err != nil {
				return err
			}
		}

		pipeline.NewRenderer().RenderDefinitions(os.Stdout, defs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(definitionsCmd)
}
