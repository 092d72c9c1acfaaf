package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/prompts"
)

var (
	transformPromptID string
	transformInput    string
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Rewrite a transcript with a stored prompt",
	Long: `Rewrite text using one of the stored prompts.

Text is read from --input or stdin. The primary model is used with the
configured reasoning effort; if it fails, the fallback model takes over
with an equivalent sampling temperature.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		log, err := getLogger()
		if err != nil {
			return err
		}
		svc, err := newService(cfg, log)
		if err != nil {
			return err
		}

		var data []byte
		if transformInput != "" {
			data, err = os.ReadFile(transformInput)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
		} else {
			data, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
		}
		if len(data) == 0 {
			return fmt.Errorf("no input text")
		}

		text, err := svc.Transform(cmd.Context(), string(data), transformPromptID)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the stored transformation prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		ps, err := prompts.Load(cfg.PromptsPath)
		if err != nil {
			return err
		}
		all := ps.All()
		if len(all) == 0 {
			fmt.Println("No prompts stored")
			return nil
		}
		for _, p := range all {
			fmt.Printf("%-20s %s\n", p.ID, p.Title)
		}
		return nil
	},
}

func init() {
	transformCmd.Flags().StringVarP(&transformPromptID, "prompt", "p", "", "prompt ID (default: first stored prompt)")
	transformCmd.Flags().StringVarP(&transformInput, "input", "i", "", "read text from file instead of stdin")
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(promptsCmd)
}
