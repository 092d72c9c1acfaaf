package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/store"
)

var transcribeOutput string

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file | session-id>",
	Short: "Transcribe a recording to text",
	Long: `Transcribe a WAV file or a stored session by ID.

Large recordings are converted and split into chunks before upload.
Results are cached by content hash, so transcribing the same file
twice does not call the remote API again.`,
	Args: cobra.ExactArgs(1),
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

		path := args[0]
		var (
			st        *store.Store
			sessionID int64
		)
		if id, err := strconv.ParseInt(path, 10, 64); err == nil {
			st, err = openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			sess, err := st.Get(id)
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("session %d not found", id)
			}
			path = sess.Path
			sessionID = id
		}

		res, err := svc.Transcribe(cmd.Context(), path, func(current, total int) {
			fmt.Fprintf(os.Stderr, "\rChunk %d/%d ", current, total)
		})
		if err != nil {
			if st != nil {
				if uerr := st.UpdateStatus(sessionID, store.StatusError); uerr != nil {
					log.Error("Failed to mark session %d as errored: %v", sessionID, uerr)
				}
			}
			return err
		}
		fmt.Fprintln(os.Stderr)

		if st != nil {
			if err := st.UpdateTranscript(sessionID, res.Text, res.TokensUsed, store.StatusCompleted); err != nil {
				log.Error("Failed to store transcript for session %d: %v", sessionID, err)
			}
		}

		if transcribeOutput != "" {
			if err := os.WriteFile(transcribeOutput, []byte(res.Text+"\n"), 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", transcribeOutput)
			return nil
		}
		fmt.Println(res.Text)
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeOutput, "output", "o", "", "write transcript to file instead of stdout")
	rootCmd.AddCommand(transcribeCmd)
}
