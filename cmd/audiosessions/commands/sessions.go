package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sessionsSearch string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.List(sessionsSearch)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found")
			return nil
		}

		for _, s := range sessions {
			status := s.Status
			if status == "" {
				status = "-"
			}
			fmt.Printf("#%-4d %-40s %s  %3dm%02ds  %6.1f MB  %s\n",
				s.ID, s.Title, s.RecordedAt.Format("2006-01-02 15:04"),
				s.DurationSec/60, s.DurationSec%60,
				float64(s.FileSize)/(1024*1024), status)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show details and transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id: %s", args[0])
		}
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := st.Get(id)
		if err != nil {
			return err
		}
		if s == nil {
			return fmt.Errorf("session %d not found", id)
		}

		fmt.Printf("Title:       %s\n", s.Title)
		fmt.Printf("Recorded:    %s\n", s.RecordedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Duration:    %dm%02ds\n", s.DurationSec/60, s.DurationSec%60)
		fmt.Printf("File:        %s (%d Hz, %d ch)\n", s.Path, s.SampleRate, s.Channels)
		if s.Notes != "" {
			fmt.Printf("Notes:       %s\n", s.Notes)
		}
		if s.Status != "" {
			fmt.Printf("Transcript:  %s (%d tokens)\n", s.Status, s.TranscriptTokens)
		}
		if s.TranscriptText != "" {
			fmt.Printf("\n%s\n", s.TranscriptText)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session from the index",
	Long:  "Delete a session from the index. The audio file on disk is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id: %s", args[0])
		}
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(id); err != nil {
			return err
		}
		fmt.Printf("Deleted session #%d\n", id)
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsSearch, "search", "s", "", "filter by title, notes or transcript")
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
