package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/recorder"
	"github.com/sbeier/audiosessions/internal/store"
)

var (
	recordDevice int
	recordRate   int
	recordTitle  string
	recordNotes  string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a new audio session",
	Long: `Record a new audio session from the configured input device.

Controls while recording:
  p + Enter    pause
  r + Enter    resume
  Enter        stop and save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		log, err := getLogger()
		if err != nil {
			return err
		}

		if err := audio.Initialize(); err != nil {
			return fmt.Errorf("audio subsystem unavailable: %w", err)
		}
		defer audio.Terminate()

		rc := recorder.DefaultConfig()
		rc.SampleRate = cfg.SampleRate
		rc.Channels = cfg.Channels
		rec := recorder.New(rc, log)

		rec.OnDuration = func(seconds float64) {
			s := int(seconds)
			fmt.Printf("\rRecording... %02d:%02d ", s/60, s%60)
		}

		device := recordDevice
		if !cmd.Flags().Changed("device") {
			device = cfg.AudioDeviceID
		}

		startedAt := time.Now()
		if _, err := rec.Start(device, cfg.OutputDir, recordRate); err != nil {
			return err
		}

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch strings.TrimSpace(scanner.Text()) {
			case "p":
				if rec.Pause() {
					fmt.Println("\nPaused")
				}
				continue
			case "r":
				if rec.Resume() {
					fmt.Println("Resumed")
				}
				continue
			}
			break
		}

		path, err := rec.Stop()
		if err != nil {
			return err
		}
		fmt.Printf("\nSaved %s\n", path)

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		title := recordTitle
		if title == "" {
			title = "Session " + startedAt.Format("2006-01-02 15:04")
		}
		sess := &store.Session{
			Title:       title,
			RecordedAt:  startedAt,
			DurationSec: rec.ElapsedSeconds(),
			Path:        path,
			SampleRate:  rec.SampleRate(),
			Channels:    rec.Channels(),
			Notes:       recordNotes,
		}
		id, err := st.Create(sess)
		if err != nil {
			return fmt.Errorf("recording saved but session not indexed: %w", err)
		}
		fmt.Printf("Session #%d (%ds)\n", id, sess.DurationSec)
		return nil
	},
}

func init() {
	recordCmd.Flags().IntVarP(&recordDevice, "device", "d", -1, "input device index (-1 = default)")
	recordCmd.Flags().IntVar(&recordRate, "rate", 0, "sample rate override")
	recordCmd.Flags().StringVarP(&recordTitle, "title", "t", "", "session title")
	recordCmd.Flags().StringVarP(&recordNotes, "notes", "n", "", "session notes")
	rootCmd.AddCommand(recordCmd)
}
