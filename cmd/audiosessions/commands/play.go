package commands

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/audio"
	"github.com/sbeier/audiosessions/internal/player"
)

var playCmd = &cobra.Command{
	Use:   "play <file | session-id>",
	Short: "Play back a recorded session",
	Long: `Play back a WAV file or a stored session by ID.

Controls during playback:
  p + Enter         pause/resume
  s <sec> + Enter   seek to position
  Enter             stop and exit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := getLogger()
		if err != nil {
			return err
		}

		path := args[0]
		if id, err := strconv.ParseInt(path, 10, 64); err == nil {
			cfg, err := getConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			sess, err := st.Get(id)
			st.Close()
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("session %d not found", id)
			}
			path = sess.Path
		}

		if err := audio.Initialize(); err != nil {
			return fmt.Errorf("audio subsystem unavailable: %w", err)
		}
		defer audio.Terminate()

		p := player.New(log)
		finished := make(chan struct{})
		p.OnFinished = func() { close(finished) }
		p.OnPosition = func(seconds float64) {
			fmt.Printf("\r%6.1fs / %.1fs ", seconds, p.Duration())
		}

		if !p.Load(path) {
			return fmt.Errorf("failed to load %s", path)
		}
		fmt.Printf("Playing %s (%.1fs)\n", path, p.Duration())
		p.Play()

		input := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				input <- strings.TrimSpace(scanner.Text())
			}
			close(input)
		}()

		for {
			select {
			case <-finished:
				fmt.Println("\nDone")
				return nil
			case line, ok := <-input:
				if !ok || line == "" {
					p.Stop()
					fmt.Println("\nStopped")
					return nil
				}
				switch {
				case line == "p":
					if p.State() == player.Playing {
						p.Pause()
					} else {
						p.Play()
					}
				case strings.HasPrefix(line, "s "):
					if sec, err := strconv.ParseFloat(strings.TrimPrefix(line, "s "), 64); err == nil {
						p.Seek(sec)
					}
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
