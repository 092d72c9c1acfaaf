package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/server"
	"github.com/sbeier/audiosessions/internal/transcribe"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API server",
	Long: `Run the localhost-only HTTP API server.

Endpoints:
  GET  /api/settings                   current configuration
  PUT  /api/settings                   update configuration
  GET  /api/devices                    audio input devices
  GET  /api/sessions                   list sessions (?q= filters)
  GET  /api/sessions/{id}              session details
  DELETE /api/sessions/{id}            remove a session
  POST /api/sessions/{id}/transcribe   start background transcription
  GET  /ws                             websocket progress feed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		log, err := getLogger()
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newService(cfg, log)
		if err != nil {
			return err
		}
		worker := transcribe.NewWorker(svc, log)

		sc := server.DefaultConfig()
		if servePort != 0 {
			sc.Port = servePort
		}
		srv := server.New(sc, log)
		handler := server.NewHandler(cfg, st, worker, log)
		if err := srv.Start(handler); err != nil {
			return err
		}
		fmt.Printf("Listening on %s (Ctrl-C to stop)\n", srv.URL())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		fmt.Println("\nShutting down")
		return srv.Stop()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}
