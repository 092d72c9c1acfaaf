// Package main provides the audiosessions CLI.
//
// Usage:
//
//	audiosessions <command> [flags]
//
// Commands:
//
//	devices     - list audio input devices
//	record      - record a new session
//	play        - play back a session
//	transcribe  - transcribe a recording to text
//	transform   - rewrite a transcript with a stored prompt
//	prompts     - list transformation prompts
//	sessions    - manage the session index
//	serve       - run the local HTTP API server
//	config      - show or change the configuration
package main

import (
	"fmt"
	"os"

	"github.com/sbeier/audiosessions/cmd/audiosessions/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
