// Package main provides the voxline CLI, a small driver for the realtime
// client library.
//
// Usage:
//
//	voxline [flags] <command>
//
// Commands:
//
//	chat    - interactive text conversation over a realtime session
//	config  - preset file management
package main

import (
	"fmt"
	"os"

	"github.com/voxline/realtime-go/cmd/voxline/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
