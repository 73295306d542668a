package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	realtime "github.com/voxline/realtime-go"
	"github.com/voxline/realtime-go/events"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive text conversation over a realtime session",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []realtime.Option{
		realtime.WithModalities(events.ModalityText),
		realtime.WithDefaultLogger(),
	}
	if presetFile != "" {
		preset, err := realtime.LoadPreset(presetFile)
		if err != nil {
			return err
		}
		opts = append(opts, preset.Options()...)
	}
	if model != "" {
		opts = append(opts, realtime.WithModel(model))
	}
	if deployment != "" {
		opts = append(opts, realtime.WithDeployment(deployment))
	}

	session, err := realtime.Dial(ctx, opts...)
	if err != nil {
		return err
	}
	defer session.Close(context.Background())

	go func() {
		for err := range session.Errors() {
			fmt.Fprintf(os.Stderr, "session error: %v\n", err)
		}
	}()

	fmt.Printf("connected (session %s), ctrl-d to quit\n", session.ID())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := session.UserInput(ctx, line, false); err != nil {
			return err
		}

		_, err := session.CreateResponse(ctx, events.ResponseCreatePayload{},
			realtime.WithObserver(func(evt events.ServerEvent) {
				if delta, ok := evt.(*events.ResponseTextDeltaEvent); ok {
					fmt.Print(delta.Delta)
				}
			}),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nresponse failed: %v\n", err)
			continue
		}
		fmt.Println()
	}

	return scanner.Err()
}
