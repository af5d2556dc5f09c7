package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newAskCommand(open runtimeOpener) *cobra.Command {
	var userID string
	var timeoutSec int
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask the assistant something on behalf of a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := open()
			if err != nil {
				return err
			}
			defer runtime.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if timeoutSec > 0 {
				var timeoutCancel context.CancelFunc
				ctx, timeoutCancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
				defer timeoutCancel()
			}

			actor, err := runtime.ResolveActor(ctx, userID)
			if err != nil {
				return err
			}
			result, err := runtime.Assistant().Run(ctx, actor, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Reply)
			if showTrace {
				fmt.Fprintf(out, "\n-- %d step(s), stop: %s\n", result.Steps, result.StopReason)
				for _, call := range result.ToolCalls {
					fmt.Fprintf(out, "[%d] %s %s -> %s", call.Step, call.ToolName, call.ToolArgs, call.Status)
					if call.Error != "" {
						fmt.Fprintf(out, " (%s)", call.Error)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "id of the user the request runs as")
	cmd.Flags().IntVar(&timeoutSec, "timeout-sec", 120, "request timeout in seconds")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the tool calls made for this reply")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
