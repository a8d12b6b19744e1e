package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/becmi/internal/client"
	"github.com/alfredjeanlab/becmi/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch <session-id>",
	Short:   "Follow a session's events as they happen",
	GroupID: "session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseSessionID(args[0])
		if err != nil {
			return err
		}
		since, _ := cmd.Flags().GetInt64("since")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		req := &client.PollRequest{SessionID: sessionID, LastEventID: since, Timeout: timeout}
		return watchLoop(ctx, rtClient, req, once, retryDelay)
	},
}

func init() {
	watchCmd.Flags().Int64("since", 0, "start after this event id")
	watchCmd.Flags().Duration("timeout", 0, "long-poll timeout per request (0 = server default)")
	watchCmd.Flags().Bool("once", false, "return after the first batch")
}

const retryDelay = 2 * time.Second

// watchLoop long-polls until ctx is done, carrying the watermark from each
// batch into the next request. Server errors other than auth failures are
// retried after delay.
func watchLoop(ctx context.Context, c client.RealtimeClient, req *client.PollRequest, once bool, delay time.Duration) error {
	online := ""
	for {
		resp, err := c.Poll(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
				return err
			}
			fmt.Fprintln(os.Stderr, ui.RenderError("poll failed: "+err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}

		if jsonOutput {
			for _, e := range resp.Events {
				if err := printJSON(e); err != nil {
					return err
				}
			}
		} else {
			for _, e := range resp.Events {
				printEvent(os.Stdout, e)
			}
			if names := onlineNames(resp.OnlineUsers); names != online {
				online = names
				fmt.Println(ui.RenderMuted(fmt.Sprintf("online (%d): %s", resp.OnlineCount, names)))
			}
		}

		req.LastEventID = resp.LastEventID
		if once {
			return nil
		}
	}
}

func parseSessionID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", s)
	}
	return id, nil
}
