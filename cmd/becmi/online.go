package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var onlineCmd = &cobra.Command{
	Use:     "online <session-id>",
	Short:   "List users currently connected to a session",
	GroupID: "session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseSessionID(args[0])
		if err != nil {
			return err
		}
		resp, err := rtClient.Online(context.Background(), sessionID)
		if err != nil {
			return fmt.Errorf("listing online users: %w", err)
		}

		if jsonOutput {
			return printJSON(resp)
		}
		if resp.OnlineCount == 0 {
			fmt.Println("No one is online.")
			return nil
		}
		printOnlineTable(os.Stdout, resp.OnlineUsers, time.Now())
		return nil
	},
}
