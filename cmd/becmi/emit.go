package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/becmi/internal/client"
)

var emitCmd = &cobra.Command{
	Use:     "emit",
	Short:   "Broadcast an event to a session",
	GroupID: "session",
}

var emitSoundboardCmd = &cobra.Command{
	Use:   "soundboard <session-id> <track-id>",
	Short: "Play a sound effect for everyone in the session (DM only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := parseSessionID(args[0])
		if err != nil {
			return err
		}
		trackID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || trackID <= 0 {
			return fmt.Errorf("invalid track id %q", args[1])
		}

		req := &client.SoundboardPlayRequest{SessionID: sessionID, TrackID: trackID}
		if cmd.Flags().Changed("volume") {
			vol, _ := cmd.Flags().GetFloat64("volume")
			req.Volume = &vol
		}

		eventID, err := rtClient.SoundboardPlay(context.Background(), req)
		if err != nil {
			return fmt.Errorf("playing sound: %w", err)
		}
		if jsonOutput {
			return printJSON(map[string]int64{"event_id": eventID})
		}
		fmt.Printf("Sound effect queued as event #%d\n", eventID)
		return nil
	},
}

func init() {
	emitSoundboardCmd.Flags().Float64("volume", 1, "playback volume between 0 and 1")
	emitCmd.AddCommand(emitSoundboardCmd)
}
