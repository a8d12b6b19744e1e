package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/becmi/internal/model"
	"github.com/alfredjeanlab/becmi/internal/ui"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printEvent writes one event as a single line:
//
//	#12  10:04:31  hp_change  character 10: 50 -> 45
func printEvent(w io.Writer, e *model.Event) {
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		ui.RenderMuted(fmt.Sprintf("#%d", e.EventID)),
		e.CreatedAt.Local().Format("15:04:05"),
		ui.RenderEventType(e.Type),
		summarize(e.Payload()))
}

// summarize renders the interesting fields of a payload.
func summarize(p model.Payload) string {
	switch v := p.(type) {
	case *model.SoundboardPlay:
		return fmt.Sprintf("%s (track %d, volume %.2f)", v.TrackName, v.TrackID, v.Volume)
	case *model.AudioControl:
		s := v.Action
		if v.TrackID != 0 {
			s += fmt.Sprintf(" track %d", v.TrackID)
		}
		if v.PlaylistID != 0 {
			s += fmt.Sprintf(" playlist %d", v.PlaylistID)
		}
		return s
	case *model.MapDrawingAdded:
		return fmt.Sprintf("map %d: %s by user %d, %d points", v.MapID, v.DrawingType, v.UserID, len(v.PathData))
	case *model.MapDrawingsCleared:
		return fmt.Sprintf("map %d cleared by user %d", v.MapID, v.ClearedByUserID)
	case *model.TokenMoved:
		return fmt.Sprintf("map %d: token %d to (%g, %g)", v.MapID, v.TokenID, v.X, v.Y)
	case *model.HPChange:
		return fmt.Sprintf("character %d: %d -> %d", v.CharacterID, v.OldHP, v.NewHP)
	case *model.ItemGiven:
		name := v.ItemName
		if name == "" {
			name = fmt.Sprintf("item %d", v.ItemID)
		}
		return fmt.Sprintf("character %d: %dx %s", v.CharacterID, v.Quantity, name)
	case *model.XPAwarded:
		s := fmt.Sprintf("character %d: +%d XP", v.CharacterID, v.XPAmount)
		if v.Reason != "" {
			s += " (" + v.Reason + ")"
		}
		return s
	case *model.HexesRevealed:
		return fmt.Sprintf("map %d: %d hexes revealed", v.MapID, len(v.Hexes))
	case *model.PlayerMoved:
		return fmt.Sprintf("map %d: character %d to (%d, %d)", v.MapID, v.CharacterID, v.Q, v.R)
	case *model.Unknown:
		return string(v.Raw)
	}
	return ""
}

func printOnlineTable(w io.Writer, users []*model.OnlineUser, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tUSERNAME\tLAST SEEN")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s ago\n", u.UserID, u.Username, now.Sub(u.LastActivity).Truncate(time.Second))
	}
	tw.Flush()
}

func onlineNames(users []*model.OnlineUser) string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return strings.Join(names, ", ")
}
