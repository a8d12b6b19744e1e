package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/becmi/internal/client"
	"github.com/alfredjeanlab/becmi/internal/ui"
)

var (
	serverURL  string
	jsonOutput bool
	noColor    bool

	rtClient *client.HTTPClient
)

func defaultServerURL() string {
	if s := os.Getenv("BECMI_URL"); s != "" {
		return s
	}
	if p, err := loadProfile(); err == nil && p.URL != "" {
		return p.URL
	}
	return "http://localhost:8080"
}

// sessionToken prefers BECMI_TOKEN over the saved profile.
func sessionToken() string {
	if t := os.Getenv("BECMI_TOKEN"); t != "" {
		return t
	}
	if p, err := loadProfile(); err == nil {
		return p.Token
	}
	return ""
}

var rootCmd = &cobra.Command{
	Use:   "becmi <command>",
	Short: "Realtime backend and client for BECMI game sessions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetColor(!noColor && ui.ShouldUseColor())
		rtClient = client.NewHTTPClient(serverURL, sessionToken())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rtClient != nil {
			rtClient.Close()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultServerURL(), "server base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Session
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(onlineCmd)
	rootCmd.AddCommand(emitCmd)

	// Account
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
