package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alfredjeanlab/becmi/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login <username>",
	Short:   "Log in and save the session token",
	GroupID: "account",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword()
		if err != nil {
			return err
		}

		res, err := rtClient.Login(context.Background(), args[0], password)
		if err != nil {
			return fmt.Errorf("logging in: %w", err)
		}

		if err := saveProfile(Profile{URL: serverURL, Username: res.Username, Token: res.Token}); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}

		if jsonOutput {
			return printJSON(res)
		}
		fmt.Printf("Logged in as %s (expires %s)\n", ui.RenderAccent(res.Username), res.ExpiresAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "End the saved session",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rtClient.Token() == "" {
			return fmt.Errorf("not logged in")
		}
		if err := rtClient.Logout(context.Background()); err != nil {
			return fmt.Errorf("logging out: %w", err)
		}

		p, err := loadProfile()
		if err != nil {
			return err
		}
		p.Token = ""
		if err := saveProfile(p); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

// readPassword reads from BECMI_PASSWORD, the terminal without echo, or a
// single line of stdin when it is not a terminal.
func readPassword() (string, error) {
	if p := os.Getenv("BECMI_PASSWORD"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
