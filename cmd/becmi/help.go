package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/becmi/internal/ui"
)

// helpRule styles every match of re. Group 1, when present, is kept as-is
// and only the remainder of the match is styled.
type helpRule struct {
	re     *regexp.Regexp
	render func(string) string
}

var helpRules = []helpRule{
	// Section headers such as "Session:" or "Flags:".
	{regexp.MustCompile(`(?m)^()([A-Z][A-Za-z ]*:)$`), ui.RenderAccent},
	// Subcommand names in the command list.
	{regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(?:  )`), ui.RenderCommand},
	// Flag value types, e.g. "--since int64".
	{regexp.MustCompile(`(--[\w-]+ )(int64|int|float|string|duration)\b`), ui.RenderMuted},
	// Default values, e.g. (default "http://localhost:8080") or (default 1).
	{regexp.MustCompile(`()(\(default [^)]*\))`), ui.RenderMuted},
}

// colorizedHelpFunc prints cobra's usage text, styled when color is on.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if noColor || !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	for _, r := range helpRules {
		s = r.re.ReplaceAllStringFunc(s, func(match string) string {
			m := r.re.FindStringSubmatch(match)
			rest := match[len(m[1])+len(m[2]):]
			return m[1] + r.render(m[2]) + rest
		})
	}
	return s
}
