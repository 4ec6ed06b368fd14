// humanbridge-cli is a cobra-based convenience client speaking the same
// WebSocket protocol as any other client session (spec §4.1 "Role": client
// sessions are anything other than the extension's handshake). It is an
// external collaborator, not part of the broker/page-bridge/engine core —
// the way the teacher ships cmd/gasoline-cmd alongside its daemon.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	addr       string
	timeoutMs  int
	tabID      int
)

func main() {
	root := &cobra.Command{
		Use:   "humanbridge-cli",
		Short: "Convenience client for the human-browser broker",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "ws://127.0.0.1:7331/ws", "broker WebSocket address")
	root.PersistentFlags().IntVar(&timeoutMs, "timeout", 5000, "request timeout in milliseconds")
	root.PersistentFlags().IntVar(&tabID, "tab", 0, "target tab id")

	root.AddCommand(
		navCommand(),
		clickCommand(),
		typeCommand(),
		scrollCommand(),
		screenshotCommand(),
		evalCommand(),
		listenCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func timeout() time.Duration { return time.Duration(timeoutMs) * time.Millisecond }

// runOne dials the broker, issues a single request against --tab, prints
// the result as JSON, and exits non-zero on error.
func runOne(action string, params any) {
	c, err := dial(addr)
	if err != nil {
		fail(err)
	}
	defer c.close()

	result, err := c.call(action, tabID, params, timeout())
	if err != nil {
		fail(err)
	}
	printResult(result)
}

func printResult(result json.RawMessage) {
	if len(result) == 0 {
		fmt.Println("ok")
		return
	}
	var pretty any
	if err := json.Unmarshal(result, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Println(string(result))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "humanbridge-cli: %v\n", err)
	os.Exit(1)
}

func navCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nav <url>",
		Short: "Navigate the target tab to a URL",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runOne("tabs.navigate", map[string]any{"url": args[0]})
		},
	}
}

func clickCommand() *cobra.Command {
	var clickCount int
	cmd := &cobra.Command{
		Use:   "click <selector>",
		Short: "Human-like click on the first element matching selector",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runOne("human.click", map[string]any{"selector": args[0], "clickCount": clickCount})
		},
	}
	cmd.Flags().IntVar(&clickCount, "count", 1, "1=click, 2=double-click, 3=triple-click")
	return cmd
}

func typeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "type <selector> <text>",
		Short: "Human-like typing into the first element matching selector",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			runOne("human.type", map[string]any{"selector": args[0], "text": args[1]})
		},
	}
}

func scrollCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scroll <selector> <amount>",
		Short: "Human-like scroll of the element matching selector",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			var amount int
			fmt.Sscanf(args[1], "%d", &amount)
			runOne("human.scroll", map[string]any{"selector": args[0], "amount": amount})
		},
	}
}

func screenshotCommand() *cobra.Command {
	var full bool
	var out string
	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture the target tab as a PNG",
		Run: func(cmd *cobra.Command, args []string) {
			c, err := dial(addr)
			if err != nil {
				fail(err)
			}
			defer c.close()

			result, err := c.call("tabs.screenshot", tabID, map[string]any{"fullPage": full}, timeout())
			if err != nil {
				fail(err)
			}
			var payload struct {
				Image string `json:"image"`
			}
			if err := json.Unmarshal(result, &payload); err != nil {
				fail(err)
			}
			raw, err := base64.StdEncoding.DecodeString(payload.Image)
			if err != nil {
				fail(err)
			}
			if out == "" {
				out = "screenshot.png"
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				fail(err)
			}
			fmt.Println(out)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "capture the full scrollable page, not just the viewport")
	cmd.Flags().StringVar(&out, "out", "", "output file path (default screenshot.png)")
	return cmd
}

func evalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <js-function-body>",
		Short: "Evaluate a page-world function via the CSP fallback ladder",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runOne("dom.evaluate", map[string]any{"fn": args[0], "args": []any{}})
		},
	}
}

func listenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Stream broadcast events (response/urlChanged/cookiesChanged) as JSON lines",
		Run: func(cmd *cobra.Command, args []string) {
			c, err := dial(addr)
			if err != nil {
				fail(err)
			}
			defer c.close()
			for evt := range c.events() {
				out, _ := json.Marshal(evt)
				fmt.Println(string(out))
			}
		},
	}
}
