// Command cnc-send sends G-code to a running cnc-relay.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/banshee-data/cnc-relay/internal/relayclient"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	sentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
)

func printResult(out io.Writer, res *relayclient.SendResult) {
	fmt.Fprintf(out, "%s %s\n", sentStyle.Render(">"), res.SentGCode)
	for _, r := range res.CNCResponses {
		mark := okStyle.Render("✓")
		if r.Code == "" || strings.HasPrefix(r.Code, "error:") || strings.HasPrefix(r.Code, "ALARM:") {
			mark = failStyle.Render("✗")
		}
		if r.Code == "" {
			fmt.Fprintf(out, "  %s %s\n", mark, r.Message)
			continue
		}
		fmt.Fprintf(out, "  %s %-10s %s\n", mark, r.Code, r.Message)
	}
}

func sendLines(cmd *cobra.Command, c *relayclient.Client, lines []string, port string) error {
	err := c.Run(cmd.Context(), lines, port, func(res *relayclient.SendResult) {
		printResult(cmd.OutOrStdout(), res)
	})
	if relayclient.IsConflict(err) {
		return fmt.Errorf("%w (another command is running; try again shortly)", err)
	}
	return err
}

// newRootCmd builds the command tree. newClient is called once flags are parsed.
func newRootCmd(newClient func(addr string) *relayclient.Client) *cobra.Command {
	var addr string
	client := func() *relayclient.Client { return newClient(addr) }

	root := &cobra.Command{
		Use:           "cnc-send",
		Short:         "Send G-code through a cnc-relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&addr, "addr", "a", "http://localhost:8080", "Base URL of the relay")

	var port string
	sendCmd := &cobra.Command{
		Use:   "send <gcode...>",
		Short: "Send one line of G-code",
		Long: `Send one line of G-code to the controller on --port and print each reply.

Example usage:
  cnc-send send --port COM3 G01 X10 Y10 F1000
  cnc-send send -p /dev/ttyUSB0 '$X'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			return sendLines(cmd, client(), []string{text}, port)
		},
	}
	sendCmd.Flags().StringVarP(&port, "port", "p", "", "Serial port to send to")
	_ = sendCmd.MarkFlagRequired("port")

	var shapePort string
	var size, feed float64
	shapeCmd := &cobra.Command{
		Use:       "shape <square|circle>",
		Short:     "Run a demonstration program",
		Long:      `Fetch a demonstration program from the relay and send it line by line, stopping at the first error or alarm.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"square", "circle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client()
			prog, err := c.Shape(cmd.Context(), args[0], size, feed)
			if err != nil {
				return err
			}
			return sendLines(cmd, c, prog.Lines, shapePort)
		},
	}
	shapeCmd.Flags().StringVarP(&shapePort, "port", "p", "", "Serial port to send to")
	shapeCmd.Flags().Float64VarP(&size, "size", "s", 0, "Side length or radius in mm (relay default if unset)")
	shapeCmd.Flags().Float64VarP(&feed, "feed", "f", 0, "Feed rate in mm/min (relay default if unset)")
	_ = shapeCmd.MarkFlagRequired("port")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the relay's serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := client().Ports(cmd.Context())
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	releaseCmd := &cobra.Command{
		Use:   "release",
		Short: "Close the relay's serial port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := client().Release(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	root.AddCommand(sendCmd, shapeCmd, listCmd, releaseCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(func(addr string) *relayclient.Client {
		return relayclient.NewClient(nil, addr)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failStyle.Render("✗"), err)
		os.Exit(1)
	}
}
