// Package interactive provides the interactive command-line interface
// for the secdgram client.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/secdgram/secdgram-go/pkg/assoc"
)

// SessionFunc returns the current association, or nil when no session is
// live. The supervisor swaps sessions behind this function during redial.
type SessionFunc func() *assoc.Association

// Client handles interactive mode for secdgram-client.
type Client struct {
	session SessionFunc
	rl      *readline.Instance
}

// New creates a new interactive client handler.
func New(session SessionFunc) (*Client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "secdgram> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Client{session: session, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Client) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Client) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Client) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "send", "s":
			c.cmdSend(input, args)

		case "status":
			c.cmdStatus()

		case "close":
			c.cmdClose()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Client) cmdSend(input string, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: send <message>")
		return
	}
	a := c.session()
	if a == nil {
		fmt.Fprintln(c.rl.Stdout(), "No live session")
		return
	}

	// Preserve the message verbatim, including inner whitespace.
	_, message, _ := strings.Cut(input, " ")
	if err := a.Send([]byte(strings.TrimSpace(message))); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
	}
}

func (c *Client) cmdStatus() {
	a := c.session()
	if a == nil {
		fmt.Fprintln(c.rl.Stdout(), "No live session")
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Name:       %s\n", a.Name())
	fmt.Fprintf(c.rl.Stdout(), "Session:    %s\n", a.ConnectionID())
	fmt.Fprintf(c.rl.Stdout(), "Mode:       %s\n", a.Mode())
	fmt.Fprintf(c.rl.Stdout(), "Pings sent: %d\n", a.PingCount())
}

func (c *Client) cmdClose() {
	a := c.session()
	if a == nil {
		fmt.Fprintln(c.rl.Stdout(), "No live session")
		return
	}
	a.Close()
	fmt.Fprintln(c.rl.Stdout(), "Session closed")
}

func (c *Client) printHelp() {
	out := c.rl.Stdout()
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  send <message>  - Send an encrypted datagram to the server")
	fmt.Fprintln(out, "  status          - Show session status")
	fmt.Fprintln(out, "  close           - Close the current session")
	fmt.Fprintln(out, "  help            - Show this help")
	fmt.Fprintln(out, "  quit            - Exit the client")
}
