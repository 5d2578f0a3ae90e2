package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/encodeous/sospf/state"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errQuitTerminal = errors.New("quit")

func parseRemote(args []string) (host string, port uint16, id state.RouterId, weight int, err error) {
	host = args[0]
	p, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		return "", 0, "", 0, fmt.Errorf("invalid port %q", args[1])
	}
	id = state.RouterId(args[2])
	weight, err = strconv.Atoi(args[3])
	if err != nil {
		return "", 0, "", 0, fmt.Errorf("invalid weight %q", args[3])
	}
	return host, uint16(p), id, weight, nil
}

// terminalCmd builds the command tree for a single input line.
func terminalCmd(r *Router) *cobra.Command {
	root := &cobra.Command{
		Use:           "router",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(&cobra.Command{
		Use:   "attach <host> <port> <id> <weight>",
		Short: "Occupy a neighbour slot",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, id, weight, err := parseRemote(args)
			if err != nil {
				return err
			}
			n, err := r.Attach(host, port, id, weight)
			if err != nil {
				return err
			}
			cmd.Printf("attached %s at slot %d\n", n.Remote, n.Slot)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Handshake with every attached neighbour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := r.Start()
			if err != nil {
				return err
			}
			cmd.Println("started")
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "connect <host> <port> <id> <weight>",
		Short: "Attach a neighbour and handshake with it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, port, id, weight, err := parseRemote(args)
			if err != nil {
				return err
			}
			err = r.Connect(host, port, id, weight)
			if err != nil {
				return err
			}
			cmd.Printf("connected to %s\n", id)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "disconnect <slot>",
		Short: "Remove the neighbour at a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot %q", args[0])
			}
			err = r.Disconnect(slot)
			if err != nil {
				return err
			}
			cmd.Printf("disconnected slot %d\n", slot)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:     "neighbors",
		Aliases: []string{"neighbours"},
		Short:   "List confirmed neighbours",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			neighs, err := r.Neighbours()
			if err != nil {
				return err
			}
			if len(neighs) == 0 {
				cmd.Println("no neighbours")
			}
			for i, n := range neighs {
				cmd.Printf("IP Address of the neighbour%d: %s\n", i+1, n.Id)
			}
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "detect <id>",
		Short: "Print the shortest path to a router",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := r.Detect(state.RouterId(args[0]))
			if err != nil {
				return err
			}
			cmd.Println(path)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "lsd",
		Short: "Dump the link state database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := r.Lsd()
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Show every neighbour slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := r.Inspect()
			if err != nil {
				return err
			}
			cmd.Print(out)
			return nil
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "quit",
		Short: "Withdraw from the network and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := r.Quit()
			if err != nil {
				return err
			}
			return errQuitTerminal
		},
	})
	return root
}

// ExecLine runs one operator command. It reports true once the router quit.
func ExecLine(r *Router, line string, out io.Writer) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}
	cmd := terminalCmd(r)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if errors.Is(err, errQuitTerminal) {
		return true
	}
	if err != nil {
		_, _ = fmt.Fprintf(out, "error: %s\n", err)
	}
	return false
}

// RunTerminal reads operator commands line by line until quit or end of input.
func RunTerminal(r *Router, in io.Reader, out io.Writer) error {
	prompt := ""
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		prompt = ">> "
	}
	scanner := bufio.NewScanner(in)
	for {
		_, _ = io.WriteString(out, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ExecLine(r, scanner.Text(), out) {
			return nil
		}
		if r.Context.Err() != nil {
			return nil
		}
	}
}
