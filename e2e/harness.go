//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/encodeous/sospf/state"
	"github.com/goccy/go-yaml"
)

const (
	WaitTimeout = 30 * time.Second
)

// binaryPath is the sospf executable built by TestMain.
var binaryPath string

type Node struct {
	Name  string
	Cfg   state.LocalCfg
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}
	err   error
}

// Harness runs every router as its own sospf process on loopback.
type Harness struct {
	t          *testing.T
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	Nodes      map[string]*Node
	LogManager *LogManager
	Dir        string
}

func NewHarness(t *testing.T) *Harness {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Harness{
		t:          t,
		ctx:        ctx,
		cancel:     cancel,
		Nodes:      make(map[string]*Node),
		LogManager: NewLogManager(),
		Dir:        t.TempDir(),
	}
	t.Cleanup(func() {
		h.Cleanup()
	})
	return h
}

// FreePort finds a loopback port that nothing listens on right now.
func (h *Harness) FreePort() uint16 {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		h.t.Fatal(err)
	}
	defer l.Close()
	return uint16(l.Addr().(*net.TCPAddr).Port)
}

// NewConfig returns a config for name on a free loopback port.
func (h *Harness) NewConfig(name string) state.LocalCfg {
	return state.LocalCfg{
		Id:   state.RouterId(name),
		Host: "127.0.0.1",
		Port: h.FreePort(),
	}
}

// WriteConfig marshals the config to YAML and writes it to the run directory
func (h *Harness) WriteConfig(cfg state.LocalCfg) string {
	path := filepath.Join(h.Dir, string(cfg.Id)+".yaml")
	data, err := yaml.Marshal(cfg)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

func (h *Harness) StartNodes(cfgs ...state.LocalCfg) {
	for _, cfg := range cfgs {
		h.StartNode(cfg)
	}
	for _, cfg := range cfgs {
		h.WaitForLog(string(cfg.Id), "listening on")
	}
}

func (h *Harness) StartNode(cfg state.LocalCfg) *Node {
	name := string(cfg.Id)
	cfgPath := h.WriteConfig(cfg)
	cmd := exec.CommandContext(h.ctx, binaryPath, "--config", cfgPath, "run", "--verbose")
	cmd.Stdout = &managerWriter{node: name, source: SourceStdout, manager: h.LogManager}
	cmd.Stderr = &managerWriter{node: name, source: SourceStderr, manager: h.LogManager}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		h.t.Fatal(err)
	}
	err = cmd.Start()
	if err != nil {
		h.t.Fatalf("failed to start %s: %v", name, err)
	}
	n := &Node{
		Name:  name,
		Cfg:   cfg,
		cmd:   cmd,
		stdin: stdin,
		done:  make(chan struct{}),
	}
	go func() {
		n.err = cmd.Wait()
		close(n.done)
	}()

	h.mu.Lock()
	h.Nodes[name] = n
	h.mu.Unlock()
	return n
}

func (h *Harness) node(name string) *Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	n, ok := h.Nodes[name]
	if !ok {
		h.t.Fatalf("node %s not found", name)
	}
	return n
}

// Exec types one terminal line into node and waits for pattern in the reply.
func (h *Harness) Exec(name string, line string, pattern string) string {
	n := h.node(name)
	from := len(h.LogManager.History(name, SourceStdout))
	_, err := io.WriteString(n.stdin, line+"\n")
	if err != nil {
		h.t.Fatalf("failed to send %q to %s: %v", line, name, err)
	}
	h.waitFor(name, SourceStdout, pattern, false, from)
	return h.LogManager.History(name, SourceStdout)[from:]
}

// Eventually repeats a terminal line until the reply contains pattern.
func (h *Harness) Eventually(name string, line string, pattern string) {
	deadline := time.Now().Add(WaitTimeout)
	for time.Now().Before(deadline) {
		from := len(h.LogManager.History(name, SourceStdout))
		_, err := io.WriteString(h.node(name).stdin, line+"\n")
		if err != nil {
			h.t.Fatalf("failed to send %q to %s: %v", line, name, err)
		}
		time.Sleep(200 * time.Millisecond)
		if sub := h.LogManager.History(name, SourceStdout)[from:]; strings.Contains(sub, pattern) {
			return
		}
	}
	h.PrintLogs(name)
	h.t.Fatalf("timed out waiting for %q to print %q on %s", line, pattern, name)
}

func (h *Harness) WaitForLog(name string, pattern string) {
	h.waitFor(name, SourceStderr, pattern, false, 0)
}

func (h *Harness) WaitForMatch(name string, pattern string) {
	h.waitFor(name, SourceStderr, pattern, true, 0)
}

func (h *Harness) waitFor(name string, source LogSource, pattern string, isRegex bool, from int) {
	sub, err := h.LogManager.Subscribe(name, source, pattern, isRegex, from)
	if err != nil {
		h.t.Fatalf("failed to subscribe: %v", err)
	}
	defer h.LogManager.Unsubscribe(sub)

	select {
	case <-sub.MatchCh:
		return
	case <-time.After(WaitTimeout):
		h.PrintLogs(name)
		h.t.Fatalf("timed out waiting for %s pattern %q in node %s", source, pattern, name)
	case <-h.ctx.Done():
		h.t.Fatal("context canceled")
	}
}

// WaitExit waits for the process of node to exit on its own.
func (h *Harness) WaitExit(name string) error {
	n := h.node(name)
	select {
	case <-n.done:
		return n.err
	case <-time.After(WaitTimeout):
		h.t.Fatalf("%s did not exit", name)
		return nil
	}
}

func (h *Harness) PrintLogs(name string) {
	h.t.Logf("Logs for %s:\n%s\n%s", name,
		h.LogManager.History(name, SourceStderr),
		h.LogManager.History(name, SourceStdout))
}

func (h *Harness) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, n := range h.Nodes {
		select {
		case <-n.done:
			continue
		default:
		}
		if err := n.cmd.Process.Signal(syscall.SIGINT); err != nil {
			h.t.Logf("failed to interrupt %s: %v", name, err)
		}
		select {
		case <-n.done:
		case <-time.After(5 * time.Second):
			h.t.Logf("killing %s", name)
			_ = n.cmd.Process.Kill()
			<-n.done
		}
	}
	h.cancel()
}

// Neighbour returns the config entry other routers use to attach to cfg.
func Neighbour(cfg state.LocalCfg, weight int) state.NeighbourCfg {
	return state.NeighbourCfg{
		Id:     cfg.Id,
		Host:   cfg.Host,
		Port:   cfg.Port,
		Weight: weight,
	}
}

// remoteLine renders an attach or connect terminal command towards cfg.
func remoteLine(verb string, cfg state.LocalCfg, weight int) string {
	return fmt.Sprintf("%s %s %d %s %d", verb, cfg.Host, cfg.Port, cfg.Id, weight)
}
