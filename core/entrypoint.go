package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/encodeous/sospf/perf"
	"github.com/encodeous/sospf/state"
	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
)

func ReadLocalConfig(cfgPath string) (*state.LocalCfg, error) {
	var cfg state.LocalCfg
	file, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Host == "" {
		cfg.Host = state.DefaultHost
	}
	return &cfg, nil
}

// NewLogger writes to the console and, if logPath is set, appends to that file.
func NewLogger(id state.RouterId, console io.Writer, logPath string, level slog.Level) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: string(id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer = io.NopCloser(nil)
	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Bootstrap runs a router from a config file with the operator terminal on
// stdin until the router quits or is interrupted.
func Bootstrap(cfgPath, logPath string, verbose bool, debugAddr string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	cfg, err := ReadLocalConfig(cfgPath)
	if err != nil {
		return err
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	logger, closer, err := NewLogger(cfg.Id, os.Stderr, cfg.LogPath, level)
	if err != nil {
		return err
	}
	defer closer.Close()

	if debugAddr != "" {
		go func() {
			logger.Warn("debug server exited", "err", http.ListenAndServe(debugAddr, nil))
		}()
	}

	r, err := NewRouter(*cfg, logger)
	if err != nil {
		return err
	}
	r.Log.Info("router initialized", "self", r.Self, "neighbours", len(cfg.Neighbours))

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			r.StopCause(errors.New("received shutdown signal"))
		case <-r.Context.Done():
		}
	}()

	go func() {
		err := RunTerminal(r, os.Stdin, os.Stdout)
		if err != nil {
			r.Log.Warn("terminal closed", "err", err)
		}
		r.Stop()
	}()

	err = r.Run()
	if errors.Is(context.Cause(r.Context), ErrQuit) {
		return nil
	}
	return err
}

// MainLoop executes dispatched functions one at a time until the router stops.
func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	for {
		select {
		case fun := <-dispatch:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch", "error", err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatch {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			s.Log.Debug("stopped main loop", "reason", context.Cause(s.Context))
			return nil
		}
	}
}
