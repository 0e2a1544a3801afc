package core

import (
	"context"
	"log/slog"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/manasim/perf"
	"github.com/encodeous/manasim/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the process logger: coloured output on stderr, and a plain text
// copy in logPath if it is set.
func NewLogger(level slog.Level, prefix, logPath string) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

func initModules(s *state.State) error {
	var modules []state.Module
	modules = append(modules, &Router{})
	modules = append(modules, &Simulator{})
	modules = append(modules, &Gateway{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

// MainLoop runs dispatched tasks one at a time until the context of s is cancelled.
// A task that returns an error stops the loop.
func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.DispatchWarnThreshold {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

// Stop cleans up the modules and closes the ledger. The dispatch channel is left open,
// senders observe the cancelled context instead.
func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop", "module", moduleName, "error", err)
		}
	}
	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			s.Log.Error("error closing ledger", "error", err)
		}
	}
	s.Log.Info("stopped")
}
