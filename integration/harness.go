//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/encodeous/manasim/core"
	"github.com/encodeous/manasim/state"
	"github.com/encodeous/manasim/web"
	"golang.org/x/sync/errgroup"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}

// Harness runs a broker on virtual time behind a real http listener.
// Every wall-clock Interval the virtual clock advances by Step.
type Harness struct {
	Cfg      state.Config
	Step     time.Duration
	Interval time.Duration
	Broker   *core.Broker
	Server   *httptest.Server

	mu     sync.Mutex
	now    time.Time
	ticked chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewHarness(mod func(cfg *state.Config)) *Harness {
	cfg := state.MockCfg()
	if mod != nil {
		mod(&cfg)
	}
	return &Harness{
		Cfg:      cfg,
		Step:     time.Second,
		Interval: 2 * time.Millisecond,
		ticked:   make(chan struct{}, 1),
	}
}

func (h *Harness) Start() error {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.now = state.MockTime(0)
	b, err := core.NewBroker(h.Cfg, h.now, log, nil)
	if err != nil {
		return err
	}
	h.Broker = b
	h.Server = httptest.NewServer(web.NewHandler(b, log))

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.group, ctx = errgroup.WithContext(ctx)
	h.group.Go(func() error {
		ticker := time.NewTicker(h.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				h.mu.Lock()
				h.now = h.now.Add(h.Step)
				now := h.now
				h.mu.Unlock()
				err := b.Tick(ctx, now)
				if err != nil && ctx.Err() == nil {
					return err
				}
				select {
				case h.ticked <- struct{}{}:
				default:
				}
			}
		}
	})
	return nil
}

// Now is the virtual time of the last tick
func (h *Harness) Now() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// WaitFor re-evaluates cond after every tick until it holds or timeout passes
func (h *Harness) WaitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.After(timeout)
	for {
		if cond() {
			return true
		}
		select {
		case <-h.ticked:
		case <-deadline:
			return cond()
		}
	}
}

func (h *Harness) Stop() error {
	h.cancel()
	err := h.group.Wait()
	h.Server.Close()
	return errors.Join(err, h.Broker.Close())
}

// Get fetches path from the api and decodes a successful json body into out
func (h *Harness) Get(path string, out any) (int, error) {
	res, err := h.Server.Client().Get(h.Server.URL + path)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		err = json.NewDecoder(res.Body).Decode(out)
	}
	return res.StatusCode, err
}

func (h *Harness) Post(path, body string, out any) (int, error) {
	res, err := h.Server.Client().Post(h.Server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode < 300 {
		err = json.NewDecoder(res.Body).Decode(out)
	}
	return res.StatusCode, err
}
