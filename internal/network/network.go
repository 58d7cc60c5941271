// Package network tracks whether the weather and time services are reachable.
//
// Probing blocks for up to the probe timeout, so it runs on its own goroutine
// (Monitor.Run). The scheduler loop only reads the published result through
// Monitor.Check.
package network

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/go-ping/ping"
	"go.uber.org/zap"
)

// Prober checks reachability once. Implementations must bound their own wait.
type Prober interface {
	Reachable(ctx context.Context) bool
}

// PingProber sends one unprivileged (UDP) echo to Host.
//
// Unprivileged ping needs the process group inside net.ipv4.ping_group_range.
// When the socket cannot be opened at all the error is logged and Fallback,
// if set, answers instead. A missing reply is not an error.
//
// A PingProber is not safe for concurrent use; the Monitor calls it from one
// goroutine.
type PingProber struct {
	Host     string
	Timeout  time.Duration
	Fallback Prober
	Logger   *zap.Logger

	lastErr string
}

// Reachable reports whether a reply arrived before the timeout.
func (p *PingProber) Reachable(ctx context.Context) bool {
	ok, err := p.ping(ctx)
	p.noteError(err)
	if err != nil {
		if p.Fallback != nil {
			return p.Fallback.Reachable(ctx)
		}
		return false
	}
	return ok
}

func (p *PingProber) ping(ctx context.Context) (bool, error) {
	pinger, err := ping.NewPinger(p.Host)
	if err != nil {
		return false, err
	}
	pinger.SetPrivileged(false)
	pinger.Count = 1
	pinger.Timeout = p.Timeout
	if pinger.Timeout <= 0 {
		pinger.Timeout = time.Second
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()
	err = pinger.Run()
	close(done)
	if err != nil {
		return false, err
	}
	return pinger.Statistics().PacketsRecv > 0, nil
}

// noteError logs only when the error changes, so a host without ping
// permission logs once instead of every period.
func (p *PingProber) noteError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg == p.lastErr {
		return
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err != nil {
		logger.Warn("ping probe failed",
			zap.String("host", p.Host),
			zap.Bool("fallback", p.Fallback != nil),
			zap.Error(err))
	} else {
		logger.Info("ping probe recovered", zap.String("host", p.Host))
	}
	p.lastErr = msg
}

// DialProber reports reachability by completing a TCP handshake with Addr.
type DialProber struct {
	Addr    string
	Timeout time.Duration
}

// Reachable reports whether the connection was established in time.
func (d DialProber) Reachable(ctx context.Context) bool {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(dctx, "tcp", d.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Monitor publishes the latest probe result and reports the first
// offline→online edge to the loop.
type Monitor struct {
	prober    Prober
	reachable atomic.Bool

	// Owned by the loop goroutine.
	online bool
	ever   bool
}

// NewMonitor starts offline.
func NewMonitor(p Prober) *Monitor {
	return &Monitor{prober: p}
}

// Probe runs the prober once and publishes the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	r := m.prober.Reachable(ctx)
	m.reachable.Store(r)
	return r
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		m.Probe(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check reads the last published result without blocking and reports
// whether this is the first time the network has been seen online.
func (m *Monitor) Check(context.Context) (online, first bool) {
	m.online = m.reachable.Load()
	if m.online && !m.ever {
		m.ever = true
		return true, true
	}
	return m.online, false
}

// Online returns the result seen by the last Check.
func (m *Monitor) Online() bool { return m.online }
