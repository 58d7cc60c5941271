package network

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type scriptedProber struct {
	results []bool
	calls   int
}

func (p *scriptedProber) Reachable(ctx context.Context) bool {
	r := p.results[p.calls%len(p.results)]
	p.calls++
	return r
}

type fixedProber bool

func (f fixedProber) Reachable(context.Context) bool { return bool(f) }

// blockingProber waits until release is closed or ctx ends, like a dropped
// echo waiting out its timeout.
type blockingProber struct{ release chan struct{} }

func (b blockingProber) Reachable(ctx context.Context) bool {
	select {
	case <-b.release:
		return true
	case <-ctx.Done():
		return false
	}
}

func TestMonitor_FirstOnlineEdgeOnce(t *testing.T) {
	m := NewMonitor(&scriptedProber{results: []bool{false, true, false, true, true}})
	ctx := context.Background()

	want := []struct{ online, first bool }{
		{false, false},
		{true, true},
		{false, false},
		{true, false},
		{true, false},
	}
	for i, w := range want {
		m.Probe(ctx)
		online, first := m.Check(ctx)
		if online != w.online || first != w.first {
			t.Errorf("check %d = (%v, %v), want (%v, %v)", i, online, first, w.online, w.first)
		}
		if m.Online() != w.online {
			t.Errorf("check %d: Online() = %v, want %v", i, m.Online(), w.online)
		}
	}
}

func TestMonitor_StartsOffline(t *testing.T) {
	m := NewMonitor(fixedProber(true))
	if m.Online() {
		t.Error("Online() = true before first check")
	}
	if online, first := m.Check(context.Background()); online || first {
		t.Errorf("Check() before any probe = (%v, %v), want (false, false)", online, first)
	}
}

func TestMonitor_CheckDoesNotWaitForProbe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	m := NewMonitor(blockingProber{release: release})
	go m.Run(ctx, 5*time.Millisecond)

	start := time.Now()
	for i := 0; i < 10; i++ {
		if online, _ := m.Check(ctx); online {
			t.Fatal("Check() = online while the probe is still waiting")
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("10 checks took %v with a hanging probe, want immediate", elapsed)
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if online, first := m.Check(ctx); online {
			if !first {
				t.Error("first online Check() did not report the edge")
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("monitor never published the probe result")
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMonitor(fixedProber(true))
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPingProber_InvalidHost(t *testing.T) {
	p := &PingProber{Host: "invalid host name with spaces", Timeout: 1}
	if p.Reachable(context.Background()) {
		t.Error("Reachable() = true for unresolvable host")
	}
}

func TestPingProber_ErrorLoggedOnceAndFallbackUsed(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &PingProber{
		Host:     "invalid host name with spaces",
		Timeout:  time.Millisecond,
		Fallback: fixedProber(true),
		Logger:   zap.New(core),
	}

	for i := 0; i < 3; i++ {
		if !p.Reachable(context.Background()) {
			t.Errorf("probe %d: Reachable() = false, want fallback result true", i)
		}
	}
	if n := logs.FilterMessage("ping probe failed").Len(); n != 1 {
		t.Errorf("ping probe failed logs = %d, want 1 for a repeated error", n)
	}
}

func TestPingProber_NoteErrorRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := &PingProber{Host: "1.1.1.1", Logger: zap.New(core)}

	p.noteError(nil)
	if logs.Len() != 0 {
		t.Errorf("logs = %d for a clean first probe, want 0", logs.Len())
	}
	p.noteError(&net.OpError{Op: "listen", Net: "udp4", Err: errPermission{}})
	p.noteError(nil)
	if logs.FilterMessage("ping probe failed").Len() != 1 || logs.FilterMessage("ping probe recovered").Len() != 1 {
		t.Errorf("logs = %v, want one failure and one recovery", logs.All())
	}
}

type errPermission struct{}

func (errPermission) Error() string { return "socket: permission denied" }

func TestDialProber(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()

	if !(DialProber{Addr: addr, Timeout: time.Second}).Reachable(context.Background()) {
		t.Error("Reachable() = false for a listening address")
	}
	ln.Close()
	if (DialProber{Addr: addr, Timeout: 200 * time.Millisecond}).Reachable(context.Background()) {
		t.Error("Reachable() = true after the listener closed")
	}
}
