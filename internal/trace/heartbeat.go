package trace

import (
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Heartbeat periodically emits liveness events so a stuck check shows up in
// the trace as heartbeats without matching span ends.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartHeartbeat starts the heartbeat goroutine. Returns nil when disabled.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	start := time.Now()
	var n uint64
	for {
		select {
		case now := <-ticker.C:
			n++
			h.tracer.Emit(&Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d", n),
				Extra:  liveness(now.Sub(start)),
			})
		case <-h.stopCh:
			return
		}
	}
}

// liveness samples the process so a trace shows whether a slow check is
// still allocating or has stalled.
func liveness(uptime time.Duration) map[string]string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return map[string]string{
		"uptime":     uptime.Round(time.Millisecond).String(),
		"goroutines": strconv.Itoa(runtime.NumGoroutine()),
		"heap_kb":    strconv.FormatUint(ms.HeapAlloc>>10, 10),
		"gc":         strconv.FormatUint(uint64(ms.NumGC), 10),
	}
}

// Stop ends the goroutine and waits for it. Safe on nil and when called twice.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
