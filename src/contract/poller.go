package contract

import (
	"context"
	"sync"
	"time"

	"github.com/carpal-dk/backoffice/src/logger"
)

// ProbeKind classifies a screenshot-store response by its metadata.
type ProbeKind int

const (
	ProbeJSON ProbeKind = iota // status payload; Status carries pending/failed/...
	ProbePDF                   // binary document, terminal ready
	ProbeNotFound
	ProbeError
)

// ProbeResult is one raw probe outcome before classification.
type ProbeResult struct {
	Kind    ProbeKind
	Status  string // only for ProbeJSON
	Message string // only for ProbeError
}

// ResourceProber probes the screenshot store for a deal's primary document
// and its indexed document series.
type ResourceProber interface {
	ProbeScreenshot(ctx context.Context, dealID string) (ProbeResult, error)
	ProbeScreenshotIndex(ctx context.Context, dealID string, index int) (ProbeResult, error)
}

// ScreenshotState is the converged classification of the primary document.
type ScreenshotState string

const (
	ScreenshotIdle    ScreenshotState = "idle"
	ScreenshotPending ScreenshotState = "pending"
	ScreenshotReady   ScreenshotState = "ready"
	ScreenshotFailed  ScreenshotState = "failed"
)

// MaxScreenshotIndex bounds the indexed document series at slots 0..10.
const MaxScreenshotIndex = 10

// classifyPrimary maps a probe outcome to the poller's next move.
// done=false means keep polling.
func classifyPrimary(res ProbeResult) (state ScreenshotState, message string, done bool) {
	switch res.Kind {
	case ProbeJSON:
		switch res.Status {
		case "pending":
			return ScreenshotPending, "", false
		case "failed":
			return ScreenshotFailed, "screenshot generation failed", true
		default:
			return ScreenshotReady, "", true
		}
	case ProbePDF:
		return ScreenshotReady, "", true
	default:
		// Unrecognized responses terminate: no infinite polling against a
		// misbehaving backend.
		msg := res.Message
		if msg == "" {
			msg = "unexpected screenshot response"
		}
		return ScreenshotFailed, msg, true
	}
}

// Poller watches one deal's primary screenshot, probing immediately and then
// on a fixed cadence while the document is still processing. A new Watch (or
// Stop) invalidates the previous generation: a stale probe result can never
// touch state that belongs to a newer deal identity.
type Poller struct {
	prober ResourceProber
	delay  time.Duration

	mu     sync.Mutex
	gen    int
	cancel context.CancelFunc
}

func NewPoller(prober ResourceProber, delay time.Duration) *Poller {
	return &Poller{prober: prober, delay: delay}
}

// Watch begins polling dealID's primary screenshot. onState receives every
// state transition; it stops being called once the poller converges or the
// watch is superseded.
func (p *Poller) Watch(dealID string, onState func(ScreenshotState, string)) {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	if dealID == "" {
		cancel()
		return
	}

	go p.loop(ctx, gen, dealID, onState)
}

// Stop cancels any active watch. No callback fires after Stop returns
// observably for the cancelled generation.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
}

// deliver forwards a state change only while gen is still current.
func (p *Poller) deliver(gen int, onState func(ScreenshotState, string), state ScreenshotState, msg string) bool {
	p.mu.Lock()
	current := p.gen == gen
	p.mu.Unlock()
	if current && onState != nil {
		onState(state, msg)
	}
	return current
}

func (p *Poller) loop(ctx context.Context, gen int, dealID string, onState func(ScreenshotState, string)) {
	if !p.deliver(gen, onState, ScreenshotPending, "") {
		return
	}
	timer := time.NewTimer(0) // first probe immediately
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		res, err := p.prober.ProbeScreenshot(ctx, dealID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.deliver(gen, onState, ScreenshotFailed, err.Error())
			return
		}

		state, msg, done := classifyPrimary(res)
		if !p.deliver(gen, onState, state, msg) {
			return
		}
		if done {
			return
		}
		timer.Reset(p.delay)
	}
}

// DiscoverScreenshotIndices probes the indexed document series strictly in
// order 0..MaxScreenshotIndex, stopping at the first slot that is absent,
// still pending, failed, or unclassifiable. Each probe decides whether the
// next one runs, so this is sequential on purpose. The result is a fresh
// list every time; callers replace, never merge.
func DiscoverScreenshotIndices(ctx context.Context, prober ResourceProber, dealID string) []int {
	indices := make([]int, 0, MaxScreenshotIndex+1)
	for i := 0; i <= MaxScreenshotIndex; i++ {
		if ctx.Err() != nil {
			return indices
		}
		res, err := prober.ProbeScreenshotIndex(ctx, dealID, i)
		if err != nil {
			if logger.L != nil {
				logger.L.Debug("Screenshot index probe failed, stopping discovery", "dealID", dealID, "index", i, "error", err)
			}
			return indices
		}
		switch res.Kind {
		case ProbePDF:
			indices = append(indices, i)
		case ProbeJSON:
			if res.Status == "pending" || res.Status == "failed" {
				return indices
			}
			indices = append(indices, i)
		default:
			return indices
		}
	}
	return indices
}
