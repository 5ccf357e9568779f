package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatd/pkg/state"
)

// Minimal, low-overhead request telemetry for local diagnosis.
// - By default only slow requests are logged (see slowThreshold).
// - Full span traces are only recorded for sampled requests.

type ctxKeyType struct{}

var (
	writerOnce    sync.Once
	writerCh      chan []byte
	requestCtr    uint64
	spanCtr       uint64
	sampleRate    = 0.001
	slowThreshold = 200 * time.Millisecond
)

// Span is a timing record relative to request start (milliseconds).
type Span struct {
	ID       string                 `json:"id"`
	ParentID string                 `json:"parent_id,omitempty"`
	Op       string                 `json:"op"`
	StartMs  int64                  `json:"start_ms"`
	Duration int64                  `json:"duration_ms"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Telemetry holds the per-request trace and metadata.
type Telemetry struct {
	RequestID string `json:"request_id"`
	Op        string `json:"op"`
	StartMs   int64  `json:"start_ms"`
	Duration  int64  `json:"duration_ms"`
	Status    int    `json:"status"`
	Spans     []Span `json:"spans,omitempty"`

	startTime time.Time
	mu        sync.Mutex
	spanStack []string
}

// initWriter lazily starts a background writer appending records to
// <state>/telemetry/telemetry.jsonl.
func initWriter() {
	writerCh = make(chan []byte, 1024)
	go func() {
		dir := filepath.Join("state", "telemetry")
		if state.PathsVar.State != "" {
			dir = filepath.Join(state.PathsVar.State, "telemetry")
		}
		_ = os.MkdirAll(dir, 0o755)
		f, err := os.OpenFile(filepath.Join(dir, "telemetry.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		defer f.Close()
		for b := range writerCh {
			_, _ = f.Write(append(b, '\n'))
		}
	}()
}

// Middleware records request timing and sampled spans.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := genRequestID()
		sampled := shouldSample(r)

		var tel *Telemetry
		if sampled {
			op := r.Header.Get("X-Operation")
			if op == "" {
				op = r.URL.Path
			}
			tel = &Telemetry{
				RequestID: reqID,
				Op:        op,
				startTime: start,
				StartMs:   start.UnixNano() / 1e6,
			}
			rootID := genSpanID()
			tel.Spans = append(tel.Spans, Span{ID: rootID, Op: tel.Op, StartMs: 0})
			tel.spanStack = append(tel.spanStack, rootID)
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, tel))
		}

		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		if tel != nil {
			tel.mu.Lock()
			tel.Status = srw.status
			tel.Duration = dur.Milliseconds()
			b := renderTelemetryText(tel)
			tel.mu.Unlock()
			writerOnce.Do(initWriter)
			select {
			case writerCh <- b:
			default:
				// drop if channel full to avoid blocking
			}
			return
		}

		if dur > slowThreshold {
			op := r.Header.Get("X-Operation")
			if op == "" {
				op = r.URL.Path
			}
			b := []byte(fmt.Sprintf("SLOW %s op=%s duration_ms=%d status=%d", reqID, op, dur.Milliseconds(), srw.status))
			writerOnce.Do(initWriter)
			select {
			case writerCh <- b:
			default:
			}
		}
	})
}

// StartSpan returns an end function for a span on the current request. When
// the request is not sampled the returned function is a no-op.
func StartSpan(ctx context.Context, name string) func() {
	v := ctx.Value(ctxKeyType{})
	if v == nil {
		return func() {}
	}
	tel, ok := v.(*Telemetry)
	if !ok {
		return func() {}
	}
	startRel := time.Since(tel.startTime).Milliseconds()
	id := genSpanID()
	parent := ""

	tel.mu.Lock()
	if len(tel.spanStack) > 0 {
		parent = tel.spanStack[len(tel.spanStack)-1]
	}
	tel.Spans = append(tel.Spans, Span{ID: id, ParentID: parent, Op: name, StartMs: startRel})
	tel.spanStack = append(tel.spanStack, id)
	idx := len(tel.Spans) - 1
	tel.mu.Unlock()

	return func() {
		endRel := time.Since(tel.startTime).Milliseconds()
		tel.mu.Lock()
		if idx < len(tel.Spans) {
			tel.Spans[idx].Duration = endRel - tel.Spans[idx].StartMs
		}
		if len(tel.spanStack) > 0 {
			tel.spanStack = tel.spanStack[:len(tel.spanStack)-1]
		}
		tel.mu.Unlock()
	}
}

// SetRequestOp overrides the top-level operation name for the current
// request. Handlers call this once the route is known.
func SetRequestOp(ctx context.Context, op string) {
	v := ctx.Value(ctxKeyType{})
	if v == nil {
		return
	}
	tel, ok := v.(*Telemetry)
	if !ok {
		return
	}
	tel.mu.Lock()
	defer tel.mu.Unlock()
	tel.Op = op
	if len(tel.Spans) > 0 {
		tel.Spans[0].Op = op
	}
}

// renderTelemetryText renders a sampled trace as an indented text block.
// send_message traces collapse to a single line; they are the hot path and
// dominate volume.
func renderTelemetryText(t *Telemetry) []byte {
	for _, sp := range t.Spans {
		if strings.Contains(sp.Op, "send_message") {
			return []byte(fmt.Sprintf("REQ %s op=send_message duration_ms=%d status=%d", t.RequestID, t.Duration, t.Status))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "REQUEST %s op=%s start_ms=%d duration_ms=%d status=%d\n", t.RequestID, t.Op, t.StartMs, t.Duration, t.Status)

	children := make(map[string][]Span)
	for _, sp := range t.Spans {
		children[sp.ParentID] = append(children[sp.ParentID], sp)
	}

	var printSpan func(id string, depth int)
	printSpan = func(id string, depth int) {
		list := children[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartMs < list[j].StartMs })
		for _, sp := range list {
			indent := strings.Repeat("  ", depth)
			dataStr := ""
			if len(sp.Data) > 0 {
				var parts []string
				for k, v := range sp.Data {
					parts = append(parts, fmt.Sprintf("%s=%v", k, v))
				}
				dataStr = " data=" + strings.Join(parts, ",")
			}
			fmt.Fprintf(&b, "%s- %s id=%s start_ms=%d duration_ms=%d%s\n", indent, sp.Op, sp.ID, sp.StartMs, sp.Duration, dataStr)
			printSpan(sp.ID, depth+1)
		}
	}
	printSpan("", 1)
	return []byte(b.String())
}

// shouldSample decides whether to record a full trace. The header
// `X-Debug-Telemetry: 1` forces sampling.
func shouldSample(r *http.Request) bool {
	if r.Header.Get("X-Debug-Telemetry") == "1" {
		return true
	}
	if sampleRate <= 0 {
		return false
	}
	denom := int64(1 / sampleRate)
	if denom <= 1 {
		return true
	}
	n := int64(atomic.AddUint64(&requestCtr, 1))
	return (n % denom) == 0
}

func genRequestID() string {
	n := atomic.AddUint64(&requestCtr, 1)
	return "r-" + time.Now().Format("20060102T150405") + "-" + strconv.FormatUint(n, 10)
}

func genSpanID() string {
	return "s-" + strconv.FormatUint(atomic.AddUint64(&spanCtr, 1), 10)
}

// SetSampleRate sets the approximate full-trace sampling rate (0..1).
func SetSampleRate(r float64) {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	sampleRate = r
}

// SetSlowThreshold sets the duration above which non-sampled requests get a
// lightweight log line.
func SetSlowThreshold(d time.Duration) {
	if d < 0 {
		d = 0
	}
	slowThreshold = d
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
