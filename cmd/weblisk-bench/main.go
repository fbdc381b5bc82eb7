package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weblisk-dev/weblisk"
	"github.com/weblisk-dev/weblisk/pkg/protocol"
)

const (
	gib = int64(1024 * 1024 * 1024)
)

type profile struct {
	Name          string
	Sessions      int
	Tabs          int
	Duration      time.Duration
	RPS           float64
	BroadcastRPS  float64
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:         "fast",
		Sessions:     25,
		Tabs:         2,
		Duration:     10 * time.Second,
		RPS:          2,
		BroadcastRPS: 1,
		PayloadBytes: 24,
	},
	"standard": {
		Name:         "standard",
		Sessions:     100,
		Tabs:         2,
		Duration:     30 * time.Second,
		RPS:          5,
		BroadcastRPS: 5,
		PayloadBytes: 24,
	},
	"stress": {
		Name:          "stress",
		Sessions:      200,
		Tabs:          3,
		Duration:      60 * time.Second,
		RPS:           10,
		BroadcastRPS:  20,
		PayloadBytes:  24,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

type benchConfig struct {
	Profile       string
	Sessions      int
	Tabs          int
	Duration      time.Duration
	RPS           float64
	BroadcastRPS  float64
	PayloadBytes  int
	MaxProcs      int
	MemLimitBytes int64
	JSONOutput    string
	Target        string
	EventTimeout  time.Duration
}

func (c benchConfig) connections() int {
	return c.Sessions * c.Tabs
}

type benchCounters struct {
	eventsSent     atomic.Uint64
	eventsComplete atomic.Uint64
	eventBytes     atomic.Uint64
	resultBytes    atomic.Uint64
	pushFrames     atomic.Uint64
	pushBytes      atomic.Uint64
}

type benchErrors struct {
	handshakeFailures   atomic.Uint64
	eventWriteFailures  atomic.Uint64
	frameDecodeFailures atomic.Uint64
	errorResults        atomic.Uint64
	tokenMissing        atomic.Uint64
	totalErrors         atomic.Uint64
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}

	debug.SetGCPercent(100)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	wsURL := cfg.Target
	if wsURL == "" {
		app := weblisk.New(weblisk.Config{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		app.MustRoute(weblisk.NewRoute("/", "bench", renderBench).
			On("echo", func(ctx context.Context, payload any, conn *weblisk.Connection) (any, error) {
				return payload, nil
			}))

		ln, err := net.Listen("tcp4", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("listen: %v", err)
		}

		httpServer := &http.Server{Handler: app.Handler()}
		go func() {
			_ = httpServer.Serve(ln)
		}()
		defer func() {
			_ = httpServer.Shutdown(context.Background())
		}()

		wsURL = "ws://" + ln.Addr().String() + "/ws"

		if cfg.BroadcastRPS > 0 {
			go runBroadcaster(ctx, app, cfg.BroadcastRPS)
		}
	}

	samplesCh := make(chan time.Duration, sampleBuffer(cfg.connections()))
	var samples []time.Duration
	var samplesMu sync.Mutex
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samplesMu.Lock()
			samples = append(samples, rtt)
			samplesMu.Unlock()
		}
	}()

	var counters benchCounters
	var errCounts benchErrors

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Sessions)
	for i := 0; i < cfg.Sessions; i++ {
		sessionIdx := i
		go func() {
			defer wg.Done()
			if err := runSession(ctx, wsURL, sessionIdx, cfg, &counters, &errCounts, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	samplesMu.Lock()
	latencies := append([]time.Duration(nil), samples...)
	samplesMu.Unlock()
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := buildReport(cfg, elapsed, latencies, &counters, &errCounts, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

func renderBench(props map[string]any) string {
	return "<main>bench target</main>"
}

// runBroadcaster pushes fan-out frames to every connection at rps so the
// benchmark exercises the broadcast path alongside request/response load.
func runBroadcaster(ctx context.Context, app *weblisk.App, rps float64) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rps))
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			app.BroadcastAll(map[string]any{
				"type": "tick",
				"seq":  seq,
			})
		}
	}
}

func sampleBuffer(connections int) int {
	if connections < 1 {
		return 1024
	}
	buf := connections * 4
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	sessionsFlag := flag.Int("sessions", -1, "number of browser sessions to simulate")
	tabsFlag := flag.Int("tabs", -1, "connections per session")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target events/sec per connection")
	broadcastFlag := flag.Float64("broadcast-rps", -1, "server broadcast pushes/sec (in-process target only)")
	payloadFlag := flag.Int("payload-bytes", -1, "bytes of token payload per event")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := flag.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	targetFlag := flag.String("target", "", "remote WebSocket URL (empty starts an in-process server)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}

	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:       base.Name,
		Sessions:      base.Sessions,
		Tabs:          base.Tabs,
		Duration:      base.Duration,
		RPS:           base.RPS,
		BroadcastRPS:  base.BroadcastRPS,
		PayloadBytes:  base.PayloadBytes,
		MaxProcs:      base.MaxProcs,
		MemLimitBytes: base.MemLimitBytes,
		JSONOutput:    strings.TrimSpace(*jsonFlag),
		Target:        strings.TrimSpace(*targetFlag),
	}

	if *sessionsFlag != -1 {
		cfg.Sessions = *sessionsFlag
	}
	if *tabsFlag != -1 {
		cfg.Tabs = *tabsFlag
	}
	if *durationFlag != "" {
		d, err := time.ParseDuration(*durationFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -duration: %w", err)
		}
		cfg.Duration = d
	}
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if *broadcastFlag != -1 {
		cfg.BroadcastRPS = *broadcastFlag
	}
	if *payloadFlag != -1 {
		cfg.PayloadBytes = *payloadFlag
	}
	if *maxProcsFlag != -1 {
		cfg.MaxProcs = *maxProcsFlag
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	// Broadcast load rides on the in-process app; a remote target has no
	// server side we control.
	if cfg.Target != "" {
		cfg.BroadcastRPS = 0
	}

	if cfg.Sessions <= 0 {
		return benchConfig{}, errors.New("-sessions must be > 0")
	}
	if cfg.Tabs <= 0 {
		return benchConfig{}, errors.New("-tabs must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("-duration must be > 0")
	}
	if cfg.RPS <= 0 {
		return benchConfig{}, errors.New("-rps must be > 0")
	}
	if cfg.BroadcastRPS < 0 {
		return benchConfig{}, errors.New("-broadcast-rps must be >= 0")
	}
	if cfg.PayloadBytes <= 0 {
		return benchConfig{}, errors.New("-payload-bytes must be > 0")
	}
	if cfg.MaxProcs < 0 {
		return benchConfig{}, errors.New("-max-procs must be >= 0")
	}
	if cfg.MemLimitBytes < 0 {
		return benchConfig{}, errors.New("-mem-limit must be >= 0")
	}

	cfg.EventTimeout = eventTimeout(cfg.RPS)
	return cfg, nil
}

func eventTimeout(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	var i int
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			i++
			continue
		}
		break
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	numPart := strings.TrimSpace(s[:i])
	suffix := strings.ToLower(strings.TrimSpace(s[i:]))

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, err
	}

	multiplier := float64(1)
	switch suffix {
	case "", "b":
		multiplier = 1
	case "kb":
		multiplier = 1e3
	case "mb":
		multiplier = 1e6
	case "gb":
		multiplier = 1e9
	case "tb":
		multiplier = 1e12
	case "kib":
		multiplier = 1024
	case "mib":
		multiplier = 1024 * 1024
	case "gib":
		multiplier = 1024 * 1024 * 1024
	case "tib":
		multiplier = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix %q", suffix)
	}

	bytes := value * multiplier
	if bytes < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	return int64(bytes + 0.5), nil
}

// runSession opens cfg.Tabs connections sharing one session cookie. The
// first dial arrives cookie-less and the server mints the session; every
// later tab presents the same cookie, the way browser tabs do.
func runSession(
	ctx context.Context,
	wsURL string,
	sessionIdx int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	samples chan<- time.Duration,
) error {
	conns := make([]*websocket.Conn, 0, cfg.Tabs)
	defer func() {
		for _, conn := range conns {
			conn.Close()
		}
	}()

	cookie := ""
	for t := 0; t < cfg.Tabs; t++ {
		conn, setCookie, err := dialTab(wsURL, cookie)
		if err != nil {
			errCounts.handshakeFailures.Add(1)
			return fmt.Errorf("session %d tab %d: %w", sessionIdx, t, err)
		}
		conns = append(conns, conn)
		if cookie == "" {
			cookie = setCookie
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(conns))
	for t, conn := range conns {
		connID := sessionIdx*cfg.Tabs + t
		wg.Add(1)
		go func(conn *websocket.Conn, connID int) {
			defer wg.Done()
			if err := runConn(ctx, conn, connID, cfg, counters, errCounts, samples); err != nil {
				errCh <- err
			}
		}(conn, connID)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// dialTab opens one connection, forwarding cookie when set, and consumes
// the connection-established greeting. It returns the upgrade response's
// session cookie so sibling tabs can share the session.
func dialTab(wsURL, cookie string) (*websocket.Conn, string, error) {
	header := http.Header{}
	if cookie != "" {
		header.Set("Cookie", cookie)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return nil, "", fmt.Errorf("dial: %w", err)
	}

	setCookie := ""
	if resp != nil {
		for _, c := range resp.Cookies() {
			setCookie = c.Name + "=" + c.Value
		}
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("greeting read: %w", err)
	}
	var hello protocol.ConnectionEstablished
	if err := json.Unmarshal(msg, &hello); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("greeting decode: %w", err)
	}
	if hello.Type != protocol.TypeConnectionEstablished {
		conn.Close()
		return nil, "", fmt.Errorf("greeting: expected %s, got %q", protocol.TypeConnectionEstablished, hello.Type)
	}
	conn.SetReadDeadline(time.Time{})

	return conn, setCookie, nil
}

func runConn(
	ctx context.Context,
	conn *websocket.Conn,
	connID int,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	samples chan<- time.Duration,
) error {
	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		token := makeToken(connID, seq, cfg.PayloadBytes)

		start := time.Now()

		evt := &protocol.ServerEvent{
			Target:  protocol.RouteTarget(),
			Event:   "echo",
			Payload: map[string]any{"token": token},
		}
		frameData, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("event encode: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, frameData); err != nil {
			errCounts.eventWriteFailures.Add(1)
			return fmt.Errorf("event write: %w", err)
		}

		counters.eventsSent.Add(1)
		counters.eventBytes.Add(uint64(len(frameData)))

		if cfg.EventTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(cfg.EventTimeout))
		}
		found, err := waitForEcho(ctx, conn, token, counters, errCounts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isTimeout(err) {
				errCounts.tokenMissing.Add(1)
				return fmt.Errorf("echo not observed in results")
			}
			return fmt.Errorf("wait for echo: %w", err)
		}
		if !found {
			errCounts.tokenMissing.Add(1)
			return fmt.Errorf("echo not observed in results")
		}

		rtt := time.Since(start)
		counters.eventsComplete.Add(1)
		samples <- rtt

		elapsed := time.Since(start)
		if sleep := period - elapsed; sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}

// waitForEcho reads frames until the event result carrying token arrives.
// Broadcast pushes interleave with results on the same connection; they are
// counted and skipped.
func waitForEcho(
	ctx context.Context,
	conn *websocket.Conn,
	token string,
	counters *benchCounters,
	errCounts *benchErrors,
) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return false, err
		}

		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &env); err != nil {
			errCounts.frameDecodeFailures.Add(1)
			return false, err
		}

		switch env.Type {
		case protocol.TypeEventResult:
			counters.resultBytes.Add(uint64(len(msg)))
			var res protocol.EventResult
			if err := json.Unmarshal(msg, &res); err != nil {
				errCounts.frameDecodeFailures.Add(1)
				return false, err
			}
			if !res.Success {
				errCounts.errorResults.Add(1)
				return false, fmt.Errorf("server error result: %s", res.Error)
			}
			if body, ok := res.Result.(map[string]any); ok {
				if got, _ := body["token"].(string); got == token {
					return true, nil
				}
			}

		default:
			// Broadcast or other push frame.
			counters.pushFrames.Add(1)
			counters.pushBytes.Add(uint64(len(msg)))
		}
	}
}

func makeToken(connID int, seq uint64, payloadBytes int) string {
	if payloadBytes <= 0 {
		return ""
	}
	seed := (uint64(connID) << 32) ^ seq
	base := strings.ToLower(strconv.FormatUint(seed, 36))
	if len(base) >= payloadBytes {
		return base[len(base)-payloadBytes:]
	}
	pad := strings.Repeat("x", payloadBytes-len(base))
	return base + pad
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Traffic    trafficInfo    `json:"traffic"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile        string  `json:"profile"`
	Sessions       int     `json:"sessions"`
	TabsPerSession int     `json:"tabs_per_session"`
	Connections    int     `json:"connections"`
	DurationMS     int64   `json:"duration_ms"`
	RPSPerConn     float64 `json:"rps_per_connection"`
	BroadcastRPS   float64 `json:"broadcast_rps"`
	PayloadBytes   int     `json:"payload_bytes"`
	MaxProcs       int     `json:"max_procs"`
	MemLimitBytes  int64   `json:"mem_limit_bytes"`
	EventTimeoutMS int64   `json:"event_timeout_ms"`
	Target         string  `json:"target,omitempty"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	EventsTotal      uint64  `json:"events_total"`
	EventsPerSec     float64 `json:"events_per_sec"`
	EventsPerSecConn float64 `json:"events_per_sec_per_connection"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type trafficInfo struct {
	EventBytesTotal  uint64  `json:"event_bytes_total"`
	ResultBytesTotal uint64  `json:"result_bytes_total"`
	PushFrames       uint64  `json:"push_frames_total"`
	PushBytesTotal   uint64  `json:"push_bytes_total"`
	AvgEventBytes    float64 `json:"avg_event_bytes"`
	AvgResultBytes   float64 `json:"avg_result_bytes"`
	AvgPushBytes     float64 `json:"avg_push_bytes"`
}

type errorInfo struct {
	TotalErrors         uint64 `json:"total_errors"`
	HandshakeFailures   uint64 `json:"handshake_failures"`
	EventWriteFailures  uint64 `json:"event_write_failures"`
	FrameDecodeFailures uint64 `json:"frame_decode_failures"`
	ErrorResults        uint64 `json:"error_results"`
	TokenMissing        uint64 `json:"token_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errCounts *benchErrors,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	eventsTotal := counters.eventsComplete.Load()
	eventsSent := counters.eventsSent.Load()
	eventBytes := counters.eventBytes.Load()
	resultBytes := counters.resultBytes.Load()
	pushFrames := counters.pushFrames.Load()
	pushBytes := counters.pushBytes.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	eventsPerSec := float64(eventsTotal) / elapsedSeconds
	eventsPerSecConn := eventsPerSec / float64(cfg.connections())

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	avgEventBytes := 0.0
	if eventsSent > 0 {
		avgEventBytes = float64(eventBytes) / float64(eventsSent)
	}
	avgResultBytes := 0.0
	if eventsTotal > 0 {
		avgResultBytes = float64(resultBytes) / float64(eventsTotal)
	}
	avgPushBytes := 0.0
	if pushFrames > 0 {
		avgPushBytes = float64(pushBytes) / float64(pushFrames)
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)
	pauseAvg := avgPause(after, before)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:        cfg.Profile,
			Sessions:       cfg.Sessions,
			TabsPerSession: cfg.Tabs,
			Connections:    cfg.connections(),
			DurationMS:     cfg.Duration.Milliseconds(),
			RPSPerConn:     cfg.RPS,
			BroadcastRPS:   cfg.BroadcastRPS,
			PayloadBytes:   cfg.PayloadBytes,
			MaxProcs:       cfg.MaxProcs,
			MemLimitBytes:  cfg.MemLimitBytes,
			EventTimeoutMS: cfg.EventTimeout.Milliseconds(),
			Target:         cfg.Target,
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			EventsTotal:      eventsTotal,
			EventsPerSec:     eventsPerSec,
			EventsPerSecConn: eventsPerSecConn,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(pauseAvg),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Traffic: trafficInfo{
			EventBytesTotal:  eventBytes,
			ResultBytesTotal: resultBytes,
			PushFrames:       pushFrames,
			PushBytesTotal:   pushBytes,
			AvgEventBytes:    avgEventBytes,
			AvgResultBytes:   avgResultBytes,
			AvgPushBytes:     avgPushBytes,
		},
		Errors: errorInfo{
			TotalErrors:         errCounts.totalErrors.Load(),
			HandshakeFailures:   errCounts.handshakeFailures.Load(),
			EventWriteFailures:  errCounts.eventWriteFailures.Load(),
			FrameDecodeFailures: errCounts.frameDecodeFailures.Load(),
			ErrorResults:        errCounts.errorResults.Load(),
			TokenMissing:        errCounts.tokenMissing.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== weblisk Socket Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Sessions: %d (%d tabs each, %d connections)\n",
		report.Workload.Sessions, report.Workload.TabsPerSession, report.Workload.Connections)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-connection rate: %.2f events/s\n", report.Workload.RPSPerConn)
	if report.Workload.BroadcastRPS > 0 {
		fmt.Fprintf(w, "Broadcast rate: %.2f pushes/s\n", report.Workload.BroadcastRPS)
	}
	fmt.Fprintf(w, "Payload bytes: %d\n", report.Workload.PayloadBytes)
	if report.Workload.Target != "" {
		fmt.Fprintf(w, "Remote target: %s\n", report.Workload.Target)
	}
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total events: %d\n", report.Throughput.EventsTotal)
	fmt.Fprintf(w, "Throughput: %.1f events/s (%.2f per connection)\n",
		report.Throughput.EventsPerSec, report.Throughput.EventsPerSecConn)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (client send -> handler -> client receive+decode):")
		fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Traffic (avg per frame):")
	fmt.Fprintf(w, "  event bytes:  %.1f\n", report.Traffic.AvgEventBytes)
	fmt.Fprintf(w, "  result bytes: %.1f\n", report.Traffic.AvgResultBytes)
	if report.Traffic.PushFrames > 0 {
		fmt.Fprintf(w, "  push bytes:   %.1f (%d pushed frames)\n",
			report.Traffic.AvgPushBytes, report.Traffic.PushFrames)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("WEBLISK_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
