// Command reachd is a reference host for the reach Engine: it wires a
// loopback Transport, an in-memory parameter store, and runs
// the engine's Process tick under suture supervision so a crashed tick
// loop restarts instead of taking the process down.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/reach-iot/reach-go/lib/logger"
	"github.com/reach-iot/reach-go/reach"
	"github.com/reach-iot/reach-go/reach/wire"
)

var cli struct {
	TickHz      float64 `help:"Engine tick rate in Hz." default:"50"`
	NotifySlots int     `help:"Number of parameter notification slots." default:"16"`
	ChallengeKey string `help:"Application challenge key; empty disables the access gate."`
	LogLevel    string  `help:"debug, verbose, info or warn." default:"info" enum:"debug,verbose,info,warn"`
}

func main() {
	kong.Parse(&cli, kong.Description("reach protocol engine demo host"))

	cfg := reach.DefaultConfig()
	cfg.NumSupportedNotify = cli.NotifySlots
	cfg.ApplicationChallengeKey = []byte(cli.ChallengeKey)
	cfg.LogMask = logger.MaskFor(parseLevel(cli.LogLevel))

	transport := newLoopbackTransport()
	engine := reach.New(cfg, transport,
		reach.WithDeviceInfo(demoDeviceInfo{}),
		reach.WithParameters(newDemoParameterStore()),
	)
	engine.Logger().AddHandler(logger.LevelDebug, logger.Timestamped(func(line string) {
		fmt.Fprintln(os.Stderr, line)
	}))
	engine.Connect()

	sup := suture.NewSimple("reachd")
	sup.Add(&tickService{engine: engine, hz: cli.TickHz})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sup.Serve(ctx); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, "reachd: supervisor exited:", err)
		os.Exit(1)
	}
}

func parseLevel(s string) logger.LogLevel {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "verbose":
		return logger.LevelVerbose
	case "warn":
		return logger.LevelWarn
	default:
		return logger.LevelInfo
	}
}

// tickService adapts Engine.Process to suture.Service: one tick per
// rate.Limiter event, stamped with the milliseconds elapsed since Serve
// started, cancellable via the context suture hands Serve.
type tickService struct {
	engine *reach.Engine
	hz     float64
}

func (s *tickService) Serve(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Limit(s.hz), 1)
	start := time.Now()
	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		// The engine's periods and timeouts are in milliseconds.
		s.engine.Process(uint32(time.Since(start).Milliseconds()))
	}
}

func (s *tickService) String() string { return "reach-tick" }

// loopbackTransport is a demo Transport with no real bearer underneath:
// prompts are injected programmatically (e.g. from a test harness or a
// future stdin bridge) via Inject, and responses/notifications are
// discarded rather than shipped anywhere.
type loopbackTransport struct {
	mu        sync.Mutex
	connected bool
	pending   [][]byte
}

func newLoopbackTransport() *loopbackTransport {
	return &loopbackTransport{connected: true}
}

func (t *loopbackTransport) Inject(frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, frame)
}

func (t *loopbackTransport) Connected() bool { return t.connected }

func (t *loopbackTransport) RecvPrompt() ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return nil, false
	}
	frame := t.pending[0]
	t.pending = t.pending[1:]
	return frame, true
}

func (t *loopbackTransport) SendResponse(frame []byte) error {
	return nil
}

func (t *loopbackTransport) SendNotification(frame []byte) error {
	return nil
}

// demoDeviceInfo answers GET_DEVICE_INFO/PING with static values; a real
// host replaces this with a DeviceInfoProvider backed by actual firmware
// version and RSSI reads.
type demoDeviceInfo struct{}

func (demoDeviceInfo) DeviceName() string       { return "reachd-demo" }
func (demoDeviceInfo) ManufacturerName() string { return "reach-iot" }
func (demoDeviceInfo) FirmwareVersion() (uint32, uint32, uint32) { return 1, 0, 0 }
func (demoDeviceInfo) ProgramID() []byte        { return nil }
func (demoDeviceInfo) PingSignalStrength() int32 { return -50 }

// demoParameterStore is an in-memory ParameterStore over a fixed table,
// enough to exercise discovery/read/write/notify without real hardware.
type demoParameterStore struct {
	mu     sync.Mutex
	table  []demoParam
	cursor int
	filter map[uint32]bool
}

type demoParam struct {
	id    uint32
	name  string
	value float64
}

func newDemoParameterStore() *demoParameterStore {
	return &demoParameterStore{
		table: []demoParam{
			{id: 1, name: "uptime_seconds", value: 0},
			{id: 2, name: "battery_millivolts", value: 3700},
			{id: 3, name: "temperature_c", value: 21.5},
		},
	}
}

func (s *demoParameterStore) ParameterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}

func (s *demoParameterStore) DiscoverReset(filterIDs []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = 0
	if len(filterIDs) == 0 {
		s.filter = nil
		return
	}
	s.filter = make(map[uint32]bool, len(filterIDs))
	for _, id := range filterIDs {
		s.filter[id] = true
	}
}

func (s *demoParameterStore) DiscoverNext() (info wire.ParameterInfo, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.cursor < len(s.table) {
		p := s.table[s.cursor]
		s.cursor++
		if s.filter != nil && !s.filter[p.id] {
			continue
		}
		return wire.ParameterInfo{ID: p.id, DataType: uint32(wire.DataTypeFloat64), Name: p.name}, true
	}
	return wire.ParameterInfo{}, false
}

func (s *demoParameterStore) ExCount(uint32) int     { return 0 }
func (s *demoParameterStore) ExDiscoverReset(uint32) {}
func (s *demoParameterStore) ExDiscoverNext(uint32) (wire.ParamExLabel, bool) {
	return wire.ParamExLabel{}, false
}

func (s *demoParameterStore) ReadParameter(id uint32) (wire.ParameterValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.table {
		if s.table[i].id == id {
			return wire.ParameterValue{ParameterID: id, FloatValue: s.table[i].value, DataType: uint32(wire.DataTypeFloat64)}, nil
		}
	}
	return wire.ParameterValue{}, fmt.Errorf("unknown parameter %d", id)
}

func (s *demoParameterStore) WriteParameter(id uint32, v wire.ParameterValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.table {
		if s.table[i].id == id {
			s.table[i].value = v.FloatValue
			return nil
		}
	}
	return fmt.Errorf("unknown parameter %d", id)
}

func (s *demoParameterStore) ParameterRepoHash(grant func(uint32) bool) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var h uint32 = 2166136261
	for _, p := range s.table {
		if !grant(p.id) {
			continue
		}
		h = (h ^ p.id) * 16777619
	}
	return h
}
