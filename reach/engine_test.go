package reach

import (
	"fmt"
	"testing"

	"github.com/reach-iot/reach-go/reach/wire"
)

// fakeTransport is a minimal Transport: a FIFO of prompt frames and a
// record of every response/notification frame sent back.
type fakeTransport struct {
	connected     bool
	prompts       [][]byte
	responses     [][]byte
	notifications [][]byte
}

func (t *fakeTransport) Connected() bool { return t.connected }
func (t *fakeTransport) RecvPrompt() ([]byte, bool) {
	if len(t.prompts) == 0 {
		return nil, false
	}
	f := t.prompts[0]
	t.prompts = t.prompts[1:]
	return f, true
}
func (t *fakeTransport) SendResponse(frame []byte) error {
	t.responses = append(t.responses, frame)
	return nil
}
func (t *fakeTransport) SendNotification(frame []byte) error {
	t.notifications = append(t.notifications, frame)
	return nil
}

func classicFrame(t *testing.T, mt wire.MessageType, payload any) []byte {
	t.Helper()
	payloadBuf, err := wire.Marshal(nil, payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	hdr := wire.Header{MessageType: uint32(mt), TransactionID: 1}
	frame, err := encodeEnvelope(nil, hdr, payloadBuf, FramingClassic)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return frame
}

// fakeParams is an in-memory ParameterStore over a small fixed table.
type fakeParams struct {
	values map[uint32]float64
	ids    []uint32
	cursor int
	filter map[uint32]bool
}

func newFakeParams(n int) *fakeParams {
	p := &fakeParams{values: map[uint32]float64{}}
	for i := 1; i <= n; i++ {
		id := uint32(i)
		p.ids = append(p.ids, id)
		p.values[id] = float64(i) * 10
	}
	return p
}

func (p *fakeParams) ParameterCount() int { return len(p.ids) }
func (p *fakeParams) DiscoverReset(filter []uint32) {
	p.cursor = 0
	if len(filter) == 0 {
		p.filter = nil
		return
	}
	p.filter = map[uint32]bool{}
	for _, id := range filter {
		p.filter[id] = true
	}
}
func (p *fakeParams) DiscoverNext() (wire.ParameterInfo, bool) {
	for p.cursor < len(p.ids) {
		id := p.ids[p.cursor]
		p.cursor++
		if p.filter != nil && !p.filter[id] {
			continue
		}
		return wire.ParameterInfo{ID: id, DataType: uint32(wire.DataTypeFloat32), Name: fmt.Sprintf("p%d", id)}, true
	}
	return wire.ParameterInfo{}, false
}
func (p *fakeParams) ExCount(uint32) int          { return 0 }
func (p *fakeParams) ExDiscoverReset(uint32)      {}
func (p *fakeParams) ExDiscoverNext(uint32) (wire.ParamExLabel, bool) {
	return wire.ParamExLabel{}, false
}
func (p *fakeParams) ReadParameter(id uint32) (wire.ParameterValue, error) {
	v, ok := p.values[id]
	if !ok {
		return wire.ParameterValue{}, fmt.Errorf("unknown parameter %d", id)
	}
	return wire.ParameterValue{ParameterID: id, FloatValue: v, DataType: uint32(wire.DataTypeFloat32)}, nil
}
func (p *fakeParams) WriteParameter(id uint32, v wire.ParameterValue) error {
	if _, ok := p.values[id]; !ok {
		return fmt.Errorf("unknown parameter %d", id)
	}
	p.values[id] = v.FloatValue
	return nil
}
func (p *fakeParams) ParameterRepoHash(grant func(uint32) bool) uint32 {
	var h uint32
	for _, id := range p.ids {
		if grant(id) {
			h += id
		}
	}
	return h
}

func newTestEngine(params ParameterStore) (*Engine, *fakeTransport) {
	transport := &fakeTransport{connected: true}
	cfg := DefaultConfig()
	opts := []Option{}
	if params != nil {
		opts = append(opts, WithParameters(params))
	}
	e := New(cfg, transport, opts...)
	e.Connect()
	return e, transport
}

func TestPingRoundTrip(t *testing.T) {
	e, transport := newTestEngine(nil)
	transport.prompts = append(transport.prompts, classicFrame(t, wire.MsgPing, &wire.PingRequest{EchoData: []byte("hi")}))
	e.Process(0)

	if len(transport.responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(transport.responses))
	}
	_, payload, _, err := decodeEnvelope(transport.responses[0])
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var resp wire.PingResponse
	if err := wire.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("unmarshal ping response: %v", err)
	}
	if string(resp.EchoData) != "hi" {
		t.Fatalf("echo = %q, want %q", resp.EchoData, "hi")
	}
}

// TestDiscoverParametersContinuation mirrors spec scenario S6 ("10
// parameters ... yields responses with counts 4, 4, 2 ... remaining
// 6, 2, 0") scaled to this build's CountParamDescInResponse.
func TestDiscoverParametersContinuation(t *testing.T) {
	e, _ := newTestEngine(newFakeParams(5))

	mt, resp, err := e.dispatch(wire.MsgDiscoverParameters, &wire.ParameterInfoRequest{})
	if err != nil {
		t.Fatalf("first discover: %v", err)
	}
	if mt != wire.MsgDiscoverParameters {
		t.Fatalf("message type = %v", mt)
	}
	r1 := resp.(*wire.ParameterInfoResponse)
	if len(r1.Parameters) != CountParamDescInResponse || r1.RemainingObjects != 3 {
		t.Fatalf("batch 1 = %d params, remaining %d; want %d, 3", len(r1.Parameters), r1.RemainingObjects, CountParamDescInResponse)
	}
	if !e.cont.active() {
		t.Fatalf("continuation should still be active")
	}

	_, resp2, err := e.dispatch(wire.MsgDiscoverParameters, nil)
	if err != nil {
		t.Fatalf("second discover: %v", err)
	}
	r2 := resp2.(*wire.ParameterInfoResponse)
	if len(r2.Parameters) != CountParamDescInResponse || r2.RemainingObjects != 1 {
		t.Fatalf("batch 2 = %d params, remaining %d; want %d, 1", len(r2.Parameters), r2.RemainingObjects, CountParamDescInResponse)
	}

	_, resp3, err := e.dispatch(wire.MsgDiscoverParameters, nil)
	if err != nil {
		t.Fatalf("third discover: %v", err)
	}
	r3 := resp3.(*wire.ParameterInfoResponse)
	if len(r3.Parameters) != 1 || r3.RemainingObjects != 0 {
		t.Fatalf("batch 3 = %d params, remaining %d; want 1, 0", len(r3.Parameters), r3.RemainingObjects)
	}
	if e.cont.active() {
		t.Fatalf("continuation should have closed after the last batch")
	}
}

func TestWriteParametersSingleFailureFailsWholeRequest(t *testing.T) {
	e, _ := newTestEngine(newFakeParams(2))

	req := &wire.ParameterWrite{Values: []wire.ParameterValue{
		{ParameterID: 1, FloatValue: 99},
		{ParameterID: 999, FloatValue: 1}, // unknown id
		{ParameterID: 2, FloatValue: 42},
	}}
	mt, resp, err := e.dispatch(wire.MsgWriteParameters, req)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if mt != wire.MsgWriteParameters {
		t.Fatalf("message type = %v", mt)
	}
	result := resp.(*wire.ParameterWriteResult)
	if result.Result != uint32(WriteFailed) || result.FailedParam != 999 {
		t.Fatalf("result = %+v, want WriteFailed on param 999", result)
	}
	// The first value, applied before the failing one, is not rolled back.
	v, err := e.params.ReadParameter(1)
	if err != nil || v.FloatValue != 99 {
		t.Fatalf("parameter 1 = %+v, %v; want 99, nil (not rolled back)", v, err)
	}
}

func TestEnableNotifyRejectsUnknownParameter(t *testing.T) {
	e, _ := newTestEngine(newFakeParams(1))
	_, _, err := e.dispatch(wire.MsgParamEnableNotify, &wire.ParameterNotifyConfig{ParameterID: 42})
	if CodeOf(err) != InvalidParameter {
		t.Fatalf("err = %v, want InvalidParameter", err)
	}
}

func TestScanNotificationsEmitsOnMaxPeriod(t *testing.T) {
	e, _ := newTestEngine(newFakeParams(1))
	e.now = 0
	if _, _, err := e.dispatch(wire.MsgParamEnableNotify, &wire.ParameterNotifyConfig{
		ParameterID: 1, MinPeriodMs: 100, MaxPeriodMs: 150, MinDelta: 1000,
	}); err != nil {
		t.Fatalf("enable notify: %v", err)
	}

	e.now = 200
	e.scanNotifications()

	if len(e.transport.(*fakeTransport).notifications) != 1 {
		t.Fatalf("expected exactly one async notification from the max-period rule")
	}
}
