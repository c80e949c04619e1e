// Package reach implements the device-side "Reach" protocol engine: the
// framing/codec, request dispatcher, continuation engine, file-transfer
// engine and parameter notification engine described in spec.md and
// expanded in SPEC_FULL.md. It is parameterized by a small capability
// surface (Transport plus one interface per optional service) rather
// than calling out to device-specific globals.
package reach

import (
	"github.com/hashicorp/golang-lru/v2"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/reach-iot/reach-go/lib/logger"
	"github.com/reach-iot/reach-go/reach/wire"
)

// requestContext is what the dispatcher captures from a prompt's header
// before routing it, and restores into every response/continuation for
// that prompt (spec §8 property 3, transaction id fidelity).
type requestContext struct {
	transactionID uint32
	endpointID    uint32
	clientID      uint32
}

// Engine is the process-singleton protocol runtime (spec §9: "Global
// singletons ... become fields of a ProtocolEngine value owned by
// main()"). One Engine serves exactly one logical client at a time.
type Engine struct {
	cfg Config
	log *logger.Logger

	transport  Transport
	access     AccessGate
	deviceInfo DeviceInfoProvider
	params     ParameterStore
	files      FileStore
	commands   CommandStore
	cli        CLIBackend
	timeSvc    TimeProvider
	wifi       WiFiProvider
	streams    StreamProvider

	now           uint32
	clientFraming FramingKind
	clientVersion [3]uint32
	cliEchoOn     bool

	// static buffer set (spec §4.1); sized once at construction from
	// Config/MTU and reused for every prompt. encodedPayloadBuf and
	// encodedResponseBuf are kept distinct (as are rawNotificationBuf and
	// codedNotificationBuf) because the payload-encode step and the
	// outer envelope-encode step must not alias the same backing array:
	// encodeEnvelope appends the header before the payload, and if both
	// steps wrote into the same array the header write would clobber the
	// payload bytes the envelope is about to copy in.
	encodedPayloadBuf    []byte
	encodedResponseBuf   []byte
	rawNotificationBuf   []byte
	codedNotificationBuf []byte

	ctx              requestContext
	reportedForPrompt bool

	cont continuation
	wd   watchdog
	xfer fileTransferState
	nt   notifyTable

	hashCache *lru.Cache[uint64, uint32]

	metricsReg          gometrics.Registry
	bytesTransferred     gometrics.Counter
	notificationsEmitted gometrics.Counter
	errorsReported       gometrics.Counter
}

// New builds an Engine. Optional services that are not supplied stay nil
// and are not replaced with stand-ins; their handlers answer with
// NoService (PING and GET_DEVICE_INFO still answer without a
// DeviceInfoProvider).
func New(cfg Config, transport Transport, opts ...Option) *Engine {
	e := &Engine{
		cfg:                cfg,
		log:                logger.New(),
		transport:          transport,
		access:             noopGate{},
		encodedPayloadBuf:  make([]byte, 0, CodedBufferSize),
		encodedResponseBuf: make([]byte, 0, CodedBufferSize),
		rawNotificationBuf: make([]byte, 0, CodedBufferSize),
		codedNotificationBuf: make([]byte, 0, CodedBufferSize),
		clientFraming:      FramingClassic,
		cliEchoOn:          cfg.CLIEchoOnDefault,
		metricsReg:         gometrics.NewRegistry(),
	}
	e.log.SetMask(cfg.LogMask)
	e.log.SetPrefix("reach")
	cache, _ := lru.New[uint64, uint32](32)
	e.hashCache = cache
	e.bytesTransferred = gometrics.NewCounter()
	e.notificationsEmitted = gometrics.NewCounter()
	e.errorsReported = gometrics.NewCounter()
	e.metricsReg.Register("reach.files.bytes_transferred", e.bytesTransferred)
	e.metricsReg.Register("reach.params.notifications_emitted", e.notificationsEmitted)
	e.metricsReg.Register("reach.errors_reported", e.errorsReported)

	if len(cfg.ApplicationChallengeKey) > 0 {
		e.access = newChallengeGate(cfg.ApplicationChallengeKey)
	}
	if cap := cfg.NumSupportedNotify; cap > 0 {
		e.nt.slots = make([]notifySlot, cap)
	} else {
		e.nt.slots = make([]notifySlot, NotifySlotsDefault)
	}

	for _, o := range opts {
		o(e)
	}
	return e
}

// Option configures optional service callback surfaces at construction.
type Option func(*Engine)

func WithDeviceInfo(p DeviceInfoProvider) Option { return func(e *Engine) { e.deviceInfo = p } }
func WithAccessGate(g AccessGate) Option         { return func(e *Engine) { e.access = g } }
func WithParameters(p ParameterStore) Option     { return func(e *Engine) { e.params = p } }
func WithFiles(f FileStore) Option               { return func(e *Engine) { e.files = f } }
func WithCommands(c CommandStore) Option         { return func(e *Engine) { e.commands = c } }
func WithCLI(c CLIBackend) Option                { return func(e *Engine) { e.cli = c } }
func WithTime(t TimeProvider) Option             { return func(e *Engine) { e.timeSvc = t } }
func WithWiFi(w WiFiProvider) Option             { return func(e *Engine) { e.wifi = w } }
func WithStreams(s StreamProvider) Option         { return func(e *Engine) { e.streams = s } }

// Logger exposes the engine's logger so the host can add its own
// handlers (e.g. to stderr). The engine registers no handler of its own;
// log lines are not mirrored to the remote CLI.
func (e *Engine) Logger() *logger.Logger { return e.log }

// Metrics exposes the engine's go-metrics registry (bytes transferred,
// notifications emitted, errors reported) for a host to poll or export.
func (e *Engine) Metrics() gometrics.Registry { return e.metricsReg }

// Connect resets all per-connection state (spec §3 "Lifecycle"): the
// challenge key is invalidated, notifications and continuation cleared,
// and any in-flight transfer aborted.
func (e *Engine) Connect() {
	e.access.InvalidateChallengeKey()
	e.cont.close()
	e.nt = notifyTable{slots: make([]notifySlot, len(e.nt.slots))}
	e.xfer = fileTransferState{}
	e.wd.end()
	e.clientFraming = FramingClassic
}

// Disconnect tears everything back down the same way (spec §5
// "Cancellation").
func (e *Engine) Disconnect() {
	e.Connect()
}

// Process runs exactly one tick of the dispatcher loop (spec §4.2). The
// host calls it periodically from its own main loop; it never blocks.
func (e *Engine) Process(now uint32) {
	e.now = now
	if !e.transport.Connected() {
		return
	}

	if e.xfer.state != xferInvalid && e.xfer.state != xferIdle && e.wd.expired(now) {
		e.log.Warnf("file transfer watchdog expired, cancelling transfer %d", e.xfer.transferID)
		e.xfer = fileTransferState{}
		e.wd.end()
	}

	if e.cont.active() {
		e.emitContinuation()
		return
	}

	frame, ok := e.transport.RecvPrompt()
	if !ok {
		e.scanNotifications()
		e.pollStreams()
		return
	}

	e.reportedForPrompt = false
	hdr, payload, framing, err := decodeEnvelope(frame)
	if err != nil {
		e.reportError(DecodingFailed, err.Error(), false)
		return
	}
	e.clientFraming = framing
	e.ctx = requestContext{transactionID: hdr.TransactionID, endpointID: hdr.EndpointID, clientID: hdr.ClientID}

	mt := wire.MessageType(hdr.MessageType)
	req, err := decodePayload(mt, payload)
	if err != nil {
		e.reportError(DecodingFailed, err.Error(), false)
		return
	}

	respType, resp, err := e.dispatch(mt, req)
	e.sendResult(respType, resp, err)
}

// sendResult implements the tail of spec §4.2 steps 9-10: build header,
// encode payload, frame, hand to transport, applying the NoResponse/
// NoData/error-reported suppression rules.
func (e *Engine) sendResult(respType wire.MessageType, resp any, err error) {
	if err != nil {
		if isAlreadyReported(err) {
			return
		}
		code := CodeOf(err)
		if code == NoResponse || code == NoData {
			return
		}
		e.reportError(code, err.Error(), false)
		return
	}
	if resp == nil {
		return
	}
	e.emit(respType, resp, false)
}

// emit encodes payload under message type mt, wraps it in the envelope
// using the current transaction context, and sends it as a response
// (async=false) or notification (async=true).
func (e *Engine) emit(mt wire.MessageType, payload any, async bool) {
	var payloadBuf []byte
	var err error
	if async {
		payloadBuf, err = encodePayload(e.rawNotificationBuf, payload)
	} else {
		payloadBuf, err = encodePayload(e.encodedPayloadBuf, payload)
	}
	if err != nil {
		e.log.Warnf("encode %s: %v", mt, err)
		return
	}

	hdr := wire.Header{
		MessageType:      uint32(mt),
		EndpointID:       e.ctx.endpointID,
		ClientID:         e.ctx.clientID,
		TransactionID:    e.ctx.transactionID,
		RemainingObjects: e.cont.remaining(),
	}

	var frameBuf []byte
	if async {
		frameBuf = e.codedNotificationBuf
	} else {
		frameBuf = e.encodedResponseBuf
	}
	frame, err := encodeEnvelope(frameBuf, hdr, payloadBuf, e.clientFraming)
	if err != nil {
		e.log.Warnf("encode envelope for %s: %v", mt, err)
		return
	}

	if async {
		if sendErr := e.transport.SendNotification(frame); sendErr != nil {
			e.log.Warnf("send notification %s: %v", mt, sendErr)
		}
	} else {
		if sendErr := e.transport.SendResponse(frame); sendErr != nil {
			e.log.Warnf("send response %s: %v", mt, sendErr)
		}
	}
}

// emitContinuation re-enters the handler owning the active continuation
// (spec §4.5): the dispatcher hands it a nil request and lets it produce
// the next chunk via the same code path as a fresh prompt.
func (e *Engine) emitContinuation() {
	kind := e.cont.kind
	respType, resp, err := e.dispatch(kind, nil)
	e.sendResult(respType, resp, err)
}
