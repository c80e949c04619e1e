package reach

import "github.com/reach-iot/reach-go/reach/wire"

// Transport is the bearer the engine pulls prompts from and pushes
// encoded responses/notifications to. Reach assumes the bearer already
// handles MTU negotiation and reliability (spec §1 Non-goals); the
// engine only ever hands it frames no larger than CodedBufferSize.
type Transport interface {
	// Connected reports whether a client is currently attached.
	Connected() bool
	// RecvPrompt returns the next coded prompt frame, or ok=false if
	// none is pending. Must not block.
	RecvPrompt() (frame []byte, ok bool)
	// SendResponse and SendNotification both deliver a coded frame;
	// they are kept distinct because responses and notifications use
	// disjoint static buffers upstream and must never be interleaved
	// mid-frame (spec §5 Ordering).
	SendResponse(frame []byte) error
	SendNotification(frame []byte) error
}

// DeviceInfoProvider answers GET_DEVICE_INFO and PING (spec §6.4
// "device info").
type DeviceInfoProvider interface {
	DeviceName() string
	ManufacturerName() string
	FirmwareVersion() (major, minor, patch uint32)
	ProgramID() []byte
	PingSignalStrength() int32
}

// AccessGate implements C9: whole-service and per-object authorization.
type AccessGate interface {
	ChallengeKeyIsValid() bool
	InvalidateChallengeKey()
	AccessGranted(serviceID uint32, objectID uint32) bool
	// ValidateChallengeKey checks a key presented in GET_DEVICE_INFO and,
	// if it matches, marks the challenge as satisfied for the rest of
	// the connection.
	ValidateChallengeKey(key []byte) bool
}

// ParameterStore is the device-specific parameter repository (C6's
// callback half). Discovery is cursor-driven; the engine walks the
// cursor once per discovery prompt, collects the granted descriptors and
// pages through them itself (see continuation).
type ParameterStore interface {
	ParameterCount() int
	DiscoverReset(filter []uint32)
	DiscoverNext() (wire.ParameterInfo, bool)

	ExCount(paramID uint32) int
	ExDiscoverReset(paramID uint32)
	ExDiscoverNext(paramID uint32) (wire.ParamExLabel, bool)

	ReadParameter(id uint32) (wire.ParameterValue, error)
	WriteParameter(id uint32, v wire.ParameterValue) error

	// ParameterRepoHash digests the descriptor table masked by the
	// access grant currently in effect (spec §4.3 "Parameter-repo
	// hash").
	ParameterRepoHash(grant func(id uint32) bool) uint32
}

// FileStore is the device-specific file backing store (C7's callback
// half).
type FileStore interface {
	FileCount() int
	DiscoverReset(filter []uint32)
	DiscoverNext() (wire.FileInfo, bool)
	Describe(fileID uint32) (wire.FileInfo, bool)

	PreferredAckRate(fileID uint32, requested uint32, isWrite bool) uint32
	ReadFile(fileID uint32, offset, requested uint32) (data []byte, err error)
	WriteFile(fileID uint32, offset uint32, data []byte) error
	PrepareToWrite(fileID uint32, offset, length uint32) error
	EraseFile(fileID uint32) error
	TransferComplete(fileID uint32) error
}

// CommandStore executes device commands (C8).
type CommandStore interface {
	CommandCount() int
	DiscoverReset()
	DiscoverNext() (wire.CommandInfo, bool)
	Execute(commandID uint32) error
}

// CLIBackend drives the remote CLI service (C8).
type CLIBackend interface {
	Enter(line string) (response string, err error)
}

// TimeProvider answers GET_TIME/SET_TIME (C8).
type TimeProvider interface {
	Now() uint64
	SetTime(secondsSinceEpoch uint64) error
}

// WiFiProvider answers the WiFi provisioning service (C8).
type WiFiProvider interface {
	DiscoverReset()
	DiscoverNext() (wire.WiFiInfo, bool)
	Connect(ssid, password string) error
}

// StreamProvider answers the stream service (C8, supplemented from
// original_source/src/cr_streams.c).
type StreamProvider interface {
	DiscoverReset()
	DiscoverNext() (wire.StreamInfo, bool)
	Open(streamID uint32) error
	Close(streamID uint32) error
	// Next returns the next chunk of stream data, or ok=false when the
	// stream has nothing more buffered right now.
	Next(streamID uint32) (data []byte, ok bool)
}

// errNotImplemented is the NotImplemented error value for an unwired
// callback. The engine's handlers do not return it: a service left nil
// is answered with NoService.
var errNotImplemented = NewError(NotImplemented, "callback not implemented")
