// Package wire also carries the reach message set: the uniform Header and
// every typed Payload, expressed as plain tagged structs (see codec.go).
// Names and field shapes follow the cr_* message set recovered from
// original_source/src/reach.pb.c and reach_ble_proto_sizes.h.
package wire

// MessageType identifies both the routing key (spec §4.2's dispatch
// table) and, implicitly, which Payload type a message_type decodes to.
type MessageType uint32

const (
	MsgInvalid MessageType = iota
	MsgErrorReport
	MsgPing
	MsgGetDeviceInfo
	MsgDiscoverParameters
	MsgDiscoverParamEx
	MsgReadParameters
	MsgWriteParameters
	MsgDiscoverNotifications
	MsgParamEnableNotify
	MsgParamDisableNotify
	MsgParameterNotification
	MsgDiscoverFiles
	MsgTransferInit
	MsgTransferData
	MsgTransferDataNotification
	MsgEraseFile
	MsgDiscoverCommands
	MsgSendCommand
	MsgCLINotification
	MsgGetTime
	MsgSetTime
	MsgDiscoverWifi
	MsgWifiConnect
	MsgDiscoverStreams
	MsgStreamOpen
	MsgStreamClose
	MsgStreamData
)

func (m MessageType) String() string {
	names := [...]string{
		"Invalid", "ErrorReport", "Ping", "GetDeviceInfo",
		"DiscoverParameters", "DiscoverParamEx", "ReadParameters",
		"WriteParameters", "DiscoverNotifications", "ParamEnableNotify",
		"ParamDisableNotify", "ParameterNotification", "DiscoverFiles",
		"TransferInit", "TransferData", "TransferDataNotification",
		"EraseFile", "DiscoverCommands", "SendCommand", "CLINotification",
		"GetTime", "SetTime", "DiscoverWifi", "WifiConnect",
		"DiscoverStreams", "StreamOpen", "StreamClose", "StreamData",
	}
	if int(m) < len(names) {
		return names[m]
	}
	return "Unknown"
}

// Header is the uniform internal header carried by both envelope
// encodings (spec §3 "Header").
type Header struct {
	MessageType         uint32 `pb:"1"`
	EndpointID          uint32 `pb:"2"`
	ClientID            uint32 `pb:"3"`
	TransactionID       uint32 `pb:"4"`
	RemainingObjects    uint32 `pb:"5"`
	IsMessageCompressed bool   `pb:"6"`
}

// ClassicEnvelope is field 1 = Header, field 2 = opaque payload bytes;
// this is what the classic discriminator (first byte 0x0A) identifies.
type ClassicEnvelope struct {
	Header  Header `pb:"1"`
	Payload []byte `pb:"2"`
}

// --- Ping ---------------------------------------------------------------

type PingRequest struct {
	EchoData []byte `pb:"1"`
}

type PingResponse struct {
	EchoData       []byte `pb:"1"`
	SignalStrength int32  `pb:"2"`
}

// --- Device info ----------------------------------------------------------

type SizesStruct struct {
	MaxMessageSize            uint32 `pb:"1"`
	BigDataBufferSize         uint32 `pb:"2"`
	ParameterBufferCount      uint32 `pb:"3"`
	NumMediumStructsInMessage uint32 `pb:"4"`
	DeviceInfoLen             uint32 `pb:"5"`
	LongStringLen             uint32 `pb:"6"`
	CountParamIDs             uint32 `pb:"7"`
	MediumStringLen           uint32 `pb:"8"`
	ShortStringLen            uint32 `pb:"9"`
	ParamInfoEnumCount        uint32 `pb:"10"`
	ServicesCount             uint32 `pb:"11"`
	PiEnumCount               uint32 `pb:"12"`
	NumCommandsInResponse     uint32 `pb:"13"`
	CountParamDescInResponse  uint32 `pb:"14"`
}

type DeviceInfoRequest struct {
	ClientProtocolVersionMajor uint32 `pb:"1"`
	ClientProtocolVersionMinor uint32 `pb:"2"`
	ClientProtocolVersionPatch uint32 `pb:"3"`
	ApplicationChallengeKey    []byte `pb:"4"`
}

type DeviceInfoResponse struct {
	DeviceName          string      `pb:"1"`
	ManufacturerName    string      `pb:"2"`
	FirmwareVersion     string      `pb:"3"`
	ProtocolVersionMajor uint32     `pb:"4"`
	ProtocolVersionMinor uint32     `pb:"5"`
	ProtocolVersionPatch uint32     `pb:"6"`
	ProgramID           []byte      `pb:"7"`
	Sizes               SizesStruct `pb:"8"`
	ServicesMask        uint32      `pb:"9"`
	ParameterRepoHash   uint32      `pb:"10"`
	ChallengeKeyOk      bool        `pb:"11"`
}

// --- Parameters -----------------------------------------------------------

type ParameterInfoRequest struct {
	ParameterIDs []uint32 `pb:"1"`
}

type DataType uint32

const (
	DataTypeUint32 DataType = iota
	DataTypeInt32
	DataTypeFloat32
	DataTypeUint64
	DataTypeInt64
	DataTypeFloat64
	DataTypeBool
	DataTypeString
	DataTypeEnum
	DataTypeBitfield
	DataTypeBytes
)

type Access uint32

const (
	AccessNone Access = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

type StorageLocation uint32

const (
	StorageRAM StorageLocation = iota
	StorageNVM
	StorageExternal
)

type ParameterInfo struct {
	ID               uint32          `pb:"1"`
	DataType         uint32          `pb:"2"`
	SizeInBytes      uint32          `pb:"3"`
	Name             string          `pb:"4"`
	Description      string          `pb:"5"`
	Units            string          `pb:"6"`
	HasRange         bool            `pb:"7"`
	RangeMin         float64         `pb:"8"`
	RangeMax         float64         `pb:"9"`
	HasDefault       bool            `pb:"10"`
	DefaultValue     float64         `pb:"11"`
	AccessMode       uint32          `pb:"12"`
	StorageLocation  uint32          `pb:"13"`
}

type ParameterInfoResponse struct {
	Parameters       []ParameterInfo `pb:"1"`
	RemainingObjects uint32          `pb:"2"`
}

type ParamExLabel struct {
	ID   uint32 `pb:"1"`
	Name string `pb:"2"`
}

type ParamExKey struct {
	ParamID  uint32         `pb:"1"`
	DataType uint32         `pb:"2"`
	Labels   []ParamExLabel `pb:"3"`
}

type ParamExInfoResponse struct {
	Keys             []ParamExKey `pb:"1"`
	RemainingObjects uint32       `pb:"2"`
}

type ParameterRead struct {
	ParameterIDs []uint32 `pb:"1"`
}

type ParameterValue struct {
	ParameterID uint32  `pb:"1"`
	HasValue    bool    `pb:"2"`
	UintValue   uint64  `pb:"3"`
	IntValue    int64   `pb:"4"`
	FloatValue  float64 `pb:"5"`
	BoolValue   bool    `pb:"6"`
	StringValue string  `pb:"7"`
	BytesValue  []byte  `pb:"8"`
	DataType    uint32  `pb:"9"`
}

type ParameterReadResult struct {
	Values           []ParameterValue `pb:"1"`
	RemainingObjects uint32           `pb:"2"`
}

type ParameterWrite struct {
	Values []ParameterValue `pb:"1"`
}

type ParameterWriteResult struct {
	Result      uint32 `pb:"1"`
	FailedParam uint32 `pb:"2"`
}

type ParameterNotifyConfig struct {
	ParameterID uint32  `pb:"1"`
	Enabled     bool    `pb:"2"`
	MinPeriodMs uint32  `pb:"3"`
	MaxPeriodMs uint32  `pb:"4"`
	MinDelta    float32 `pb:"5"`
}

type ParameterNotifyConfigResponse struct {
	Result uint32 `pb:"1"`
}

type ParameterNotification struct {
	Value ParameterValue `pb:"1"`
}

// DiscoverNotifications reuses ParameterInfoRequest on the wire (an
// optional id filter); the response lists the currently configured
// notification slots rather than parameter descriptors.
type DiscoverNotificationsResponse struct {
	Configs          []ParameterNotifyConfig `pb:"1"`
	RemainingObjects uint32                  `pb:"2"`
}

// --- Files ------------------------------------------------------------

type DiscoverFiles struct {
	FileIDs []uint32 `pb:"1"`
}

type FileInfo struct {
	FileID          uint32 `pb:"1"`
	Name            string `pb:"2"`
	AccessMode      uint32 `pb:"3"`
	CurrentSizeBytes uint32 `pb:"4"`
	MaxSizeBytes    uint32 `pb:"5"`
	StorageLocation uint32 `pb:"6"`
}

type DiscoverFilesResponse struct {
	Files            []FileInfo `pb:"1"`
	RemainingObjects uint32     `pb:"2"`
}

type Direction uint32

const (
	DirectionRead Direction = iota
	DirectionWrite
)

type FileTransferInit struct {
	FileID            uint32 `pb:"1"`
	TransferID        uint32 `pb:"2"`
	Direction         uint32 `pb:"3"`
	RequestOffset     uint32 `pb:"4"`
	TransferLength    uint32 `pb:"5"`
	RequestedAckRate  uint32 `pb:"6"`
	TimeoutMs         uint32 `pb:"7"`
	UseChecksum       bool   `pb:"8"`
}

type FileTransferInitResponse struct {
	Result        uint32 `pb:"1"`
	TransferID    uint32 `pb:"2"`
	AckRate       uint32 `pb:"3"`
	ResultMessage string `pb:"4"`
}

type FileTransferData struct {
	TransferID    uint32 `pb:"1"`
	MessageNumber uint32 `pb:"2"`
	Offset        uint32 `pb:"3"`
	Data          []byte `pb:"4"`
	Checksum      uint32 `pb:"5"`
}

type FileTransferDataNotification struct {
	TransferID    uint32 `pb:"1"`
	Result        uint32 `pb:"2"`
	IsComplete    bool   `pb:"3"`
	RetryOffset   uint32 `pb:"4"`
	ResultMessage string `pb:"5"`
	BytesTransferred uint32 `pb:"6"`
}

type FileEraseRequest struct {
	FileID uint32 `pb:"1"`
}

type FileEraseResponse struct {
	Result uint32 `pb:"1"`
}

// --- Commands -----------------------------------------------------------

type DiscoverCommands struct{}

type CommandInfo struct {
	ID          uint32 `pb:"1"`
	Name        string `pb:"2"`
	Description string `pb:"3"`
}

type DiscoverCommandsResponse struct {
	Commands         []CommandInfo `pb:"1"`
	RemainingObjects uint32        `pb:"2"`
}

type SendCommand struct {
	CommandID uint32 `pb:"1"`
}

type SendCommandResponse struct {
	Result  uint32 `pb:"1"`
	Message string `pb:"2"`
}

// --- CLI ------------------------------------------------------------------

type CLIData struct {
	Line   string `pb:"1"`
	IsFromClient bool `pb:"2"`
}

// --- Time -----------------------------------------------------------------

type TimeSetRequest struct {
	SecondsSinceEpoch uint64 `pb:"1"`
}

type TimeSetResponse struct {
	Result uint32 `pb:"1"`
}

type TimeGetRequest struct{}

type TimeGetResponse struct {
	SecondsSinceEpoch uint64 `pb:"1"`
}

// --- WiFi -------------------------------------------------------------

type DiscoverWiFiRequest struct{}

type WiFiInfo struct {
	SSID      string `pb:"1"`
	RSSI      int32  `pb:"2"`
	Encrypted bool   `pb:"3"`
}

type DiscoverWiFiResponse struct {
	Networks         []WiFiInfo `pb:"1"`
	RemainingObjects uint32     `pb:"2"`
}

type WiFiConnectionRequest struct {
	SSID     string `pb:"1"`
	Password string `pb:"2"`
}

type WiFiConnectionResponse struct {
	Result uint32 `pb:"1"`
}

// --- Streams --------------------------------------------------------------

type DiscoverStreams struct{}

type StreamInfo struct {
	ID   uint32 `pb:"1"`
	Name string `pb:"2"`
}

type DiscoverStreamsResponse struct {
	Streams          []StreamInfo `pb:"1"`
	RemainingObjects uint32       `pb:"2"`
}

type StreamOpen struct {
	StreamID uint32 `pb:"1"`
}

type StreamOpenResponse struct {
	Result uint32 `pb:"1"`
}

type StreamClose struct {
	StreamID uint32 `pb:"1"`
}

type StreamData struct {
	StreamID uint32 `pb:"1"`
	Data     []byte `pb:"2"`
}

// --- Error report -----------------------------------------------------

type ErrorReport struct {
	ResultValue uint32 `pb:"1"`
	Message     string `pb:"2"`
}
