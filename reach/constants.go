package reach

// Size constants mirror reach_ble_proto_sizes.h, scaled for a 244-byte BLE
// GATT MTU (CR_CODED_BUFFER_SIZE). They size every static buffer and cap
// every per-response batch. They are fixed at compile time; Config has no
// fields that override them.
const (
	// CodedBufferSize is CR_CODED_BUFFER_SIZE: the largest encoded frame,
	// header included.
	CodedBufferSize = 244

	// MessagePayloadMax is the payload budget once the frame header is
	// subtracted (CodedBufferSize - 4).
	MessagePayloadMax = 240

	BigDataBufferLen  = 194
	DeviceInfoLen     = 48
	LongStringLen     = 32
	ShortStringLen    = 16
	MediumStringLen   = 24
	ParamInfoEnumCnt  = 12
	ServicesCount     = 8
	PiEnumCount       = 8
	NumCommandsInResp = 6
	NumMediumStructs  = 4
	CountParamDescInResponse = 2
	CountParamIDs            = 32

	BytesInAFilePacket = BigDataBufferLen
	ErrorBufferLen     = BigDataBufferLen
	PingEchoLen        = BigDataBufferLen
	StreamDataLen      = BigDataBufferLen
	CommandResLen      = BigDataBufferLen
	CliMsgLen          = BigDataBufferLen

	CountParamsInRequest   = CountParamIDs
	CountFailedParamIDs    = CountParamIDs
	PvalStringLen          = LongStringLen
	PvalBytesLen           = LongStringLen
	ParamInfoDescLen       = LongStringLen
	DeviceNameLen          = MediumStringLen
	ManufacturerNameLen    = MediumStringLen
	ParamInfoNameLen       = MediumStringLen
	FileNameLen            = MediumStringLen
	StreamNameLen          = MediumStringLen
	CommandNameLen         = MediumStringLen
	ParamInfoUnitsLen      = ShortStringLen
	FwVersionLen           = ShortStringLen
	UUIDByteLen            = ShortStringLen
	PiEnumNameLen          = ShortStringLen

	CountParamReadValues      = NumMediumStructs
	DiscoverStreamCount       = NumMediumStructs
	CountParamWriteInRequest  = NumMediumStructs
	CountParamNotifValues     = NumMediumStructs
	DiscoverFilesCount        = NumMediumStructs

	// ExLabelsPerResponse is the fixed chunk size for parameter extension
	// (enum/bitfield) label pagination (spec §4.3 "8 per response").
	ExLabelsPerResponse = 8

	// DefaultAckRate is used when neither side names a preferred rate.
	DefaultAckRate = 10
)

// NotifySlotsDefault is NUM_SUPPORTED_PARAM_NOTIFY absent an explicit
// Config override.
const NotifySlotsDefault = 16
