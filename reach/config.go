package reach

import "github.com/reach-iot/reach-go/lib/logger"

// ErrorProfile selects how report_error surfaces a problem to the wire
// (spec §4.6 / §6.3 ERROR_REPORT_FORMAT).
type ErrorProfile int

const (
	// ErrorLogOnly never puts an ErrorReport on the wire.
	ErrorLogOnly ErrorProfile = iota
	// ErrorShort sends {result_value, "Error N."} only.
	ErrorShort
	// ErrorFull sends {result_value, formatted message} up to
	// BytesInAFilePacket-1 characters.
	ErrorFull
)

// Services is a bitmask of which optional services are compiled in
// (spec §6.3 INCLUDE_*_SERVICE).
type Services uint32

const (
	ServiceParameterBit Services = 1 << iota
	ServiceFileBit
	ServiceCommandBit
	ServiceCLIBit
	ServiceTimeBit
	ServiceStreamBit
	ServiceWiFiBit
)

const ServicesAll = ServiceParameterBit | ServiceFileBit | ServiceCommandBit |
	ServiceCLIBit | ServiceTimeBit | ServiceStreamBit | ServiceWiFiBit

// Config is the compile-time configuration of cr_stack.h/reach-server.h,
// reified as a constructor argument rather than a set of #defines (spec
// §9 design note: "global singletons become fields of a value owned by
// main()").
type Config struct {
	DeviceName       string
	ManufacturerName string
	ProgramID        []byte
	FirmwareVersionMajor, FirmwareVersionMinor, FirmwareVersionPatch uint32

	Services            Services
	NumSupportedNotify  int
	ErrorReportFormat   ErrorProfile
	CLIEchoOnDefault    bool
	LogMask             logger.Mask
	ApplicationChallengeKey []byte
}

// DefaultConfig mirrors the reference firmware's out-of-the-box
// reach-server.h: every service compiled in, 16 notify slots, full error
// reports, CLI echo on.
func DefaultConfig() Config {
	return Config{
		DeviceName:         "reach-device",
		ManufacturerName:   "reach-iot",
		Services:           ServicesAll,
		NumSupportedNotify: NotifySlotsDefault,
		ErrorReportFormat:  ErrorFull,
		CLIEchoOnDefault:   true,
		LogMask:            logger.DefaultMask,
	}
}

func (c Config) has(s Services) bool { return c.Services&s != 0 }
