package reach

import "github.com/reach-iot/reach-go/reach/wire"

// continuation is the single {kind, remaining} slot of spec §4.5: at
// most one multi-message response is in flight at a time. Starting a new
// one implicitly cancels whatever was active.
//
// Each cursor-driven discovery kind materializes its full result set
// once (bounded by the device's descriptor/file/command table, which on
// a constrained device is small) and then pages through it idx..idx+n;
// this keeps remaining_objects exact (spec §8 property / scenario S6)
// without requiring the callback surface to support "peek" or multiple
// reset passes.
type continuation struct {
	kind wire.MessageType
	idx  int

	paramItems []wire.ParameterInfo
	exItems    []wire.ParamExKey
	fileItems  []wire.FileInfo
	cmdItems   []wire.CommandInfo
	wifiItems  []wire.WiFiInfo
	notifyItems []wire.ParameterNotifyConfig
	readIDs    []uint32 // pending parameter ids for READ_PARAMETERS continuation

	// rawRemaining backs the file-data continuation (wire.MsgTransferData,
	// read direction): it has no item slice, it just reads straight from
	// the active transfer state (e.xfer) and stores the chunk count left
	// here each tick.
	rawRemaining int
}

func (c *continuation) active() bool {
	return c.kind != wire.MsgInvalid
}

func (c *continuation) close() {
	*c = continuation{}
}

func (c *continuation) remaining() uint32 {
	var total int
	switch c.kind {
	case wire.MsgDiscoverParameters:
		total = len(c.paramItems)
	case wire.MsgDiscoverParamEx:
		total = len(c.exItems)
	case wire.MsgDiscoverFiles:
		total = len(c.fileItems)
	case wire.MsgDiscoverCommands:
		total = len(c.cmdItems)
	case wire.MsgDiscoverWifi:
		total = len(c.wifiItems)
	case wire.MsgReadParameters:
		total = len(c.readIDs)
	case wire.MsgDiscoverNotifications:
		total = len(c.notifyItems)
	case wire.MsgTransferData:
		if c.rawRemaining < 0 {
			return 0
		}
		return uint32(c.rawRemaining)
	}
	if c.idx >= total {
		return 0
	}
	return uint32(total - c.idx)
}
