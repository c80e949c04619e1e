package reach

import "github.com/reach-iot/reach-go/reach/wire"

// dispatch routes one decoded prompt (or, when req is nil, a
// continuation re-entry) to its typed handler (spec §4.2 step 9). Every
// handler returns the message type to encode the response as, the
// uncoded response payload, and an error; see sendResult for how the
// three combine into NoResponse/NoData/ErrorReport semantics.
func (e *Engine) dispatch(mt wire.MessageType, req any) (wire.MessageType, any, error) {
	switch mt {
	case wire.MsgPing:
		return e.handlePing(req)
	case wire.MsgGetDeviceInfo:
		return e.handleDeviceInfo(req)

	case wire.MsgDiscoverParameters:
		return e.handleDiscoverParameters(req)
	case wire.MsgDiscoverParamEx:
		return e.handleDiscoverParamEx(req)
	case wire.MsgReadParameters:
		return e.handleReadParameters(req)
	case wire.MsgWriteParameters:
		return e.handleWriteParameters(req)
	case wire.MsgDiscoverNotifications:
		return e.handleDiscoverNotifications(req)
	case wire.MsgParamEnableNotify:
		return e.handleEnableNotify(req)
	case wire.MsgParamDisableNotify:
		return e.handleDisableNotify(req)

	case wire.MsgDiscoverFiles:
		return e.handleDiscoverFiles(req)
	case wire.MsgTransferInit:
		return e.handleTransferInit(req)
	case wire.MsgTransferData:
		return e.handleTransferData(req)
	case wire.MsgTransferDataNotification:
		return e.handleTransferDataNotification(req)
	case wire.MsgEraseFile:
		return e.handleEraseFile(req)

	case wire.MsgDiscoverCommands:
		return e.handleDiscoverCommands(req)
	case wire.MsgSendCommand:
		return e.handleSendCommand(req)
	case wire.MsgCLINotification:
		return e.handleCLINotification(req)
	case wire.MsgGetTime:
		return e.handleGetTime(req)
	case wire.MsgSetTime:
		return e.handleSetTime(req)
	case wire.MsgDiscoverWifi:
		return e.handleDiscoverWifi(req)
	case wire.MsgWifiConnect:
		return e.handleWifiConnect(req)
	case wire.MsgDiscoverStreams:
		return e.handleDiscoverStreams(req)
	case wire.MsgStreamOpen:
		return e.handleStreamOpen(req)
	case wire.MsgStreamClose:
		return e.handleStreamClose(req)

	default:
		return 0, nil, NewError(NotImplemented, "no handler for %s", mt)
	}
}

// --- Ping -----------------------------------------------------------------

func (e *Engine) handlePing(req any) (wire.MessageType, any, error) {
	if err := e.checkGate(0, 0); err != nil {
		return 0, nil, err
	}
	r, _ := req.(*wire.PingRequest)
	if r == nil {
		r = &wire.PingRequest{}
	}
	var rssi int32
	if e.deviceInfo != nil {
		rssi = e.deviceInfo.PingSignalStrength()
	}
	return wire.MsgPing, &wire.PingResponse{EchoData: r.EchoData, SignalStrength: rssi}, nil
}

// --- Device info ------------------------------------------------------

func (e *Engine) handleDeviceInfo(req any) (wire.MessageType, any, error) {
	r, _ := req.(*wire.DeviceInfoRequest)
	if r == nil {
		r = &wire.DeviceInfoRequest{}
	}
	e.clientVersion = [3]uint32{r.ClientProtocolVersionMajor, r.ClientProtocolVersionMinor, r.ClientProtocolVersionPatch}

	keyOK := e.access.ChallengeKeyIsValid()
	if !keyOK && len(r.ApplicationChallengeKey) > 0 {
		keyOK = e.access.ValidateChallengeKey(r.ApplicationChallengeKey)
	}

	resp := &wire.DeviceInfoResponse{
		Sizes: wire.SizesStruct{
			MaxMessageSize:            CodedBufferSize,
			BigDataBufferSize:         BigDataBufferLen,
			ParameterBufferCount:      CountParamIDs,
			NumMediumStructsInMessage: NumMediumStructs,
			DeviceInfoLen:             DeviceInfoLen,
			LongStringLen:             LongStringLen,
			CountParamIDs:             CountParamIDs,
			MediumStringLen:           MediumStringLen,
			ShortStringLen:            ShortStringLen,
			ParamInfoEnumCount:        ParamInfoEnumCnt,
			ServicesCount:             ServicesCount,
			PiEnumCount:               PiEnumCount,
			NumCommandsInResponse:     NumCommandsInResp,
			CountParamDescInResponse:  CountParamDescInResponse,
		},
		ServicesMask:   uint32(e.cfg.Services),
		ChallengeKeyOk: keyOK,
	}
	if e.deviceInfo != nil {
		resp.DeviceName = e.deviceInfo.DeviceName()
		resp.ManufacturerName = e.deviceInfo.ManufacturerName()
		maj, min, patch := e.deviceInfo.FirmwareVersion()
		resp.ProtocolVersionMajor, resp.ProtocolVersionMinor, resp.ProtocolVersionPatch = maj, min, patch
		resp.ProgramID = e.deviceInfo.ProgramID()
	} else {
		resp.DeviceName, resp.ManufacturerName = e.cfg.DeviceName, e.cfg.ManufacturerName
		resp.ProtocolVersionMajor, resp.ProtocolVersionMinor, resp.ProtocolVersionPatch =
			e.cfg.FirmwareVersionMajor, e.cfg.FirmwareVersionMinor, e.cfg.FirmwareVersionPatch
	}
	if !keyOK {
		// Diminished response: no repo hash leaked pre-auth.
		return wire.MsgGetDeviceInfo, resp, nil
	}
	if e.params != nil {
		resp.ParameterRepoHash = e.parameterRepoHash()
	}
	return wire.MsgGetDeviceInfo, resp, nil
}
