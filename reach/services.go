package reach

import "github.com/reach-iot/reach-go/reach/wire"

// --- Commands (C8) ---------------------------------------------------------

func (e *Engine) handleDiscoverCommands(req any) (wire.MessageType, any, error) {
	if e.commands == nil {
		return 0, nil, NewError(NoService, "command service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceCommands, 0); err != nil {
			return 0, nil, err
		}
		e.commands.DiscoverReset()
		var items []wire.CommandInfo
		for {
			info, ok := e.commands.DiscoverNext()
			if !ok {
				break
			}
			if !e.access.AccessGranted(ServiceCommands, info.ID) {
				continue
			}
			items = append(items, info)
		}
		e.cont = continuation{kind: wire.MsgDiscoverCommands, cmdItems: items}
	}
	if e.cont.kind != wire.MsgDiscoverCommands {
		return 0, nil, NewError(InvalidState, "no active command discovery")
	}
	end := e.cont.idx + NumCommandsInResp
	if end > len(e.cont.cmdItems) {
		end = len(e.cont.cmdItems)
	}
	batch := append([]wire.CommandInfo(nil), e.cont.cmdItems[e.cont.idx:end]...)
	e.cont.idx = end
	resp := &wire.DiscoverCommandsResponse{Commands: batch, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgDiscoverCommands, resp, nil
}

func (e *Engine) handleSendCommand(req any) (wire.MessageType, any, error) {
	if e.commands == nil {
		return 0, nil, NewError(NoService, "command service not available")
	}
	r := req.(*wire.SendCommand)
	if err := e.checkGate(ServiceCommands, r.CommandID); err != nil {
		return 0, nil, err
	}
	if err := e.commands.Execute(r.CommandID); err != nil {
		return wire.MsgSendCommand, &wire.SendCommandResponse{Result: uint32(WriteFailed), Message: err.Error()}, nil
	}
	return wire.MsgSendCommand, &wire.SendCommandResponse{Result: uint32(NoError)}, nil
}

// --- CLI (C8) ---------------------------------------------------------------

// handleCLINotification answers a line the client typed into its remote
// CLI. Lines the device itself produced and looped back (IsFromClient
// false) are dropped rather than re-entered.
func (e *Engine) handleCLINotification(req any) (wire.MessageType, any, error) {
	if e.cli == nil {
		return 0, nil, NewError(NoService, "cli service not available")
	}
	if err := e.checkGate(ServiceCLI, 0); err != nil {
		return 0, nil, err
	}
	r := req.(*wire.CLIData)
	if !r.IsFromClient {
		return 0, nil, nil
	}
	out, err := e.cli.Enter(r.Line)
	if err != nil {
		return 0, nil, NewError(InvalidState, "cli: %v", err)
	}
	return wire.MsgCLINotification, &wire.CLIData{Line: out, IsFromClient: false}, nil
}

// --- Time (C8) ----------------------------------------------------------

func (e *Engine) handleGetTime(req any) (wire.MessageType, any, error) {
	if e.timeSvc == nil {
		return 0, nil, NewError(NoService, "time service not available")
	}
	if err := e.checkGate(ServiceTime, 0); err != nil {
		return 0, nil, err
	}
	return wire.MsgGetTime, &wire.TimeGetResponse{SecondsSinceEpoch: e.timeSvc.Now()}, nil
}

func (e *Engine) handleSetTime(req any) (wire.MessageType, any, error) {
	if e.timeSvc == nil {
		return 0, nil, NewError(NoService, "time service not available")
	}
	if err := e.checkGate(ServiceTime, 0); err != nil {
		return 0, nil, err
	}
	r := req.(*wire.TimeSetRequest)
	if err := e.timeSvc.SetTime(r.SecondsSinceEpoch); err != nil {
		return wire.MsgSetTime, &wire.TimeSetResponse{Result: uint32(WriteFailed)}, nil
	}
	return wire.MsgSetTime, &wire.TimeSetResponse{Result: uint32(NoError)}, nil
}

// --- WiFi (C8) ----------------------------------------------------------

func (e *Engine) handleDiscoverWifi(req any) (wire.MessageType, any, error) {
	if e.wifi == nil {
		return 0, nil, NewError(NoService, "wifi service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceWiFi, 0); err != nil {
			return 0, nil, err
		}
		e.wifi.DiscoverReset()
		var items []wire.WiFiInfo
		for {
			info, ok := e.wifi.DiscoverNext()
			if !ok {
				break
			}
			items = append(items, info)
		}
		e.cont = continuation{kind: wire.MsgDiscoverWifi, wifiItems: items}
	}
	if e.cont.kind != wire.MsgDiscoverWifi {
		return 0, nil, NewError(InvalidState, "no active wifi discovery")
	}
	end := e.cont.idx + NumMediumStructs
	if end > len(e.cont.wifiItems) {
		end = len(e.cont.wifiItems)
	}
	batch := append([]wire.WiFiInfo(nil), e.cont.wifiItems[e.cont.idx:end]...)
	e.cont.idx = end
	resp := &wire.DiscoverWiFiResponse{Networks: batch, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgDiscoverWifi, resp, nil
}

func (e *Engine) handleWifiConnect(req any) (wire.MessageType, any, error) {
	if e.wifi == nil {
		return 0, nil, NewError(NoService, "wifi service not available")
	}
	if err := e.checkGate(ServiceWiFi, 0); err != nil {
		return 0, nil, err
	}
	r := req.(*wire.WiFiConnectionRequest)
	if err := e.wifi.Connect(r.SSID, r.Password); err != nil {
		return wire.MsgWifiConnect, &wire.WiFiConnectionResponse{Result: uint32(WriteFailed)}, nil
	}
	return wire.MsgWifiConnect, &wire.WiFiConnectionResponse{Result: uint32(NoError)}, nil
}

// --- Streams (C8, supplemented) ---------------------------------------

func (e *Engine) handleDiscoverStreams(req any) (wire.MessageType, any, error) {
	if e.streams == nil {
		return 0, nil, NewError(NoService, "stream service not available")
	}
	if err := e.checkGate(ServiceStreams, 0); err != nil {
		return 0, nil, err
	}
	e.streams.DiscoverReset()
	var items []wire.StreamInfo
	for {
		info, ok := e.streams.DiscoverNext()
		if !ok {
			break
		}
		items = append(items, info)
	}
	return wire.MsgDiscoverStreams, &wire.DiscoverStreamsResponse{Streams: items}, nil
}

func (e *Engine) handleStreamOpen(req any) (wire.MessageType, any, error) {
	if e.streams == nil {
		return 0, nil, NewError(NoService, "stream service not available")
	}
	r := req.(*wire.StreamOpen)
	if err := e.checkGate(ServiceStreams, r.StreamID); err != nil {
		return 0, nil, err
	}
	if err := e.streams.Open(r.StreamID); err != nil {
		return wire.MsgStreamOpen, &wire.StreamOpenResponse{Result: uint32(ReadFailed)}, nil
	}
	return wire.MsgStreamOpen, &wire.StreamOpenResponse{Result: uint32(NoError)}, nil
}

func (e *Engine) handleStreamClose(req any) (wire.MessageType, any, error) {
	if e.streams == nil {
		return 0, nil, NewError(NoService, "stream service not available")
	}
	r := req.(*wire.StreamClose)
	if err := e.checkGate(ServiceStreams, r.StreamID); err != nil {
		return 0, nil, err
	}
	if err := e.streams.Close(r.StreamID); err != nil {
		e.log.Warnf("stream %d close: %v", r.StreamID, err)
	}
	return wire.MsgStreamClose, &wire.StreamClose{StreamID: r.StreamID}, nil
}

// pollStreams pushes one buffered chunk per open stream as an async
// notification; called from the idle tick alongside scanNotifications.
func (e *Engine) pollStreams() {
	if e.streams == nil {
		return
	}
	e.streams.DiscoverReset()
	for {
		info, ok := e.streams.DiscoverNext()
		if !ok {
			break
		}
		data, ok := e.streams.Next(info.ID)
		if !ok || len(data) == 0 {
			continue
		}
		e.emit(wire.MsgStreamData, &wire.StreamData{StreamID: info.ID, Data: data}, true)
	}
}
