package reach

import (
	"bytes"

	"github.com/reach-iot/reach-go/reach/wire"
)

// notifySlot is one entry of C6's fixed notification table: a parameter
// id with its period/delta thresholds and the last value and tick the
// scan observed it at.
type notifySlot struct {
	active        bool
	paramID       uint32
	minPeriodMs   uint32
	maxPeriodMs   uint32
	minDelta      float32
	lastValue     wire.ParameterValue
	lastTimestamp uint32
}

// notifyTable is NumSupportedNotify fixed slots (spec §4.4: "a bounded
// table, not a map, sized at construction").
type notifyTable struct {
	slots []notifySlot
}

func (e *Engine) findNotifySlot(paramID uint32) *notifySlot {
	for i := range e.nt.slots {
		if e.nt.slots[i].active && e.nt.slots[i].paramID == paramID {
			return &e.nt.slots[i]
		}
	}
	return nil
}

func (e *Engine) allocNotifySlot() *notifySlot {
	for i := range e.nt.slots {
		if !e.nt.slots[i].active {
			return &e.nt.slots[i]
		}
	}
	return nil
}

// --- Discovery ----------------------------------------------------------

func (e *Engine) handleDiscoverParameters(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceParameters, 0); err != nil {
			return 0, nil, err
		}
		r := req.(*wire.ParameterInfoRequest)
		e.cont = continuation{kind: wire.MsgDiscoverParameters, paramItems: e.materializeParamItems(r.ParameterIDs)}
	}
	if e.cont.kind != wire.MsgDiscoverParameters {
		return 0, nil, NewError(InvalidState, "no active parameter discovery")
	}
	end := e.cont.idx + CountParamDescInResponse
	if end > len(e.cont.paramItems) {
		end = len(e.cont.paramItems)
	}
	batch := append([]wire.ParameterInfo(nil), e.cont.paramItems[e.cont.idx:end]...)
	e.cont.idx = end
	resp := &wire.ParameterInfoResponse{Parameters: batch, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgDiscoverParameters, resp, nil
}

func (e *Engine) materializeParamItems(filterIDs []uint32) []wire.ParameterInfo {
	e.params.DiscoverReset(filterIDs)
	var out []wire.ParameterInfo
	for {
		info, ok := e.params.DiscoverNext()
		if !ok {
			break
		}
		if !e.access.AccessGranted(ServiceParameters, info.ID) {
			continue
		}
		out = append(out, info)
	}
	return out
}

func (e *Engine) handleDiscoverParamEx(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceParameters, 0); err != nil {
			return 0, nil, err
		}
		r := req.(*wire.ParameterInfoRequest)
		e.cont = continuation{kind: wire.MsgDiscoverParamEx, exItems: e.materializeExItems(r.ParameterIDs)}
	}
	if e.cont.kind != wire.MsgDiscoverParamEx {
		return 0, nil, NewError(InvalidState, "no active extension discovery")
	}
	if e.cont.idx >= len(e.cont.exItems) {
		e.cont.close()
		return wire.MsgDiscoverParamEx, &wire.ParamExInfoResponse{}, nil
	}
	key := e.cont.exItems[e.cont.idx]
	e.cont.idx++
	resp := &wire.ParamExInfoResponse{Keys: []wire.ParamExKey{key}, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgDiscoverParamEx, resp, nil
}

// materializeExItems pre-chunks every enum/bitfield parameter's label set
// into ExLabelsPerResponse-sized ParamExKey entries (spec §4.3: "labels
// may be chunked across responses, at most 8 per message").
func (e *Engine) materializeExItems(filterIDs []uint32) []wire.ParamExKey {
	e.params.DiscoverReset(filterIDs)
	var out []wire.ParamExKey
	for {
		info, ok := e.params.DiscoverNext()
		if !ok {
			break
		}
		if info.DataType != uint32(wire.DataTypeEnum) && info.DataType != uint32(wire.DataTypeBitfield) {
			continue
		}
		if !e.access.AccessGranted(ServiceParameters, info.ID) {
			continue
		}
		e.params.ExDiscoverReset(info.ID)
		var labels []wire.ParamExLabel
		for {
			lbl, ok := e.params.ExDiscoverNext(info.ID)
			if !ok {
				break
			}
			labels = append(labels, lbl)
			if len(labels) == ExLabelsPerResponse {
				out = append(out, wire.ParamExKey{ParamID: info.ID, DataType: info.DataType, Labels: labels})
				labels = nil
			}
		}
		if len(labels) > 0 {
			out = append(out, wire.ParamExKey{ParamID: info.ID, DataType: info.DataType, Labels: labels})
		}
	}
	return out
}

// --- Read / write ---------------------------------------------------------

func (e *Engine) handleReadParameters(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceParameters, 0); err != nil {
			return 0, nil, err
		}
		r := req.(*wire.ParameterRead)
		ids := append([]uint32(nil), r.ParameterIDs...)
		e.cont = continuation{kind: wire.MsgReadParameters, readIDs: ids}
	}
	if e.cont.kind != wire.MsgReadParameters {
		return 0, nil, NewError(InvalidState, "no active parameter read")
	}
	end := e.cont.idx + CountParamReadValues
	if end > len(e.cont.readIDs) {
		end = len(e.cont.readIDs)
	}
	batch := make([]wire.ParameterValue, 0, end-e.cont.idx)
	for _, id := range e.cont.readIDs[e.cont.idx:end] {
		if !e.access.AccessGranted(ServiceParameters, id) {
			batch = append(batch, wire.ParameterValue{ParameterID: id, HasValue: false})
			continue
		}
		v, err := e.params.ReadParameter(id)
		if err != nil {
			batch = append(batch, wire.ParameterValue{ParameterID: id, HasValue: false})
			continue
		}
		v.ParameterID = id
		v.HasValue = true
		batch = append(batch, v)
	}
	e.cont.idx = end
	resp := &wire.ParameterReadResult{Values: batch, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgReadParameters, resp, nil
}

// handleWriteParameters applies every value in the request. A single
// rejected write fails the whole request (spec §4.3); values already
// applied before the failing one are not rolled back.
func (e *Engine) handleWriteParameters(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	if err := e.checkGate(ServiceParameters, 0); err != nil {
		return 0, nil, err
	}
	r := req.(*wire.ParameterWrite)
	for _, v := range r.Values {
		if !e.access.AccessGranted(ServiceParameters, v.ParameterID) {
			return wire.MsgWriteParameters, &wire.ParameterWriteResult{Result: uint32(PermissionDenied), FailedParam: v.ParameterID}, nil
		}
		if err := e.params.WriteParameter(v.ParameterID, v); err != nil {
			return wire.MsgWriteParameters, &wire.ParameterWriteResult{Result: uint32(WriteFailed), FailedParam: v.ParameterID}, nil
		}
	}
	return wire.MsgWriteParameters, &wire.ParameterWriteResult{Result: uint32(NoError)}, nil
}

// --- Notification configuration -------------------------------------------

func (e *Engine) handleDiscoverNotifications(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceParameters, 0); err != nil {
			return 0, nil, err
		}
		var items []wire.ParameterNotifyConfig
		for i := range e.nt.slots {
			s := &e.nt.slots[i]
			if !s.active {
				continue
			}
			items = append(items, wire.ParameterNotifyConfig{
				ParameterID: s.paramID,
				Enabled:     true,
				MinPeriodMs: s.minPeriodMs,
				MaxPeriodMs: s.maxPeriodMs,
				MinDelta:    s.minDelta,
			})
		}
		e.cont = continuation{kind: wire.MsgDiscoverNotifications, notifyItems: items}
	}
	if e.cont.kind != wire.MsgDiscoverNotifications {
		return 0, nil, NewError(InvalidState, "no active notification discovery")
	}
	end := e.cont.idx + CountParamNotifValues
	if end > len(e.cont.notifyItems) {
		end = len(e.cont.notifyItems)
	}
	batch := append([]wire.ParameterNotifyConfig(nil), e.cont.notifyItems[e.cont.idx:end]...)
	e.cont.idx = end
	resp := &wire.DiscoverNotificationsResponse{Configs: batch, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgDiscoverNotifications, resp, nil
}

// handleEnableNotify validates the parameter exists, captures its current
// value as the notify baseline, and occupies (or reuses) a slot.
func (e *Engine) handleEnableNotify(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	r := req.(*wire.ParameterNotifyConfig)
	if err := e.checkGate(ServiceParameters, r.ParameterID); err != nil {
		return 0, nil, err
	}
	val, err := e.params.ReadParameter(r.ParameterID)
	if err != nil {
		return 0, nil, NewError(InvalidParameter, "unknown parameter %d", r.ParameterID)
	}
	slot := e.findNotifySlot(r.ParameterID)
	if slot == nil {
		slot = e.allocNotifySlot()
		if slot == nil {
			return 0, nil, NewError(NoResource, "no free notification slots")
		}
	}
	slot.active = true
	slot.paramID = r.ParameterID
	slot.minPeriodMs = r.MinPeriodMs
	slot.maxPeriodMs = r.MaxPeriodMs
	slot.minDelta = r.MinDelta
	slot.lastValue = val
	slot.lastTimestamp = e.now
	return wire.MsgParamEnableNotify, &wire.ParameterNotifyConfigResponse{Result: uint32(NoError)}, nil
}

// handleDisableNotify is idempotent: disabling an id with no active slot
// is a no-op success, not an error (spec §4.4).
func (e *Engine) handleDisableNotify(req any) (wire.MessageType, any, error) {
	if e.params == nil {
		return 0, nil, NewError(NoService, "parameters service not available")
	}
	r := req.(*wire.ParameterNotifyConfig)
	if err := e.checkGate(ServiceParameters, r.ParameterID); err != nil {
		return 0, nil, err
	}
	for i := range e.nt.slots {
		if e.nt.slots[i].active && e.nt.slots[i].paramID == r.ParameterID {
			e.nt.slots[i] = notifySlot{}
		}
	}
	return wire.MsgParamDisableNotify, &wire.ParameterNotifyConfigResponse{Result: uint32(NoError)}, nil
}

// scanNotifications is the idle-tick half of C6 (spec §4.4): for each
// active slot, re-read the parameter and notify when either the minimum
// period has elapsed and the value moved by at least min_delta, or the
// maximum period has elapsed regardless of delta.
func (e *Engine) scanNotifications() {
	if e.params == nil {
		return
	}
	for i := range e.nt.slots {
		s := &e.nt.slots[i]
		if !s.active {
			continue
		}
		age := e.now - s.lastTimestamp
		if age < s.minPeriodMs {
			continue
		}
		val, err := e.params.ReadParameter(s.paramID)
		if err != nil {
			e.reportErrorAsync(ReadFailed, "notify scan: parameter %d: %v", s.paramID, err)
			continue
		}
		delta := parameterDelta(s.lastValue, val)
		dueToDelta := delta >= s.minDelta
		dueToMax := s.maxPeriodMs != 0 && age >= s.maxPeriodMs
		if !dueToDelta && !dueToMax {
			continue
		}
		val.ParameterID = s.paramID
		val.HasValue = true
		e.emit(wire.MsgParameterNotification, &wire.ParameterNotification{Value: val}, true)
		e.notificationsEmitted.Inc(1)
		s.lastValue = val
		s.lastTimestamp = e.now
	}
}

// parameterDelta is the magnitude of change between two samples of the
// same parameter. Non-numeric types report 1 on any inequality, 0
// otherwise, so a min_delta of 0 or 1 behaves as "notify on any change".
func parameterDelta(last, cur wire.ParameterValue) float32 {
	switch wire.DataType(cur.DataType) {
	case wire.DataTypeFloat32, wire.DataTypeFloat64:
		d := cur.FloatValue - last.FloatValue
		if d < 0 {
			d = -d
		}
		return float32(d)
	case wire.DataTypeInt32, wire.DataTypeInt64, wire.DataTypeEnum:
		d := cur.IntValue - last.IntValue
		if d < 0 {
			d = -d
		}
		return float32(d)
	case wire.DataTypeUint32, wire.DataTypeUint64, wire.DataTypeBitfield:
		var d uint64
		if cur.UintValue > last.UintValue {
			d = cur.UintValue - last.UintValue
		} else {
			d = last.UintValue - cur.UintValue
		}
		return float32(d)
	case wire.DataTypeBool:
		if cur.BoolValue != last.BoolValue {
			return 1
		}
		return 0
	case wire.DataTypeString:
		if cur.StringValue != last.StringValue {
			return 1
		}
		return 0
	case wire.DataTypeBytes:
		if !bytes.Equal(cur.BytesValue, last.BytesValue) {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// parameterRepoHash memoizes ParameterStore.ParameterRepoHash against a
// cheap fingerprint of (encoded descriptor, access grant) pairs:
// recomputing the fingerprint is plain integer arithmetic over the
// descriptor table,
// while the callback itself may serialize and digest the whole table, so
// caching on the fingerprint avoids that work whenever the access grant
// and descriptor table haven't moved since the last GET_DEVICE_INFO.
func (e *Engine) parameterRepoHash() uint32 {
	e.params.DiscoverReset(nil)
	var fingerprint uint64
	for {
		info, ok := e.params.DiscoverNext()
		if !ok {
			break
		}
		fingerprint = fingerprint*1099511628211 ^ uint64(info.ID)
		desc, _ := wire.Marshal(nil, &info)
		for _, b := range desc {
			fingerprint = fingerprint*1099511628211 ^ uint64(b)
		}
		if e.access.AccessGranted(ServiceParameters, info.ID) {
			fingerprint ^= 0x9e3779b97f4a7c15
		}
	}
	if cached, ok := e.hashCache.Get(fingerprint); ok {
		return cached
	}
	digest := e.params.ParameterRepoHash(func(id uint32) bool {
		return e.access.AccessGranted(ServiceParameters, id)
	})
	e.hashCache.Add(fingerprint, digest)
	return digest
}
