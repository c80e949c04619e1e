package reach

import (
	"fmt"

	"github.com/reach-iot/reach-go/reach/wire"
)

// xferState is C7's file-transfer state machine: Invalid (zero value:
// nothing in flight since connect, or the last transfer completed or was
// aborted) / Idle (a read transfer found nothing left to send) / Init /
// Data (window open) / Complete (last read chunk sent, awaiting the
// closing notification). TRANSFER_INIT moves straight to Data; Init is
// never entered.
type xferState int

const (
	xferInvalid xferState = iota
	xferIdle
	xferInit
	xferData
	xferComplete
)

// fileTransferState is the single active transfer slot (spec: "single
// active transfer"); starting a new one while another is in Init/Data
// is rejected rather than cancelling the old one silently.
type fileTransferState struct {
	state       xferState
	fileID      uint32
	transferID  uint32
	direction   wire.Direction
	offset      uint32
	length      uint32
	ackRate     uint32
	useChecksum bool
	msgNumber   uint32
}

// --- Discovery --------------------------------------------------------

func (e *Engine) handleDiscoverFiles(req any) (wire.MessageType, any, error) {
	if e.files == nil {
		return 0, nil, NewError(NoService, "file service not available")
	}
	if req != nil {
		if err := e.checkGate(ServiceFiles, 0); err != nil {
			return 0, nil, err
		}
		r := req.(*wire.DiscoverFiles)
		e.cont = continuation{kind: wire.MsgDiscoverFiles, fileItems: e.materializeFileItems(r.FileIDs)}
	}
	if e.cont.kind != wire.MsgDiscoverFiles {
		return 0, nil, NewError(InvalidState, "no active file discovery")
	}
	end := e.cont.idx + DiscoverFilesCount
	if end > len(e.cont.fileItems) {
		end = len(e.cont.fileItems)
	}
	batch := append([]wire.FileInfo(nil), e.cont.fileItems[e.cont.idx:end]...)
	e.cont.idx = end
	resp := &wire.DiscoverFilesResponse{Files: batch, RemainingObjects: e.cont.remaining()}
	if e.cont.remaining() == 0 {
		e.cont.close()
	}
	return wire.MsgDiscoverFiles, resp, nil
}

func (e *Engine) materializeFileItems(filterIDs []uint32) []wire.FileInfo {
	e.files.DiscoverReset(filterIDs)
	var out []wire.FileInfo
	for {
		info, ok := e.files.DiscoverNext()
		if !ok {
			break
		}
		if !e.access.AccessGranted(ServiceFiles, info.FileID) {
			continue
		}
		out = append(out, info)
	}
	return out
}

// --- Transfer setup -----------------------------------------------------

func (e *Engine) handleTransferInit(req any) (wire.MessageType, any, error) {
	if e.files == nil {
		return 0, nil, NewError(NoService, "file service not available")
	}
	r := req.(*wire.FileTransferInit)
	if err := e.checkGate(ServiceFiles, r.FileID); err != nil {
		return 0, nil, err
	}
	if e.xfer.state == xferInit || e.xfer.state == xferData {
		return wire.MsgTransferInit, &wire.FileTransferInitResponse{
			Result: uint32(InvalidState), ResultMessage: "a transfer is already active",
		}, nil
	}
	if _, ok := e.files.Describe(r.FileID); !ok {
		return wire.MsgTransferInit, &wire.FileTransferInitResponse{Result: uint32(BadFile)}, nil
	}

	dir := wire.Direction(r.Direction)
	isWrite := dir == wire.DirectionWrite
	if isWrite {
		if err := e.files.PrepareToWrite(r.FileID, r.RequestOffset, r.TransferLength); err != nil {
			return wire.MsgTransferInit, &wire.FileTransferInitResponse{Result: uint32(WriteFailed), ResultMessage: err.Error()}, nil
		}
	}

	ackRate := e.files.PreferredAckRate(r.FileID, r.RequestedAckRate, isWrite)
	if ackRate == 0 {
		ackRate = DefaultAckRate
	}

	e.xfer = fileTransferState{
		state:       xferData,
		fileID:      r.FileID,
		transferID:  r.TransferID,
		direction:   dir,
		offset:      r.RequestOffset,
		length:      r.TransferLength,
		ackRate:     ackRate,
		useChecksum: r.UseChecksum,
	}
	e.wd.start(r.TimeoutMs, e.now)

	if !isWrite {
		// Read direction: the device pushes one chunk per tick through
		// the continuation engine until the transfer length is reached.
		// The negotiated ack rate does not pace this direction: chunks
		// are not held back waiting for the host's
		// FileTransferDataNotification acks.
		e.cont = continuation{kind: wire.MsgTransferData}
	}

	return wire.MsgTransferInit, &wire.FileTransferInitResponse{
		Result: uint32(NoError), TransferID: r.TransferID, AckRate: ackRate,
	}, nil
}

// --- Data flow ----------------------------------------------------------

// handleTransferData is the device's single entry point for read-direction
// chunk production (continuation re-entry, req == nil) and write-direction
// chunk consumption (req holds the host's pushed data).
func (e *Engine) handleTransferData(req any) (wire.MessageType, any, error) {
	if e.files == nil {
		return 0, nil, NewError(NoService, "file service not available")
	}
	if e.xfer.state != xferData {
		return 0, nil, NewError(InvalidState, "no active file transfer")
	}
	if req == nil {
		return e.emitFileDataChunk()
	}
	r := req.(*wire.FileTransferData)
	if r.TransferID != e.xfer.transferID {
		return 0, nil, NewError(InvalidID, "transfer id %d does not match active transfer %d", r.TransferID, e.xfer.transferID)
	}
	e.wd.stroke(e.now)

	// spec §4.4 write-path step 4 / scenario S3: a gap in the host's
	// message numbering means a packet was lost or duplicated. Report it
	// as a TRANSFER_DATA_NOTIFICATION carrying a retry_offset rather than
	// a generic error report (which has no field for it), resync the
	// local counter to what the host just sent, and keep the transfer
	// open so the host can retry from retry_offset.
	if r.MessageNumber != e.xfer.msgNumber {
		msg := fmt.Sprintf("expected message number %d, got %d", e.xfer.msgNumber, r.MessageNumber)
		e.xfer.msgNumber = r.MessageNumber
		return wire.MsgTransferDataNotification, &wire.FileTransferDataNotification{
			TransferID:    e.xfer.transferID,
			Result:        uint32(PacketCountErr),
			RetryOffset:   e.xfer.offset,
			ResultMessage: msg,
		}, nil
	}
	if e.xfer.useChecksum && uint32(internetChecksum(r.Data)) != r.Checksum {
		return wire.MsgTransferDataNotification, &wire.FileTransferDataNotification{
			TransferID:    e.xfer.transferID,
			Result:        uint32(ChecksumMismatch),
			RetryOffset:   e.xfer.offset,
			ResultMessage: fmt.Sprintf("checksum mismatch at offset %d", r.Offset),
		}, nil
	}
	if err := e.files.WriteFile(e.xfer.fileID, r.Offset, r.Data); err != nil {
		return 0, nil, NewError(WriteFailed, "file %d: %v", e.xfer.fileID, err)
	}
	e.xfer.offset = r.Offset + uint32(len(r.Data))
	e.xfer.msgNumber++
	e.bytesTransferred.Inc(int64(len(r.Data)))

	remaining := int(e.xfer.length) - int(e.xfer.offset)
	notif := &wire.FileTransferDataNotification{
		TransferID:       e.xfer.transferID,
		Result:           uint32(NoError),
		BytesTransferred: e.xfer.offset,
	}
	if remaining <= 0 {
		notif.IsComplete = true
		if err := e.files.TransferComplete(e.xfer.fileID); err != nil {
			e.log.Warnf("transfer complete callback for file %d: %v", e.xfer.fileID, err)
		}
		e.xfer = fileTransferState{}
		e.wd.end()
	} else if e.xfer.msgNumber%e.xfer.ackRate == 0 {
		// periodic ack: say nothing by returning NoData unless an ack is due.
	} else {
		return 0, nil, NewError(NoData, "ack not due yet")
	}
	return wire.MsgTransferDataNotification, notif, nil
}

// emitFileDataChunk produces one read-direction chunk, bounded by
// BytesInAFilePacket, and updates the continuation's remaining count.
func (e *Engine) emitFileDataChunk() (wire.MessageType, any, error) {
	left := int(e.xfer.length) - int(e.xfer.offset)
	if left <= 0 {
		e.xfer.state = xferIdle
		e.cont.close()
		return 0, nil, nil
	}
	chunkLen := left
	if chunkLen > BytesInAFilePacket {
		chunkLen = BytesInAFilePacket
	}
	data, err := e.files.ReadFile(e.xfer.fileID, e.xfer.offset, uint32(chunkLen))
	if err != nil {
		e.xfer = fileTransferState{}
		e.wd.end()
		e.cont.close()
		return 0, nil, NewError(ReadFailed, "file %d: %v", e.xfer.fileID, err)
	}
	resp := &wire.FileTransferData{
		TransferID:    e.xfer.transferID,
		MessageNumber: e.xfer.msgNumber,
		Offset:        e.xfer.offset,
		Data:          data,
	}
	if e.xfer.useChecksum {
		resp.Checksum = uint32(internetChecksum(data))
	}
	e.xfer.offset += uint32(len(data))
	e.xfer.msgNumber++
	e.bytesTransferred.Inc(int64(len(data)))

	left = int(e.xfer.length) - int(e.xfer.offset)
	if left <= 0 {
		e.xfer.state = xferComplete
		e.cont.close()
	} else {
		e.cont.rawRemaining = (left + BytesInAFilePacket - 1) / BytesInAFilePacket
	}
	return wire.MsgTransferData, resp, nil
}

// handleTransferDataNotification is the host's ack/retry/abort channel
// back to the device: it strokes the watchdog, moves the read offset to
// a retry_offset, aborts on a non-zero result, or closes out a transfer
// (spec §5 "watchdog-timed"). It does not resume or hold back read-
// direction chunk emission.
func (e *Engine) handleTransferDataNotification(req any) (wire.MessageType, any, error) {
	if e.xfer.state != xferData && e.xfer.state != xferComplete {
		return 0, nil, NewError(InvalidState, "no active file transfer")
	}
	r := req.(*wire.FileTransferDataNotification)
	if r.TransferID != e.xfer.transferID {
		return 0, nil, NewError(InvalidID, "transfer id mismatch")
	}
	e.wd.stroke(e.now)

	if r.Result != uint32(NoError) {
		e.abortTransfer()
		return 0, nil, nil
	}
	if r.IsComplete {
		if err := e.files.TransferComplete(e.xfer.fileID); err != nil {
			e.log.Warnf("transfer complete callback for file %d: %v", e.xfer.fileID, err)
		}
		e.xfer = fileTransferState{}
		e.cont.close()
		e.wd.end()
		return 0, nil, nil
	}
	if r.RetryOffset != e.xfer.offset {
		e.xfer.offset = r.RetryOffset
		if e.cont.kind == wire.MsgTransferData {
			left := int(e.xfer.length) - int(e.xfer.offset)
			if left < 0 {
				left = 0
			}
			e.cont.rawRemaining = (left + BytesInAFilePacket - 1) / BytesInAFilePacket
		}
	}
	return 0, nil, nil
}

func (e *Engine) abortTransfer() {
	e.xfer = fileTransferState{}
	e.cont.close()
	e.wd.end()
}

// --- Erase ---------------------------------------------------------------

func (e *Engine) handleEraseFile(req any) (wire.MessageType, any, error) {
	if e.files == nil {
		return 0, nil, NewError(NoService, "file service not available")
	}
	r := req.(*wire.FileEraseRequest)
	if err := e.checkGate(ServiceFiles, r.FileID); err != nil {
		return 0, nil, err
	}
	if err := e.files.EraseFile(r.FileID); err != nil {
		return wire.MsgEraseFile, &wire.FileEraseResponse{Result: uint32(WriteFailed)}, nil
	}
	return wire.MsgEraseFile, &wire.FileEraseResponse{Result: uint32(NoError)}, nil
}
