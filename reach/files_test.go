package reach

import (
	"fmt"
	"testing"

	"github.com/reach-iot/reach-go/reach/wire"
)

// fakeFiles is an in-memory FileStore backing a single named byte blob.
type fakeFiles struct {
	data            []byte
	prepared        bool
	completedFileID uint32
	erased          bool
	ackRate         uint32
}

func (f *fakeFiles) FileCount() int { return 1 }
func (f *fakeFiles) DiscoverReset(filter []uint32) {}
func (f *fakeFiles) DiscoverNext() (wire.FileInfo, bool) { return wire.FileInfo{}, false }
func (f *fakeFiles) Describe(fileID uint32) (wire.FileInfo, bool) {
	if fileID != 1 {
		return wire.FileInfo{}, false
	}
	return wire.FileInfo{FileID: 1, Name: "blob", CurrentSizeBytes: uint32(len(f.data))}, true
}
func (f *fakeFiles) PreferredAckRate(fileID uint32, requested uint32, isWrite bool) uint32 {
	if f.ackRate != 0 {
		return f.ackRate
	}
	return requested
}
func (f *fakeFiles) ReadFile(fileID uint32, offset, requested uint32) ([]byte, error) {
	if fileID != 1 || int(offset) > len(f.data) {
		return nil, fmt.Errorf("bad read at offset %d", offset)
	}
	end := int(offset) + int(requested)
	if end > len(f.data) {
		end = len(f.data)
	}
	return f.data[offset:end], nil
}
func (f *fakeFiles) WriteFile(fileID uint32, offset uint32, data []byte) error {
	if fileID != 1 {
		return fmt.Errorf("unknown file %d", fileID)
	}
	end := int(offset) + len(data)
	if end > len(f.data) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[offset:end], data)
	return nil
}
func (f *fakeFiles) PrepareToWrite(fileID uint32, offset, length uint32) error {
	f.prepared = true
	return nil
}
func (f *fakeFiles) EraseFile(fileID uint32) error {
	f.erased = true
	f.data = nil
	return nil
}
func (f *fakeFiles) TransferComplete(fileID uint32) error {
	f.completedFileID = fileID
	return nil
}

func newTestEngineWithFiles(files *fakeFiles) *Engine {
	e, _ := newTestEngine(nil)
	e.files = files
	return e
}

func TestFileReadTransferPagesUntilComplete(t *testing.T) {
	blob := make([]byte, BytesInAFilePacket*2+5) // forces three chunks
	for i := range blob {
		blob[i] = byte(i)
	}
	store := &fakeFiles{data: blob, ackRate: 10}
	e := newTestEngineWithFiles(store)

	_, initResp, err := e.dispatch(wire.MsgTransferInit, &wire.FileTransferInit{
		FileID: 1, TransferID: 7, Direction: uint32(wire.DirectionRead), TransferLength: uint32(len(blob)),
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if initResp.(*wire.FileTransferInitResponse).Result != uint32(NoError) {
		t.Fatalf("init result = %+v", initResp)
	}
	if e.xfer.state != xferData {
		t.Fatalf("xfer state = %v, want xferData", e.xfer.state)
	}

	var got []byte
	for i := 0; i < 5; i++ {
		mt, resp, err := e.dispatch(wire.MsgTransferData, nil)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if resp == nil {
			break
		}
		if mt != wire.MsgTransferData {
			t.Fatalf("chunk %d message type = %v", i, mt)
		}
		chunk := resp.(*wire.FileTransferData)
		got = append(got, chunk.Data...)
		if !e.cont.active() {
			break
		}
	}
	if len(got) != len(blob) {
		t.Fatalf("reassembled %d bytes, want %d", len(got), len(blob))
	}
	for i := range got {
		if got[i] != blob[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], blob[i])
		}
	}
}

func TestFileWriteTransferChecksumMismatch(t *testing.T) {
	store := &fakeFiles{}
	e := newTestEngineWithFiles(store)

	if _, _, err := e.dispatch(wire.MsgTransferInit, &wire.FileTransferInit{
		FileID: 1, TransferID: 3, Direction: uint32(wire.DirectionWrite), TransferLength: 4, UseChecksum: true,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}

	mt, resp, err := e.dispatch(wire.MsgTransferData, &wire.FileTransferData{
		TransferID: 3, Offset: 0, Data: []byte{1, 2, 3, 4}, Checksum: 0xBAD,
	})
	if err != nil {
		t.Fatalf("dispatch returned an error instead of a TRANSFER_DATA_NOTIFICATION: %v", err)
	}
	if mt != wire.MsgTransferDataNotification {
		t.Fatalf("message type = %v, want MsgTransferDataNotification", mt)
	}
	notif := resp.(*wire.FileTransferDataNotification)
	if notif.Result != uint32(ChecksumMismatch) {
		t.Fatalf("result = %d, want ChecksumMismatch", notif.Result)
	}
	if notif.RetryOffset != 0 {
		t.Fatalf("retry offset = %d, want 0", notif.RetryOffset)
	}
	if e.xfer.state != xferData {
		t.Fatalf("xfer state = %v, want xferData (transfer stays open after a checksum retry)", e.xfer.state)
	}
}

// TestFileWriteTransferMessageNumberMismatch covers spec scenario S3: a
// gap in the host's message numbering must resync via a
// TRANSFER_DATA_NOTIFICATION{result=PacketCountErr, retry_offset=...}
// rather than an ErrorReport, and the transfer must stay open.
func TestFileWriteTransferMessageNumberMismatch(t *testing.T) {
	store := &fakeFiles{ackRate: 1} // ack every packet so the retry is answered
	e := newTestEngineWithFiles(store)

	if _, _, err := e.dispatch(wire.MsgTransferInit, &wire.FileTransferInit{
		FileID: 1, TransferID: 3, Direction: uint32(wire.DirectionWrite), TransferLength: 8,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}

	mt, resp, err := e.dispatch(wire.MsgTransferData, &wire.FileTransferData{
		TransferID: 3, MessageNumber: 5, Offset: 0, Data: []byte{1, 2, 3, 4},
	})
	if err != nil {
		t.Fatalf("dispatch returned an error instead of a TRANSFER_DATA_NOTIFICATION: %v", err)
	}
	if mt != wire.MsgTransferDataNotification {
		t.Fatalf("message type = %v, want MsgTransferDataNotification", mt)
	}
	notif := resp.(*wire.FileTransferDataNotification)
	if notif.Result != uint32(PacketCountErr) {
		t.Fatalf("result = %d, want PacketCountErr", notif.Result)
	}
	if notif.RetryOffset != e.xfer.offset {
		t.Fatalf("retry offset = %d, want %d", notif.RetryOffset, e.xfer.offset)
	}
	if e.xfer.state != xferData {
		t.Fatalf("xfer state = %v, want xferData (transfer stays open after a resync)", e.xfer.state)
	}

	// The host retries with the message number the device just resynced to.
	checksum := uint32(0)
	_, resp2, err := e.dispatch(wire.MsgTransferData, &wire.FileTransferData{
		TransferID: 3, MessageNumber: 5, Offset: 0, Data: []byte{1, 2, 3, 4}, Checksum: checksum,
	})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if resp2.(*wire.FileTransferDataNotification).Result != uint32(NoError) {
		t.Fatalf("retry result = %+v, want NoError", resp2)
	}
}

func TestFileWriteTransferCompletes(t *testing.T) {
	store := &fakeFiles{ackRate: 1}
	e := newTestEngineWithFiles(store)

	if _, _, err := e.dispatch(wire.MsgTransferInit, &wire.FileTransferInit{
		FileID: 1, TransferID: 3, Direction: uint32(wire.DirectionWrite), TransferLength: 4,
	}); err != nil {
		t.Fatalf("init: %v", err)
	}

	checksum := uint32(internetChecksum([]byte{9, 9, 9, 9}))
	_, resp, err := e.dispatch(wire.MsgTransferData, &wire.FileTransferData{
		TransferID: 3, Offset: 0, Data: []byte{9, 9, 9, 9}, Checksum: checksum,
	})
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	notif := resp.(*wire.FileTransferDataNotification)
	if !notif.IsComplete {
		t.Fatalf("notification IsComplete = false, want true")
	}
	if store.completedFileID != 1 {
		t.Fatalf("TransferComplete not called for file 1")
	}
	if e.xfer.state != xferInvalid {
		t.Fatalf("xfer state = %v, want reset to xferInvalid after completion", e.xfer.state)
	}
}
