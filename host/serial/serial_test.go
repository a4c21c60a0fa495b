package serial

import (
	"bytes"
	"io"
	"testing"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	payload := []byte{0xA5, 0x01, 0x04, 0xDE, 0xAD, 0xBE, 0xEF}
	go func() {
		a.Write(payload)
	}()

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(b, got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("read %x, wrote %x", got, payload)
	}
}

func TestPipeCloseUnblocksPeer(t *testing.T) {
	a, b := NewPipe()
	defer b.Close()

	a.Close()

	buf := make([]byte, 1)
	if _, err := b.Read(buf); err != io.EOF {
		t.Errorf("read after peer close = %v, expected io.EOF", err)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Open(nil) did not fail")
	}
	if _, err := Open(&Config{Baud: 115200}); err == nil {
		t.Error("Open without a device did not fail")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	if cfg.Device != "/dev/ttyACM0" {
		t.Errorf("device = %q", cfg.Device)
	}
	if cfg.Baud != 115200 {
		t.Errorf("baud = %d, expected 115200", cfg.Baud)
	}
	if cfg.ReadTimeout == 0 {
		t.Error("default read timeout should not block forever")
	}
}
