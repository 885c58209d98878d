package card

import (
	"context"
	"testing"

	"github.com/Jsfain/go-sdspi/protocol"
)

func TestInitVersionAndTypeBranching(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*mockCard)
		wantVersion protocol.CardVersion
		wantType    protocol.CardType
	}{
		{
			name:        "version 2 high capacity",
			setup:       func(m *mockCard) {},
			wantVersion: protocol.Version2,
			wantType:    protocol.TypeSDHC,
		},
		{
			name:        "version 2 standard capacity",
			setup:       func(m *mockCard) { m.highCapacity = false; m.csd = testCSDv1(9, 4095, 7) },
			wantVersion: protocol.Version2,
			wantType:    protocol.TypeSDSC,
		},
		{
			name: "version 1 rejects CMD8",
			setup: func(m *mockCard) {
				m.version1 = true
				m.highCapacity = false
				m.csd = testCSDv1(9, 4095, 7)
			},
			wantVersion: protocol.Version1,
			wantType:    protocol.TypeSDSC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockCard()
			tt.setup(m)
			c := New(m)

			info, err := c.Init(context.Background())
			if err != nil {
				t.Fatalf("Init() error: %v", err)
			}
			if info.Version != tt.wantVersion {
				t.Errorf("Version = %v, want %v", info.Version, tt.wantVersion)
			}
			if info.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", info.Type, tt.wantType)
			}
			if got := c.Info(); got == nil || *got != *info {
				t.Errorf("Info() = %v, want %v", got, info)
			}
			if m.selected {
				t.Error("chip select still asserted after Init")
			}
		})
	}
}

func TestInitFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*mockCard)
		category protocol.Category
	}{
		{
			name:     "CMD0 does not reach idle",
			setup:    func(m *mockCard) { m.cmd0Response = 0x00 },
			category: protocol.CatGoIdleState,
		},
		{
			name:     "CMD8 check pattern mangled",
			setup:    func(m *mockCard) { m.cmd8Pattern = 0x55 },
			category: protocol.CatUnsupportedCard,
		},
		{
			name:     "CMD8 hard error",
			setup:    func(m *mockCard) { m.failR1[protocol.CmdSendIfCond] = 0x41 },
			category: protocol.CatSendIfCond,
		},
		{
			name:     "CRC_ON_OFF rejected",
			setup:    func(m *mockCard) { m.failR1[protocol.CmdCRCOnOff] = 0x05 },
			category: protocol.CatCRCOnOff,
		},
		{
			name:     "APP_CMD rejected",
			setup:    func(m *mockCard) { m.failR1[protocol.CmdAppCmd] = 0x05 },
			category: protocol.CatAppCmd,
		},
		{
			name:     "ACMD41 reports error",
			setup:    func(m *mockCard) { m.failR1[protocol.ACmdSDSendOpCond] = 0x05 },
			category: protocol.CatSendOpCond,
		},
		{
			name:     "READ_OCR rejected",
			setup:    func(m *mockCard) { m.failR1[protocol.CmdReadOCR] = 0x04 },
			category: protocol.CatReadOCR,
		},
		{
			name: "power up not complete",
			setup: func(m *mockCard) {
				m.ocrOverride = protocol.OCRVoltageFullRange
			},
			category: protocol.CatPowerUpNotComplete,
		},
		{
			name: "UHS-II card rejected",
			setup: func(m *mockCard) {
				m.ocrOverride = protocol.OCRPowerUpStatus | protocol.OCRUHSIIStatus |
					protocol.OCRVoltageFullRange
			},
			category: protocol.CatUnsupportedCard,
		},
		{
			name: "partial voltage window rejected",
			setup: func(m *mockCard) {
				m.ocrOverride = protocol.OCRPowerUpStatus | 0xFF<<16
			},
			category: protocol.CatUnsupportedCard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockCard()
			tt.setup(m)
			c := New(m)

			_, err := c.Init(context.Background())
			ce := protocol.AsCardError(err)
			if ce == nil {
				t.Fatalf("Init() error = %v, want *CardError", err)
			}
			if ce.Category != tt.category {
				t.Errorf("Category = %v, want %v", ce.Category, tt.category)
			}
			if c.Info() != nil {
				t.Error("Info() non-nil after failed Init")
			}
			if m.selected {
				t.Error("chip select still asserted after failed Init")
			}
		})
	}
}

func TestInitACMD41RetryBound(t *testing.T) {
	m := newMockCard()
	m.acmd41Rounds = 1000 // never leaves idle within the limit
	c := New(m, WithACMD41RetryLimit(10))

	_, err := c.Init(context.Background())
	ce := protocol.AsCardError(err)
	if ce == nil || ce.Category != protocol.CatOutOfIdleTimeout {
		t.Fatalf("Init() error = %v, want out of idle timeout", err)
	}
	if !ce.Timeout() {
		t.Error("Timeout() = false for out of idle timeout")
	}
	if m.acmd41Seen != 10 {
		t.Errorf("ACMD41 attempts = %d, want exactly 10", m.acmd41Seen)
	}
}

func TestGetR1TimeoutBounded(t *testing.T) {
	m := newMockCard()
	m.mute = true
	c := New(m, WithResponsePollLimit(16))

	_, err := c.Init(context.Background())
	ce := protocol.AsCardError(err)
	if ce == nil {
		t.Fatalf("Init() error = %v, want *CardError", err)
	}
	if !ce.R1.TimedOut() {
		t.Errorf("R1 = %v, want synthetic timeout flag", ce.R1)
	}
	if ce.Category != protocol.CatGoIdleState {
		t.Errorf("Category = %v, want go idle state failure", ce.Category)
	}
	// The R1 poll for CMD0 must stop at exactly the configured bound.
	if m.receives != 16 {
		t.Errorf("receive attempts = %d, want 16", m.receives)
	}
}

func TestInitCancelled(t *testing.T) {
	m := newMockCard()
	m.acmd41Rounds = 1000
	c := New(m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Init(ctx); err == nil {
		t.Fatal("Init() with cancelled context succeeded")
	}
	if m.selected {
		t.Error("chip select still asserted after cancelled Init")
	}
}

func TestInitHCSBitFollowsHostSupport(t *testing.T) {
	m := newMockCard()
	c := New(m)
	if _, err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	cmd := m.lastCommand(protocol.ACmdSDSendOpCond)
	if cmd == nil {
		t.Fatal("no ACMD41 seen")
	}
	if cmd.arg&protocol.HCSBit == 0 {
		t.Errorf("ACMD41 arg = %#08x, want HCS bit set", cmd.arg)
	}

	m = newMockCard()
	m.highCapacity = false
	c = New(m, WithHighCapacitySupport(false))
	if _, err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	cmd = m.lastCommand(protocol.ACmdSDSendOpCond)
	if cmd == nil {
		t.Fatal("no ACMD41 seen")
	}
	if cmd.arg&protocol.HCSBit != 0 {
		t.Errorf("ACMD41 arg = %#08x, want HCS bit clear", cmd.arg)
	}
}
