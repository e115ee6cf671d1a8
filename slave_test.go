package spisim

import "testing"

func byteBitsMSB(b byte) []bool {
	bits := make([]bool, 8)
	for i := range bits {
		bits[i] = b&(1<<(7-i)) != 0
	}
	return bits
}

// TestSlaveMode0Exchange drives a slave by hand through a full mode-0
// byte: clock rising samples, falling drives the next output bit.
func TestSlaveMode0Exchange(t *testing.T) {
	s, err := NewSlave(Config{Mode: Mode0, Order: MSBFirst})
	if err != nil {
		t.Fatal(err)
	}
	in := SlaveInputs{ClockEnable: true, ExtSelect: selectIdle}
	if out := s.Tick(in); out.Busy || out.DataDrive {
		t.Fatal("slave busy while deselected")
	}
	in.TxReady, in.TxByte = true, 0x3C
	s.Tick(in)
	in.TxReady = false

	in.ExtSelect = selectActive
	out := s.Tick(in)
	if !out.Busy || !out.DataDrive {
		t.Fatal("slave not driving after select")
	}
	txBits := byteBitsMSB(0x3C)
	if out.DataOut != txBits[0] {
		t.Fatalf("first output bit %v; expected %v", out.DataOut, txBits[0])
	}
	rxBits := byteBitsMSB(0xC3)
	for i := 0; i < 8; i++ {
		in.DataIn = rxBits[i]
		in.ExtClock = true
		out = s.Tick(in)
		if out.DataOut != txBits[i] {
			t.Errorf("bit %d: output %v at sampling edge; expected %v", i, out.DataOut, txBits[i])
		}
		in.ExtClock = false
		out = s.Tick(in)
	}
	// Extra clock pulses past bit 8 must not disturb the accumulated byte.
	for i := 0; i < 3; i++ {
		in.ExtClock = true
		s.Tick(in)
		in.ExtClock = false
		s.Tick(in)
	}
	in.ExtSelect = selectIdle
	out = s.Tick(in)
	if !out.ByteReady {
		t.Fatal("no ready pulse on deselect")
	}
	if out.RxByte != 0xC3 {
		t.Errorf("received %#02x; expected 0xc3", out.RxByte)
	}
	if out.Busy || out.DataDrive {
		t.Error("slave still busy or driving after deselect")
	}
	if out = s.Tick(in); out.ByteReady {
		t.Error("ready pulse lasted more than one tick")
	}
}

// TestSlaveMode3Exchange covers the inverted-polarity trailing-sample
// timing: falling edges drive, rising edges sample.
func TestSlaveMode3Exchange(t *testing.T) {
	s, err := NewSlave(Config{Mode: Mode3, Order: MSBFirst})
	if err != nil {
		t.Fatal(err)
	}
	in := SlaveInputs{ClockEnable: true, ExtSelect: selectIdle, ExtClock: true}
	in.TxReady, in.TxByte = true, 0x96
	s.Tick(in)
	in.TxReady = false

	in.ExtSelect = selectActive
	out := s.Tick(in)
	if !out.Busy {
		t.Fatal("slave not busy after select")
	}
	txBits := byteBitsMSB(0x96)
	rxBits := byteBitsMSB(0x69)
	for i := 0; i < 8; i++ {
		in.ExtClock = false
		out = s.Tick(in)
		if out.DataOut != txBits[i] {
			t.Errorf("bit %d: drove %v on leading edge; expected %v", i, out.DataOut, txBits[i])
		}
		in.DataIn = rxBits[i]
		in.ExtClock = true
		out = s.Tick(in)
	}
	in.ExtSelect = selectIdle
	out = s.Tick(in)
	if !out.ByteReady || out.RxByte != 0x69 {
		t.Fatalf("ready=%v rx=%#02x; expected pulse with 0x69", out.ByteReady, out.RxByte)
	}
}

func TestSlaveSyncInputsDelay(t *testing.T) {
	s, _ := NewSlave(Config{Mode: Mode0, SyncInputs: true})
	in := SlaveInputs{ClockEnable: true, ExtSelect: selectActive}
	if out := s.Tick(in); out.Busy {
		t.Fatal("synchronized select visible after one tick")
	}
	if out := s.Tick(in); !out.Busy {
		t.Fatal("synchronized select never propagated")
	}
}

func TestSlaveResetDropsSession(t *testing.T) {
	s, _ := NewSlave(Config{Mode: Mode0})
	in := SlaveInputs{ClockEnable: true, ExtSelect: selectActive}
	s.Tick(in)
	in.ExtClock = true
	s.Tick(in)
	in.Reset = true
	out := s.Tick(in)
	if out.Busy || out.DataDrive {
		t.Fatal("reset did not release the slave")
	}
	in.Reset = false
	in.ExtSelect = selectIdle
	in.ExtClock = false
	if out = s.Tick(in); out.ByteReady {
		t.Error("ready pulse for a reset-aborted session")
	}
}

func TestSlaveTxReloadOnlyWhileDeselected(t *testing.T) {
	s, _ := NewSlave(Config{Mode: Mode0})
	in := SlaveInputs{ClockEnable: true, ExtSelect: selectIdle}
	in.TxReady, in.TxByte = true, 0xFF
	s.Tick(in)
	in.TxReady = false
	in.ExtSelect = selectActive
	out := s.Tick(in)
	if !out.DataOut {
		t.Fatal("first bit of 0xff not high")
	}
	// Mid-session reload attempt must be ignored.
	in.TxReady, in.TxByte = true, 0x00
	s.Tick(in)
	in.TxReady = false
	in.ExtSelect = selectIdle
	s.Tick(in)
	in.ExtSelect = selectActive
	if out = s.Tick(in); !out.DataOut {
		t.Error("transmit buffer was overwritten while selected")
	}
}
