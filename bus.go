package spisim

import "errors"

// Lines is the resolved level of the shared physical lines on one tick.
// Undriven lines read low, as with a pulldown.
type Lines struct {
	SCK  bool
	CS   bool
	MOSI bool
	MISO bool
}

var (
	errBufMismatch     = errors.New("spisim: rx buffer length must be zero or match tx")
	errTransferTimeout = errors.New("spisim: transfer exceeded tick budget")
)

// Bus wires one Master and any number of Slaves through shared lines and
// advances them in lockstep. Each Tick resolves every line from the
// outputs all engines committed on the previous tick, then ticks every
// engine against that same snapshot, so no engine ever observes a mix of
// old and new state within one tick. When several slaves drive the shared
// data line at once the last enabled driver wins.
type Bus struct {
	master *Master
	slaves []*Slave

	mOut MasterOutputs
	sOut []SlaveOutputs

	txReady bool
	txByte  byte
	slaveTx []slavePending
	reset   bool
	// extSelect is the select level used when the master does not own the
	// line.
	extSelect bool

	ticks uint64
	probe func(tick uint64, l Lines)
}

type slavePending struct {
	ready bool
	b     byte
}

// NewBus wires m and slaves together. The caller retains ownership of the
// engines and may inspect them directly between ticks.
func NewBus(m *Master, slaves ...*Slave) *Bus {
	b := &Bus{
		master:    m,
		slaves:    slaves,
		mOut:      m.Outputs(),
		sOut:      make([]SlaveOutputs, len(slaves)),
		slaveTx:   make([]slavePending, len(slaves)),
		extSelect: selectIdle,
	}
	for i, s := range slaves {
		b.sOut[i] = s.Outputs()
	}
	return b
}

// Send presents a byte to the master's transmit input. It is applied as a
// one-tick ready pulse on the next Tick; callers must not call it while
// the master is busy.
func (b *Bus) Send(c byte) {
	b.txReady = true
	b.txByte = c
}

// QueueSlave presents a byte to slave i's transmit input. The slave
// latches it while deselected.
func (b *Bus) QueueSlave(i int, c byte) {
	b.slaveTx[i] = slavePending{ready: true, b: c}
}

// SetSelect drives the select line when the master does not own it.
// level follows the wire: low selects.
func (b *Bus) SetSelect(level bool) { b.extSelect = level }

// Reset asserts the reset input of every engine for the next tick.
func (b *Bus) Reset() { b.reset = true }

// SetProbe installs a function observing the resolved lines after every
// tick, e.g. a waveform recorder.
func (b *Bus) SetProbe(fn func(tick uint64, l Lines)) { b.probe = fn }

// Master returns the wired master engine.
func (b *Bus) Master() *Master { return b.master }

// SlaveOutputs returns the committed outputs of slave i.
func (b *Bus) SlaveOutputs(i int) SlaveOutputs { return b.sOut[i] }

// Ticks returns the number of ticks elapsed on the bus.
func (b *Bus) Ticks() uint64 { return b.ticks }

// resolve computes the line levels from the committed outputs.
func (b *Bus) resolve() Lines {
	l := Lines{SCK: b.mOut.ClockOut, CS: b.extSelect}
	if b.mOut.SelectDrive {
		l.CS = b.mOut.SelectOut
	}
	if b.mOut.DataDrive {
		l.MOSI = b.mOut.DataOut
	}
	for _, so := range b.sOut {
		if so.DataDrive {
			l.MISO = so.DataOut
		}
	}
	return l
}

// Tick advances every engine by one driving tick and returns the line
// levels that were presented to them.
func (b *Bus) Tick() Lines {
	l := b.resolve()
	mIn := MasterInputs{
		ClockEnable: true,
		Reset:       b.reset,
		TxReady:     b.txReady,
		TxByte:      b.txByte,
		DataIn:      l.MISO,
	}
	b.txReady = false
	b.mOut = b.master.Tick(mIn)
	for i, s := range b.slaves {
		sIn := SlaveInputs{
			ClockEnable: true,
			Reset:       b.reset,
			DataIn:      l.MOSI,
			ExtClock:    l.SCK,
			ExtSelect:   l.CS,
		}
		if b.slaveTx[i].ready {
			sIn.TxReady, sIn.TxByte = true, b.slaveTx[i].b
			b.slaveTx[i] = slavePending{}
		}
		b.sOut[i] = s.Tick(sIn)
	}
	b.reset = false
	b.ticks++
	if b.probe != nil {
		b.probe(b.ticks, l)
	}
	return l
}

// Transfer clocks len(w) bytes through the bus from the master side and
// stores the bytes the master received into r. r may be empty to discard
// received data, otherwise it must match w in length.
func (b *Bus) Transfer(w, r []byte) error {
	if len(r) != 0 && len(r) != len(w) {
		return errBufMismatch
	}
	for i, c := range w {
		b.Send(c)
		rx, err := b.runTransfer()
		if err != nil {
			return err
		}
		if len(r) != 0 {
			r[i] = rx
		}
	}
	return nil
}

// runTransfer ticks until the master's ready pulse, bounded so a logic
// fault cannot spin forever.
func (b *Bus) runTransfer() (byte, error) {
	cfg := &b.master.cfg
	budget := int((cfg.Divisor+1)*16 + cfg.SettleTicks + 8)
	for i := 0; i < budget; i++ {
		b.Tick()
		if b.mOut.ByteReady {
			return b.mOut.RxByte, nil
		}
	}
	return 0, errTransferTimeout
}
