package spisim

import "log/slog"

// SlaveInputs are the line-level inputs a Slave samples on a driving tick.
// ExtClock and ExtSelect are the externally driven serial clock and select
// lines; the slave never generates either.
type SlaveInputs struct {
	ClockEnable bool
	Reset       bool
	// TxReady reloads the transmit buffer from TxByte. Only honored while
	// deselected; asserting it mid-transfer is silently ignored.
	TxReady bool
	TxByte  byte
	DataIn  bool
	// ExtClock is sampled for edges every driving tick. Without SyncInputs
	// the driving tick rate must be at least 4x this clock's rate.
	ExtClock bool
	// ExtSelect is active low.
	ExtSelect bool
}

// SlaveOutputs is the committed line-level state of a Slave after a tick.
type SlaveOutputs struct {
	DataOut bool
	// DataDrive is false whenever the slave is deselected so several slaves
	// can share the data line without contention.
	DataDrive bool
	RxByte    byte
	ByteReady bool
	Busy      bool
}

// Slave is the reactive SPI engine. It tracks an externally driven clock
// and select pair, shifting data on the mode's qualifying edges, and
// reports a completed byte when deselected. A stalled external clock
// stalls the slave indefinitely; it is reactive, not time bounded.
type Slave struct {
	cfg    Config
	logger *slog.Logger

	// One-tick synchronizer registers, used when cfg.SyncInputs.
	syncClock  bool
	syncSelect bool
	syncData   bool

	prevClock bool
	selected  bool
	sh        shiftRegister
	pendTx    byte
	out       SlaveOutputs
}

// NewSlave validates cfg and returns a Slave in its reset state.
func NewSlave(cfg Config) (*Slave, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Slave{cfg: cfg, logger: cfg.Logger}
	s.resetState()
	return s, nil
}

func (s *Slave) resetState() {
	s.syncClock = s.cfg.Mode.PolarityHigh()
	s.syncSelect = selectIdle
	s.syncData = false
	s.prevClock = s.cfg.Mode.PolarityHigh()
	s.selected = false
	s.sh = shiftRegister{order: s.cfg.Order}
	s.pendTx = 0
	s.out = SlaveOutputs{}
}

// Outputs returns the committed outputs of the last tick.
func (s *Slave) Outputs() SlaveOutputs { return s.out }

// Busy reports whether the slave is currently selected.
func (s *Slave) Busy() bool { return s.out.Busy }

// Tick advances the engine by one driving tick and commits the resulting
// outputs.
func (s *Slave) Tick(in SlaveInputs) SlaveOutputs {
	if in.Reset {
		s.resetState()
		return s.out
	}
	if !in.ClockEnable {
		return s.out
	}
	clkLine, selLine, dataLine := in.ExtClock, in.ExtSelect, in.DataIn
	if s.cfg.SyncInputs {
		clkLine, s.syncClock = s.syncClock, in.ExtClock
		selLine, s.syncSelect = s.syncSelect, in.ExtSelect
		dataLine, s.syncData = s.syncData, in.DataIn
	}
	next := s.out
	next.ByteReady = false

	if selLine != selectActive {
		if s.selected {
			// Deselection ends the session: latch whatever accumulated.
			next.RxByte = s.sh.rx
			next.ByteReady = true
			s.debug("deselect:latch", slog.Uint64("rx", uint64(s.sh.rx)))
		}
		if in.TxReady {
			s.pendTx = in.TxByte
			s.trace("tx:reload", slog.Uint64("byte", uint64(in.TxByte)))
		}
		s.sh = shiftRegister{order: s.cfg.Order, tx: s.pendTx}
		s.selected = false
		s.prevClock = clkLine
		next.Busy = false
		next.DataDrive = false
		s.out = next
		return s.out
	}

	next.Busy = true
	next.DataDrive = true
	if !s.selected {
		s.selected = true
		s.prevClock = clkLine
		if !s.cfg.Mode.PhaseSecond() {
			// Leading-edge sampling: first bit out before the first edge.
			next.DataOut = s.sh.outputBit()
		}
		s.out = next
		return s.out
	}

	if clkLine != s.prevClock {
		s.prevClock = clkLine
		rising := clkLine
		// Leading edges move away from the idle level.
		leading := rising != s.cfg.Mode.PolarityHigh()
		sampling := leading != s.cfg.Mode.PhaseSecond()
		if sampling {
			if !s.sh.done() {
				s.sh.capture(dataLine)
			}
		} else if !s.sh.done() {
			next.DataOut = s.sh.outputBit()
		}
	}
	s.out = next
	return s.out
}
