package spisim

import "log/slog"

type masterState uint8

const (
	stateIdle masterState = iota
	statePreComm
	stateComm
	statePostComm
)

func (s masterState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePreComm:
		return "precomm"
	case stateComm:
		return "comm"
	case statePostComm:
		return "postcomm"
	}
	return "unknown"
}

// MasterInputs are the line-level inputs a Master samples on a driving
// tick.
type MasterInputs struct {
	// ClockEnable gates the whole engine; while low the instance freezes in
	// place. It is the cooperation hook for multi-master buses, not a reset.
	ClockEnable bool
	// Reset asserted forces the engine to its idle values at this tick
	// boundary regardless of transfer progress. No ready pulse is emitted
	// for an aborted transfer.
	Reset bool
	// TxReady latches TxByte and starts a transfer. Only honored while
	// Busy is false; callers must check Busy first.
	TxReady bool
	TxByte  byte
	// DataIn is the serial input line (the slave's data-out).
	DataIn bool
}

// MasterOutputs is the committed line-level state of a Master after a
// tick. Drive flags replace tri-state semantics: a false drive flag means
// the corresponding line is released and its value is meaningless.
type MasterOutputs struct {
	DataOut   bool
	DataDrive bool
	ClockOut  bool
	// SelectOut is active low. SelectDrive is false when the core does not
	// own the select line.
	SelectOut   bool
	SelectDrive bool
	// RxByte holds the received byte of the last completed transfer. Valid
	// from the tick ByteReady pulses.
	RxByte byte
	// ByteReady pulses for exactly one tick per completed transfer.
	ByteReady bool
	// Busy is asserted for every tick the engine is not idle. The transmit
	// buffer may only be loaded while Busy is false.
	Busy bool
}

// Master is the bus-initiating SPI engine. It generates the serial clock
// from the driving tick via the configured divisor, sequences the select
// line and shifts one byte per transfer session.
//
// All state advances through Tick: outputs returned by one call are
// computed entirely from state committed by the previous call plus the
// passed inputs, reproducing synchronous register semantics.
type Master struct {
	cfg    Config
	logger *slog.Logger

	state  masterState
	clk    clockDivider
	sh     shiftRegister
	settle uint32
	out    MasterOutputs
}

// NewMaster validates cfg and returns a Master in its reset state.
func NewMaster(cfg Config) (*Master, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.SettleTicks = cfg.settleTicks()
	m := &Master{cfg: cfg, logger: cfg.Logger}
	m.resetState()
	return m, nil
}

func (m *Master) resetState() {
	m.state = stateIdle
	m.clk = clockDivider{div: m.cfg.Divisor}
	m.sh = shiftRegister{order: m.cfg.Order}
	m.settle = 0
	m.out = MasterOutputs{
		ClockOut:    m.cfg.Mode.PolarityHigh(),
		SelectOut:   selectIdle,
		SelectDrive: m.cfg.OwnSelect,
	}
}

// Outputs returns the committed outputs of the last tick.
func (m *Master) Outputs() MasterOutputs { return m.out }

// Busy reports whether a transfer session is in progress.
func (m *Master) Busy() bool { return m.out.Busy }

// Tick advances the engine by one driving tick and commits the resulting
// outputs.
func (m *Master) Tick(in MasterInputs) MasterOutputs {
	if in.Reset {
		m.resetState()
		return m.out
	}
	if !in.ClockEnable {
		return m.out
	}
	next := m.out
	next.ByteReady = false

	switch m.state {
	case stateIdle:
		if in.TxReady {
			m.sh.load(in.TxByte)
			m.state = statePreComm
			m.trace("tx:accept", slog.Uint64("byte", uint64(in.TxByte)), slog.String("state", m.state.String()))
		}
	case statePreComm:
		next.SelectOut = selectActive
		next.DataDrive = true
		if !m.cfg.Mode.PhaseSecond() {
			// Leading-edge sampling: the first bit must be on the line
			// before the first edge.
			next.DataOut = m.sh.outputBit()
		}
		m.clk.reset()
		m.state = stateComm
	case stateComm:
		if m.clk.tick() {
			if m.cfg.Mode.PhaseSecond() {
				if m.clk.level {
					// Leading edge drives, trailing edge samples.
					next.DataOut = m.sh.outputBit()
				} else {
					m.sh.capture(in.DataIn)
				}
			} else if m.clk.level {
				// Leading edge samples.
				m.sh.capture(in.DataIn)
			} else if !m.sh.done() {
				// Trailing edge drives the next bit so the line holds its
				// value through the sampling edge as seen by the far end.
				next.DataOut = m.sh.outputBit()
			}
			if m.sh.done() && !m.clk.level {
				// Final trailing edge returned the clock to idle.
				m.state = statePostComm
				m.settle = 0
				m.trace("comm:done", slog.Uint64("rx", uint64(m.sh.rx)), slog.String("state", m.state.String()))
			}
		}
		next.ClockOut = m.clk.level != m.cfg.Mode.PolarityHigh()
	case statePostComm:
		next.SelectOut = selectIdle
		next.DataDrive = false
		next.ClockOut = m.cfg.Mode.PolarityHigh()
		m.clk.reset()
		if m.settle >= m.cfg.SettleTicks {
			m.state = stateIdle
			next.RxByte = m.sh.rx
			next.ByteReady = true
			m.debug("transfer:done", slog.Uint64("rx", uint64(m.sh.rx)))
		} else {
			m.settle++
		}
	}
	next.Busy = m.state != stateIdle
	m.out = next
	return m.out
}
