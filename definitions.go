package spisim

import (
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/exp/constraints"
)

// Mode selects the serial clock polarity (CPOL, idle level of the clock
// line) and phase (CPHA, which edge of a bit period samples data). The
// numbering follows the usual SPI convention:
//
//	Mode0: CPOL=0 CPHA=0   idle low,  sample on leading edge
//	Mode1: CPOL=0 CPHA=1   idle low,  sample on trailing edge
//	Mode2: CPOL=1 CPHA=0   idle high, sample on leading edge
//	Mode3: CPOL=1 CPHA=1   idle high, sample on trailing edge
//
// The leading edge is the transition away from the idle level.
type Mode uint8

const (
	Mode0 Mode = iota
	Mode1
	Mode2
	Mode3
)

// PolarityHigh reports whether the exposed clock line idles high (CPOL=1).
// The internal toggling clock always idles low; the exposed line is its
// inversion when PolarityHigh.
func (m Mode) PolarityHigh() bool { return m&0b10 != 0 }

// PhaseSecond reports whether data is sampled on the trailing edge of each
// bit period (CPHA=1) rather than on the leading edge.
func (m Mode) PhaseSecond() bool { return m&0b01 != 0 }

func (m Mode) IsValid() bool { return m <= Mode3 }

func (m Mode) String() string {
	if !m.IsValid() {
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
	return "Mode" + strconv.Itoa(int(m))
}

// BitOrder selects which end of a byte goes on the wire first.
type BitOrder uint8

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

func (o BitOrder) String() string {
	switch o {
	case MSBFirst:
		return "MSBFirst"
	case LSBFirst:
		return "LSBFirst"
	}
	return "BitOrder(" + strconv.Itoa(int(o)) + ")"
}

// The select line is active low on the wire.
const (
	selectIdle   = true
	selectActive = false
)

var (
	errInvalidMode  = errors.New("spisim: mode outside 0..3")
	errInvalidOrder = errors.New("spisim: invalid bit order")
)

// Config fixes the behavior of a Master or Slave for its whole lifetime.
// There is no in-flight reconfiguration; construct a new instance instead.
type Config struct {
	// Divisor sets the derived clock rate: one half period of the serial
	// clock lasts Divisor+1 driving ticks, so the serial clock frequency is
	// the driving frequency divided by 2*(Divisor+1). Zero gives the fastest
	// derivable clock, toggling on every tick. Master only.
	Divisor uint32
	Mode    Mode
	Order   BitOrder
	// OwnSelect makes the master drive the select line itself. When false
	// the select output is left released and the line must be driven
	// externally. Master only.
	OwnSelect bool
	// SettleTicks is the number of driving ticks the master holds its
	// post-transfer state before deselecting completes and the ready pulse
	// fires. Zero selects the default of Divisor/2.
	SettleTicks uint32
	// SyncInputs passes the slave's externally driven clock, select and data
	// lines through a one-tick synchronizing register. Without it the
	// driving tick rate must be at least 4x the external serial clock.
	// Slave only.
	SyncInputs bool
	// Logger receives trace/debug records of state transitions. May be nil.
	Logger *slog.Logger
}

func (cfg *Config) validate() error {
	if !cfg.Mode.IsValid() {
		return errInvalidMode
	}
	if cfg.Order != MSBFirst && cfg.Order != LSBFirst {
		return errInvalidOrder
	}
	return nil
}

// settleTicks resolves the configured settle duration, defaulting to half
// the divisor.
func (cfg *Config) settleTicks() uint32 {
	if cfg.SettleTicks != 0 {
		return cfg.SettleTicks
	}
	return cfg.Divisor / 2
}

func b2u[T constraints.Unsigned](b bool) T {
	if b {
		return 1
	}
	return 0
}
