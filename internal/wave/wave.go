// Package wave records digital line transitions from a tick-driven
// simulation and exports them as Saleae Logic 2 binary capture files, the
// same format logic analyzer tooling consumes.
package wave

import (
	"errors"
	"io"

	"encoding/binary"
)

var (
	errBadPeriod    = errors.New("wave: tick period must be positive")
	errSampleCount  = errors.New("wave: sample count does not match channel count")
	errNoSuchChan   = errors.New("wave: no such channel")
	errEmptyCapture = errors.New("wave: no samples recorded")
)

var identifier = [8]byte{'<', 'S', 'A', 'L', 'E', 'A', 'E', '>'}

// digitalHeader is the fixed portion of a version 0 digital capture file,
// laid out exactly as on disk (little endian, no padding).
type digitalHeader struct {
	Version        int32
	Type           int32 // 0 digital, 1 analog
	InitialState   uint32
	BeginTime      float64
	EndTime        float64
	NumTransitions uint64
}

const typeDigital = 0

type channel struct {
	name        string
	initial     bool
	prev        bool
	transitions []float64
}

// Recorder samples a fixed set of channels once per driving tick and
// keeps only the transition times, matching how a logic analyzer stores
// digital data.
type Recorder struct {
	period   float64 // seconds per driving tick
	ticks    uint64
	channels []channel
}

// NewRecorder returns a Recorder whose driving tick lasts tickPeriod
// seconds.
func NewRecorder(tickPeriod float64, channelNames ...string) (*Recorder, error) {
	if tickPeriod <= 0 {
		return nil, errBadPeriod
	}
	r := &Recorder{period: tickPeriod, channels: make([]channel, len(channelNames))}
	for i, name := range channelNames {
		r.channels[i].name = name
	}
	return r, nil
}

// Sample records one driving tick worth of levels, one per channel in
// declaration order.
func (r *Recorder) Sample(levels ...bool) error {
	if len(levels) != len(r.channels) {
		return errSampleCount
	}
	t := float64(r.ticks) * r.period
	for i, lvl := range levels {
		c := &r.channels[i]
		if r.ticks == 0 {
			c.initial = lvl
			c.prev = lvl
			continue
		}
		if lvl != c.prev {
			c.transitions = append(c.transitions, t)
			c.prev = lvl
		}
	}
	r.ticks++
	return nil
}

// EndTime returns the capture duration in seconds.
func (r *Recorder) EndTime() float64 { return float64(r.ticks) * r.period }

// Ticks returns the number of recorded samples.
func (r *Recorder) Ticks() uint64 { return r.ticks }

// ChannelName returns the name given to channel i.
func (r *Recorder) ChannelName(i int) string { return r.channels[i].name }

// Transitions returns the recorded transition times of channel i.
func (r *Recorder) Transitions(i int) []float64 { return r.channels[i].transitions }

// WriteChannel writes channel i as a Saleae binary digital capture.
func (r *Recorder) WriteChannel(i int, w io.Writer) error {
	if i < 0 || i >= len(r.channels) {
		return errNoSuchChan
	}
	if r.ticks == 0 {
		return errEmptyCapture
	}
	c := &r.channels[i]
	if _, err := w.Write(identifier[:]); err != nil {
		return err
	}
	var initial uint32
	if c.initial {
		initial = 1
	}
	hdr := digitalHeader{
		Version:        0,
		Type:           typeDigital,
		InitialState:   initial,
		BeginTime:      0,
		EndTime:        r.EndTime(),
		NumTransitions: uint64(len(c.transitions)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, c.transitions)
}
