package spisim

// shiftRegister holds the byte pair in flight during a transfer. The
// transmit buffer is never mutated while shifting; outputBit indexes into
// it as a pure function of the bit counter so a stalled clock re-reads the
// same bit. The receive buffer accumulates sampled bits such that the
// reconstructed byte has the transmitter's original bit order no matter
// which end went on the wire first.
type shiftRegister struct {
	order BitOrder
	tx    uint8
	rx    uint8
	idx   uint8 // completed bits, 0..8
}

func (sr *shiftRegister) load(b byte) {
	sr.tx = b
	sr.rx = 0
	sr.idx = 0
}

// outputBit returns the transmit bit for the current bit period. Only
// meaningful while !done().
func (sr *shiftRegister) outputBit() bool {
	if sr.order == LSBFirst {
		return sr.tx&(1<<(sr.idx&7)) != 0
	}
	return sr.tx&(1<<(7-sr.idx&7)) != 0
}

// capture shifts a sampled line level into the receive buffer and advances
// the bit counter. MSB-first inserts at the low end pushing prior bits up;
// LSB-first inserts at the high end pushing prior bits down.
func (sr *shiftRegister) capture(sampled bool) {
	if sr.order == LSBFirst {
		sr.rx = sr.rx>>1 | b2u[uint8](sampled)<<7
	} else {
		sr.rx = sr.rx<<1 | b2u[uint8](sampled)
	}
	sr.idx++
}

func (sr *shiftRegister) done() bool { return sr.idx >= 8 }
