package spisim

// clockDivider derives the serial clock from the driving tick. One half
// period of the derived clock lasts div+1 driving ticks, so div=0 toggles
// the level on every tick. The owning state machine holds the divider in
// reset outside the communication phase.
type clockDivider struct {
	div   uint32
	count uint32
	// level is the internal toggling clock. It always idles low; polarity
	// inversion for the exposed line happens at the output stage.
	level bool
	// edge strobes true for exactly the one tick on which level toggled.
	edge bool
}

func (cd *clockDivider) reset() {
	cd.count = 0
	cd.level = false
	cd.edge = false
}

// tick advances the divider by one driving tick and reports whether the
// derived clock toggled on this tick.
func (cd *clockDivider) tick() bool {
	if cd.count >= cd.div {
		cd.count = 0
		cd.level = !cd.level
		cd.edge = true
	} else {
		cd.count++
		cd.edge = false
	}
	return cd.edge
}
