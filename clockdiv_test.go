package spisim

import "testing"

func TestClockDividerToggleLaw(t *testing.T) {
	for _, div := range []uint32{0, 1, 2, 3, 7, 31} {
		cd := clockDivider{div: div}
		level := false
		sinceToggle := uint32(0)
		for tick := 0; tick < int(div+1)*20; tick++ {
			edge := cd.tick()
			sinceToggle++
			if edge != (cd.level != level) {
				t.Fatalf("div=%d tick=%d: edge strobe %v disagrees with level change", div, tick, edge)
			}
			if edge {
				if sinceToggle != div+1 {
					t.Fatalf("div=%d: toggled after %d ticks; expected %d", div, sinceToggle, div+1)
				}
				sinceToggle = 0
				level = cd.level
			}
		}
	}
}

func TestClockDividerEdgeStrobeOneTick(t *testing.T) {
	cd := clockDivider{div: 2}
	edges := 0
	for tick := 0; tick < 30; tick++ {
		if cd.tick() {
			edges++
			if cd.tick() {
				t.Fatal("edge strobe lasted more than one tick")
			}
			tick++
		}
	}
	if edges == 0 {
		t.Fatal("no edges observed")
	}
}

func TestClockDividerReset(t *testing.T) {
	cd := clockDivider{div: 3}
	for i := 0; i < 5; i++ {
		cd.tick()
	}
	cd.reset()
	if cd.count != 0 || cd.level || cd.edge {
		t.Errorf("reset left state count=%d level=%v edge=%v", cd.count, cd.level, cd.edge)
	}
	// Full half period elapses again before the first edge after reset.
	for i := 0; i < 3; i++ {
		if cd.tick() {
			t.Fatalf("edge after %d ticks post-reset; expected 4", i+1)
		}
	}
	if !cd.tick() {
		t.Fatal("no edge after full half period post-reset")
	}
}
