package session

import (
	"sync"
	"testing"
)

func TestNewState_Defaults(t *testing.T) {
	snap := NewState().Snapshot()
	want := Snapshot{Energy: 0.5, Darkness: 0.5, Hats: 0.5, BPM: 128, KickOn: 1, Profile: "peak"}
	if snap != want {
		t.Fatalf("snapshot = %+v, want %+v", snap, want)
	}
}

func TestState_Param(t *testing.T) {
	s := NewState()

	for _, key := range []string{"energy", "darkness", "hats"} {
		v, ok := s.Param(key)
		if !ok || v != 0.5 {
			t.Errorf("Param(%q) = %v, %v", key, v, ok)
		}
	}
	if _, ok := s.Param("bpm"); ok {
		t.Error("bpm should not be a continuous parameter")
	}

	s.SetParam("energy", 0.9)
	if v, _ := s.Param("energy"); v != 0.9 {
		t.Errorf("energy = %v after SetParam", v)
	}

	// unknown keys are dropped silently
	s.SetParam("volume", 0.3)
	if s.Snapshot() != (Snapshot{Energy: 0.9, Darkness: 0.5, Hats: 0.5, BPM: 128, KickOn: 1, Profile: "peak"}) {
		t.Errorf("snapshot changed by unknown key: %+v", s.Snapshot())
	}
}

func TestState_Accessors(t *testing.T) {
	s := NewState()

	s.SetBPM(140)
	s.SetKickOn(0)
	s.SetProfileName("warmup")

	if s.BPM() != 140 || s.KickOn() != 0 || s.ProfileName() != "warmup" {
		t.Fatalf("state = bpm %d, kick %d, profile %q", s.BPM(), s.KickOn(), s.ProfileName())
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetParam("energy", float64(j)/100)
				s.SetBPM(120 + j%20)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Snapshot()
				s.Param("energy")
			}
		}()
	}
	wg.Wait()
}
