package cync

import "testing"

func TestDevice_ApplyStateUpdate_PartialFieldsOnly(t *testing.T) {
	d := NewDevice(1, 1, 10, "Lamp", 131, "", "", "", true)

	d.applyStateUpdate(lightStateUpdate{hasOn: true, isOn: true})
	st := d.State()
	if st == nil || !st.IsOn {
		t.Fatalf("State() = %v, want IsOn=true", st)
	}
	if st.Brightness != 0 {
		t.Errorf("Brightness = %d, want untouched zero value", st.Brightness)
	}

	// A second update that only carries brightness must not clobber IsOn.
	d.applyStateUpdate(lightStateUpdate{hasBrightness: true, brightness: 50})
	st = d.State()
	if !st.IsOn {
		t.Error("IsOn reset to false by an update that didn't carry it")
	}
	if st.Brightness != 50 {
		t.Errorf("Brightness = %d, want 50", st.Brightness)
	}
}

func TestDevice_State_NilBeforeAnyUpdate(t *testing.T) {
	d := NewDevice(1, 1, 10, "Lamp", 131, "", "", "", true)
	if d.State() != nil {
		t.Error("State() != nil before any applyStateUpdate")
	}
}

func TestDevice_State_ReturnsACopy(t *testing.T) {
	d := NewDevice(1, 1, 10, "Lamp", 131, "", "", "", true)
	d.applyStateUpdate(lightStateUpdate{hasOn: true, isOn: true})

	st := d.State()
	st.IsOn = false // mutate the copy

	if got := d.State(); !got.IsOn {
		t.Error("mutating a returned State() copy affected the device's real state")
	}
}

func TestDevice_WifiConnected_DefaultsFalse(t *testing.T) {
	d := NewDevice(1, 1, 10, "Lamp", 131, "", "", "", true)
	if d.WifiConnected() {
		t.Error("WifiConnected() = true before any SetWifiConnected call")
	}
	d.SetWifiConnected(true)
	if !d.WifiConnected() {
		t.Error("WifiConnected() = false after SetWifiConnected(true)")
	}
}
