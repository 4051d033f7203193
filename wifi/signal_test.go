package wifi

import "testing"

func TestCalculateSignalLevel(t *testing.T) {
	tests := []struct {
		rssi      int
		numLevels int
		want      int
	}{
		{-70, 3, 1},
		{-70, 5, 2},
		{-100, 5, 0},
		{-120, 5, 0},
		{-55, 5, 4},
		{-30, 5, 4},
		{-56, 5, 3},
		{-60, 1, 0},
		{-60, 0, 0},
	}

	for _, tt := range tests {
		got := CalculateSignalLevel(tt.rssi, tt.numLevels)
		if got != tt.want {
			t.Errorf("CalculateSignalLevel(%d, %d) = %d, want %d", tt.rssi, tt.numLevels, got, tt.want)
		}
	}
}

func TestStrengthConversion(t *testing.T) {
	if got := StrengthToRSSI(60); got != -70 {
		t.Errorf("StrengthToRSSI(60) = %d, want -70", got)
	}
	if got := StrengthToRSSI(200); got != -50 {
		t.Errorf("StrengthToRSSI(200) = %d, want -50", got)
	}
	if got := RSSIToStrength(-70); got != 60 {
		t.Errorf("RSSIToStrength(-70) = %d, want 60", got)
	}
	if got := RSSIToStrength(-40); got != 100 {
		t.Errorf("RSSIToStrength(-40) = %d, want 100", got)
	}
	if got := RSSIToStrength(0); got != 0 {
		t.Errorf("RSSIToStrength(0) = %d, want 0", got)
	}
}
