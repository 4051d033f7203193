package wifi

const (
	minRSSI = -100
	maxRSSI = -55
)

// CalculateSignalLevel buckets a raw RSSI into numLevels levels, from 0 to
// numLevels-1. Backends without a native calculation use this.
func CalculateSignalLevel(rssi int, numLevels int) int {
	if numLevels <= 1 {
		return 0
	}
	switch {
	case rssi <= minRSSI:
		return 0
	case rssi >= maxRSSI:
		return numLevels - 1
	}
	inputRange := float64(maxRSSI - minRSSI)
	outputRange := float64(numLevels - 1)
	return int(float64(rssi-minRSSI) * outputRange / inputRange)
}

// StrengthToRSSI converts a 0-100 signal quality percentage to dBm.
func StrengthToRSSI(strength uint8) int {
	if strength > 100 {
		strength = 100
	}
	return int(strength)/2 - 100
}

// RSSIToStrength converts dBm to a 0-100 signal quality percentage.
func RSSIToStrength(rssi int) uint8 {
	switch {
	case rssi == 0:
		return 0
	case rssi <= minRSSI:
		return 0
	case rssi >= -50:
		return 100
	}
	return uint8(2 * (rssi + 100))
}
