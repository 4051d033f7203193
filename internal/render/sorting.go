package render

import (
	"sort"

	"github.com/shazow/wifiwizard/internal/wizard"
)

// sortScan returns a copy of records ordered for display:
// 1. Strongest level first.
// 2. Named networks before hidden ones.
// 3. By SSID, then BSSID.
func sortScan(records []wizard.ScanRecord) []wizard.ScanRecord {
	sorted := make([]wizard.ScanRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if (a.SSID == "") != (b.SSID == "") {
			return a.SSID != ""
		}
		if a.SSID != b.SSID {
			return a.SSID < b.SSID
		}
		return a.BSSID < b.BSSID
	})
	return sorted
}
