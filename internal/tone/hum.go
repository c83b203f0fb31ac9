package tone

import (
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// DefaultHumFrequency is used when the local grid cannot be determined.
const DefaultHumFrequency = 50

// LocalHumFrequency guesses the mains frequency of the machine's location
// from its timezone, so generated hum sounds like a local recording.
func LocalHumFrequency() int {
	zone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return DefaultHumFrequency
	}
	return HumFrequencyForZone(zone)
}

// HumFrequencyForZone returns the mains frequency, 50 or 60 Hz, of the
// country an IANA zone belongs to.
func HumFrequencyForZone(zone string) int {
	if zone == "UTC" || zone == "GMT" || strings.HasPrefix(zone, "Etc/") {
		return DefaultHumFrequency
	}

	countries, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return DefaultHumFrequency
	}
	country, err := countries.GetCountry(zone)
	if err != nil {
		return DefaultHumFrequency
	}

	if sixtyHertz[country] {
		return 60
	}
	// Japan is split and the Tokyo side runs at 50 Hz
	return DefaultHumFrequency
}

// sixtyHertz lists the countries whose grid runs at 60 Hz
var sixtyHertz = map[string]bool{
	"United States": true, "Canada": true, "Mexico": true,
	"Belize": true, "Costa Rica": true, "El Salvador": true, "Guatemala": true,
	"Honduras": true, "Nicaragua": true, "Panama": true,
	"Bahamas": true, "Barbados": true, "Cayman Islands": true, "Cuba": true,
	"Dominican Republic": true, "Haiti": true, "Jamaica": true, "Puerto Rico": true,
	"Trinidad and Tobago": true, "U.S. Virgin Islands": true,
	"Brazil": true, "Colombia": true, "Ecuador": true, "Guyana": true,
	"Peru": true, "Suriname": true, "Venezuela": true,
	"South Korea": true, "Taiwan": true, "Philippines": true, "Saudi Arabia": true,
	"Guam": true, "American Samoa": true, "Marshall Islands": true,
	"Micronesia": true, "Palau": true,
}
