package acproto

import (
	"sort"
	"strings"
)

// supported lists the protocol names a Sender is expected to encode.
var supported = map[string]struct{}{
	"AIRTON": {}, "AIRWELL": {}, "AMCOR": {}, "ARGO": {}, "BOSCH144": {},
	"CARRIER_AC64": {}, "COOLIX": {}, "CORONA_AC": {}, "DAIKIN": {},
	"DAIKIN128": {}, "DAIKIN152": {}, "DAIKIN160": {}, "DAIKIN176": {},
	"DAIKIN2": {}, "DAIKIN200": {}, "DAIKIN216": {}, "DAIKIN64": {},
	"DELONGHI_AC": {}, "ECOCLIM": {}, "ELECTRA_AC": {}, "FUJITSU_AC": {},
	"GOODWEATHER": {}, "GREE": {}, "HAIER_AC": {}, "HAIER_AC176": {},
	"HAIER_AC_YRW02": {}, "HITACHI_AC": {}, "HITACHI_AC1": {},
	"HITACHI_AC264": {}, "HITACHI_AC296": {}, "HITACHI_AC344": {},
	"HITACHI_AC424": {}, "KELON": {}, "KELVINATOR": {}, "LG": {}, "LG2": {},
	"MIDEA": {}, "MIRAGE": {}, "MITSUBISHI136": {}, "MITSUBISHI112": {},
	"MITSUBISHI_AC": {}, "MITSUBISHI_HEAVY_88": {}, "MITSUBISHI_HEAVY_152": {},
	"NEOCLIMA": {}, "PANASONIC_AC": {}, "PANASONIC_AC32": {}, "RHOSS": {},
	"SAMSUNG_AC": {}, "SANYO_AC": {}, "SANYO_AC88": {}, "SHARP_AC": {},
	"TCL112AC": {}, "TECHNIBEL_AC": {}, "TECO": {}, "TEKNOPOINT": {},
	"TOSHIBA_AC": {}, "TRANSCOLD": {}, "TROTEC": {}, "TROTEC_3550": {},
	"TRUMA": {}, "VESTEL_AC": {}, "VOLTAS": {}, "WHIRLPOOL_AC": {},
	"YORK": {},
}

// IsSupported reports whether name is a known named protocol. Case is ignored.
func IsSupported(name string) bool {
	_, ok := supported[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// Canonical returns the catalogue spelling of name.
func Canonical(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Protocols returns the sorted catalogue.
func Protocols() []string {
	out := make([]string, 0, len(supported))
	for name := range supported {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
