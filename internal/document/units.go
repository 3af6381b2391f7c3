package document

import "strings"

// Unit is a physical unit from the data sheet's controlled vocabulary.
type Unit string

// Canonical units. The list is closed; anything else has no unit.
const (
	UnitSecond      Unit = "second"
	UnitMillisecond Unit = "millisecond"
	UnitMicrosecond Unit = "microsecond"
	UnitMeter       Unit = "meter"
	UnitKilometer   Unit = "kilometer"
	UnitKilogram    Unit = "kilogram"
	UnitGram        Unit = "gram"
	UnitAmpere      Unit = "ampere"
	UnitMilliampere Unit = "milliampere"
	UnitKelvin      Unit = "kelvin"
	UnitCelsius     Unit = "degreeCelsius"
	UnitVolt        Unit = "volt"
	UnitMillivolt   Unit = "millivolt"
	UnitWatt        Unit = "watt"
	UnitJoule       Unit = "joule"
	UnitNewton      Unit = "newton"
	UnitPascal      Unit = "pascal"
	UnitOhm         Unit = "ohm"
	UnitHertz       Unit = "hertz"
	UnitRadian      Unit = "radian"
	UnitDegree      Unit = "degree"
	UnitRadPerSec   Unit = "radianPerSecond"
	UnitDegPerSec   Unit = "degreePerSecond"
	UnitMeterPerSec Unit = "meterPerSecond"
	UnitTesla       Unit = "tesla"
	UnitPercent     Unit = "percent"
	UnitBit         Unit = "bit"
	UnitByte        Unit = "byte"
	UnitCount       Unit = "count"
)

// unitAliases maps lower-cased spellings to canonical units.
var unitAliases = map[string]Unit{
	"s": UnitSecond, "sec": UnitSecond, "second": UnitSecond, "seconds": UnitSecond,
	"ms": UnitMillisecond, "millisecond": UnitMillisecond, "milliseconds": UnitMillisecond,
	"us": UnitMicrosecond, "µs": UnitMicrosecond, "microsecond": UnitMicrosecond,
	"m": UnitMeter, "meter": UnitMeter, "meters": UnitMeter, "metre": UnitMeter,
	"km": UnitKilometer, "kilometer": UnitKilometer,
	"kg": UnitKilogram, "kilogram": UnitKilogram,
	"g": UnitGram, "gram": UnitGram,
	"a": UnitAmpere, "amp": UnitAmpere, "ampere": UnitAmpere, "amps": UnitAmpere,
	"ma": UnitMilliampere, "milliampere": UnitMilliampere,
	"k": UnitKelvin, "kelvin": UnitKelvin,
	"c": UnitCelsius, "degc": UnitCelsius, "°c": UnitCelsius, "celsius": UnitCelsius, "degreecelsius": UnitCelsius,
	"v": UnitVolt, "volt": UnitVolt, "volts": UnitVolt,
	"mv": UnitMillivolt, "millivolt": UnitMillivolt,
	"w": UnitWatt, "watt": UnitWatt, "watts": UnitWatt,
	"j": UnitJoule, "joule": UnitJoule,
	"n": UnitNewton, "newton": UnitNewton,
	"pa": UnitPascal, "pascal": UnitPascal,
	"ohm": UnitOhm, "ohms": UnitOhm,
	"hz": UnitHertz, "hertz": UnitHertz,
	"rad": UnitRadian, "radian": UnitRadian, "radians": UnitRadian,
	"deg": UnitDegree, "degree": UnitDegree, "degrees": UnitDegree,
	"rad/s": UnitRadPerSec, "radianpersecond": UnitRadPerSec,
	"deg/s": UnitDegPerSec, "degreepersecond": UnitDegPerSec,
	"m/s": UnitMeterPerSec, "meterpersecond": UnitMeterPerSec,
	"t": UnitTesla, "tesla": UnitTesla,
	"%": UnitPercent, "percent": UnitPercent,
	"bit": UnitBit, "bits": UnitBit,
	"byte": UnitByte, "bytes": UnitByte, "b": UnitByte,
	"count": UnitCount, "counts": UnitCount,
}

// ParseUnit resolves a unit string against the vocabulary, ignoring case and
// surrounding space. Unknown strings report false.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}
