package protocol

import "fmt"

// The simulator reports categories as small integer codes. Each code type
// below has a total String(): codes missing from its table render as
// "Not found (<code>)".

type SessionType uint8

type SessionPhase uint8

type CarLocation uint8

type DriverCategory uint8

type Nationality uint16

type LapType uint8

type BroadcastingEventType uint8

const (
	LapRegular LapType = 0
	LapOutlap  LapType = 1
	LapInlap   LapType = 2
)

func notFound(code int) string {
	return fmt.Sprintf("Not found (%d)", code)
}

func lookup(table map[int]string, code int) string {
	if label, ok := table[code]; ok {
		return label
	}
	return notFound(code)
}

var lapTypes = map[int]string{
	0: "Regular",
	1: "Outlap",
	2: "Inlap",
}

var driverCategories = map[int]string{
	0:   "Bronze",
	1:   "Silver",
	2:   "Gold",
	3:   "Platinum",
	255: "Unknown",
}

var carLocations = map[int]string{
	0: "Unknown",
	1: "Track",
	2: "Pitlane",
	3: "Pit Entry",
	4: "Pit Exit",
}

var sessionPhases = map[int]string{
	0: "Unknown",
	1: "Starting",
	2: "Pre Formation",
	3: "Formation Lap",
	4: "Pre Session",
	5: "Session",
	6: "Session Over",
	7: "Post Session",
	8: "Result UI",
}

var sessionTypes = map[int]string{
	0:  "Practice",
	4:  "Qualifying",
	9:  "Superpole",
	10: "Race",
	11: "Hotlap",
	12: "Hot Stint",
	13: "Hotlap Superpole",
	14: "Replay",
}

var broadcastingEventTypes = map[int]string{
	0: "Unknown",
	1: "Green Flag",
	2: "Session Over",
	3: "Penalty Communication Message",
	4: "Accident",
	5: "Lap Completed",
	6: "Best Session Lap",
	7: "Best Personal Lap",
}

var nationalities = map[int]string{
	0:  "Unknown",
	1:  "Italy",
	2:  "Germany",
	3:  "France",
	4:  "Spain",
	5:  "GreatBritain",
	6:  "Hungary",
	7:  "Belgium",
	8:  "Switzerland",
	9:  "Austria",
	10: "Russia",
	11: "Thailand",
	12: "Netherlands",
	13: "Poland",
	14: "Argentina",
	15: "Monaco",
	16: "Ireland",
	17: "Brazil",
	18: "SouthAfrica",
	19: "PuertoRico",
	20: "Slovakia",
	21: "Oman",
	22: "Greece",
	23: "SaudiArabia",
	24: "Norway",
	25: "Turkey",
	26: "SouthKorea",
	27: "Lebanon",
	28: "Armenia",
	29: "Mexico",
	30: "Sweden",
	31: "Finland",
	32: "Denmark",
	33: "Croatia",
	34: "Canada",
	35: "China",
	36: "Portugal",
	37: "Singapore",
	38: "Indonesia",
	39: "USA",
	40: "NewZealand",
	41: "Australia",
	42: "SanMarino",
	43: "UAE",
	44: "Luxembourg",
	45: "Kuwait",
	46: "HongKong",
	47: "Colombia",
	48: "Japan",
	49: "Andorra",
	50: "Azerbaijan",
	51: "Bulgaria",
	52: "Cuba",
	53: "CzechRepublic",
	54: "Estonia",
	55: "Georgia",
	56: "India",
	57: "Israel",
	58: "Jamaica",
	59: "Latvia",
	60: "Lithuania",
	61: "Macau",
	62: "Malaysia",
	63: "Nepal",
	64: "NewCaledonia",
	65: "Nigeria",
	66: "NorthernIreland",
	67: "PapuaNewGuinea",
	68: "Philippines",
	69: "Qatar",
	70: "Romania",
	71: "Scotland",
	72: "Serbia",
	73: "Slovenia",
	74: "Taiwan",
	75: "Ukraine",
	76: "Venezuela",
	77: "Wales",
}

func (t SessionType) String() string { return lookup(sessionTypes, int(t)) }

func (p SessionPhase) String() string { return lookup(sessionPhases, int(p)) }

func (l CarLocation) String() string { return lookup(carLocations, int(l)) }

func (c DriverCategory) String() string { return lookup(driverCategories, int(c)) }

func (n Nationality) String() string { return lookup(nationalities, int(n)) }

func (l LapType) String() string { return lookup(lapTypes, int(l)) }

func (t BroadcastingEventType) String() string { return lookup(broadcastingEventTypes, int(t)) }

// MarshalText renders codes as their labels, so records serialise readably.
func (t SessionType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (p SessionPhase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (l CarLocation) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (c DriverCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (n Nationality) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (l LapType) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (t BroadcastingEventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }
