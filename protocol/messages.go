package protocol

import "math"

// MissingSplit fills split slots the server did not report.
const MissingSplit int32 = math.MaxInt32

// LapSplitSlots is the exact number of splits a decoded Lap carries.
const LapSplitSlots = 3

// InboundType is the leading tag byte of every message the server sends.
type InboundType uint8

const (
	MsgRegistrationResult InboundType = 1
	MsgRealtimeUpdate     InboundType = 2
	MsgRealtimeCarUpdate  InboundType = 3
	MsgEntryList          InboundType = 4
	MsgTrackData          InboundType = 5
	MsgEntryListCar       InboundType = 6
	MsgBroadcastingEvent  InboundType = 7
)

// Message is a decoded inbound record.
type Message interface {
	MessageType() InboundType
}

type RegistrationResult struct {
	ConnectionID int32  `json:"connectionId"`
	Success      bool   `json:"success"`
	Writable     bool   `json:"writable"`
	ErrorMessage string `json:"errorMessage"`
}

type Lap struct {
	LapTimeMs      int32   `json:"lapTimeMs"`
	CarIndex       uint16  `json:"carIndex"`
	DriverIndex    uint16  `json:"driverIndex"`
	Splits         []int32 `json:"splits"`
	IsInvalid      bool    `json:"isInvalid"`
	IsValidForBest bool    `json:"isValidForBest"`
	IsOutlap       bool    `json:"isOutlap"`
	IsInlap        bool    `json:"isInlap"`
	Type           LapType `json:"type"`
}

type RealtimeUpdate struct {
	EventIndex       uint16       `json:"eventIndex"`
	SessionIndex     uint16       `json:"sessionIndex"`
	SessionType      SessionType  `json:"sessionType"`
	Phase            SessionPhase `json:"phase"`
	SessionTimeMs    float32      `json:"sessionTimeMs"`
	SessionEndTimeMs float32      `json:"sessionEndTimeMs"`
	FocusedCarIndex  int32        `json:"focusedCarIndex"`
	ActiveCameraSet  string       `json:"activeCameraSet"`
	ActiveCamera     string       `json:"activeCamera"`
	CurrentHudPage   string       `json:"currentHudPage"`
	IsReplayPlaying  bool         `json:"isReplayPlaying"`

	// Only set while IsReplayPlaying.
	ReplaySessionTimeMs   float32 `json:"replaySessionTimeMs"`
	ReplayRemainingTimeMs float32 `json:"replayRemainingTimeMs"`

	TimeOfDayMs    float32 `json:"timeOfDayMs"`
	AmbientTemp    uint8   `json:"ambientTemp"`
	TrackTemp      uint8   `json:"trackTemp"`
	Clouds         float32 `json:"clouds"`
	RainLevel      float32 `json:"rainLevel"`
	Wetness        float32 `json:"wetness"`
	BestSessionLap Lap     `json:"bestSessionLap"`
}

type RealtimeCarUpdate struct {
	CarIndex       uint16      `json:"carIndex"`
	DriverIndex    uint16      `json:"driverIndex"`
	DriverCount    uint8       `json:"driverCount"`
	Gear           int         `json:"gear"`
	WorldPosX      float32     `json:"worldPosX"`
	WorldPosY      float32     `json:"worldPosY"`
	Yaw            float32     `json:"yaw"`
	Location       CarLocation `json:"location"`
	Kmh            uint16      `json:"kmh"`
	Position       uint16      `json:"position"`
	CupPosition    uint16      `json:"cupPosition"`
	TrackPosition  uint16      `json:"trackPosition"`
	SplinePosition float32     `json:"splinePosition"`
	Laps           uint16      `json:"laps"`
	DeltaMs        int32       `json:"deltaMs"`
	BestSessionLap Lap         `json:"bestSessionLap"`
	LastLap        Lap         `json:"lastLap"`
	CurrentLap     Lap         `json:"currentLap"`
}

type EntryList struct {
	ConnectionID int32    `json:"connectionId"`
	CarIndices   []uint16 `json:"carIndices"`
}

type Driver struct {
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	ShortName   string         `json:"shortName"`
	Category    DriverCategory `json:"category"`
	Nationality Nationality    `json:"nationality"`
}

type EntryListCar struct {
	CarIndex           uint16      `json:"carIndex"`
	ModelType          uint8       `json:"modelType"`
	TeamName           string      `json:"teamName"`
	RaceNumber         int32       `json:"raceNumber"`
	CupCategory        uint8       `json:"cupCategory"`
	CurrentDriverIndex uint8       `json:"currentDriverIndex"`
	Nationality        Nationality `json:"nationality"`
	Drivers            []Driver    `json:"drivers"`
}

type TrackData struct {
	ConnectionID int32               `json:"connectionId"`
	TrackName    string              `json:"trackName"`
	TrackID      int32               `json:"trackId"`
	TrackMeters  int32               `json:"trackMeters"`
	CameraSets   map[string][]string `json:"cameraSets"`
	HUDPages     []string            `json:"hudPages"`
}

type BroadcastingEvent struct {
	Type     BroadcastingEventType `json:"type"`
	Message  string                `json:"message"`
	TimeMs   int32                 `json:"timeMs"`
	CarIndex int32                 `json:"carIndex"`
}

func (*RegistrationResult) MessageType() InboundType { return MsgRegistrationResult }
func (*RealtimeUpdate) MessageType() InboundType     { return MsgRealtimeUpdate }
func (*RealtimeCarUpdate) MessageType() InboundType  { return MsgRealtimeCarUpdate }
func (*EntryList) MessageType() InboundType          { return MsgEntryList }
func (*TrackData) MessageType() InboundType          { return MsgTrackData }
func (*EntryListCar) MessageType() InboundType       { return MsgEntryListCar }
func (*BroadcastingEvent) MessageType() InboundType  { return MsgBroadcastingEvent }

var _ Message = (*RegistrationResult)(nil)
var _ Message = (*RealtimeUpdate)(nil)
var _ Message = (*RealtimeCarUpdate)(nil)
var _ Message = (*EntryList)(nil)
var _ Message = (*TrackData)(nil)
var _ Message = (*EntryListCar)(nil)
var _ Message = (*BroadcastingEvent)(nil)
