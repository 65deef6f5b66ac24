package protocol

import (
	"errors"
	"fmt"
)

var ErrUnknownMessageType = errors.New("Unknown message type could not be decoded")

type decodeFunc func(d *Decoder) Message

// catalog maps each inbound tag to the decoder for its record. Decoders read
// their fixed prefix first and then any nested content in wire order, pulling
// further bytes from the same Decoder.
var catalog = map[InboundType]decodeFunc{
	MsgRegistrationResult: decodeRegistrationResult,
	MsgRealtimeUpdate:     decodeRealtimeUpdate,
	MsgRealtimeCarUpdate:  decodeRealtimeCarUpdate,
	MsgEntryList:          decodeEntryList,
	MsgTrackData:          decodeTrackData,
	MsgEntryListCar:       decodeEntryListCar,
	MsgBroadcastingEvent:  decodeBroadcastingEvent,
}

func (t InboundType) String() string {
	switch t {
	case MsgRegistrationResult:
		return "RegistrationResult"
	case MsgRealtimeUpdate:
		return "RealtimeUpdate"
	case MsgRealtimeCarUpdate:
		return "RealtimeCarUpdate"
	case MsgEntryList:
		return "EntryList"
	case MsgTrackData:
		return "TrackData"
	case MsgEntryListCar:
		return "EntryListCar"
	case MsgBroadcastingEvent:
		return "BroadcastingEvent"
	default:
		return fmt.Sprintf("InboundType(%d)", uint8(t))
	}
}

// ReadMessage reads a tag byte and then the full record it announces.
//
// The stream has no framing beyond the tag, so an unknown tag or a failed
// record leaves the Decoder at an unknown position. Callers should treat any
// error as fatal to the stream.
func ReadMessage(d *Decoder) (Message, error) {
	d.Begin()

	tag := InboundType(d.Uint8())
	if err := d.Err(); err != nil {
		return nil, err
	}

	decode, ok := catalog[tag]
	if !ok {
		return nil, fmt.Errorf("Failed to decode tag %d: %w", uint8(tag), ErrUnknownMessageType)
	}

	msg := decode(d)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("Failed to decode %s: %w", tag, err)
	}

	return msg, nil
}

func decodeRegistrationResult(d *Decoder) Message {
	r := &RegistrationResult{}
	r.ConnectionID = d.Int32()
	r.Success = d.Bool()
	r.Writable = d.Bool()
	r.ErrorMessage = d.Text()
	return r
}

func decodeLap(d *Decoder) Lap {
	var lap Lap

	lap.LapTimeMs = d.Int32()
	lap.CarIndex = d.Uint16()
	lap.DriverIndex = d.Uint16()

	// Every reported split is read, only the first LapSplitSlots are kept
	splitCount := int(d.Uint8())
	lap.Splits = make([]int32, LapSplitSlots)
	for i := range lap.Splits {
		lap.Splits[i] = MissingSplit
	}
	for i := 0; i < splitCount; i++ {
		split := d.Int32()
		if i < LapSplitSlots {
			lap.Splits[i] = split
		}
	}

	lap.IsInvalid = d.Bool()
	lap.IsValidForBest = d.Bool()
	lap.IsOutlap = d.Bool()
	lap.IsInlap = d.Bool()
	lap.Type = lapType(lap.IsOutlap, lap.IsInlap)

	return lap
}

// lapType gives the outlap flag priority: a lap flagged as both outlap and
// inlap reports Outlap.
func lapType(isOutlap, isInlap bool) LapType {
	switch {
	case isOutlap:
		return LapOutlap
	case isInlap:
		return LapInlap
	default:
		return LapRegular
	}
}

// tenths scales a 0-10 weather byte to the 0.0-1.0 range.
func tenths(v uint8) float32 {
	return float32(v) / 10
}

func decodeRealtimeUpdate(d *Decoder) Message {
	u := &RealtimeUpdate{}

	u.EventIndex = d.Uint16()
	u.SessionIndex = d.Uint16()
	u.SessionType = SessionType(d.Uint8())
	u.Phase = SessionPhase(d.Uint8())
	u.SessionTimeMs = d.Float32()
	u.SessionEndTimeMs = d.Float32()
	u.FocusedCarIndex = d.Int32()
	u.ActiveCameraSet = d.Text()
	u.ActiveCamera = d.Text()
	u.CurrentHudPage = d.Text()

	u.IsReplayPlaying = d.Bool()
	if u.IsReplayPlaying {
		u.ReplaySessionTimeMs = d.Float32()
		u.ReplayRemainingTimeMs = d.Float32()
	}

	// Time of day is the only timing field sent in seconds.
	u.TimeOfDayMs = d.Float32() * 1000
	u.AmbientTemp = d.Uint8()
	u.TrackTemp = d.Uint8()
	u.Clouds = tenths(d.Uint8())
	u.RainLevel = tenths(d.Uint8())
	u.Wetness = tenths(d.Uint8())

	u.BestSessionLap = decodeLap(d)

	return u
}

func decodeRealtimeCarUpdate(d *Decoder) Message {
	u := &RealtimeCarUpdate{}

	u.CarIndex = d.Uint16()
	u.DriverIndex = d.Uint16()
	u.DriverCount = d.Uint8()
	u.Gear = int(d.Uint8()) - 2
	u.WorldPosX = d.Float32()
	u.WorldPosY = d.Float32()
	u.Yaw = d.Float32()
	u.Location = CarLocation(d.Uint8())
	u.Kmh = d.Uint16()
	u.Position = d.Uint16()
	u.CupPosition = d.Uint16()
	u.TrackPosition = d.Uint16()
	u.SplinePosition = d.Float32()
	u.Laps = d.Uint16()
	u.DeltaMs = d.Int32()

	u.BestSessionLap = decodeLap(d)
	u.LastLap = decodeLap(d)
	u.CurrentLap = decodeLap(d)

	return u
}

func decodeEntryList(d *Decoder) Message {
	l := &EntryList{}

	l.ConnectionID = d.Int32()
	count := int(d.Uint16())

	l.CarIndices = make([]uint16, 0, count)
	for i := 0; i < count && d.Err() == nil; i++ {
		l.CarIndices = append(l.CarIndices, d.Uint16())
	}

	return l
}

func decodeDriver(d *Decoder) Driver {
	var driver Driver

	driver.FirstName = d.Text()
	driver.LastName = d.Text()
	driver.ShortName = d.Text()
	driver.Category = DriverCategory(d.Uint8())
	driver.Nationality = Nationality(d.Uint16())

	return driver
}

func decodeEntryListCar(d *Decoder) Message {
	c := &EntryListCar{}

	c.CarIndex = d.Uint16()
	c.ModelType = d.Uint8()
	c.TeamName = d.Text()
	c.RaceNumber = d.Int32()
	c.CupCategory = d.Uint8()
	c.CurrentDriverIndex = d.Uint8()
	c.Nationality = Nationality(d.Uint16())

	count := int(d.Uint8())
	c.Drivers = make([]Driver, 0, count)
	for i := 0; i < count && d.Err() == nil; i++ {
		c.Drivers = append(c.Drivers, decodeDriver(d))
	}

	return c
}

func decodeTexts(d *Decoder, count int) []string {
	out := make([]string, 0, count)
	for i := 0; i < count && d.Err() == nil; i++ {
		out = append(out, d.Text())
	}
	return out
}

func decodeTrackData(d *Decoder) Message {
	t := &TrackData{}

	t.ConnectionID = d.Int32()
	t.TrackName = d.Text()
	t.TrackID = d.Int32()
	t.TrackMeters = d.Int32()

	setCount := int(d.Uint8())
	t.CameraSets = make(map[string][]string, setCount)
	for i := 0; i < setCount && d.Err() == nil; i++ {
		name := d.Text()
		t.CameraSets[name] = decodeTexts(d, int(d.Uint8()))
	}

	t.HUDPages = decodeTexts(d, int(d.Uint8()))

	return t
}

func decodeBroadcastingEvent(d *Decoder) Message {
	e := &BroadcastingEvent{}

	e.Type = BroadcastingEventType(d.Uint8())
	e.Message = d.Text()
	e.TimeMs = d.Int32()
	e.CarIndex = d.Int32()

	return e
}
