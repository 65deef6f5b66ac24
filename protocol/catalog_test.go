package protocol_test

import (
	"bytes"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/paddock/protocol"
)

type lapFlags struct {
	invalid, validForBest, outlap, inlap bool
}

func lapFields(lapTimeMs int32, carIndex uint16, flags lapFlags, splits ...int32) []protocol.Field {
	fields := []protocol.Field{
		field(protocol.Int32, lapTimeMs),
		field(protocol.Uint16, carIndex),
		field(protocol.Uint16, 0),
		field(protocol.Uint8, len(splits)),
	}

	for _, split := range splits {
		fields = append(fields, field(protocol.Int32, split))
	}

	return append(fields,
		field(protocol.Bool, flags.invalid),
		field(protocol.Bool, flags.validForBest),
		field(protocol.Bool, flags.outlap),
		field(protocol.Bool, flags.inlap),
	)
}

func carUpdateFields(carIndex uint16, driverCount uint8, gear uint8, laps ...[]protocol.Field) []protocol.Field {
	fields := []protocol.Field{
		tag(protocol.MsgRealtimeCarUpdate),
		field(protocol.Uint16, carIndex),
		field(protocol.Uint16, 1),
		field(protocol.Uint8, driverCount),
		field(protocol.Uint8, gear),
		field(protocol.Float32, float32(10.5)),
		field(protocol.Float32, float32(-20.25)),
		field(protocol.Float32, float32(0.5)),
		field(protocol.Uint8, 1),
		field(protocol.Uint16, 212),
		field(protocol.Uint16, 3),
		field(protocol.Uint16, 2),
		field(protocol.Uint16, 4),
		field(protocol.Float32, float32(0.75)),
		field(protocol.Uint16, 12),
		field(protocol.Int32, int32(-350)),
	}

	for _, lap := range laps {
		fields = append(fields, lap...)
	}

	return fields
}

func readOne(data []byte) (protocol.Message, error) {
	return protocol.ReadMessage(protocol.NewDecoder(protocol.NewBufferSource(data)))
}

var _ = Describe("Catalog", func() {
	Describe("ReadMessage()", func() {
		It("decodes a registration result", func() {
			data := mustEncode(
				tag(protocol.MsgRegistrationResult),
				field(protocol.Int32, int32(42)),
				field(protocol.Bool, false),
				field(protocol.Bool, false),
				field(protocol.Text, "bad password"),
			)

			msg, err := readOne(data)
			Expect(err).To(Succeed())
			Expect(msg).To(Equal(&protocol.RegistrationResult{
				ConnectionID: 42,
				ErrorMessage: "bad password",
			}))
			Expect(msg.MessageType()).To(Equal(protocol.MsgRegistrationResult))
		})

		It("pads lap splits to three slots", func() {
			noFlags := lapFlags{}
			data := mustEncode(carUpdateFields(5, 2, 5,
				lapFields(90000, 5, noFlags),
				lapFields(91000, 5, noFlags, 30000, 31000),
				lapFields(92000, 5, noFlags, 30000, 31000, 31000),
			)...)

			msg, err := readOne(data)
			Expect(err).To(Succeed())

			u := msg.(*protocol.RealtimeCarUpdate)
			Expect(u.BestSessionLap.Splits).To(Equal([]int32{
				protocol.MissingSplit, protocol.MissingSplit, protocol.MissingSplit,
			}))
			Expect(u.LastLap.Splits).To(Equal([]int32{30000, 31000, protocol.MissingSplit}))
			Expect(u.CurrentLap.Splits).To(Equal([]int32{30000, 31000, 31000}))
		})

		It("drops splits past the third and stays aligned on the next record", func() {
			noFlags := lapFlags{}
			first := mustEncode(carUpdateFields(5, 2, 5,
				lapFields(0, 5, noFlags),
				lapFields(0, 5, noFlags),
				lapFields(0, 5, noFlags, 1, 2, 3, 4, 5),
			)...)
			second := mustEncode(carUpdateFields(7, 1, 2,
				lapFields(0, 7, noFlags),
				lapFields(0, 7, noFlags),
				lapFields(0, 7, noFlags),
			)...)

			src := protocol.NewBufferSource(append(append([]byte{}, first...), second...))
			d := protocol.NewDecoder(src)

			msg, err := protocol.ReadMessage(d)
			Expect(err).To(Succeed())

			u := msg.(*protocol.RealtimeCarUpdate)
			Expect(u.CurrentLap.Splits).To(HaveLen(protocol.LapSplitSlots))
			Expect(u.CurrentLap.Splits).To(Equal([]int32{1, 2, 3}))

			msg, err = protocol.ReadMessage(d)
			Expect(err).To(Succeed())
			Expect(msg.(*protocol.RealtimeCarUpdate).CarIndex).To(Equal(uint16(7)))
			Expect(src.Len()).To(Equal(0))
		})

		It("consumes exactly one record, leaving the next intact", func() {
			noFlags := lapFlags{}
			first := mustEncode(carUpdateFields(5, 2, 5,
				lapFields(90000, 5, noFlags, 30000),
				lapFields(91000, 5, noFlags),
				lapFields(0, 5, noFlags),
			)...)
			second := mustEncode(carUpdateFields(7, 1, 2,
				lapFields(0, 7, noFlags),
				lapFields(0, 7, noFlags),
				lapFields(0, 7, noFlags),
			)...)

			src := protocol.NewBufferSource(append(append([]byte{}, first...), second...))
			d := protocol.NewDecoder(src)

			msg, err := protocol.ReadMessage(d)
			Expect(err).To(Succeed())
			Expect(msg.(*protocol.RealtimeCarUpdate).CarIndex).To(Equal(uint16(5)))
			Expect(d.Consumed()).To(Equal(len(first)))

			msg, err = protocol.ReadMessage(d)
			Expect(err).To(Succeed())
			Expect(msg.(*protocol.RealtimeCarUpdate).CarIndex).To(Equal(uint16(7)))
			Expect(src.Len()).To(Equal(0))
		})

		It("decodes a realtime car update", func() {
			noFlags := lapFlags{}
			data := mustEncode(carUpdateFields(5, 2, 5,
				lapFields(90000, 5, lapFlags{validForBest: true}),
				lapFields(91000, 5, noFlags),
				lapFields(0, 5, lapFlags{invalid: true}),
			)...)

			msg, err := readOne(data)
			Expect(err).To(Succeed())

			u := msg.(*protocol.RealtimeCarUpdate)
			Expect(u.CarIndex).To(Equal(uint16(5)))
			Expect(u.DriverIndex).To(Equal(uint16(1)))
			Expect(u.DriverCount).To(Equal(uint8(2)))
			Expect(u.WorldPosX).To(Equal(float32(10.5)))
			Expect(u.WorldPosY).To(Equal(float32(-20.25)))
			Expect(u.Yaw).To(Equal(float32(0.5)))
			Expect(u.Location).To(Equal(protocol.CarLocation(1)))
			Expect(u.Location.String()).To(Equal("Track"))
			Expect(u.Kmh).To(Equal(uint16(212)))
			Expect(u.Position).To(Equal(uint16(3)))
			Expect(u.CupPosition).To(Equal(uint16(2)))
			Expect(u.TrackPosition).To(Equal(uint16(4)))
			Expect(u.SplinePosition).To(Equal(float32(0.75)))
			Expect(u.Laps).To(Equal(uint16(12)))
			Expect(u.DeltaMs).To(Equal(int32(-350)))

			Expect(u.BestSessionLap.LapTimeMs).To(Equal(int32(90000)))
			Expect(u.BestSessionLap.IsValidForBest).To(BeTrue())
			Expect(u.LastLap.LapTimeMs).To(Equal(int32(91000)))
			Expect(u.CurrentLap.IsInvalid).To(BeTrue())
		})

		It("offsets the gear by two", func() {
			laps := [][]protocol.Field{
				lapFields(0, 5, lapFlags{}),
				lapFields(0, 5, lapFlags{}),
				lapFields(0, 5, lapFlags{}),
			}

			msg, err := readOne(mustEncode(carUpdateFields(5, 1, 0, laps...)...))
			Expect(err).To(Succeed())
			Expect(msg.(*protocol.RealtimeCarUpdate).Gear).To(Equal(-2))

			msg, err = readOne(mustEncode(carUpdateFields(5, 1, 1, laps...)...))
			Expect(err).To(Succeed())
			Expect(msg.(*protocol.RealtimeCarUpdate).Gear).To(Equal(-1))

			msg, err = readOne(mustEncode(carUpdateFields(5, 1, 6, laps...)...))
			Expect(err).To(Succeed())
			Expect(msg.(*protocol.RealtimeCarUpdate).Gear).To(Equal(4))
		})

		Describe("lap type", func() {
			decodeLapType := func(flags lapFlags) protocol.LapType {
				msg, err := readOne(mustEncode(carUpdateFields(5, 1, 2,
					lapFields(0, 5, flags),
					lapFields(0, 5, lapFlags{}),
					lapFields(0, 5, lapFlags{}),
				)...))
				Expect(err).To(Succeed())
				return msg.(*protocol.RealtimeCarUpdate).BestSessionLap.Type
			}

			It("is regular without flags", func() {
				Expect(decodeLapType(lapFlags{})).To(Equal(protocol.LapRegular))
			})

			It("is an outlap or an inlap when flagged", func() {
				Expect(decodeLapType(lapFlags{outlap: true})).To(Equal(protocol.LapOutlap))
				Expect(decodeLapType(lapFlags{inlap: true})).To(Equal(protocol.LapInlap))
			})

			// A lap can't really be both. The server has been seen to flag it
			// anyway and the outlap flag wins.
			It("prefers outlap when both flags are set", func() {
				Expect(decodeLapType(lapFlags{outlap: true, inlap: true})).To(Equal(protocol.LapOutlap))
			})
		})

		Describe("realtime update", func() {
			head := func(replay bool) []protocol.Field {
				return []protocol.Field{
					tag(protocol.MsgRealtimeUpdate),
					field(protocol.Uint16, 3),
					field(protocol.Uint16, 1),
					field(protocol.Uint8, 10),
					field(protocol.Uint8, 5),
					field(protocol.Float32, float32(60000)),
					field(protocol.Float32, float32(1200000)),
					field(protocol.Int32, int32(7)),
					field(protocol.Text, "Drivable"),
					field(protocol.Text, "Cockpit"),
					field(protocol.Text, "Broadcasting"),
					field(protocol.Bool, replay),
				}
			}

			tail := func() []protocol.Field {
				fields := []protocol.Field{
					field(protocol.Float32, float32(3600.5)),
					field(protocol.Uint8, 22),
					field(protocol.Uint8, 31),
					field(protocol.Uint8, 3),
					field(protocol.Uint8, 0),
					field(protocol.Uint8, 10),
				}
				return append(fields, lapFields(101000, 7, lapFlags{validForBest: true}, 33000, 34000, 34000)...)
			}

			It("decodes a live update and scales its fields", func() {
				data := mustEncode(append(head(false), tail()...)...)

				msg, err := readOne(data)
				Expect(err).To(Succeed())

				u := msg.(*protocol.RealtimeUpdate)
				Expect(u.EventIndex).To(Equal(uint16(3)))
				Expect(u.SessionIndex).To(Equal(uint16(1)))
				Expect(u.SessionType.String()).To(Equal("Race"))
				Expect(u.Phase.String()).To(Equal("Session"))
				Expect(u.SessionTimeMs).To(Equal(float32(60000)))
				Expect(u.SessionEndTimeMs).To(Equal(float32(1200000)))
				Expect(u.FocusedCarIndex).To(Equal(int32(7)))
				Expect(u.ActiveCameraSet).To(Equal("Drivable"))
				Expect(u.ActiveCamera).To(Equal("Cockpit"))
				Expect(u.CurrentHudPage).To(Equal("Broadcasting"))
				Expect(u.IsReplayPlaying).To(BeFalse())
				Expect(u.ReplaySessionTimeMs).To(BeZero())

				Expect(u.TimeOfDayMs).To(Equal(float32(3600500)))
				Expect(u.AmbientTemp).To(Equal(uint8(22)))
				Expect(u.TrackTemp).To(Equal(uint8(31)))
				Expect(u.Clouds).To(BeNumerically("~", 0.3, 1e-6))
				Expect(u.RainLevel).To(BeZero())
				Expect(u.Wetness).To(BeNumerically("~", 1.0, 1e-6))

				Expect(u.BestSessionLap.LapTimeMs).To(Equal(int32(101000)))
				Expect(u.BestSessionLap.CarIndex).To(Equal(uint16(7)))
				Expect(u.BestSessionLap.Splits).To(Equal([]int32{33000, 34000, 34000}))
			})

			It("reads the replay times only while a replay is playing", func() {
				fields := append(head(true),
					field(protocol.Float32, float32(45000)),
					field(protocol.Float32, float32(5000)),
				)
				data := mustEncode(append(fields, tail()...)...)

				src := protocol.NewBufferSource(data)
				msg, err := protocol.ReadMessage(protocol.NewDecoder(src))
				Expect(err).To(Succeed())
				Expect(src.Len()).To(Equal(0))

				u := msg.(*protocol.RealtimeUpdate)
				Expect(u.IsReplayPlaying).To(BeTrue())
				Expect(u.ReplaySessionTimeMs).To(Equal(float32(45000)))
				Expect(u.ReplayRemainingTimeMs).To(Equal(float32(5000)))
				Expect(u.TimeOfDayMs).To(Equal(float32(3600500)))
			})
		})

		It("decodes an entry list", func() {
			data := mustEncode(
				tag(protocol.MsgEntryList),
				field(protocol.Int32, int32(42)),
				field(protocol.Uint16, 3),
				field(protocol.Uint16, 5),
				field(protocol.Uint16, 7),
				field(protocol.Uint16, 1001),
			)

			msg, err := readOne(data)
			Expect(err).To(Succeed())
			Expect(msg).To(Equal(&protocol.EntryList{
				ConnectionID: 42,
				CarIndices:   []uint16{5, 7, 1001},
			}))
		})

		It("decodes an entry list car with its drivers", func() {
			data := mustEncode(
				tag(protocol.MsgEntryListCar),
				field(protocol.Uint16, 5),
				field(protocol.Uint8, 20),
				field(protocol.Text, "Team Paddock"),
				field(protocol.Int32, int32(911)),
				field(protocol.Uint8, 0),
				field(protocol.Uint8, 1),
				field(protocol.Uint16, 2),
				field(protocol.Uint8, 2),

				field(protocol.Text, "Ayrton"),
				field(protocol.Text, "Example"),
				field(protocol.Text, "AEX"),
				field(protocol.Uint8, 3),
				field(protocol.Uint16, 17),

				field(protocol.Text, "Kim"),
				field(protocol.Text, "Sample"),
				field(protocol.Text, "KSA"),
				field(protocol.Uint8, 1),
				field(protocol.Uint16, 1),
			)

			msg, err := readOne(data)
			Expect(err).To(Succeed())

			c := msg.(*protocol.EntryListCar)
			Expect(c.CarIndex).To(Equal(uint16(5)))
			Expect(c.ModelType).To(Equal(uint8(20)))
			Expect(c.TeamName).To(Equal("Team Paddock"))
			Expect(c.RaceNumber).To(Equal(int32(911)))
			Expect(c.CurrentDriverIndex).To(Equal(uint8(1)))
			Expect(c.Nationality.String()).To(Equal("Germany"))
			Expect(c.Drivers).To(Equal([]protocol.Driver{
				{
					FirstName:   "Ayrton",
					LastName:    "Example",
					ShortName:   "AEX",
					Category:    protocol.DriverCategory(3),
					Nationality: protocol.Nationality(17),
				},
				{
					FirstName:   "Kim",
					LastName:    "Sample",
					ShortName:   "KSA",
					Category:    protocol.DriverCategory(1),
					Nationality: protocol.Nationality(1),
				},
			}))
			Expect(c.Drivers[0].Category.String()).To(Equal("Platinum"))
		})

		It("decodes track data with its camera sets and hud pages", func() {
			data := mustEncode(
				tag(protocol.MsgTrackData),
				field(protocol.Int32, int32(42)),
				field(protocol.Text, "Monza"),
				field(protocol.Int32, int32(3)),
				field(protocol.Int32, int32(5793)),

				field(protocol.Uint8, 2),
				field(protocol.Text, "set1"),
				field(protocol.Uint8, 2),
				field(protocol.Text, "cam1"),
				field(protocol.Text, "cam2"),
				field(protocol.Text, "set2"),
				field(protocol.Uint8, 1),
				field(protocol.Text, "cam3"),

				field(protocol.Uint8, 1),
				field(protocol.Text, "hud1"),
			)

			src := protocol.NewBufferSource(data)
			msg, err := protocol.ReadMessage(protocol.NewDecoder(src))
			Expect(err).To(Succeed())
			Expect(src.Len()).To(Equal(0))

			Expect(msg).To(Equal(&protocol.TrackData{
				ConnectionID: 42,
				TrackName:    "Monza",
				TrackID:      3,
				TrackMeters:  5793,
				CameraSets: map[string][]string{
					"set1": {"cam1", "cam2"},
					"set2": {"cam3"},
				},
				HUDPages: []string{"hud1"},
			}))
		})

		It("decodes a broadcasting event", func() {
			data := mustEncode(
				tag(protocol.MsgBroadcastingEvent),
				field(protocol.Uint8, 5),
				field(protocol.Text, "Lap 12"),
				field(protocol.Int32, int32(734000)),
				field(protocol.Int32, int32(5)),
			)

			msg, err := readOne(data)
			Expect(err).To(Succeed())
			Expect(msg).To(Equal(&protocol.BroadcastingEvent{
				Type:     protocol.BroadcastingEventType(5),
				Message:  "Lap 12",
				TimeMs:   734000,
				CarIndex: 5,
			}))
		})

		It("renders codes as labels in JSON", func() {
			out, err := json.Marshal(&protocol.BroadcastingEvent{Type: 5, Message: "Lap 12"})
			Expect(err).To(Succeed())
			Expect(string(out)).To(ContainSubstring(`"type":"Lap Completed"`))
		})

		It("returns an error for an unknown tag", func() {
			_, err := readOne([]byte{99, 1, 2, 3})
			Expect(errors.Is(err, protocol.ErrUnknownMessageType)).To(BeTrue())
		})

		It("returns an error for a truncated record", func() {
			data := mustEncode(
				tag(protocol.MsgBroadcastingEvent),
				field(protocol.Uint8, 5),
				field(protocol.Text, "Lap 12"),
			)

			_, err := readOne(data)
			Expect(errors.Is(err, protocol.ErrShortBuffer)).To(BeTrue())
		})

		It("returns the source error when no tag can be read", func() {
			_, err := readOne(nil)
			Expect(errors.Is(err, protocol.ErrShortBuffer)).To(BeTrue())
		})

		It("fails a record whose nested content runs past the maximum message size", func() {
			var buf bytes.Buffer
			buf.Write(mustEncode(
				tag(protocol.MsgEntryList),
				field(protocol.Int32, int32(42)),
				field(protocol.Uint16, 65535),
			))
			for i := 0; i < 65535; i++ {
				buf.Write([]byte{1, 0})
			}

			_, err := readOne(buf.Bytes())
			Expect(errors.Is(err, protocol.ErrMessageTooLarge)).To(BeTrue())
		})
	})
})
