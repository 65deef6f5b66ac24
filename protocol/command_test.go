package protocol_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"

	"github.com/luma/paddock/protocol"
)

// decodeCommand reads cmd's wire bytes back using the kinds from its own
// field list and checks nothing is left over.
func decodeCommand(cmd protocol.Command) []interface{} {
	data, err := cmd.Marshal()
	Expect(err).To(Succeed())

	kinds := lo.Map(cmd.Fields(), func(f protocol.Field, _ int) protocol.Kind {
		return f.Kind
	})

	src := protocol.NewBufferSource(data)
	values, err := protocol.NewDecoder(src).Decode(kinds...)
	Expect(err).To(Succeed())
	Expect(src.Len()).To(Equal(0))

	return values
}

var _ = Describe("Commands", func() {
	It("encodes a registration", func() {
		cmd := &protocol.RegisterCommand{
			DisplayName:      "paddock",
			Password:         "asd",
			UpdateIntervalMs: 250,
			CommandPassword:  "",
		}

		data, err := cmd.Marshal()
		Expect(err).To(Succeed())
		Expect(data[:5]).To(Equal([]byte{1, 4, 7, 0, 'p'}))

		Expect(decodeCommand(cmd)).To(Equal([]interface{}{
			uint8(protocol.CmdRegister),
			uint8(protocol.ProtocolVersion),
			"paddock",
			"asd",
			int32(250),
			"",
		}))
	})

	It("encodes an unregister as its tag alone", func() {
		data, err := (&protocol.UnregisterCommand{}).Marshal()
		Expect(err).To(Succeed())
		Expect(data).To(Equal([]byte{9}))
	})

	It("encodes entry list and track data requests", func() {
		data, err := (&protocol.EntryListRequest{ConnectionID: 42}).Marshal()
		Expect(err).To(Succeed())
		Expect(data).To(Equal([]byte{10, 42, 0, 0, 0}))

		data, err = (&protocol.TrackDataRequest{ConnectionID: 42}).Marshal()
		Expect(err).To(Succeed())
		Expect(data).To(Equal([]byte{11, 42, 0, 0, 0}))
	})

	Describe("FocusChange", func() {
		It("sends only the selections that are set", func() {
			Expect(decodeCommand(&protocol.FocusChange{ConnectionID: 42})).To(Equal([]interface{}{
				uint8(protocol.CmdChangeFocus), int32(42), false, false,
			}))

			carIndex := uint16(7)
			Expect(decodeCommand(&protocol.FocusChange{
				ConnectionID: 42,
				CarIndex:     &carIndex,
			})).To(Equal([]interface{}{
				uint8(protocol.CmdChangeFocus), int32(42), true, uint16(7), false,
			}))

			Expect(decodeCommand(&protocol.FocusChange{
				ConnectionID: 42,
				Camera:       &protocol.CameraSelection{Set: "set1", Camera: "cam2"},
			})).To(Equal([]interface{}{
				uint8(protocol.CmdChangeFocus), int32(42), false, true, "set1", "cam2",
			}))
		})

		It("sends both when both are set", func() {
			carIndex := uint16(3)
			Expect(decodeCommand(&protocol.FocusChange{
				ConnectionID: 42,
				CarIndex:     &carIndex,
				Camera:       &protocol.CameraSelection{Set: "set1", Camera: "cam1"},
			})).To(Equal([]interface{}{
				uint8(protocol.CmdChangeFocus), int32(42), true, uint16(3), true, "set1", "cam1",
			}))
		})
	})

	It("encodes an instant replay request", func() {
		Expect(decodeCommand(&protocol.InstantReplayRequest{
			ConnectionID: 42,
			StartTime:    60000,
			DurationMs:   10000,
			CarIndex:     -1,
		})).To(Equal([]interface{}{
			uint8(protocol.CmdInstantReplay), int32(42), float32(60000), float32(10000), int32(-1), "", "",
		}))
	})

	It("encodes a hud page change", func() {
		Expect(decodeCommand(&protocol.HUDPageChange{ConnectionID: 42, Page: "Blank"})).To(Equal([]interface{}{
			uint8(protocol.CmdChangeHUDPage), int32(42), "Blank",
		}))
	})
})
