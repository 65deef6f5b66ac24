package protocol

// ProtocolVersion is the broadcasting protocol version sent on registration.
const ProtocolVersion = 4

// OutboundType is the leading tag byte of every command sent to the server.
type OutboundType uint8

const (
	CmdRegister       OutboundType = 1
	CmdUnregister     OutboundType = 9
	CmdRequestEntries OutboundType = 10
	CmdRequestTrack   OutboundType = 11
	CmdChangeHUDPage  OutboundType = 49
	CmdChangeFocus    OutboundType = 50
	CmdInstantReplay  OutboundType = 51
	CmdPlayHighlight  OutboundType = 52
	CmdSaveHighlight  OutboundType = 60
)

type Marshaler interface {
	Marshal() ([]byte, error)
}

// Command is an outbound message. Fields lists the message as it goes on the
// wire, tag included.
type Command interface {
	Marshaler
	Fields() []Field
}

func tagField(t OutboundType) Field {
	return Field{Kind: Uint8, Value: uint8(t)}
}

func marshal(c Command) ([]byte, error) {
	return Encode(c.Fields()...)
}

type RegisterCommand struct {
	DisplayName      string
	Password         string
	UpdateIntervalMs int32
	CommandPassword  string
}

func (c *RegisterCommand) Fields() []Field {
	return []Field{
		tagField(CmdRegister),
		{Kind: Uint8, Value: uint8(ProtocolVersion)},
		{Kind: Text, Value: c.DisplayName},
		{Kind: Text, Value: c.Password},
		{Kind: Int32, Value: c.UpdateIntervalMs},
		{Kind: Text, Value: c.CommandPassword},
	}
}

func (c *RegisterCommand) Marshal() ([]byte, error) { return marshal(c) }

type UnregisterCommand struct{}

func (c *UnregisterCommand) Fields() []Field {
	return []Field{tagField(CmdUnregister)}
}

func (c *UnregisterCommand) Marshal() ([]byte, error) { return marshal(c) }

type EntryListRequest struct {
	ConnectionID int32
}

func (c *EntryListRequest) Fields() []Field {
	return []Field{
		tagField(CmdRequestEntries),
		{Kind: Int32, Value: c.ConnectionID},
	}
}

func (c *EntryListRequest) Marshal() ([]byte, error) { return marshal(c) }

type TrackDataRequest struct {
	ConnectionID int32
}

func (c *TrackDataRequest) Fields() []Field {
	return []Field{
		tagField(CmdRequestTrack),
		{Kind: Int32, Value: c.ConnectionID},
	}
}

func (c *TrackDataRequest) Marshal() ([]byte, error) { return marshal(c) }

// FocusChange moves the broadcast focus. The car and the camera are changed
// independently; each is only sent when its pointer is set.
type FocusChange struct {
	ConnectionID int32
	CarIndex     *uint16
	Camera       *CameraSelection
}

type CameraSelection struct {
	Set    string
	Camera string
}

func (c *FocusChange) Fields() []Field {
	fields := []Field{
		tagField(CmdChangeFocus),
		{Kind: Int32, Value: c.ConnectionID},
	}

	if c.CarIndex != nil {
		fields = append(fields,
			Field{Kind: Bool, Value: true},
			Field{Kind: Uint16, Value: *c.CarIndex})
	} else {
		fields = append(fields, Field{Kind: Bool, Value: false})
	}

	if c.Camera != nil {
		fields = append(fields,
			Field{Kind: Bool, Value: true},
			Field{Kind: Text, Value: c.Camera.Set},
			Field{Kind: Text, Value: c.Camera.Camera})
	} else {
		fields = append(fields, Field{Kind: Bool, Value: false})
	}

	return fields
}

func (c *FocusChange) Marshal() ([]byte, error) { return marshal(c) }

// InstantReplayRequest asks the server to play back a window of the session.
// A CarIndex of -1 and empty camera names keep the current selection.
type InstantReplayRequest struct {
	ConnectionID int32
	StartTime    float32
	DurationMs   float32
	CarIndex     int32
	CameraSet    string
	Camera       string
}

func (c *InstantReplayRequest) Fields() []Field {
	return []Field{
		tagField(CmdInstantReplay),
		{Kind: Int32, Value: c.ConnectionID},
		{Kind: Float32, Value: c.StartTime},
		{Kind: Float32, Value: c.DurationMs},
		{Kind: Int32, Value: c.CarIndex},
		{Kind: Text, Value: c.CameraSet},
		{Kind: Text, Value: c.Camera},
	}
}

func (c *InstantReplayRequest) Marshal() ([]byte, error) { return marshal(c) }

type HUDPageChange struct {
	ConnectionID int32
	Page         string
}

func (c *HUDPageChange) Fields() []Field {
	return []Field{
		tagField(CmdChangeHUDPage),
		{Kind: Int32, Value: c.ConnectionID},
		{Kind: Text, Value: c.Page},
	}
}

func (c *HUDPageChange) Marshal() ([]byte, error) { return marshal(c) }

var _ Command = (*RegisterCommand)(nil)
var _ Command = (*UnregisterCommand)(nil)
var _ Command = (*EntryListRequest)(nil)
var _ Command = (*TrackDataRequest)(nil)
var _ Command = (*FocusChange)(nil)
var _ Command = (*InstantReplayRequest)(nil)
var _ Command = (*HUDPageChange)(nil)
