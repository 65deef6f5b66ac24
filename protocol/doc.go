package protocol

// This package implements decoding and encoding of the broadcasting protocol
// that a racing simulator speaks to its observers over UDP.
//
// - `Message` - A record pushed by the simulator to the client.
// - `Command` - An instruction sent by the client to the simulator.
// - `Decoder` - Reads fields off a `Source` one at a time.
// - `Encode`  - Serialises an ordered list of `Field`s.
//
// === General Syntax
//
// - every message starts with a single tag byte
// - all numbers are little-endian
// - text is a uint16 byte length followed by that many UTF-8 bytes, an
//   empty string is just the zero length
// - collections are prefixed with their element count (uint8 or uint16)
//
// There are no length prefixes on records and no delimiters between them. A
// decoder knows how far to read only by following the record's schema field
// by field, so every decoder must consume exactly the bytes its schema
// describes or the next record will be read from the wrong offset.
//
// === Inbound messages
//
//   1 RegistrationResult   i32 connectionId, bool success, bool writable, text error
//   2 RealtimeUpdate       u16 eventIndex, u16 sessionIndex, u8 type, u8 phase,
//                          f32 sessionTime, f32 sessionEndTime, i32 focusedCar,
//                          text cameraSet, text camera, text hudPage,
//                          bool replaying [f32 replayTime, f32 replayRemaining],
//                          f32 timeOfDay (seconds), u8 ambient, u8 track,
//                          u8 clouds, u8 rain, u8 wetness, Lap best
//   3 RealtimeCarUpdate    u16 car, u16 driver, u8 driverCount, u8 gear,
//                          f32 x, f32 y, f32 yaw, u8 location, u16 kmh,
//                          u16 position, u16 cupPosition, u16 trackPosition,
//                          f32 spline, u16 laps, i32 delta,
//                          Lap best, Lap last, Lap current
//   4 EntryList            i32 connectionId, u16 count, u16 carIndex * count
//   5 TrackData            i32 connectionId, text name, i32 id, i32 meters,
//                          u8 sets, (text set, u8 n, text camera * n) * sets,
//                          u8 pages, text page * pages
//   6 EntryListCar         u16 car, u8 model, text team, i32 raceNumber,
//                          u8 cup, u8 currentDriver, u16 nationality,
//                          u8 drivers, Driver * drivers
//   7 BroadcastingEvent    u8 type, text message, i32 time, i32 car
//
//   Lap     i32 lapTime, u16 car, u16 driver, u8 n, i32 split * n,
//           bool invalid, bool validForBest, bool outlap, bool inlap
//   Driver  text first, text last, text short, u8 category, u16 nationality
//
// === Outbound commands
//
//   1  register          u8 version, text name, text password, i32 interval, text commandPassword
//   9  unregister
//   10 entry list        i32 connectionId
//   11 track data        i32 connectionId
//   49 hud page          i32 connectionId, text page
//   50 focus             i32 connectionId, bool hasCar [u16 car], bool hasCamera [text set, text camera]
//   51 instant replay    i32 connectionId, f32 start, f32 duration, i32 car, text set, text camera
//
// Tags 52 and 60 are reserved for replay highlights and are not sent.
//
// Scaling (seconds to milliseconds, tenths to fractions, the gear offset) is
// done by the record decoders in catalog.go, never by the Decoder itself.
