package protocol

// This package implements encoding and decoding for the control protocol
// spoken by a HEOS device cluster on TCP port 1255.
//
// - `Command` - A client instruction to the cluster.
// - `Message` - One decoded line from the cluster. Either a response to a
//               command or an event.
// - `Event`   - A change notification pushed by the cluster without being
//               asked. Only sent after `system/register_for_change_events`.
//
// === General Syntax
//
// - lines are `\r\n` delimited
// - commands are URLs of the form `heos://<group>/<name>?<k>=<v>&<k>=<v>`
// - responses and events are single line JSON objects
// - `&`, `=` and `%` inside values are percent-escaped as `%26`, `%3D`, `%25`
//
// Responses and events interleave freely on the same connection. The wire
// carries no request ids, so a response can only be matched to a command
// through its `<group>/<name>`.
//
// === Responses
//
//   ```
//     > heos://player/get_play_state?pid=1\r\n
//     < {"heos":{"command":"player/get_play_state","result":"success","message":"pid=1&state=play"}}\r\n
//   ```
//
// Some commands return records in a `payload` field, either an array of
// objects or a single object:
//
//   ```
//     > heos://player/get_players\r\n
//     < {"heos":{"command":"player/get_players","result":"success","message":""},
//        "payload":[{"name":"Kitchen","pid":"1","model":"HEOS 1"}]}\r\n
//   ```
//
// === Error responses
//
//   ```
//     < {"heos":{"command":"browse/browse","result":"fail","message":"eid=2&text=ID Not Valid"}}\r\n
//   ```
//
// `eid` is the error code and `text` a human readable message.
//
// === Commands under process
//
// Long running commands (sign_in) are first acknowledged with the body
// `command under process` and answered again once complete. The decoder
// turns that body into the attribute `under_process=true`.
//
// === Events
//
//   ```
//     < {"heos":{"command":"event/player_volume_changed","message":"pid=1&level=40&mute=off"}}\r\n
//   ```
//
// Events have no `result`. They decode as successes with Group "event".
//
