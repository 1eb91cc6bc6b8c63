package protocol

import (
	"strconv"

	"github.com/tidwall/sjson"
)

// These build the lines a cluster sends. The client never needs them, the
// simulator in the transport package does.

// EncodeResponse encodes a successful response to cmd. payload may be nil,
// raw JSON ([]byte) or any value sjson can marshal.
func EncodeResponse(cmd Command, message string, payload interface{}) ([]byte, error) {
	return encodeEnvelope(cmd.ID(), ResultSuccess, message, payload)
}

// EncodeFailure encodes a failed response to cmd with the given error id.
func EncodeFailure(cmd Command, code int, text string) ([]byte, error) {
	message := EncodeAttributes(P(KeyErrorID, strconv.Itoa(code)), P(KeyErrorText, text))
	return encodeEnvelope(cmd.ID(), ResultFail, message, nil)
}

// EncodeEvent encodes an unsolicited change event. Events have no result.
func EncodeEvent(name string, params ...Param) ([]byte, error) {
	return encodeEnvelope(string(GroupEvent)+"/"+name, "", EncodeAttributes(params...), nil)
}

func encodeEnvelope(command string, result Result, message string, payload interface{}) (doc []byte, err error) {
	doc = []byte(`{}`)

	if doc, err = sjson.SetBytes(doc, "heos.command", command); err != nil {
		return nil, err
	}

	if result != "" {
		if doc, err = sjson.SetBytes(doc, "heos.result", string(result)); err != nil {
			return nil, err
		}
	}

	if doc, err = sjson.SetBytes(doc, "heos.message", message); err != nil {
		return nil, err
	}

	switch p := payload.(type) {
	case nil:

	case []byte:
		if doc, err = sjson.SetRawBytes(doc, "payload", p); err != nil {
			return nil, err
		}

	default:
		if doc, err = sjson.SetBytes(doc, "payload", p); err != nil {
			return nil, err
		}
	}

	return append(doc, Terminal...), nil
}
