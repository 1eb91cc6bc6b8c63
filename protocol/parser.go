package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// underProcessToken is sent as the whole body while the cluster is still
// working on a command (sign_in does this before the final response).
const underProcessToken = "command under process"

var unescaper = strings.NewReplacer("%26", "&", "%3D", "=", "%25", "%")

// ReadMessage reads one line from the provided Reader and decodes it.
//
// I/O errors are returned as is, decoding failures as *ParseError so the
// caller can tell a broken connection from a single bad line.
func ReadMessage(r *bufio.Reader) (*Message, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	return Decode(line)
}

// Decode parses one line received from the cluster.
//
//   {"heos":{"command":"player/get_play_state","result":"success","message":"pid=1&state=play"}}
//
// Events carry no result and decode as successes.
func Decode(line []byte) (*Message, error) {
	data := bytes.TrimSpace(line)
	if len(data) == 0 {
		return nil, newParseError(line, ErrEmptyLine)
	}

	if !gjson.ValidBytes(data) {
		return nil, newParseError(line, ErrInvalidJSON)
	}

	envelope := gjson.GetBytes(data, "heos")
	if !envelope.IsObject() {
		return nil, newParseError(line, ErrMissingEnvelope)
	}

	group, name, err := splitCommandID(envelope.Get("command").String())
	if err != nil {
		return nil, newParseError(line, err)
	}

	msg := &Message{
		Result: ResultSuccess,
		Group:  group,
		Name:   name,
		Raw:    data,
	}

	if result := envelope.Get("result"); result.Exists() {
		switch r := Result(result.String()); r {
		case ResultSuccess, ResultFail:
			msg.Result = r

		default:
			return nil, newParseError(line, fmt.Errorf("%w: '%s'", ErrUnknownResult, r))
		}
	}

	msg.Attributes = DecodeAttributes(envelope.Get("message").String())

	if msg.Attributes.Has(underProcessToken) {
		delete(msg.Attributes, underProcessToken)
		msg.Attributes[KeyUnderProcess] = "true"
	}

	if msg.Failed() {
		msg.ErrorCode = msg.Attributes.Get(KeyErrorID)
		msg.ErrorMessage = msg.Attributes.Get(KeyErrorText)
	}

	msg.Payload = decodePayload(gjson.GetBytes(data, "payload"))

	return msg, nil
}

// DecodeAttributes splits a message body on '&' and then on the first '='.
// A key without '=' maps to "".
func DecodeAttributes(body string) Attributes {
	attrs := make(Attributes)

	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		attrs[unescaper.Replace(key)] = unescaper.Replace(value)
	}

	return attrs
}

// decodePayload turns a payload array (or a single payload object) into
// ordered records. Nested arrays and objects are kept as raw JSON.
func decodePayload(payload gjson.Result) []Attributes {
	switch {
	case payload.IsArray():
		records := make([]Attributes, 0)
		payload.ForEach(func(_, item gjson.Result) bool {
			if item.IsObject() {
				records = append(records, flatten(item))
			}
			return true
		})
		return records

	case payload.IsObject():
		return []Attributes{flatten(payload)}

	default:
		return nil
	}
}

func flatten(object gjson.Result) Attributes {
	attrs := make(Attributes)

	object.ForEach(func(key, value gjson.Result) bool {
		if value.IsArray() || value.IsObject() {
			attrs[key.String()] = value.Raw
		} else {
			attrs[key.String()] = value.String()
		}
		return true
	})

	return attrs
}

// ReadCommand reads one command line from the provided Reader. It is the
// server side counterpart of WriteCommand.
func ReadCommand(r *bufio.Reader) (Command, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return Command{}, err
	}

	return ParseCommand(line)
}

// ParseCommand parses "heos://<group>/<name>?k=v&k=v".
func ParseCommand(line []byte) (Command, error) {
	raw := strings.TrimSpace(string(line))
	if raw == "" {
		return Command{}, newParseError(line, ErrEmptyLine)
	}

	if !strings.HasPrefix(raw, Scheme) {
		return Command{}, newParseError(line, ErrMissingScheme)
	}

	id, query, _ := strings.Cut(raw[len(Scheme):], "?")

	group, name, err := splitCommandID(id)
	if err != nil {
		return Command{}, newParseError(line, err)
	}

	cmd := Command{Group: group, Name: name}

	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		cmd.Params = append(cmd.Params, Param{
			Key:   unescaper.Replace(key),
			Value: unescaper.Replace(value),
		})
	}

	return cmd, nil
}

func splitCommandID(id string) (Group, string, error) {
	group, name, ok := strings.Cut(id, "/")
	if !ok || group == "" || name == "" {
		return "", "", fmt.Errorf("%w: '%s'", ErrMalformedCommand, id)
	}

	return Group(group), name, nil
}

func RemoveTrailingCR(data []byte) []byte {
	data = bytes.TrimSuffix(data, []byte("\n"))

	if len(data) > 0 && data[len(data)-1] == '\r' {
		// Remove the optional trailing \r
		return data[:len(data)-1]
	}

	return data
}
