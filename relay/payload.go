package relay

import (
	"time"

	"github.com/tidwall/sjson"

	"github.com/luma/heosbridge/events"
)

// Notification kinds as published in the "kind" field.
const (
	KindPlayerState = "player_state"
	KindPlayerMedia = "player_media"
	KindBridge      = "bridge"
)

type field struct {
	path  string
	value interface{}
}

func encodeStateChange(instance string, at time.Time, pid, attribute, value string) ([]byte, error) {
	return encode(instance, at, KindPlayerState,
		field{"pid", pid},
		field{"attribute", attribute},
		field{"value", value})
}

func encodeMediaChange(instance string, at time.Time, pid string, media map[string]string) ([]byte, error) {
	if media == nil {
		media = map[string]string{}
	}

	return encode(instance, at, KindPlayerMedia,
		field{"pid", pid},
		field{"media", media})
}

func encodeBridgeEvent(instance string, at time.Time, ev events.BridgeEvent) ([]byte, error) {
	fields := []field{
		{"type", ev.Type},
		{"result", ev.Result},
		{"command", ev.Command},
	}

	if ev.Failed() {
		fields = append(fields,
			field{"error.code", ev.ErrorCode},
			field{"error.message", ev.ErrorMessage})
	}

	return encode(instance, at, KindBridge, fields...)
}

func encode(instance string, at time.Time, kind string, fields ...field) (doc []byte, err error) {
	doc = []byte(`{}`)

	header := []field{
		{"instance", instance},
		{"time", at.UTC().Format(time.RFC3339Nano)},
		{"kind", kind},
	}

	for _, f := range append(header, fields...) {
		if doc, err = sjson.SetBytes(doc, f.path, f.value); err != nil {
			return nil, err
		}
	}

	return doc, nil
}
