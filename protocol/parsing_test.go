package protocol_test

import (
	"bufio"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/luma/heosbridge/protocol"
)

var _ = Describe("Parsing", func() {
	Describe("DecodeAttributes()", func() {
		It("splits on & and then on =", func() {
			Expect(protocol.DecodeAttributes("a=1&b=2&c=")).To(Equal(protocol.Attributes{
				"a": "1",
				"b": "2",
				"c": "",
			}))
		})

		It("keeps keys that have no value", func() {
			attrs := protocol.DecodeAttributes("signed_in&un=someone@example.com")
			Expect(attrs.Has("signed_in")).To(BeTrue())
			Expect(attrs.Get("signed_in")).To(Equal(""))
			Expect(attrs.Get("un")).To(Equal("someone@example.com"))
		})

		It("only splits on the first =", func() {
			Expect(protocol.DecodeAttributes("text=a=b")).To(Equal(protocol.Attributes{"text": "a=b"}))
		})

		It("skips empty segments", func() {
			Expect(protocol.DecodeAttributes("&a=1&&")).To(Equal(protocol.Attributes{"a": "1"}))
			Expect(protocol.DecodeAttributes("")).To(BeEmpty())
		})

		It("unescapes reserved characters", func() {
			attrs := protocol.DecodeAttributes("name=Rock%20%26%20Roll%3D100%25")
			Expect(attrs.Get("name")).To(Equal("Rock%20&%20Roll=100%"))
		})
	})

	Describe("Decode()", func() {
		It("decodes a successful response", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"player/get_play_state","result":"success","message":"pid=1&state=play"}}` + "\r\n"))
			Expect(err).To(Succeed())
			Expect(msg.Result).To(Equal(protocol.ResultSuccess))
			Expect(msg.Group).To(Equal(protocol.GroupPlayer))
			Expect(msg.Name).To(Equal("get_play_state"))
			Expect(msg.Attributes).To(Equal(protocol.Attributes{"pid": "1", "state": "play"}))
			Expect(msg.PID()).To(Equal("1"))
			Expect(msg.ErrorOrNil()).To(Succeed())
		})

		It("decodes events without a result as successes", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"event/player_volume_changed","message":"pid=1&level=40&mute=off"}}`))
			Expect(err).To(Succeed())
			Expect(msg.IsEvent()).To(BeTrue())
			Expect(msg.Failed()).To(BeFalse())
			Expect(msg.Attributes).To(Equal(protocol.Attributes{"pid": "1", "level": "40", "mute": "off"}))
		})

		It("extracts the error code and message of failures", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"browse/browse","result":"fail","message":"eid=2&text=ID Not Valid"}}`))
			Expect(err).To(Succeed())
			Expect(msg.Failed()).To(BeTrue())
			Expect(msg.ErrorCode).To(Equal("2"))
			Expect(msg.ErrorMessage).To(Equal("ID Not Valid"))

			var protoErr *protocol.ProtocolError
			Expect(errors.As(msg.ErrorOrNil(), &protoErr)).To(BeTrue())
			Expect(protoErr.Code).To(Equal("2"))
			Expect(protoErr.Name).To(Equal("browse"))
		})

		It("turns 'command under process' into the under_process flag", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"system/sign_in","result":"success","message":"command under process"}}`))
			Expect(err).To(Succeed())
			Expect(msg.Attributes).To(Equal(protocol.Attributes{"under_process": "true"}))
		})

		It("decodes a payload array into ordered records", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"player/get_players","result":"success","message":""},` +
				`"payload":[{"name":"Kitchen","pid":1,"model":"HEOS 1"},{"name":"Den","pid":-2,"model":"HEOS 3"}]}`))
			Expect(err).To(Succeed())
			Expect(msg.Attributes).To(BeEmpty())
			Expect(msg.Payload).To(Equal([]protocol.Attributes{
				{"name": "Kitchen", "pid": "1", "model": "HEOS 1"},
				{"name": "Den", "pid": "-2", "model": "HEOS 3"},
			}))
		})

		It("decodes a payload object into a single record", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"player/get_now_playing_media","result":"success","message":"pid=1"},` +
				`"payload":{"song":"Song","artist":"Artist","album":null}}`))
			Expect(err).To(Succeed())
			Expect(msg.Payload).To(Equal([]protocol.Attributes{
				{"song": "Song", "artist": "Artist", "album": ""},
			}))
		})

		It("keeps nested payload values as raw JSON", func() {
			msg, err := protocol.Decode([]byte(`{"heos":{"command":"group/get_groups","result":"success","message":""},` +
				`"payload":[{"name":"Downstairs","gid":"1","players":[{"name":"Kitchen","pid":"1","role":"leader"}]}]}`))
			Expect(err).To(Succeed())
			Expect(msg.Payload).To(HaveLen(1))
			Expect(msg.Payload[0].Get("players")).To(MatchJSON(`[{"name":"Kitchen","pid":"1","role":"leader"}]`))
		})

		DescribeTable("rejects structurally invalid lines with a ParseError",
			func(line string, expected error) {
				_, err := protocol.Decode([]byte(line))

				var parseErr *protocol.ParseError
				Expect(errors.As(err, &parseErr)).To(BeTrue())
				Expect(errors.Is(err, expected)).To(BeTrue())
			},
			Entry("empty line", "\r\n", protocol.ErrEmptyLine),
			Entry("not JSON", "I am not JSON", protocol.ErrInvalidJSON),
			Entry("no envelope", `{"command":"player/get_players"}`, protocol.ErrMissingEnvelope),
			Entry("no separator", `{"heos":{"command":"get_players","result":"success"}}`, protocol.ErrMalformedCommand),
			Entry("empty name", `{"heos":{"command":"player/","result":"success"}}`, protocol.ErrMalformedCommand),
			Entry("unknown result", `{"heos":{"command":"player/get_players","result":"maybe"}}`, protocol.ErrUnknownResult),
		)
	})

	Describe("ReadMessage()", func() {
		It("reads consecutive messages from the same reader", func() {
			r := bufio.NewReader(strings.NewReader(
				`{"heos":{"command":"system/heart_beat","result":"success","message":""}}` + "\r\n" +
					`{"heos":{"command":"event/groups_changed"}}` + "\r\n"))

			first, err := protocol.ReadMessage(r)
			Expect(err).To(Succeed())
			Expect(first.ID()).To(Equal("system/heart_beat"))

			second, err := protocol.ReadMessage(r)
			Expect(err).To(Succeed())
			Expect(second.ID()).To(Equal("event/groups_changed"))

			_, err = protocol.ReadMessage(r)
			Expect(err).To(MatchError(io.EOF))
		})

		It("returns an I/O error, not a ParseError, when the line is incomplete", func() {
			r := bufio.NewReader(strings.NewReader(`{"heos":{"command"`))
			_, err := protocol.ReadMessage(r)

			var parseErr *protocol.ParseError
			Expect(errors.As(err, &parseErr)).To(BeFalse())
			Expect(err).To(MatchError(io.EOF))
		})
	})

	Describe("ParseCommand()", func() {
		It("parses a command with parameters", func() {
			cmd, err := protocol.ParseCommand([]byte("heos://player/set_volume?pid=1&level=40\r\n"))
			Expect(err).To(Succeed())
			Expect(cmd.Group).To(Equal(protocol.GroupPlayer))
			Expect(cmd.Name).To(Equal("set_volume"))
			Expect(cmd.Params).To(Equal([]protocol.Param{{Key: "pid", Value: "1"}, {Key: "level", Value: "40"}}))
		})

		It("parses a command without parameters", func() {
			cmd, err := protocol.ParseCommand([]byte("heos://system/heart_beat\r\n"))
			Expect(err).To(Succeed())
			Expect(cmd.ID()).To(Equal("system/heart_beat"))
			Expect(cmd.Params).To(BeEmpty())
		})

		It("returns an error if the scheme is missing", func() {
			_, err := protocol.ParseCommand([]byte("player/get_players\r\n"))
			Expect(errors.Is(err, protocol.ErrMissingScheme)).To(BeTrue())
		})
	})

	Describe("RemoveTrailingCR()", func() {
		It("does nothing if the data does not end in CR", func() {
			data := []byte("I am awesome data")
			Expect(protocol.RemoveTrailingCR(data)).To(Equal(data))
		})

		It("removes the trailling CRLF", func() {
			input := []byte("I am awesome data\r\n")
			output := []byte("I am awesome data")
			Expect(protocol.RemoveTrailingCR(input)).To(Equal(output))
		})

		It("copes with empty data", func() {
			Expect(protocol.RemoveTrailingCR([]byte{})).To(BeEmpty())
		})
	})
})
