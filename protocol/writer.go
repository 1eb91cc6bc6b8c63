package protocol

import (
	"bytes"
	"io"
	"strings"
)

// Scheme prefixes every command sent to the cluster.
const Scheme = "heos://"

var (
	Terminal = []byte("\r\n")

	escaper = strings.NewReplacer("%", "%25", "&", "%26", "=", "%3D")
)

// Encode builds the wire form of a command, terminal included.
func Encode(group Group, name string, params ...Param) []byte {
	var b bytes.Buffer

	b.WriteString(Scheme)
	b.WriteString(string(group))
	b.WriteByte('/')
	b.WriteString(name)

	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(EncodeAttributes(params...))
	}

	b.Write(Terminal)

	return b.Bytes()
}

// EncodeAttributes joins params into a "k=v&k=v" body, escaping the
// characters that would break decoding.
func EncodeAttributes(params ...Param) string {
	pairs := make([]string, 0, len(params))

	for _, p := range params {
		pairs = append(pairs, escaper.Replace(p.Key)+"="+escaper.Replace(p.Value))
	}

	return strings.Join(pairs, "&")
}

func WriteCommand(w io.Writer, cmd Command) error {
	_, err := w.Write(Encode(cmd.Group, cmd.Name, cmd.Params...))
	return err
}
