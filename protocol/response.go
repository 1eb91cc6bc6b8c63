package protocol

// Result is the outcome flag carried by command responses.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFail    Result = "fail"
)

// Attributes is the flat key/value body of a message or of one payload
// record. Keys without a value map to "".
type Attributes map[string]string

// Get returns the value for key, "" when absent.
func (a Attributes) Get(key string) string {
	return a[key]
}

// Has reports whether key is present, even with an empty value.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Message is one decoded line received from the cluster. It is either the
// response to a command sent by this client or an event pushed by the
// cluster (Group == GroupEvent).
type Message struct {
	Result Result
	Group  Group
	Name   string

	Attributes Attributes
	Payload    []Attributes

	// Only meaningful when Result is ResultFail
	ErrorCode    string
	ErrorMessage string

	Raw []byte
}

// ID returns the "group/name" identifier of the message.
func (m *Message) ID() string {
	return string(m.Group) + "/" + m.Name
}

func (m *Message) Failed() bool {
	return m.Result == ResultFail
}

func (m *Message) IsEvent() bool {
	return m.Group == GroupEvent
}

// PID returns the player id the message refers to, if any.
func (m *Message) PID() string {
	return m.Attributes.Get(KeyPID)
}

// GID returns the group id the message refers to, if any.
func (m *Message) GID() string {
	return m.Attributes.Get(KeyGID)
}

// ErrorOrNil returns a *ProtocolError if the message reports a failure.
// Otherwise it returns nil.
func (m *Message) ErrorOrNil() error {
	if !m.Failed() {
		return nil
	}

	return &ProtocolError{
		Group:   m.Group,
		Name:    m.Name,
		Code:    m.ErrorCode,
		Message: m.ErrorMessage,
	}
}
