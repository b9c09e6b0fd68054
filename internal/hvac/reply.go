package hvac

// StateMessage is the wire form of one device state. It is both the body
// of get and send replies and the notification pushed to observers.
type StateMessage struct {
	Type        string  `json:"type"`
	ID          string  `json:"id"`
	Power       string  `json:"power"`
	Mode        Mode    `json:"mode"`
	Setpoint    float64 `json:"setpoint"`
	CurrentTemp float64 `json:"current_temp"`
	Fan         Fan     `json:"fan"`
	Light       string  `json:"light"`
}

// EmitterInfo describes one emitter in a list reply.
type EmitterInfo struct {
	Index int `json:"index"`
	GPIO  int `json:"gpio"`
}

// DeviceInfo describes one device in a list reply.
type DeviceInfo struct {
	ID       string `json:"id"`
	Protocol string `json:"protocol"`
	Emitter  int    `json:"emitter"`
	Model    int    `json:"model"`
	Custom   bool   `json:"custom"`
}

// ListResult is the body of a list reply.
type ListResult struct {
	Emitters []EmitterInfo `json:"emitters"`
	HVACs    []DeviceInfo  `json:"hvacs"`
}

// StatesResult is the body of a get_all reply.
type StatesResult struct {
	States []StateMessage `json:"states"`
}

// HelpInfo is the body of a help reply.
type HelpInfo struct {
	Commands []string `json:"commands"`
	Examples []string `json:"examples"`
}

// Reply is the response to one Command. At most one of the embedded
// results is set; its fields are flattened into the JSON object.
type Reply struct {
	OK    bool      `json:"ok"`
	Error ErrorCode `json:"error,omitempty"`

	*StateMessage
	*ListResult
	*StatesResult
	Help *HelpInfo `json:"help,omitempty"`
}

// ErrorReply returns a failed Reply carrying code.
func ErrorReply(code ErrorCode) Reply {
	return Reply{OK: false, Error: code}
}

var helpInfo = HelpInfo{
	Commands: []string{"list", "send", "get", "get_all", "raw", "help"},
	Examples: []string{
		`{"cmd":"list"}`,
		`{"cmd":"send","id":"lounge","power":"on","mode":"cool","temp":22,"fan":"auto"}`,
		`{"cmd":"get","id":"lounge"}`,
		`{"cmd":"get_all"}`,
		`{"cmd":"raw","emitter":0,"encoding":"pronto","code":"0000 006D ..."}`,
	},
}
