package mqtt

import (
	"strconv"
	"strings"
)

// Topics builds the controller's topic hierarchy under a prefix:
//
//	<prefix>/command            JSON commands in
//	<prefix>/reply              command replies out
//	<prefix>/state/<id>         retained device state
//	<prefix>/emitter/<index>/ir pulse programs for remote emitters
//	<prefix>/status             retained online/offline status
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix. Trailing slashes are dropped.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.TrimRight(prefix, "/")}
}

func (t Topics) Command() string { return t.prefix + "/command" }

func (t Topics) Reply() string { return t.prefix + "/reply" }

func (t Topics) Status() string { return t.prefix + "/status" }

// State returns the retained state topic of one device.
func (t Topics) State(deviceID string) string {
	return t.prefix + "/state/" + deviceID
}

// AllStates matches every device state topic.
func (t Topics) AllStates() string {
	return t.prefix + "/state/+"
}

// Emitter returns the topic a remote emitter listens on.
func (t Topics) Emitter(index int) string {
	return t.prefix + "/emitter/" + strconv.Itoa(index) + "/ir"
}
