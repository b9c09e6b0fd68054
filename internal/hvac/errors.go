package hvac

import "errors"

// Registry construction errors.
var (
	ErrEmptyID        = errors.New("hvac: device id is empty")
	ErrDuplicateID    = errors.New("hvac: duplicate device id")
	ErrUnboundEmitter = errors.New("hvac: device bound to missing emitter")
	ErrTooManyDevices = errors.New("hvac: too many devices")
	ErrInvalidCustom  = errors.New("hvac: invalid custom codes")
)

// ErrInvalidJSON is returned by Decode for payloads that are not a JSON object.
var ErrInvalidJSON = errors.New("hvac: invalid command json")

// ErrLoopStopped is returned by Loop.Do once the loop has exited.
var ErrLoopStopped = errors.New("hvac: control loop stopped")

// ErrorCode is the machine-readable failure reported in a Reply.
type ErrorCode string

const (
	CodeInvalidJSON         ErrorCode = "invalid_json"
	CodeMissingID           ErrorCode = "missing_id"
	CodeUnknownID           ErrorCode = "unknown_id"
	CodeInvalidEmitter      ErrorCode = "invalid_emitter"
	CodeUnsupportedProtocol ErrorCode = "unsupported_protocol"
	CodeMissingCustomOff    ErrorCode = "missing_custom_off"
	CodeMissingTempCode     ErrorCode = "missing_temp_code"
	CodeMissingCode         ErrorCode = "missing_code"
	CodeSendFailed          ErrorCode = "send_failed"
	CodeUnknownCmd          ErrorCode = "unknown_cmd"
)
