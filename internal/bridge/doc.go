// Package bridge connects the command processor to MQTT.
//
// Commands published as JSON on <prefix>/command are executed with the MQTT
// origin and answered on <prefix>/reply; a request_id in the command is
// echoed in the reply. Every material state change is published retained
// on <prefix>/state/<id>, and Start seeds those topics with the current
// snapshot so late subscribers see every device.
package bridge
