// Package mqtt provides MQTT connectivity for the IR HVAC controller.
//
// This package manages:
//   - A paho client with auto-reconnect and subscription restoration
//   - Last Will and Testament on <prefix>/status for offline detection
//   - The controller's topic hierarchy (see Topics)
//   - An optional embedded mochi broker for standalone installs
//
// The command bridge subscribes to <prefix>/command and publishes replies and
// retained device state; remote emitters receive pulse programs on
// <prefix>/emitter/<index>/ir.
package mqtt
