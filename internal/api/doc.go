// Package api provides the HTTP glue around the command processor.
//
// It serves the test forms (/hvacs/test, /raw/test), a JSON command endpoint,
// read-only views of state, configuration, state history and the command
// audit log, Prometheus metrics, and a WebSocket that pushes every material
// state change to browser observers. Captive-portal detection URLs are answered
// so phones joining the controller's network open the UI.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Every command goes through hvac.Engine, so web requests are serialised
// with line and MQTT commands on the control loop.
package api
