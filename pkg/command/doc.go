// Package command exposes the backend-facing HTTP surface for pushing
// signed commands to devices.
//
// POST /command/{device_id} with a bearer token and a JSON object body
// produces a signed command on device/{device_id}/command. The command's
// signed region is decimal(timestamp) || message_id || payload - unlike
// data messages it omits the device identifier, which the receiving
// device supplies implicitly from its own configuration.
package command
