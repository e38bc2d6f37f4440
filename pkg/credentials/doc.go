// Package credentials resolves device identifiers to their shared HMAC
// secrets.
//
// Records are loaded once at startup from the devices table and held
// immutably for the process lifetime; dynamic reload is out of scope.
// The secret is used as a MAC key, never compared directly, so lookups
// need no constant-time handling.
package credentials
