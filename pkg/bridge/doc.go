// Package bridge forwards validated payloads to the backend over HTTP.
//
// The backend trusts the gateway: only payloads that passed every
// validation check are forwarded, verbatim. Transport failures and
// non-2xx statuses are distinguished - a non-2xx response is still a
// successful bridging (the device observes the backend's error), whereas
// a transport failure means the payload never arrived.
package bridge
