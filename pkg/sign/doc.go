// Package sign computes and verifies message signatures.
//
// Signatures are HMAC-SHA256 over the signed region defined in package
// wire, transmitted as lowercase hex. Verification is constant-time.
// The package also defines the Clock abstraction used for freshness
// checks, so tests can pin time.
package sign
