// Package otp implements TOTP (RFC 6238) and HOTP (RFC 4226) code
// generation and verification for second-factor authentication.
//
// Unlike wrapper libraries, the verifier exposes the properties a PAM-style
// integration needs: the time window is always scanned in full, candidate
// comparison is constant time, and a matched counter can be atomically
// consumed through a ReplayGuard so the same code is never accepted twice
// for a principal, even when attempts run in separate processes.
//
// # Verifying a code
//
//	guard, err := replay.NewFileGuard("/var/lib/pam-totp/used", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	verifier, err := otp.NewVerifier(otp.VerifierConfig{
//	    Digits:    6,
//	    Period:    30,
//	    Algorithm: otp.AlgorithmSHA1,
//	    Window:    1, // tolerate one period of clock skew
//	    Guard:     guard,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ok := verifier.Verify(ctx, "123456", secret, time.Now(), "alice")
//
// Verify returns a bare boolean: wrong codes, replays, and replay-store
// failures are indistinguishable to the caller. Operator diagnostics go
// to the optional Logger instead.
//
// # Enrollment
//
//	secret, err := otp.GenerateSecret(0)
//	if err != nil {
//	    log.Fatal(err) // fatal: never fall back to a weak secret
//	}
//	defer otp.Zero(secret)
//
//	key := otp.Key{Issuer: "ExampleApp", AccountName: "alice", Secret: secret}
//	uri := key.URI() // render as a QR code for the authenticator app
//
// # Hash algorithms
//
// SHA1 (default), SHA256, and SHA512 are supported. SHA1 remains the
// default because several widely used authenticator apps ignore the
// algorithm parameter and assume it.
package otp
