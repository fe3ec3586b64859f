// Package pam integrates TOTP second-factor verification with a host
// authentication stack.
//
// SecondFactor is the piece a PAM deployment calls per attempt: it loads
// the principal's secret, prompts through a Conversation, and verifies the
// code with cross-process replay protection. FirstFactor drives the host
// PAM stack for the password leg, so a full two-factor login is:
//
//	first, err := pam.NewFirstFactor("login", nil)
//	// ...
//	second, err := pam.NewSecondFactor(pam.SecondFactorConfig{
//	    Store:        store,
//	    Verifier:     verifier,
//	    Conversation: pam.NewTerminalConversation(),
//	})
//	// ...
//	if err := first.Authenticate(ctx, user, password); err != nil {
//	    return err
//	}
//	return second.Authenticate(ctx, user)
//
// FirstFactor requires a cgo build with libpam; SecondFactor does not.
package pam
