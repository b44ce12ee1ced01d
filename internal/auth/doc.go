// Package auth issues and verifies the gateway's identity tokens.
//
// Tokens are HS256 JWTs carrying subject, issued-at, expiry and issuer.
// Verification is pure: no session table, no I/O. A token is accepted only
// when its signature, expiry and issuer all check out; any failure yields an
// *AuthError and never a subject.
//
// Usage:
//
//	svc, err := auth.NewTokenService(cfg.Security.JWT.Secret,
//	    auth.WithIssuer(cfg.Security.JWT.Issuer),
//	    auth.WithValidity(cfg.GetTokenValidity()))
//	tok, _ := svc.Issue("ada")
//	subject, err := svc.Verify(tok.Raw)
package auth
