// Package auth guards the web glue with a single shared credential.
//
// The controller has one account, "admin". Its password is configured either
// in plain text or as an Argon2id PHC string; the hash form is preferred so
// the config file never holds the secret. Verifier checks HTTP basic auth
// credentials against whichever form is configured.
package auth
