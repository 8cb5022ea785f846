// Package ledger persists entity histories and the policy list journal in
// a single encrypted file.
//
// The file is the JSON-encoded State sealed with XChaCha20-Poly1305:
//
//	"BGL1" | 24-byte nonce | ciphertext
//
// The 32-byte key lives apart from the ledger, in a 0600 key file or an
// environment variable, and is resolved through KeyProviders. Writes go
// to a temporary file that is synced and renamed into place, so a crash
// leaves either the old or the new ledger. No plaintext reaches the disk.
//
// A bid opens a Session with Store.Open and closes it on every exit path;
// Close always re-encrypts. FlushScheduler re-encrypts long-lived
// sessions on a cron schedule.
package ledger
