// Package password hashes and verifies user passwords with Argon2id.
//
// Hashes use the PHC string format, so the salt and cost parameters travel
// inside the stored value and old hashes keep verifying after a cost change.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
// - Hasher bounds how many Argon2id computations run at once; each one holds
//   MemoryKiB of RAM for its duration.
package password
