// Package password hashes and verifies user passwords and scores their strength.
//
// # Output format
//
// New hashes are argon2id in PHC string form:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher] also verifies two older credential shapes found in migrated user
// directories: bcrypt hashes ($2a$, $2b$, $2y$) and un-hashed legacy plaintext.
// Both report [Hasher.NeedsUpgrade] so the caller can write back an argon2id
// hash after the next successful login.
//
// [Policy] is pure: the same input always yields the same [Result].
//
// This package never stores passwords and never logs plaintext.
package password
