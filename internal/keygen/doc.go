// Package keygen creates SSH keypairs for gitacct accounts.
//
// Keys are generated by the system ssh-keygen through an exec.Runner so the
// process invocation can be faked in tests and bounded by a timeout.
//
// # Naming
//
// The key file name is derived from the account name and email:
//
//	id_<type>_<name>_<email>
//
// where every character outside [a-z0-9] is replaced by an underscore, e.g.
// "Work" / "w@x.com" becomes id_ed25519_work_w_x_com.
//
// # Collisions
//
// Generate never overwrites. If the private or public file already exists
// it fails with KEY_COLLISION before ssh-keygen runs, so ssh-keygen's
// interactive "Overwrite (y/n)?" prompt can't hang the process.
//
// # Failure cleanup
//
// On non-zero exit, missing binary, or timeout any file ssh-keygen managed
// to write is removed. Timeouts are reported as KEYGEN_TIMEOUT, all other
// ssh-keygen failures as KEYGEN with the tool's stderr in the message.
//
// # Security Notes
//
// Private keys are chmod 0600 and the key directory is created 0700. The
// package never logs private key contents. A passphrase, when given, is
// passed on the ssh-keygen command line.
package keygen
