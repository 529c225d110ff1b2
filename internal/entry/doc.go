// Package entry defines the queued-action data model: the Entry type,
// key derivation, content hashing, and the on-disk artifact codec.
//
// Every other internal package that touches actions imports entry;
// entry itself imports only envsnap. This keeps the data model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Keys are byte-exact: no case folding, no unicode normalization.
//   - Identity never includes the captured environment. A path-derived
//     key is the munged resolved path; a stdin-derived key is the digest
//     of the payload bytes alone. The environment is stored on the entry
//     for execution but excluded from identity, so identical work dedups
//     regardless of where it was submitted from.
//   - The artifact format is self-contained: executing an entry needs
//     nothing outside the entry file plus, for file-kind entries, the
//     referenced executable.
package entry
