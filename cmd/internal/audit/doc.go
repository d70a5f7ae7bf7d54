// Package audit records who did what to which resource.
//
// Entries are historical: the acting user's name and identifiers are copied into the
// entry so it stays readable after the account is gone. Raw before/after payloads pass
// through a DataConverter (compression, encryption) on the way into storage and back.
package audit
