// Package authz stores per-user privileges and answers privilege checks.
//
// Privileges are kept one row per (action, resource, resource id) grant. A check narrows
// the candidates in the store and then applies privilege.Satisfy, so the store filter may
// over-approximate but never drop a privilege that could satisfy the requirement.
package authz
