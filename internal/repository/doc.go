// Package repository defines the session archive.
//
// An Archive keeps copies of exported node-link documents so past analysis
// sessions can be listed and reloaded. The sqlite subpackage implements it
// on a single SQLite file (or ":memory:" in tests).
package repository
