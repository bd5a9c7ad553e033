// Package report renders correlation results as a text report and writes
// graph exports.
//
// Every file is written all or nothing: content goes to a temporary file
// in the target directory, which is renamed over the destination only once
// fully written. Failures are returned as *WriteError.
package report
