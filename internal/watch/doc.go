// Package watch drives texdown's watch mode. It polls a fixed set of
// Markdown files through a [fileobserver.Observer], converts each file whose
// modification time advances, and prints one status line per conversion.
// With Notify enabled, filesystem events on the files' parent directories
// trigger an early, debounced sweep so edits are picked up before the next
// tick.
package watch
