//go:build !forkjoindebug

package core

// assertionsEnabled turns on the checks that cost atomic loads on every
// task. Build with -tags forkjoindebug to enable them.
const assertionsEnabled = false
