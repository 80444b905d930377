//go:build forkjoindebug

package core

const assertionsEnabled = true
