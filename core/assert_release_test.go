//go:build !forkjoindebug

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelease_DebugChecksCompiledOut(t *testing.T) {
	require.False(t, assertionsEnabled)

	n := newNode[item](4, 0)
	require.NotPanics(t, n.returnStolen)

	s, err := NewScheduler[tree](flatConfig(1))
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	w := s.eng.workers[0]
	pushLevel(w.chain.at(2), 2, 1)
	var reused slot[tree]
	require.NotPanics(t, func() { w.execute(&reused, 2) })
}
