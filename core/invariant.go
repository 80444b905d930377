package core

import "fmt"

// InvariantError reports a broken scheduler contract such as a deque
// overflow or a mailbox written twice. It is raised with panic and never
// handed to a PanicHandler. When it reaches Run, the scheduler is taken out
// of service before the panic continues to the caller.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "forkjoin: invariant violated: " + e.Msg
}

// fatalf panics with an *InvariantError. Used for checks that stay on in
// every build.
func fatalf(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
