package dispatch

import (
	"fmt"
)

// FaultHandler is called on the worker goroutine when an asynchronous
// operation panics. It receives the recovered value. If it returns, the call
// is abandoned and nothing is posted for it.
type FaultHandler func(op string, recovered interface{})

// Fault is the outcome of an operation that panicked on a worker
type Fault struct {
	Op        string
	Recovered interface{}
}

func (f *Fault) Error() string {
	return fmt.Sprintf("operation %s panicked: %v", f.Op, f.Recovered)
}

// RepanicFault is the default FaultHandler. Re-panicking on the worker
// goroutine terminates the process, as an unhandled native fault would.
func RepanicFault(_ string, recovered interface{}) {
	panic(recovered)
}
