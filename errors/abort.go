package errors

import "fmt"

// FatalCode identifies the class of a fatal, process-terminating
// failure.
type FatalCode uint32

// FatalExecutionEngine is the code reported for detected managed heap
// corruption and other unrecoverable engine failures.
const FatalExecutionEngine FatalCode = 0x80131506

// Abort is the outcome of a detected-corruption failure. It is
// deliberately not an ordinary error value: corruption is never
// recovered and continued, so Abort travels on its own channel.
// Production runtimes terminate before an Abort is ever observed; a
// caller that does receive one (a test double's Terminate returned)
// must still treat the process as ending.
type Abort struct {
	Code    FatalCode
	Message string
}

// String returns the fatal diagnostic.
func (a *Abort) String() string {
	return fmt.Sprintf("fatal %#x: %s", uint32(a.Code), a.Message)
}
