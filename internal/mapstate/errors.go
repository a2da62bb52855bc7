package mapstate

import "fmt"

// BadImage indicates a PNG could not be loaded or saved as a map state
// buffer: wrong dimensions, wrong color model, or a codec failure.
type BadImage struct {
	Cause error
}

func (e *BadImage) Error() string {
	return fmt.Sprintf("mapstate: bad image: %v", e.Cause)
}

func (e *BadImage) Unwrap() error { return e.Cause }
