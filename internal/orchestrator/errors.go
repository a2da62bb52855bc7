package orchestrator

import "fmt"

// ChannelClosed indicates a send on one of the orchestrator's channels was
// abandoned because the orchestrator has quit. SubmitModification returns
// it; the connection handler that gets it stops reading from its client.
type ChannelClosed struct {
	Channel string
}

func (e *ChannelClosed) Error() string {
	return fmt.Sprintf("orchestrator: %s channel closed unexpectedly", e.Channel)
}
