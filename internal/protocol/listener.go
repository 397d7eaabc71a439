package protocol

// NopListener implements MessageListener with no-ops. Embed it to handle
// only the callbacks of interest.
type NopListener struct{}

func (NopListener) OnIDShare(string, string) {}
func (NopListener) OnIDRequest() {}
func (NopListener) OnSendRequest(string) {}
func (NopListener) OnSendRequestAccepted(string, int) {}
func (NopListener) OnSendRequestRejected(string) {}
func (NopListener) OnUnknownMessage(string) {}
