package protocol

import "strconv"

func NewIDShare(nickName, ipAddress string) IDShare {
	return IDShare{NickName: nickName, IPAddress: ipAddress}
}

func NewIDRequest() IDRequest {
	return IDRequest{}
}

func NewSendRequest(ipAddress string) SendRequest {
	return SendRequest{IPAddress: ipAddress}
}

func NewSendRequestAccepted(ipAddress string, port int) SendRequestAccepted {
	return SendRequestAccepted{IPAddress: ipAddress, Port: port}
}

func NewSendRequestRejected(ipAddress string) SendRequestRejected {
	return SendRequestRejected{IPAddress: ipAddress}
}

func (IDShare) Tag() Tag { return TagIDShare }
func (IDRequest) Tag() Tag { return TagIDRequest }
func (SendRequest) Tag() Tag { return TagSendRequest }
func (SendRequestAccepted) Tag() Tag { return TagSendRequestAccepted }
func (SendRequestRejected) Tag() Tag { return TagSendRequestRejected }
func (Unknown) Tag() Tag { return TagUnknown }

func (m IDShare) Fields() []string { return []string{m.NickName, m.IPAddress} }

func (IDRequest) Fields() []string { return nil }

func (m SendRequest) Fields() []string { return []string{m.IPAddress} }

func (m SendRequestAccepted) Fields() []string {
	return []string{m.IPAddress, strconv.Itoa(m.Port)}
}

func (m SendRequestRejected) Fields() []string { return []string{m.IPAddress} }

func (Unknown) Fields() []string { return nil }
