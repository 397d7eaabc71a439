package node

import (
	"log/slog"

	"lanshare/internal/protocol"
	"lanshare/internal/util/logger/sl"
)

type messageSender interface {
	SendMessage(m protocol.Message) error
}

// responder answers identity and transfer requests on the control channel.
type responder struct {
	protocol.NopListener

	sender   messageSender
	nickName func() string
	address  string
	// 0 - входящие передачи отклоняются
	transferPort int
	log          *slog.Logger
}

func (r *responder) OnIDShare(nickName, ipAddress string) {
	r.log.Info("identity shared",
		slog.String("nick", nickName),
		slog.String("ip", ipAddress),
	)
}

func (r *responder) OnIDRequest() {
	r.reply(protocol.NewIDShare(r.nickName(), r.address))
}

func (r *responder) OnSendRequest(ipAddress string) {
	if ipAddress == r.address {
		return
	}

	r.log.Info("send request", slog.String("ip", ipAddress), slog.Bool("accept", r.transferPort > 0))

	if r.transferPort > 0 {
		r.reply(protocol.NewSendRequestAccepted(r.address, r.transferPort))
		return
	}
	r.reply(protocol.NewSendRequestRejected(r.address))
}

func (r *responder) OnSendRequestAccepted(ipAddress string, port int) {
	r.log.Info("send request accepted", slog.String("ip", ipAddress), slog.Int("port", port))
}

func (r *responder) OnSendRequestRejected(ipAddress string) {
	r.log.Info("send request rejected", slog.String("ip", ipAddress))
}

func (r *responder) reply(m protocol.Message) {
	if err := r.sender.SendMessage(m); err != nil {
		r.log.Warn("failed to reply",
			slog.String("tag", m.Tag().String()),
			sl.Err(err),
		)
	}
}
