/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import "errors"

var (
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrNotConnected    = errors.New("not connected")
	ErrSendDropped     = errors.New("outbound message dropped, try again")
	ErrConnClosed      = errors.New("connection closed")
	ErrNotHost         = errors.New("only the host can do that")
	ErrNoTask          = errors.New("no matching task assigned")
	ErrEmptyWord       = errors.New("word is empty")
	ErrBlankDrawing    = errors.New("nothing has been drawn")
	ErrEmptyChat       = errors.New("chat message is empty")
	ErrChatThrottled   = errors.New("chat throttled")
	ErrNoChain         = errors.New("no chain is being shown")
	ErrAdvanceDisabled = errors.New("voting on this chain has not finished")
)
