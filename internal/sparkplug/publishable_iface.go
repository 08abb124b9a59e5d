package sparkplug

import "time"

// publishableLike is the capability set the Node scheduler needs from
// anything it drives through tick→publish→settle — implemented by both
// *Node and *Device. It replaces a virtual base class with an
// interface plus a small discriminator, isNode.
type publishableLike interface {
	Name() string
	State() PublishableState
	update(elapsedMs int32) int32
	canPublish() bool
	publishing()
	published()
	resetAfterFailedPublish()
	buildPayload(isBirth bool, now time.Time) PayloadDesc
	handleCommand(codec PayloadCodec, data []byte)
	isNode() bool
}
