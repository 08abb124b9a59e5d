package sparkplug

import "log/slog"

// deviceControlRebirthName is the control metric contributed by every
// Device on birth, letting a host command a single device to rebirth
// without forcing the whole node to rebirth.
const deviceControlRebirthName = "Device Control/Rebirth"

// Device is a Publishable tagged as non-node. On birth its payload
// carries one extra boolean control metric, Device Control/Rebirth. A
// Device's parent Node owns it; destruction order is
// Node-destroys-devices-first, which in Go simply means a Device has no
// independent lifetime of its own — it is only ever reached through its
// owning Node.
type Device struct {
	*publishable
	parent *Node
}

// NewDevice creates a Device with the given name and publish period.
// Unlike a Node, name must be non-empty.
func NewDevice(name string, publishPeriodMs int32, logger *slog.Logger) *Device {
	d := &Device{
		publishable: newPublishable(name, publishPeriodMs, logger),
	}
	rebirth := NewMetric(deviceControlRebirthName, TypeBoolean, false)
	rebirth.SetCommandHandler(func(_ *Metric, value any) {
		if v, _ := value.(bool); v && d.parent != nil {
			d.parent.RequestPublish(d, true)
		}
	})
	d.AddMetric(rebirth)
	return d
}

// isNode implements publishableLike.
func (d *Device) isNode() bool { return false }

// Parent returns the Device's owning Node, or nil if it hasn't been
// added to one yet.
func (d *Device) Parent() *Node { return d.parent }
