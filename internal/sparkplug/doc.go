// Package sparkplug implements the session and publication engine for a
// Sparkplug B edge node: Metric, Publishable, Node, and Device state
// machines, the per-publisher publish scheduler and dirty-change
// tracking, the BrokerAdapter contract, and the thread-safe event queue
// that bridges adapter callbacks to the node's single-threaded tick
// loop.
//
// The package depends on two external collaborators supplied by the
// caller: a [PayloadCodec] that turns a [PayloadDesc] into Sparkplug B
// protobuf bytes and back (see internal/sparkplugpb for the default
// implementation), and one or more [BrokerAdapter] implementations that
// speak MQTT (see internal/mqttadapter). Neither the wire codec nor the
// MQTT transport is imported here — this package only depends on the
// interfaces.
//
// Concurrency model: Node.Execute is the single progress point and is
// cooperative — it never blocks on a broker round-trip. Adapters run
// their own I/O on background goroutines and communicate with the node
// exclusively by pushing onto the event queue; no adapter callback
// mutates Node, Device, or Metric state directly. Metrics and
// Publishables are safe to read or mutate from caller code between
// calls to Execute, but not concurrently with it.
package sparkplug
