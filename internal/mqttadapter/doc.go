// Package mqttadapter implements sparkplug.BrokerAdapter over
// github.com/eclipse/paho.golang's autopaho connection manager: a
// single Sparkplug B topic set, QoS 1 publish/subscribe, a per-adapter
// retry queue bounded at five retries, and the LWT/bdSeq wiring that
// ties a broker session's DEATH payload to its following NBIRTH.
package mqttadapter
