package sparkplug

import "strings"

const namespace = "spBv1.0"

// Topics is the set of fully expanded Sparkplug B topic strings for a
// single Node, computed once at Enable time from GroupID/NodeID.
type Topics struct {
	NodeCommand       string
	NodeData          string
	NodeBirth         string
	NodeDeath         string
	DeviceCommandWild string // subscription wildcard: .../DCMD/<node>/+
	DeviceDataPrefix  string // join with "/" + deviceID
	DeviceBirthPrefix string
	PrimaryHostState  string // empty if this node has no primary host
}

// buildTopics computes the topic template set for groupID/nodeID, and
// the primary-host state topic if primaryHost is non-empty.
func buildTopics(groupID, nodeID, primaryHost string) Topics {
	t := Topics{
		NodeCommand:       namespace + "/" + groupID + "/NCMD/" + nodeID,
		NodeData:          namespace + "/" + groupID + "/NDATA/" + nodeID,
		NodeBirth:         namespace + "/" + groupID + "/NBIRTH/" + nodeID,
		NodeDeath:         namespace + "/" + groupID + "/NDEATH/" + nodeID,
		DeviceCommandWild: namespace + "/" + groupID + "/DCMD/" + nodeID + "/+",
		DeviceDataPrefix:  namespace + "/" + groupID + "/DDATA/" + nodeID,
		DeviceBirthPrefix: namespace + "/" + groupID + "/DBIRTH/" + nodeID,
	}
	if primaryHost != "" {
		t.PrimaryHostState = namespace + "/STATE/" + primaryHost
	}
	return t
}

// DeviceDataTopic returns the fully expanded DDATA topic for deviceID.
func (t Topics) DeviceDataTopic(deviceID string) string {
	return t.DeviceDataPrefix + "/" + deviceID
}

// DeviceBirthTopic returns the fully expanded DBIRTH topic for deviceID.
func (t Topics) DeviceBirthTopic(deviceID string) string {
	return t.DeviceBirthPrefix + "/" + deviceID
}

// isPrimaryHostStateTopic reports whether topic carries primary-host
// state for host, accepting both the namespaced form and the legacy
// unprefixed "STATE/<host>" form on the subscribe side.
func isPrimaryHostStateTopic(topic, host string) bool {
	if host == "" {
		return false
	}
	return topic == namespace+"/STATE/"+host || topic == "STATE/"+host
}

// parseOnlineState extracts an online/offline verdict from a primary
// host state payload using substring matching against the documented
// JSON and plain-text conventions. ok is false if neither form is
// present.
func parseOnlineState(payload []byte) (online bool, ok bool) {
	s := string(payload)
	switch {
	case strings.Contains(s, `"online": true`), strings.Contains(s, `"online":true`), strings.Contains(s, "ONLINE"):
		return true, true
	case strings.Contains(s, `"online": false`), strings.Contains(s, `"online":false`), strings.Contains(s, "OFFLINE"):
		return false, true
	default:
		return false, false
	}
}
