package mqttadapter

const namespace = "spBv1.0"

// These mirror the topic templates sparkplug.Topics builds internally.
// AdapterSettings only hands the Node's death topic through directly,
// so an adapter that needs to subscribe has to recompute the rest from
// GroupID/NodeID itself.

func nodeCommandTopic(groupID, nodeID string) string {
	return namespace + "/" + groupID + "/NCMD/" + nodeID
}

func deviceCommandWildcard(groupID, nodeID string) string {
	return namespace + "/" + groupID + "/DCMD/" + nodeID + "/+"
}

func primaryHostStateTopic(host string) string {
	return namespace + "/STATE/" + host
}
