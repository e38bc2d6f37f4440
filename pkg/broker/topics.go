package broker

import "strings"

// Topic scheme for the device namespace.
const (
	// DataTopicFilter is the subscription pattern for inbound device data.
	DataTopicFilter = "device/+/data"

	topicPrefix         = "device/"
	dataTopicSuffix     = "/data"
	responseTopicSuffix = "/response"
	commandTopicSuffix  = "/command"
)

// ParseDataTopic extracts the device identifier from a data topic.
// The identifier is the broker-verified transport identity.
func ParseDataTopic(topic string) (deviceID string, ok bool) {
	rest, found := strings.CutPrefix(topic, topicPrefix)
	if !found {
		return "", false
	}
	deviceID, found = strings.CutSuffix(rest, dataTopicSuffix)
	if !found || deviceID == "" || strings.Contains(deviceID, "/") {
		return "", false
	}
	return deviceID, true
}

// ResponseTopic returns the egress topic for backend responses to deviceID.
func ResponseTopic(deviceID string) string {
	return topicPrefix + deviceID + responseTopicSuffix
}

// CommandTopic returns the egress topic for backend commands to deviceID.
func CommandTopic(deviceID string) string {
	return topicPrefix + deviceID + commandTopicSuffix
}
