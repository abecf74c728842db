// Package publish bridges merged sensor readings onto an MQTT broker.
//
// It is an optional consumer of the scanner's merge notifications: whenever a
// device record completes its merge, the decoded reading is published as JSON
// under <topic_prefix>/<model>/<addr>. Connection loss is handled by the paho
// auto-reconnect machinery; a last-will message flags the bridge offline.
package publish
