package mqtt

import "fmt"

// Topics builds the MQTT topics clinicauth publishes and subscribes to.
// Every topic sits under {prefix}/{site} so deployments sharing a broker
// stay isolated.
//
//	topics := mqtt.NewTopics("clinicauth", "clinic-001")
//	topics.RecordChanged("app_session_v1")
//	// Returns: "clinicauth/clinic-001/record/app_session_v1/changed"
type Topics struct {
	base string
}

// NewTopics returns a builder rooted at prefix/site.
func NewTopics(prefix, site string) Topics {
	return Topics{base: fmt.Sprintf("%s/%s", prefix, site)}
}

// Base returns the {prefix}/{site} root.
func (t Topics) Base() string {
	return t.base
}

// RecordChanged returns the topic a store publishes to after writing or
// removing the named record.
//
// Example: clinicauth/clinic-001/record/app_users_v1/changed
func (t Topics) RecordChanged(record string) string {
	return fmt.Sprintf("%s/record/%s/changed", t.base, record)
}

// AllRecordChanges matches change notifications for every record.
//
// Pattern: clinicauth/clinic-001/record/+/changed
func (t Topics) AllRecordChanges() string {
	return fmt.Sprintf("%s/record/+/changed", t.base)
}

// Presence returns the retained online/offline topic for one process.
//
// Example: clinicauth/clinic-001/presence/clinicauth-3f2a
func (t Topics) Presence(clientID string) string {
	return fmt.Sprintf("%s/presence/%s", t.base, clientID)
}

// AllPresence matches the presence topic of every process.
//
// Pattern: clinicauth/clinic-001/presence/+
func (t Topics) AllPresence() string {
	return fmt.Sprintf("%s/presence/+", t.base)
}
