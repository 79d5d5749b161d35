package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// measurementAuthEvents holds one point per auth operation.
const measurementAuthEvents = "auth_events"

// WriteAuthEvent records the outcome of an auth operation, e.g.
// ("login", "success") or ("register", "conflict"). It never carries
// emails, names or secrets. Safe to call on a nil or closed client.
func (c *Client) WriteAuthEvent(action, outcome string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(authEventPoint(c.site, action, outcome, time.Now()))
}

func authEventPoint(site, action, outcome string, at time.Time) *write.Point {
	return write.NewPoint(
		measurementAuthEvents,
		map[string]string{
			"site":    site,
			"action":  action,
			"outcome": outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		at,
	)
}
