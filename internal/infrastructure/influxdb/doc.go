// Package influxdb records auth event counts in InfluxDB.
//
// Each register, login, logout and seed operation writes one point to the
// auth_events measurement, tagged with site, action and outcome:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent("login", "success")
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Points never contain emails, names or secrets.
package influxdb
