// Package mqtt connects clinicauth to an MQTT broker.
//
// The broker is how one clinicauth process learns that another has written
// the shared users or session record: the store publishes a small change
// message after every write and every process subscribes to the change
// topics of its site.
//
//	process A ─┐                 ┌─> process B
//	           ├─ MQTT broker ───┤
//	process C ─┘                 └─> process D
//
// The client auto-reconnects with backoff and restores subscriptions. A
// retained presence message under {prefix}/{site}/presence/{client_id}
// reports each process as online, with a Last Will that flips it to
// offline if the process dies.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllRecordChanges(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
//
// Broker-backed tests carry the integration build tag:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...
package mqtt
