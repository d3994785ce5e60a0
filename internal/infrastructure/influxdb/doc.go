// Package influxdb records entity readings into InfluxDB v2.
//
// When influxdb.enabled is set, the agent hands every numeric probe output
// to WriteReading, giving a history that does not depend on Home
// Assistant's own recorder. Points land in the entity_state measurement
// tagged by device and entity.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetOnError(func(err error) { log.Error("write failed", "error", err) })
//
// Writes are batched and never block. Batch failures arrive through the
// SetOnError callback wrapped in ErrWriteFailed; writes made after Close
// are counted as dropped in Stats.
package influxdb
