package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// readingMeasurement is the measurement holding entity readings.
const readingMeasurement = "entity_state"

// WriteReading records a numeric entity reading stamped with the current
// time. The agent calls it for every probe output that parses as a number.
//
//	client.WriteReading("server_rack", "cpu_load", 0.42)
func (c *Client) WriteReading(device, entity string, value float64) {
	c.write(readingPoint(device, entity, value, time.Now()))
}

// WritePoint records an arbitrary point.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, ts))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		if c != nil {
			c.dropped.Add(1)
		}
		return
	}
	c.writes.WritePoint(p)
	c.written.Add(1)
}

func readingPoint(device, entity string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		readingMeasurement,
		map[string]string{"device": device, "entity": entity},
		map[string]any{"value": value},
		ts,
	)
}
