package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/coursebook-gateway/internal/broker"
	"github.com/nerrad567/coursebook-gateway/internal/pending"
)

// Measurements written by the gateway.
const (
	OutcomeMeasurement        = "gateway_outcomes"
	PublishFailureMeasurement = "gateway_publish_failures"
)

// EntryClosed implements pending.Observer by writing one outcome point.
// Cancelled entries carry no status and are written with status 0.
func (c *Client) EntryClosed(cl pending.Closure) {
	c.WriteOutcome(string(cl.Kind), string(cl.Disposition), cl.Status, cl.Age, time.Now())
}

// WriteOutcome records how one suspended request ended.
func (c *Client) WriteOutcome(action, disposition string, status int, wait time.Duration, at time.Time) {
	c.write(write.NewPoint(OutcomeMeasurement,
		map[string]string{"action": action, "disposition": disposition},
		map[string]interface{}{"status": status, "wait_ms": float64(wait.Microseconds()) / 1000},
		at,
	))
}

// PublishFailed implements broker.FailureObserver.
func (c *Client) PublishFailed(routingKey string, kind broker.PublishErrorKind) {
	c.write(write.NewPoint(PublishFailureMeasurement,
		map[string]string{"routing_key": routingKey, "kind": kind.String()},
		map[string]interface{}{"count": 1},
		time.Now(),
	))
}

func (c *Client) write(p *write.Point) {
	if c.IsConnected() {
		c.writeAPI.WritePoint(p)
	}
}
