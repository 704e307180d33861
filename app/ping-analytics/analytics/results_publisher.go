package analytics

import (
	"encoding/json"
	"github.com/OpenTransitTools/transitping/business/analytics/speed"
	"log"
	"time"
)

// MessagePublisher is the part of *nats.Conn used to send results
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// lineSpeedResults is the message sent for each computed speed export
type lineSpeedResults struct {
	GeneratedAt time.Time         `json:"generated_at"`
	LineSpeeds  []speed.LineSpeed `json:"line_speeds"`
}

// speedResultsPublisher sends line speed aggregates computed for requests to other services over NATS
type speedResultsPublisher struct {
	log         *log.Logger
	conn        MessagePublisher
	subject     string
	metrics     *metricsCollector
	currentTime func() time.Time
}

// makeSpeedResultsPublisher creates speedResultsPublisher. conn is typically a *nats.Conn
func makeSpeedResultsPublisher(log *log.Logger,
	conn MessagePublisher,
	subject string,
	metrics *metricsCollector) *speedResultsPublisher {
	return &speedResultsPublisher{
		log:         log,
		conn:        conn,
		subject:     subject,
		metrics:     metrics,
		currentTime: time.Now,
	}
}

// publish sends lineSpeeds. failures are logged and counted, never returned, the http response does not
// depend on downstream consumers
func (p *speedResultsPublisher) publish(lineSpeeds []speed.LineSpeed) {
	if p == nil || len(lineSpeeds) == 0 {
		return
	}
	jsonData, err := json.Marshal(lineSpeedResults{
		GeneratedAt: p.currentTime().UTC(),
		LineSpeeds:  lineSpeeds,
	})
	if err != nil {
		p.log.Printf("failed to marshal line speed results in speedResultsPublisher.publish, error:%v", err)
		p.metrics.speedPublishFailed()
		return
	}
	err = p.conn.Publish(p.subject, jsonData)
	if err != nil {
		p.log.Printf("failed to send %d line speeds on %s, error:%v", len(lineSpeeds), p.subject, err)
		p.metrics.speedPublishFailed()
	}
}
