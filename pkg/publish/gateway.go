// Package publish implements the gateway that turns an externally-triggered
// alert request into bus envelopes, one per target address.
package publish

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rohitksw/sw-alert-system/pkg/alert"
	log "github.com/sirupsen/logrus"
)

// defaultTitle is used when the trigger request carries no title.
const defaultTitle = "Alert"

// Publisher is the slice of the bus connection the gateway needs.
// *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ValidationError reports which trigger request fields were missing or
// malformed. Nothing is published when validation fails.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Missing, ", ")
}

// IsValidation reports whether err is a client-input validation failure.
func IsValidation(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// Gateway publishes alert envelopes to the bus channel all instances
// subscribe to.
type Gateway struct {
	pub     Publisher
	subject string
}

// NewGateway creates a publish gateway over the given bus connection and
// channel name.
func NewGateway(pub Publisher, subject string) *Gateway {
	return &Gateway{
		pub:     pub,
		subject: subject,
	}
}

// PublishAlert expands the target list into one freshly-timestamped
// envelope per non-empty address and publishes each exactly once. It
// returns the number of envelopes actually published. A bus failure aborts
// the remaining loop; envelopes already published are not rolled back, so
// partial fan-out across a batch is possible and accepted.
func (g *Gateway) PublishAlert(ips []string, title, message string) (int, error) {
	var missing []string
	if len(ips) == 0 {
		missing = append(missing, "ips")
	}
	if message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return 0, &ValidationError{Missing: missing}
	}

	if title == "" {
		title = defaultTitle
	}

	published := 0
	for _, ip := range ips {
		if ip == "" {
			continue
		}

		env := alert.Envelope{
			TargetAddress: ip,
			Payload:       alert.NewPayload(title, message),
		}

		data, err := json.Marshal(env)
		if err != nil {
			return published, errors.Wrap(err, "failed to marshal alert envelope")
		}

		if err := g.pub.Publish(g.subject, data); err != nil {
			return published, errors.Wrap(err, "failed to publish alert envelope")
		}
		published++
	}

	log.WithFields(log.Fields{
		"targets":   len(ips),
		"published": published,
	}).Info("gateway published alert batch")

	return published, nil
}
