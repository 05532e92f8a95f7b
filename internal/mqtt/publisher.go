package mqtt

import (
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"stillwatch/internal/domain/verify"
)

// Publisher mirrors workflow events onto the broker: phase transitions on
// the status topic, run outcomes on the result topic. It is wired as a
// sequencer listener; publish failures are logged and never block the
// workflow.
type Publisher struct {
	client paho.Client
	cfg    Config
	log    zerolog.Logger
}

func NewPublisher(client paho.Client, cfg Config, log zerolog.Logger) *Publisher {
	return &Publisher{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "mqtt_publisher").Logger(),
	}
}

func (p *Publisher) PhaseChanged(ev verify.PhaseEvent) {
	p.publish(p.cfg.StatusTopic, ev)
}

func (p *Publisher) CaptureRecorded(ev verify.CaptureEvent) {
	p.publish(p.cfg.StatusTopic, ev)
}

func (p *Publisher) RunComplete(outcome verify.RunOutcome) {
	p.publish(p.cfg.ResultTopic, outcome)
	p.log.Info().
		Str("run_id", outcome.RunID.String()).
		Bool("passed", outcome.Passed).
		Msg("run outcome published")
}

func (p *Publisher) publish(topic string, payload any) {
	if topic == "" || p.client == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to encode MQTT payload")
		return
	}
	token := p.client.Publish(topic, 0, false, data)
	go func() {
		token.WaitTimeout(p.cfg.ConnectTimeout)
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}
