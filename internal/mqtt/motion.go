package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"stillwatch/internal/domain/verify"
)

// MotionSource implements device.MotionSource over an MQTT topic carrying
// JSON-encoded acceleration samples from the mounted sensor module.
type MotionSource struct {
	client paho.Client
	cfg    Config
	log    zerolog.Logger
}

func NewMotionSource(client paho.Client, cfg Config, log zerolog.Logger) *MotionSource {
	return &MotionSource{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "motion_source").Logger(),
	}
}

// Subscribe starts delivery of samples. The stream has no back-pressure:
// samples arriving faster than the consumer drains them are dropped. The
// returned stop func unsubscribes; it is also invoked when ctx ends.
func (m *MotionSource) Subscribe(ctx context.Context) (<-chan verify.AccelerationSample, func(), error) {
	ch := make(chan verify.AccelerationSample, 64)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			token := m.client.Unsubscribe(m.cfg.MotionTopic)
			token.WaitTimeout(m.cfg.ConnectTimeout)
			m.log.Debug().Str("topic", m.cfg.MotionTopic).Msg("motion stream unsubscribed")
		})
	}

	token := m.client.Subscribe(m.cfg.MotionTopic, 0, func(_ paho.Client, msg paho.Message) {
		var sample verify.AccelerationSample
		if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
			m.log.Warn().Err(err).Msg("malformed acceleration sample dropped")
			return
		}
		select {
		case ch <- sample:
		default:
		}
	})
	if !token.WaitTimeout(m.cfg.ConnectTimeout) {
		return nil, nil, fmt.Errorf("subscribe %s: timeout", m.cfg.MotionTopic)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("subscribe %s: %w", m.cfg.MotionTopic, err)
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	m.log.Debug().Str("topic", m.cfg.MotionTopic).Msg("motion stream subscribed")
	return ch, stop, nil
}
