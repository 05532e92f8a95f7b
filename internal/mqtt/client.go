// Package mqtt connects the workflow to the broker: it publishes run
// results and phase transitions, and delivers the accelerometer sample
// stream the stability detector consumes.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// Config carries broker connection settings and the topics this service
// uses.
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ResultTopic    string
	StatusTopic    string
	MotionTopic    string
	ConnectTimeout time.Duration
}

// Connect establishes the broker session. Auto-reconnect is left on so a
// broker restart does not take the daemon down with it.
func Connect(cfg Config, log zerolog.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout after %s", cfg.Broker, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	return client, nil
}
