// Package forwarder delivers decoded snapshots to off-board consumers. The
// dashboard hardware stays authoritative; forwarding is best-effort and must
// never stall the control loop.
package forwarder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jd3nn1s/dash"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTopic    = "dash/telemetry"
	defaultClientID = "dashd"

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// forwardInterval rate-limits publishing to 10Hz regardless of how fast
	// frames decode
	forwardInterval = 100 * time.Millisecond
)

// MQTTConfig is the TOML forwarder configuration.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
}

// MQTTForwarder publishes snapshots to an MQTT broker.
type MQTTForwarder struct {
	Config *MQTTConfig

	client  paho.Client
	fwdChan chan *dash.Snapshot
}

// to allow testing
var mqttConnect = func(cfg *MQTTConfig) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.New("broker connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "unable to connect to broker")
	}
	return client, nil
}

// NewMQTTForwarder loads the config file from the binary's directory, the
// same resolution the daemon uses for all its sidecar files.
func NewMQTTForwarder(fileName string) (*MQTTForwarder, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return nil, errors.Wrap(err, "unable to determine binary location")
	}
	file, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file %s", fileName)
	}
	defer file.Close()
	return NewMQTTForwarderFromReader(file)
}

// NewMQTTForwarderFromReader parses the TOML config and connects.
func NewMQTTForwarderFromReader(configReader io.Reader) (*MQTTForwarder, error) {
	configData, err := io.ReadAll(configReader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config reader")
	}
	config := MQTTConfig{
		Topic:    defaultTopic,
		ClientID: defaultClientID,
	}
	if _, err := toml.Decode(string(configData), &config); err != nil {
		return nil, errors.Wrap(err, "unable to load mqtt forwarder configuration")
	}
	if config.Broker == "" {
		return nil, errors.New("mqtt forwarder requires a broker")
	}

	fwd := &MQTTForwarder{
		Config:  &config,
		fwdChan: make(chan *dash.Snapshot, 1),
	}
	if fwd.client, err = mqttConnect(&config); err != nil {
		return nil, err
	}
	return fwd, nil
}

// Close disconnects from the broker.
func (fwd *MQTTForwarder) Close() error {
	fwd.client.Disconnect(1000)
	return nil
}

// Forward hands the snapshot to the publishing goroutine. Non-blocking: if
// the channel is full the reading is skipped, a newer one is on the way.
func (fwd *MQTTForwarder) Forward(prevSnapshot *dash.Snapshot, newSnapshot *dash.Snapshot) error {
	snapCopy := *newSnapshot
	select {
	case fwd.fwdChan <- &snapCopy:
	default:
	}
	return nil
}

// Start runs the publish loop until the context is cancelled.
func (fwd *MQTTForwarder) Start(ctx context.Context) error {
	limiter := time.Tick(forwardInterval)
	for {
		<-limiter
		select {
		case s := <-fwd.fwdChan:
			if err := fwd.publish(s); err != nil {
				log.Error("unable to publish telemetry to broker ", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wirePayload is the published JSON document.
type wirePayload struct {
	MS      uint32  `json:"ms"`
	RPM     int     `json:"rpm"`
	IATC    int     `json:"iatC"`
	CLTC    int     `json:"cltC"`
	VBat    float32 `json:"vbat"`
	AFR     float32 `json:"afr"`
	TPS     int     `json:"tps"`
	Advance int     `json:"advance"`
	Warmup  bool    `json:"warmup"`
	Launch  bool    `json:"launch"`
}

func formatPayload(s *dash.Snapshot) ([]byte, error) {
	return json.Marshal(wirePayload{
		MS:      s.TimestampMs,
		RPM:     s.RPM,
		IATC:    s.IATC,
		CLTC:    s.CLTC,
		VBat:    s.VBat,
		AFR:     s.AFR,
		TPS:     s.TPS,
		Advance: s.Advance,
		Warmup:  s.Warmup,
		Launch:  s.Launch,
	})
}

func (fwd *MQTTForwarder) publish(s *dash.Snapshot) error {
	payload, err := formatPayload(s)
	if err != nil {
		return errors.Wrap(err, "unable to format telemetry payload")
	}

	// QoS 0: stale telemetry is worthless, don't queue it
	token := fwd.client.Publish(fwd.Config.Topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout on %s", fwd.Config.Topic)
	}
	return errors.Wrapf(token.Error(), "unable to publish to %s", fwd.Config.Topic)
}
