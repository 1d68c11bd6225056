package mqttctrl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/Agrid-Dev/heatrecovery/internal/plant"
	"github.com/Agrid-Dev/heatrecovery/internal/ports"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string

	Logger *log.Logger
}

// Topic suffixes under BaseTopic.
const (
	topicSet       = "set/"
	topicScenario  = "solve"
	topicCalculate = "calculate"
	topicResult    = "result"
	topicSnapshot  = "snapshot"
	topicError     = "error"
)

type Controller struct {
	svc ports.RecoveryService
	cfg Config
	log *log.Entry

	client mqtt.Client
}

func New(svc ports.RecoveryService, cfg Config) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "heatrecovery/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "heatrecovery-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: cfg.Logger.WithFields(log.Fields{"controller": "mqtt", "device_id": cfg.DeviceID}),
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		filters := map[string]byte{
			c.topic(topicSet + "+"):  c.cfg.QoS,
			c.topic(topicScenario):  c.cfg.QoS,
			c.topic(topicCalculate): c.cfg.QoS,
		}
		token := cl.SubscribeMultiple(filters, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.WithError(err).Error("subscribe")
			return
		}
		c.log.WithField("base_topic", c.cfg.BaseTopic).Info("subscribed")
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	// Publish loop: publish snapshot on interval, and only when changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	// publish immediately once
	last := c.svc.Get()
	c.publishSnapshot(last)

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if !reflect.DeepEqual(cur, last) {
				c.publishSnapshot(cur)
				last = cur
			}
		}
	}
}

func (c *Controller) publishSnapshot(s plant.Snapshot) {
	c.publishJSON(topicSnapshot, c.cfg.RetainSnapshot, s)
}

func (c *Controller) publishJSON(suffix string, retain bool, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("topic", suffix).Error("encode payload")
		return
	}
	c.client.Publish(c.topic(suffix), c.cfg.QoS, retain, b)
}

// reportError publishes a command failure so senders without a reply channel
// can see it.
func (c *Controller) reportError(topic string, err error) {
	c.log.WithError(err).WithField("topic", topic).Warn("command rejected")
	c.publishJSON(topicError, false, map[string]string{"topic": topic, "error": err.Error()})
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	t := msg.Topic()
	base := strings.TrimRight(c.cfg.BaseTopic, "/") + "/"
	if !strings.HasPrefix(t, base) {
		return
	}
	suffix := strings.TrimPrefix(t, base)
	payload := msg.Payload()

	switch {
	case strings.HasPrefix(suffix, topicSet):
		// <base>/set/<field>
		field := strings.TrimPrefix(suffix, topicSet)
		v, err := decodeValueStrict[json.RawMessage](payload)
		if err != nil {
			c.reportError(t, err)
			return
		}
		if err := c.svc.SetField(field, []byte(v)); err != nil {
			c.reportError(t, err)
		}

	case suffix == topicScenario:
		// Full scenario; omitted fields keep their current values.
		_, err := c.svc.UpdateScenario(func(req *recovery.SolverRequest) error {
			return json.Unmarshal(payload, req)
		})
		if err != nil {
			c.reportError(t, err)
		}

	case suffix == topicCalculate:
		req := recovery.DefaultSolverRequest()
		if err := json.Unmarshal(payload, &req); err != nil {
			c.reportError(t, err)
			return
		}
		res, err := c.svc.Solve(req)
		if err != nil {
			c.reportError(t, err)
			return
		}
		c.publishJSON(topicResult, false, res)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
