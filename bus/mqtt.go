/* Copyright 2026 The Cascata Authors
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/cascata/cascata/core"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT is a core.Channel over an MQTT broker.  Values cross the wire
// as JSON, so subscribers see canonical plain data.
type MQTT struct {
	Debug bool

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// QoS for publications and subscriptions.
	QoS byte

	// Prefix is prepended to every key to form the topic.
	Prefix string

	client mqtt.Client
}

// MQTTOpts is what NewMQTT needs to get connected.
type MQTTOpts struct {
	// Broker is the broker address ("tcp://localhost:1883").
	Broker   string
	ClientID string
	Username string
	Password string

	// KeepAlive in seconds.
	KeepAlive int

	Reconnect bool
}

// NewMQTT connects to the broker.
func NewMQTT(o MQTTOpts) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	if o.KeepAlive == 0 {
		o.KeepAlive = 10
	}
	opts.SetKeepAlive(time.Second * time.Duration(o.KeepAlive))
	opts.Username = o.Username
	opts.Password = o.Password
	opts.AutoReconnect = o.Reconnect

	client := mqtt.NewClient(opts)
	if t := client.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}

	return &MQTT{
		Quiesce: 100,
		client:  client,
	}, nil
}

func (b *MQTT) logf(format string, args ...interface{}) {
	if b.Debug {
		log.Printf("MQTT."+format, args...)
	}
}

func (b *MQTT) topic(key string) string {
	return b.Prefix + key
}

func (b *MQTT) Publish(ctx context.Context, key string, v interface{}) error {
	js, err := json.Marshal(&v)
	if err != nil {
		return err
	}
	b.logf("Publish %s %s", b.topic(key), js)
	if t := b.client.Publish(b.topic(key), b.QoS, false, js); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

func (b *MQTT) Subscribe(ctx context.Context, key string, f func(interface{})) (func(), error) {
	topic := b.topic(key)
	handler := func(_ mqtt.Client, m mqtt.Message) {
		var v interface{}
		if err := json.Unmarshal(m.Payload(), &v); err != nil {
			log.Printf("MQTT.Subscribe %s unmarshal error: %v", topic, err)
			return
		}
		f(v)
	}
	if t := b.client.Subscribe(topic, b.QoS, handler); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	b.logf("Subscribe %s", topic)

	cancel := func() {
		if t := b.client.Unsubscribe(topic); t.Wait() && t.Error() != nil {
			log.Printf("MQTT.Subscribe %s unsubscribe error: %v", topic, t.Error())
		}
	}
	return cancel, nil
}

// Close disconnects from the broker.
func (b *MQTT) Close() error {
	b.client.Disconnect(b.Quiesce)
	return nil
}

var _ core.Channel = &MQTT{}
