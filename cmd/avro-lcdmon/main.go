// Command avro-lcdmon subscribes to an MQTT topic and renders each message
// on a character LCD: the first display line shows the tail of the topic,
// the second the payload. Without hardware attached it runs against the
// simulated two-wire bus, which makes it a bench tool for watching what the
// display stack would draw.
package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/barskern/avro/lcd"
	"github.com/barskern/avro/twi"
)

var (
	brokerURL = "tcp://localhost:1883"
	topic     = "avro/display/#"
	clientID  = "avro-lcdmon"
)

func init() {
	if val := os.Getenv("AVRO_MQTT_URL"); val != "" {
		brokerURL = val
	}
	flag.StringVar(&brokerURL, "mqtt", brokerURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic filter to render.")
	flag.StringVar(&clientID, "client-id", clientID, "MQTT client identifier.")
}

// display serializes MQTT handler callbacks onto the LCD.
type display struct {
	dev lcd.Device
	wr  chan [2]string
}

func newDisplay() (*display, error) {
	bus := twi.NewSimBus()
	bus.AddSlave(lcd.DefaultAddress)
	m := twi.New(bus, twi.Config{})

	d := &display{
		dev: lcd.New(m, lcd.DefaultAddress),
		wr:  make(chan [2]string, 16),
	}
	if err := d.dev.Configure(lcd.Config{}); err != nil {
		return nil, err
	}
	go d.run()
	return d, nil
}

func (d *display) run() {
	for lines := range d.wr {
		if err := d.show(lines); err != nil {
			glog.Warningf("lcd write failed: %v", err)
		}
	}
}

func (d *display) show(lines [2]string) error {
	if err := d.dev.ClearDisplay(); err != nil {
		return err
	}
	for row, line := range lines {
		if err := d.dev.SetCursor(0, uint8(row)); err != nil {
			return err
		}
		if err := d.dev.Print([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}

// Show queues two display lines, dropping the frame when the writer is
// behind. The display only ever needs the latest message.
func (d *display) Show(top, bottom string) {
	select {
	case d.wr <- [2]string{top, bottom}:
	default:
	}
}

func topicTail(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

func main() {
	flag.Parse()
	defer glog.Flush()

	disp, err := newDisplay()
	if err != nil {
		glog.Exitf("display init failed: %v", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c paho.Client) {
			glog.Infof("connected to %s, subscribing to %q", brokerURL, topic)
			tok := c.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
				glog.V(1).Infof("%s: %s", msg.Topic(), msg.Payload())
				disp.Show(topicTail(msg.Topic()), string(msg.Payload()))
			})
			if tok.Wait() && tok.Error() != nil {
				glog.Errorf("subscribe failed: %v", tok.Error())
			}
		})

	client := paho.NewClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		glog.Exitf("connect to %s failed: %v", brokerURL, tok.Error())
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	glog.Info("shutting down")
	client.Disconnect(250)
}
