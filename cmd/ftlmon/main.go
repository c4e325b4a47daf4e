package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/robotalks/ftl.go/pkg/node/comm/mqtt"
	"github.com/robotalks/ftl.go/pkg/node/msgs"
)

var (
	mqttURL  = mqtt.DefaultURL
	nodeName string
)

func init() {
	if val := os.Getenv("FTL_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&nodeName, "node", "", "Only watch the node TYPE/ID.")
}

// monitor prints the traffic of FTL nodes, pairing command replies
// with the commands by sequence.
type monitor struct {
	lock    sync.Mutex
	pending map[string]string
}

func newMonitor() *monitor {
	return &monitor{pending: make(map[string]string)}
}

func (m *monitor) handle(topic string, payload []byte) {
	if line := m.format(topic, payload); line != "" {
		log.Println(line)
	}
}

func (m *monitor) format(topic string, payload []byte) string {
	name, channel := splitTopic(topic)
	if channel == "meta" {
		if len(payload) == 0 {
			return name + " offline"
		}
		info, ok := mqtt.ParseMeta(topic, payload)
		if !ok {
			return topic + ": " + string(payload)
		}
		return fmt.Sprintf("%s online: %s", name, info.Meta.Description)
	}
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		return fmt.Sprintf("%s %s: malformed: %v", name, channel, err)
	}
	msg, err := typed.Decode()
	if err != nil {
		return fmt.Sprintf("%s %s: #%d type %08x: %v", name, channel, typed.Sequence, typed.TypeId, err)
	}
	text := msgs.Describe(msg)
	key := fmt.Sprintf("%s#%d", name, typed.Sequence)
	switch {
	case typed.IsEvent():
		return fmt.Sprintf("%s %s %s", name, msgs.TypeName(msg), text)
	case typed.TypeId&msgs.TypeIDMaskReply == 0:
		m.lock.Lock()
		m.pending[key] = msgs.TypeName(msg)
		m.lock.Unlock()
		return fmt.Sprintf("%s #%d > %s %s", name, typed.Sequence, msgs.TypeName(msg), text)
	}
	m.lock.Lock()
	cmd, ok := m.pending[key]
	delete(m.pending, key)
	m.lock.Unlock()
	if !ok {
		cmd = "?"
	}
	return fmt.Sprintf("%s #%d < %s %s", name, typed.Sequence, cmd, text)
}

// splitTopic splits TYPE/ID/CHANNEL into the node name and channel.
func splitTopic(topic string) (string, string) {
	pos := strings.LastIndex(topic, "/")
	if pos < 0 {
		return topic, ""
	}
	return topic[:pos], topic[pos+1:]
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	topic := "#"
	if nodeName != "" {
		topic = strings.Trim(nodeName, "/") + "/#"
	}
	mon := newMonitor()
	sub := q.Sub(topic, mqtt.Handler(mon.handle))
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
