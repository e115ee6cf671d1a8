// Command spimqtt bridges a simulated SPI bus to an MQTT broker: every
// byte the master completes is published to a topic, the kind of
// telemetry tap a lab rig hangs off a real bus with a logic analyzer.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/embedbits/spisim"
	mqtt "github.com/soypat/natiu-mqtt"
)

func main() {
	broker := flag.String("broker", "test.mosquitto.org:1883", "MQTT broker TCP address.")
	topic := flag.String("topic", "spisim/rx", "Topic completed transfers are published to.")
	clientID := flag.String("id", "spisim-bridge", "MQTT client identifier.")
	div := flag.Uint("div", 3, "Clock divisor: half period is div+1 driving ticks.")
	mode := flag.Uint("mode", 0, "SPI mode 0..3.")
	txHex := flag.String("tx", "a5", "Hex bytes the master transmits, repeated every interval.")
	interval := flag.Duration("interval", 5*time.Second, "Delay between published transfers.")
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)

	w, err := hex.DecodeString(*txHex)
	if err != nil || len(w) == 0 {
		log.Fatal("bad -tx hex")
	}
	cfg := spisim.Config{
		Divisor:   uint32(*div),
		Mode:      spisim.Mode(*mode),
		Order:     spisim.MSBFirst,
		OwnSelect: true,
	}
	master, err := spisim.NewMaster(cfg)
	if err != nil {
		log.Fatal(err)
	}
	slaveCfg := cfg
	slaveCfg.SyncInputs = *div >= 2
	slave, err := spisim.NewSlave(slaveCfg)
	if err != nil {
		log.Fatal(err)
	}
	bus := spisim.NewBus(master, slave)

	pubFlags, _ := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	pubVar := mqtt.VariablesPublish{
		TopicName:        []byte(*topic),
		PacketIdentifier: 1,
	}
	clientCfg := mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 4096)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, _ io.Reader) error {
			logger.Info("received message", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	}
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(*clientID))
	client := mqtt.NewClient(clientCfg)

	for {
		logger.Info("mqtt:dial", slog.String("broker", *broker))
		conn, err := net.DialTimeout("tcp", *broker, 5*time.Second)
		if err != nil {
			logger.Error("mqtt:dial-failed", slog.String("reason", err.Error()))
			time.Sleep(*interval)
			continue
		}
		conn.SetDeadline(time.Now().Add(5 * time.Second))
		err = client.StartConnect(conn, &varconn)
		if err != nil {
			logger.Error("mqtt:start-connect-failed", slog.String("reason", err.Error()))
			conn.Close()
			time.Sleep(*interval)
			continue
		}
		retries := 50
		for retries > 0 && !client.IsConnected() {
			time.Sleep(100 * time.Millisecond)
			retries--
		}
		if !client.IsConnected() {
			logger.Error("mqtt:connect-failed", slog.Any("reason", client.Err()))
			conn.Close()
			time.Sleep(*interval)
			continue
		}

		for client.IsConnected() {
			conn.SetDeadline(time.Now().Add(5 * time.Second))
			r := make([]byte, len(w))
			for i, c := range w {
				bus.QueueSlave(0, c^0xff)
				if err := bus.Transfer([]byte{c}, r[i:i+1]); err != nil {
					log.Fatal(err)
				}
			}
			payload := []byte(fmt.Sprintf("tick=%d tx=%s rx=%s", bus.Ticks(), hex.EncodeToString(w), hex.EncodeToString(r)))
			pubVar.PacketIdentifier++
			err = client.PublishPayload(pubFlags, pubVar, payload)
			if err != nil {
				logger.Error("mqtt:publish-failed", slog.Any("reason", err))
			} else {
				logger.Info("published transfer",
					slog.String("rx", hex.EncodeToString(r)),
					slog.Uint64("packetID", uint64(pubVar.PacketIdentifier)),
				)
			}
			time.Sleep(*interval)
		}
		logger.Error("mqtt:disconnected", slog.Any("reason", client.Err()))
		conn.Close()
	}
}
