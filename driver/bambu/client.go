// Package bambu is a minimal MQTT client for Bambu Lab printers. It
// exposes only the telemetry fields the local driver needs to mirror
// into the versioned state tree: bed/nozzle temperatures, the coarse
// gcode state machine, and the handful of job-progress fields the
// server's job_info event cares about.
package bambu

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttClientID   = "printerlink-bambu-client"
	mqttPort       = 8883
	mqttQoS        = 0
	updateInterval = 10 * time.Second
	connectTimeout = 5 * time.Second
)

// PrinterConfig holds the configuration for connecting to a Bambu
// printer's local MQTT broker.
type PrinterConfig struct {
	Name         string
	Host         string
	AccessCode   string
	SerialNumber string
}

// PrinterData is the subset of a Bambu "report" payload the driver
// translates into PrinterState mutations.
type PrinterData struct {
	GcodeFile          string  // current gcode filename
	SubtaskName        string  // user-editable plate name from Bambu Studio
	GcodeState         string  // IDLE, PREPARE, RUNNING, PAUSE, FINISH, FAILED
	PrintErrorCode     string  // non-zero error code if the print failed
	RemainingPrintTime int     // minutes remaining
	PrintPercentDone   int     // completion percentage, 0-100
	BedTemper          float64 // actual bed temperature, Celsius
	BedTargetTemper    float64 // target bed temperature, 0 means no target
	NozzleTemper       float64 // actual nozzle temperature, Celsius
	NozzleTargetTemper float64 // target nozzle temperature, 0 means no target
}

// IsEmpty reports whether no meaningful telemetry has been received yet.
func (d *PrinterData) IsEmpty() bool {
	return d.GcodeFile == "" && d.SubtaskName == "" && d.GcodeState == ""
}

// Printer is a connection to a single Bambu Lab printer's local MQTT
// broker.
type Printer struct {
	config *PrinterConfig
	client paho.Client

	mu         sync.RWMutex
	data       mqttMessage
	lastUpdate time.Time

	stopChan chan struct{}
	stopped  bool
}

// NewPrinter builds an unconnected Printer for config.
func NewPrinter(config *PrinterConfig) *Printer {
	return &Printer{config: config, stopChan: make(chan struct{})}
}

// Connect establishes the MQTT connection, subscribing to the printer's
// report topic. It's a no-op if already connected, so the driver can
// call it on every tick without worrying about reconnect bookkeeping —
// paho's own AutoReconnect handles the link once established.
func (p *Printer) Connect() error {
	p.mu.Lock()
	if p.client != nil && p.client.IsConnected() {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	opts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("ssl://%s:%d", p.config.Host, mqttPort)).
		SetClientID(mqttClientID + "-" + p.config.SerialNumber).
		SetUsername("bblp").
		SetPassword(p.config.AccessCode).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: true}).
		SetAutoReconnect(true).
		SetKeepAlive(30 * time.Second).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost).
		SetDefaultPublishHandler(p.handleMessage)

	p.client = paho.NewClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to printer MQTT: %w", token.Error())
	}

	go p.periodicUpdate()
	return nil
}

// Disconnect closes the MQTT connection and stops the periodic update
// goroutine.
func (p *Printer) Disconnect() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stopChan)
	}
	p.mu.Unlock()

	if p.client != nil {
		p.client.Disconnect(250)
	}
}

// Name returns the printer's configured display name.
func (p *Printer) Name() string { return p.config.Name }

// Serial returns the printer's serial number.
func (p *Printer) Serial() string { return p.config.SerialNumber }

// Data returns the most recently received telemetry, requesting a fresh
// push if the cached copy is stale.
func (p *Printer) Data() (PrinterData, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if time.Since(p.lastUpdate) > connectTimeout {
		go p.requestUpdate()
	}

	return PrinterData{
		GcodeFile:          p.data.Print.GcodeFile,
		SubtaskName:        p.data.Print.SubtaskName,
		GcodeState:         p.data.Print.GcodeState,
		PrintErrorCode:     p.data.Print.McPrintErrorCode,
		RemainingPrintTime: p.data.Print.McRemainingTime,
		PrintPercentDone:   p.data.Print.McPercent,
		BedTemper:          p.data.Print.BedTemper,
		BedTargetTemper:    p.data.Print.BedTargetTemper,
		NozzleTemper:       p.data.Print.NozzleTemper,
		NozzleTargetTemper: p.data.Print.NozzleTargetTemper,
	}, nil
}

// StopPrint sends a stop command to the printer.
func (p *Printer) StopPrint() error {
	if state := p.getGcodeState(); state == "IDLE" || state == "" {
		return fmt.Errorf("cannot stop print: printer is %s", state)
	}
	return p.publishCommand(map[string]any{
		"print": map[string]any{
			"command":     "stop",
			"sequence_id": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	})
}

// SetNozzleTarget pushes a gcode temperature-set command, the MQTT
// equivalent of an inbound gcode demand touching M104.
func (p *Printer) SetNozzleTarget(celsius int) error {
	return p.publishCommand(map[string]any{
		"print": map[string]any{
			"command":     "gcode_line",
			"param":       fmt.Sprintf("M104 S%d", celsius),
			"sequence_id": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	})
}

func (p *Printer) getGcodeState() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data.Print.GcodeState
}

func (p *Printer) onConnect(client paho.Client) {
	topic := fmt.Sprintf("device/%s/report", p.config.SerialNumber)
	token := client.Subscribe(topic, mqttQoS, nil)
	if token.Wait() && token.Error() != nil {
		slog.Error("failed to subscribe to printer topic", "error", token.Error(), "serial", p.config.SerialNumber)
		return
	}
	slog.Debug("subscribed to printer MQTT topic", "serial", p.config.SerialNumber)
	p.requestUpdate()
}

func (p *Printer) onConnectionLost(client paho.Client, err error) {
	slog.Warn("printer MQTT connection lost", "error", err, "serial", p.config.SerialNumber)
}

func (p *Printer) handleMessage(client paho.Client, msg paho.Message) {
	var received mqttMessage
	if err := json.Unmarshal(msg.Payload(), &received); err != nil {
		slog.Debug("failed to unmarshal printer message", "error", err, "serial", p.config.SerialNumber)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.mergeData(&received)
	p.lastUpdate = time.Now()
}

// mergeData overlays non-zero fields from received onto the cached
// snapshot: Bambu's MQTT broker only reports deltas after the initial
// pushall, so a field's absence from one message must not erase an
// earlier reading.
func (p *Printer) mergeData(received *mqttMessage) {
	r, cur := &received.Print, &p.data.Print
	if r.GcodeFile != "" {
		cur.GcodeFile = r.GcodeFile
	}
	if r.SubtaskName != "" {
		cur.SubtaskName = r.SubtaskName
	}
	if r.GcodeState != "" {
		cur.GcodeState = r.GcodeState
	}
	if r.McPrintErrorCode != "" {
		cur.McPrintErrorCode = r.McPrintErrorCode
	}
	if r.McRemainingTime != 0 {
		cur.McRemainingTime = r.McRemainingTime
	}
	if r.McPercent != 0 {
		cur.McPercent = r.McPercent
	}
	if r.BedTemper != 0 {
		cur.BedTemper = r.BedTemper
	}
	if r.BedTargetTemper != 0 {
		cur.BedTargetTemper = r.BedTargetTemper
	}
	if r.NozzleTemper != 0 {
		cur.NozzleTemper = r.NozzleTemper
	}
	if r.NozzleTargetTemper != 0 {
		cur.NozzleTargetTemper = r.NozzleTargetTemper
	}
}

func (p *Printer) periodicUpdate() {
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.requestUpdate()
		case <-p.stopChan:
			return
		}
	}
}

func (p *Printer) requestUpdate() {
	err := p.publishCommand(map[string]any{
		"pushing": map[string]any{
			"command":     "pushall",
			"sequence_id": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	})
	if err != nil {
		slog.Debug("failed to request printer update", "error", err, "serial", p.config.SerialNumber)
	}
}

func (p *Printer) publishCommand(cmd map[string]any) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	topic := fmt.Sprintf("device/%s/request", p.config.SerialNumber)
	token := p.client.Publish(topic, mqttQoS, false, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish command: %w", token.Error())
	}
	return nil
}

// mqttMessage is the structure of MQTT report messages from Bambu
// printers; only the fields the driver consumes are declared.
type mqttMessage struct {
	Print struct {
		GcodeFile          string  `json:"gcode_file"`
		SubtaskName        string  `json:"subtask_name"`
		GcodeState         string  `json:"gcode_state"`
		McPrintErrorCode   string  `json:"mc_print_error_code"`
		McRemainingTime    int     `json:"mc_remaining_time"`
		McPercent          int     `json:"mc_percent"`
		BedTemper          float64 `json:"bed_temper"`
		BedTargetTemper    float64 `json:"bed_target_temper"`
		NozzleTemper       float64 `json:"nozzle_temper"`
		NozzleTargetTemper float64 `json:"nozzle_target_temper"`
	} `json:"print"`
}
