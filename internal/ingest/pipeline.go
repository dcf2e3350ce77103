package ingest

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/damirbriga107-creator/agrisense-core/internal/device"
	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/config"
	"github.com/damirbriga107-creator/agrisense-core/internal/reading"
)

// ReadingStore persists readings with duplicate suppression.
type ReadingStore interface {
	// Insert stores a reading, returning false when an identical
	// (device, data type, timestamp) reading already exists.
	Insert(ctx context.Context, r reading.Reading) (bool, error)
}

// DeviceRegistry is the slice of the device registry the pipeline needs.
type DeviceRegistry interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	SetDeviceStatus(ctx context.Context, id string, status device.Status, seenAt time.Time) error
	RecordHeartbeat(ctx context.Context, id string, at time.Time, battery, signal *float64) error
}

// LatestTracker receives every accepted reading for in-memory lookup.
type LatestTracker interface {
	Update(r reading.Reading) bool
}

// TelemetryWriter forwards readings to the time-series store.
// Writes are buffered and asynchronous; there is nothing to fail here.
type TelemetryWriter interface {
	WriteReading(farmID, deviceID, dataType string, value float64, qualityScore int, timestamp time.Time)
	WriteDeviceHealth(farmID, deviceID, metric string, value float64)
}

// AlertEvaluator checks readings against thresholds.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, dev *device.Device, r reading.Reading) error
}

// RuleEngine evaluates automation rules against readings.
type RuleEngine interface {
	HandleReading(ctx context.Context, r reading.Reading) []string
}

// Broadcaster pushes accepted readings to WebSocket subscribers.
type Broadcaster interface {
	BroadcastReading(r reading.Reading)
}

// Logger defines the logging interface the pipeline requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps bundles the collaborators a pipeline drives. Store and Devices
// are required; the rest may be nil and their stage is skipped.
type Deps struct {
	Store     ReadingStore
	Devices   DeviceRegistry
	Tracker   LatestTracker
	Telemetry TelemetryWriter
	Evaluator AlertEvaluator
	Rules     RuleEngine
	Hub       Broadcaster
}

// message is one MQTT delivery queued for a worker.
type message struct {
	info       TopicInfo
	payload    []byte
	receivedAt time.Time
}

// Pipeline is the sharded worker pool between MQTT and the domain.
//
// Each device hashes to exactly one worker, so messages from a device
// process in arrival order while different devices proceed in
// parallel. Worker queues are bounded: when one fills, new messages
// for its devices drop with a warning rather than stalling the MQTT
// client.
type Pipeline struct {
	deps   Deps
	logger Logger

	queues []chan message
	group  *errgroup.Group
	cancel context.CancelFunc

	drainTimeout time.Duration

	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
}

// NewPipeline creates a pipeline from configuration. Call Start before
// submitting messages.
func NewPipeline(cfg config.PipelineConfig, deps Deps, logger Logger) *Pipeline {
	if logger == nil {
		logger = noopLogger{}
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}

	queues := make([]chan message, workers)
	for i := range queues {
		queues[i] = make(chan message, queueSize)
	}

	return &Pipeline{
		deps:         deps,
		logger:       logger,
		queues:       queues,
		drainTimeout: time.Duration(cfg.DrainTimeout) * time.Second,
	}
}

// Start launches the worker goroutines.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	group, ctx := errgroup.WithContext(ctx)
	p.group = group

	for i, queue := range p.queues {
		workerID, q := i, queue
		group.Go(func() error {
			p.runWorker(ctx, workerID, q)
			return nil
		})
	}

	p.logger.Info("ingest pipeline started",
		"workers", len(p.queues),
		"queue_size", cap(p.queues[0]))
}

// HandleMessage is the MQTT message handler: it parses the topic and
// queues the message on the worker owning the device.
//
// Returns ErrMalformedTopic for unparseable topics, ErrQueueFull when
// the owning worker's queue is full (the message is dropped), and
// ErrPipelineClosed after Stop has begun.
func (p *Pipeline) HandleMessage(topic string, payload []byte) error {
	info, err := DecodeTopic(topic)
	if err != nil {
		p.logger.Warn("dropping message with malformed topic", "topic", topic)
		return err
	}

	msg := message{info: info, payload: payload, receivedAt: time.Now()}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}

	queue := p.queues[p.workerFor(info.DeviceID)]
	select {
	case queue <- msg:
		return nil
	default:
		dropped := p.dropped.Add(1)
		p.logger.Warn("worker queue full, dropping message",
			"device_id", info.DeviceID,
			"kind", string(info.Kind),
			"dropped_total", dropped)
		return ErrQueueFull
	}
}

// workerFor hashes a device ID onto a worker index.
func (p *Pipeline) workerFor(deviceID string) int {
	h := fnv.New32a()
	h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// Stop closes the queues and drains in-flight work.
//
// Callers must unsubscribe from MQTT first; a message submitted after
// Stop returns ErrPipelineClosed. Workers get the drain timeout to
// finish their queues, after which Stop abandons them and returns.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	if p.group == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		p.group.Wait() //nolint:errcheck // workers only return nil
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("ingest pipeline drained")
	case <-time.After(p.drainTimeout):
		p.logger.Warn("ingest pipeline drain timed out", "timeout", p.drainTimeout)
		if p.cancel != nil {
			p.cancel()
		}
	}
}

// DroppedCount returns the number of messages dropped on full queues.
func (p *Pipeline) DroppedCount() uint64 {
	return p.dropped.Load()
}

// runWorker consumes a queue until it closes or the context ends.
func (p *Pipeline) runWorker(ctx context.Context, id int, queue chan message) {
	for {
		select {
		case msg, ok := <-queue:
			if !ok {
				return
			}
			p.process(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// process dispatches one message through the stage sequence.
func (p *Pipeline) process(ctx context.Context, msg message) {
	switch msg.info.Kind {
	case KindSensorData:
		p.processSensorData(ctx, msg)
	case KindStatus:
		p.processStatus(ctx, msg)
	case KindHeartbeat:
		p.processHeartbeat(ctx, msg)
	case KindAlert:
		// Device-originated alerts are informational; log and move on
		p.logger.Debug("device alert received",
			"farm_id", msg.info.FarmID,
			"device_id", msg.info.DeviceID)
	}
}

// processSensorData runs the full stage sequence for a sensor batch:
// decode, score, persist, device health, telemetry, threshold
// evaluation, rule engine, broadcast.
func (p *Pipeline) processSensorData(ctx context.Context, msg message) {
	batch, err := DecodeSensorPayload(msg.info, msg.payload, msg.receivedAt)
	if err != nil {
		p.logger.Warn("dropping malformed sensor payload",
			"device_id", msg.info.DeviceID,
			"error", err)
		return
	}

	dev := p.lookupDevice(ctx, batch.DeviceID)

	if batch.Metadata != nil && (batch.Metadata.BatteryLevel != nil || batch.Metadata.SignalStrength != nil) {
		p.recordHeartbeat(ctx, batch.DeviceID, batch.Timestamp, batch.Metadata.BatteryLevel, batch.Metadata.SignalStrength)
	}

	for _, r := range batch.Readings {
		inserted, err := p.deps.Store.Insert(ctx, r)
		if err != nil {
			p.logger.Error("persisting reading failed",
				"device_id", r.DeviceID,
				"data_type", string(r.DataType),
				"error", err)
			continue
		}
		if !inserted {
			// QoS 1 redelivery; everything downstream already happened
			p.logger.Debug("duplicate reading ignored",
				"device_id", r.DeviceID,
				"data_type", string(r.DataType),
				"timestamp", r.Timestamp)
			continue
		}

		if p.deps.Tracker != nil {
			p.deps.Tracker.Update(r)
		}
		if p.deps.Telemetry != nil {
			p.deps.Telemetry.WriteReading(r.FarmID, r.DeviceID, string(r.DataType), r.Value, r.QualityScore, r.Timestamp)
		}
		if p.deps.Evaluator != nil && dev != nil {
			if err := p.deps.Evaluator.Evaluate(ctx, dev, r); err != nil {
				p.logger.Error("threshold evaluation failed",
					"device_id", r.DeviceID,
					"data_type", string(r.DataType),
					"error", err)
			}
		}
		if p.deps.Rules != nil {
			p.deps.Rules.HandleReading(ctx, r)
		}
		if p.deps.Hub != nil {
			p.deps.Hub.BroadcastReading(r)
		}
	}
}

// processStatus applies a device-reported status change.
func (p *Pipeline) processStatus(ctx context.Context, msg message) {
	event, err := DecodeStatusPayload(msg.info, msg.payload, msg.receivedAt)
	if err != nil {
		p.logger.Warn("dropping malformed status payload",
			"device_id", msg.info.DeviceID,
			"error", err)
		return
	}

	if err := p.deps.Devices.SetDeviceStatus(ctx, event.DeviceID, device.Status(event.Status), event.At); err != nil {
		p.logger.Error("status update failed",
			"device_id", event.DeviceID,
			"status", event.Status,
			"error", err)
	}
}

// processHeartbeat records a heartbeat and forwards health metrics.
func (p *Pipeline) processHeartbeat(ctx context.Context, msg message) {
	event, err := DecodeHeartbeatPayload(msg.info, msg.payload, msg.receivedAt)
	if err != nil {
		p.logger.Warn("dropping malformed heartbeat payload",
			"device_id", msg.info.DeviceID,
			"error", err)
		return
	}

	p.recordHeartbeat(ctx, event.DeviceID, event.At, event.BatteryLevel, event.SignalStrength)

	if p.deps.Telemetry != nil {
		if event.BatteryLevel != nil {
			p.deps.Telemetry.WriteDeviceHealth(event.FarmID, event.DeviceID, "battery_level", *event.BatteryLevel)
		}
		if event.SignalStrength != nil {
			p.deps.Telemetry.WriteDeviceHealth(event.FarmID, event.DeviceID, "signal_strength", *event.SignalStrength)
		}
	}
}

// recordHeartbeat updates the registry, tolerating unknown devices.
func (p *Pipeline) recordHeartbeat(ctx context.Context, deviceID string, at time.Time, battery, signal *float64) {
	if err := p.deps.Devices.RecordHeartbeat(ctx, deviceID, at, battery, signal); err != nil {
		p.logger.Debug("heartbeat for unknown device",
			"device_id", deviceID,
			"error", err)
	}
}

// lookupDevice fetches the device for threshold evaluation. Readings
// from unregistered devices still persist; they just skip evaluation.
func (p *Pipeline) lookupDevice(ctx context.Context, deviceID string) *device.Device {
	dev, err := p.deps.Devices.GetDevice(ctx, deviceID)
	if err != nil {
		p.logger.Debug("reading from unregistered device",
			"device_id", deviceID)
		return nil
	}
	return dev
}
