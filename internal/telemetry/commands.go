package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/hvpsu/internal/audit"
	"github.com/nerrad567/hvpsu/internal/infrastructure/mqtt"
	"github.com/nerrad567/hvpsu/internal/psu"
)

// commandTimeout bounds one MQTT command, including any lazy connect.
const commandTimeout = 10 * time.Second

// ackQoS is the QoS of command acknowledgements.
const ackQoS = 1

// errBadCommand marks payloads that cannot be executed.
var errBadCommand = errors.New("telemetry: bad command")

// Commander is the subset of *psu.Manager driven by MQTT commands.
type Commander interface {
	Connect(ctx context.Context, identity string) error
	SetVoltage(ctx context.Context, identity string, v float64) (bool, error)
	SetCurrent(ctx context.Context, identity string, i float64) (bool, error)
	SetRelay(ctx context.Context, identity string, desired bool) (bool, error)
}

// CommandHandler executes commands received on hvpsu/command/{identity}/{op}.
type CommandHandler struct {
	manager Commander
	bus     Bus
	logger  Logger
	topics  mqtt.Topics
	timeout time.Duration
	now     func() time.Time
	ctx     context.Context
}

// NewCommandHandler creates a handler. ctx bounds every command it runs;
// cancelling it aborts in-flight connects. logger may be nil.
func NewCommandHandler(ctx context.Context, manager Commander, bus Bus, logger Logger) *CommandHandler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandHandler{
		manager: manager,
		bus:     bus,
		logger:  logger,
		timeout: commandTimeout,
		now:     time.Now,
		ctx:     ctx,
	}
}

// Start subscribes to every PSU command topic.
func (h *CommandHandler) Start() error {
	topic := h.topics.AllPSUCommands()
	if err := h.bus.Subscribe(topic, ackQoS, h.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	h.logger.Info("listening for PSU commands", "topic", topic)
	return nil
}

// Stop unsubscribes from command topics.
func (h *CommandHandler) Stop() error {
	return h.bus.Unsubscribe(h.topics.AllPSUCommands())
}

// handleMessage is the mqtt.MessageHandler for command topics.
func (h *CommandHandler) handleMessage(topic string, payload []byte) error {
	identity, op, ok := h.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", errBadCommand, topic)
	}

	var cmd CommandMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.publishAck(AckMessage{Identity: identity, Op: op, Code: codeBadRequest, Error: "invalid JSON payload"})
			return nil
		}
	}

	h.logger.Debug("received command", "identity", identity, "op", op, "id", cmd.ID)
	ack := h.Execute(identity, op, cmd)
	h.publishAck(ack)
	if !ack.OK {
		h.logger.Warn("command not accepted", "identity", identity, "op", op, "code", ack.Code, "error", ack.Error)
	}
	return nil
}

// Execute runs cmd against the manager and returns the acknowledgement.
func (h *CommandHandler) Execute(identity, op string, cmd CommandMessage) AckMessage {
	ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
	defer cancel()
	ctx = audit.WithActor(ctx, audit.Actor{Source: audit.SourceMQTT, UserID: cmd.UserID})

	ack := AckMessage{ID: cmd.ID, Identity: identity, Op: op}
	var err error

	switch op {
	case OpConnect:
		err = h.manager.Connect(ctx, identity)
		ack.OK = err == nil
	case OpSetVoltage, OpSetCurrent:
		if cmd.Value == nil {
			err = fmt.Errorf("%w: %s requires a value", errBadCommand, op)
			break
		}
		if op == OpSetVoltage {
			ack.OK, err = h.manager.SetVoltage(ctx, identity, *cmd.Value)
		} else {
			ack.OK, err = h.manager.SetCurrent(ctx, identity, *cmd.Value)
		}
	case OpRelay:
		if cmd.State == nil {
			err = fmt.Errorf("%w: relay requires a state", errBadCommand)
			break
		}
		var on bool
		on, err = h.manager.SetRelay(ctx, identity, *cmd.State)
		if err == nil {
			ack.On = &on
			ack.OK = on == *cmd.State
		}
	default:
		err = fmt.Errorf("%w: unknown op %q", errBadCommand, op)
	}

	if err != nil {
		ack.OK = false
		ack.Error = err.Error()
		if errors.Is(err, errBadCommand) {
			ack.Code = codeBadRequest
		} else {
			ack.Code = psu.ErrorCode(err)
		}
	}
	return ack
}

func (h *CommandHandler) publishAck(ack AckMessage) {
	ack.Timestamp = h.now().UTC()
	payload, err := json.Marshal(ack)
	if err != nil {
		h.logger.Warn("failed to marshal ack", "error", err)
		return
	}
	if err := h.bus.Publish(h.topics.PSUAck(ack.Identity), payload, ackQoS, false); err != nil {
		h.logger.Warn("failed to publish ack", "identity", ack.Identity, "error", err)
	}
}
