package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	gferrors "github.com/vnykmshr/pauseflow/pkg/common/errors"
	"github.com/vnykmshr/pauseflow/pkg/common/validation"
	"github.com/vnykmshr/pauseflow/pkg/metrics"
)

const module = "distributed"

// Pausable is the control surface commands are applied to. A
// workerpool.Pool satisfies it.
type Pausable interface {
	Pause() bool
	Resume()
}

// Action is the verb carried by a Command.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
)

// Command is the message published on the command channel.
type Command struct {
	Action   Action    `json:"action"`
	Origin   string    `json:"origin"`
	IssuedAt time.Time `json:"issued_at"`
}

// Config holds configuration for a Controller.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Key is the Redis key prefix shared by every instance of a fleet.
	// Defaults to "pauseflow".
	Key string

	// InstanceID identifies this process in published commands.
	// Defaults to a random UUID.
	InstanceID string

	// RedisTimeout is the timeout for Redis operations (defaults to 500ms)
	RedisTimeout time.Duration

	// Logger receives applied and ignored commands. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records applied commands when set.
	Metrics *metrics.Registry
}

// DefaultConfig returns a default controller configuration without a client.
func DefaultConfig() Config {
	return Config{
		Key:          "pauseflow",
		InstanceID:   uuid.NewString(),
		RedisTimeout: 500 * time.Millisecond,
	}
}

// applyConfigDefaults sets default values for unspecified config fields.
func applyConfigDefaults(config Config) Config {
	defaults := DefaultConfig()
	if config.Key == "" {
		config.Key = defaults.Key
	}
	if config.InstanceID == "" {
		config.InstanceID = defaults.InstanceID
	}
	if config.RedisTimeout <= 0 {
		config.RedisTimeout = defaults.RedisTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return config
}

// Controller pauses and resumes every attached pool of a fleet through Redis.
//
// The pause state is persisted under "<key>:paused" so late joiners start in
// the right state, and every change is announced on "<key>:commands".
type Controller struct {
	config     Config
	logger     *slog.Logger
	pausedKey  string
	commandsCh string
}

// NewController validates config and returns a Controller.
func NewController(config Config) (*Controller, error) {
	if err := validation.ValidateNotNil(module, "Redis", config.Redis); err != nil {
		return nil, err
	}
	config = applyConfigDefaults(config)

	return &Controller{
		config:     config,
		logger:     config.Logger.With("component", module, "key", config.Key, "instance", config.InstanceID),
		pausedKey:  config.Key + ":paused",
		commandsCh: config.Key + ":commands",
	}, nil
}

// InstanceID returns the identifier carried by commands this controller sends.
func (c *Controller) InstanceID() string {
	return c.config.InstanceID
}

// Pause persists the paused flag and tells every attached instance to pause.
func (c *Controller) Pause(ctx context.Context) error {
	return c.publish(ctx, ActionPause)
}

// Resume clears the paused flag and tells every attached instance to resume.
func (c *Controller) Resume(ctx context.Context) error {
	return c.publish(ctx, ActionResume)
}

func (c *Controller) publish(ctx context.Context, action Action) error {
	payload, err := json.Marshal(Command{
		Action:   action,
		Origin:   c.config.InstanceID,
		IssuedAt: time.Now().UTC(),
	})
	if err != nil {
		return gferrors.NewOperationError(module, string(action), err)
	}

	flag := "0"
	if action == ActionPause {
		flag = "1"
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.RedisTimeout)
	defer cancel()

	_, err = c.config.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.pausedKey, flag, 0)
		pipe.Publish(ctx, c.commandsCh, payload)
		return nil
	})
	if err != nil {
		return gferrors.NewOperationError(module, string(action), err).WithContext(c.commandsCh)
	}
	return nil
}

// Paused reports the persisted fleet-wide pause flag. A missing key means
// not paused.
func (c *Controller) Paused(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RedisTimeout)
	defer cancel()

	v, err := c.config.Redis.Get(ctx, c.pausedKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, gferrors.NewOperationError(module, "Paused", err).WithContext(c.pausedKey)
	}
	return v == "1", nil
}

// Subscription applies fleet commands to one target until closed.
type Subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// Attach subscribes target to fleet commands. The subscription is confirmed
// and target is synced to the persisted flag before Attach returns, so no
// command issued afterwards is missed. Commands are applied until Close is
// called or ctx is done.
func (c *Controller) Attach(ctx context.Context, target Pausable) (*Subscription, error) {
	if err := validation.ValidateNotNil(module, "target", target); err != nil {
		return nil, err
	}

	pubsub := c.config.Redis.Subscribe(ctx, c.commandsCh)

	confirmCtx, cancelConfirm := context.WithTimeout(ctx, c.config.RedisTimeout)
	_, err := pubsub.Receive(confirmCtx)
	cancelConfirm()
	if err != nil {
		_ = pubsub.Close()
		return nil, gferrors.NewOperationError(module, "Attach", err).WithContext(c.commandsCh)
	}

	paused, err := c.Paused(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	if paused {
		c.apply(target, Command{Action: ActionPause, Origin: "sync"})
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		pubsub: pubsub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.listen(runCtx, sub, target)

	return sub, nil
}

func (c *Controller) listen(ctx context.Context, sub *Subscription, target Pausable) {
	defer close(sub.done)

	messages := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var cmd Command
			if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
				c.logger.Warn("ignoring malformed command", "payload", msg.Payload, "error", err)
				continue
			}
			c.apply(target, cmd)
		}
	}
}

func (c *Controller) apply(target Pausable, cmd Command) {
	switch cmd.Action {
	case ActionPause:
		if !target.Pause() {
			c.logger.Warn("target refused pause", "origin", cmd.Origin)
			return
		}
	case ActionResume:
		target.Resume()
	default:
		c.logger.Warn("ignoring unknown command", "action", cmd.Action, "origin", cmd.Origin)
		return
	}

	c.logger.Info("applied command", "action", cmd.Action, "origin", cmd.Origin)
	if c.config.Metrics != nil {
		c.config.Metrics.RemoteCommands.WithLabelValues(c.config.Key, string(cmd.Action)).Inc()
	}
}

// Close stops applying commands and releases the Redis subscription.
func (s *Subscription) Close() error {
	s.cancel()
	err := s.pubsub.Close()
	<-s.done
	return err
}

// Done returns a channel closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
