package media

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DeviceConfig is the configuration of one media device.
type DeviceConfig struct {
	ID   string
	Name string
	Type DeviceType
	// Topic is the outbound flow topic. Empty uses the publisher's default.
	Topic     string
	Passthru  bool
	AuthToken string
	Static    StaticConfig
	Catalogs  CatalogLoader
	Streams   StreamSource
}

// RemovalHook is called after a device is permanently removed.
type RemovalHook func(ctx context.Context, deviceID string) error

// RegistryOptions wires a Registry to its collaborators.
type RegistryOptions struct {
	// CloudSync is required for a device to register.
	CloudSync    CloudSync
	Forwarder    Forwarder
	Status       StatusIndicator
	Manufacturer Manufacturer
	// QueueSize bounds the pending events per device.
	QueueSize int
	// OnRemove runs after Remove deregisters a device.
	OnRemove RemovalHook
}

// Registry holds the registered media devices.
//
// Devices register at startup from configuration and may be deregistered
// (restart) or removed (permanent deletion) at runtime.
//
// All public methods are thread-safe.
type Registry struct {
	opts   RegistryOptions
	nodes  map[string]*Node
	mu     sync.RWMutex
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		opts:   opts,
		nodes:  make(map[string]*Node),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry and the devices it creates.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register builds and starts a device.
//
// A device is refused with ErrMissingCloudSync when the registry has no
// cloud-sync collaborator, and with ErrMissingConfig when the
// configuration carries no id or type. Both set the matching status.
// On success the device shows StatusReady.
func (r *Registry) Register(cfg DeviceConfig) (*Node, error) {
	id := strings.TrimSpace(cfg.ID)

	if r.opts.CloudSync == nil {
		r.setStatus(id, StatusMissingSmartHome)
		return nil, fmt.Errorf("registering %q: %w", id, ErrMissingCloudSync)
	}
	if id == "" || cfg.Type == "" {
		r.setStatus(id, StatusMissingConfig)
		return nil, fmt.Errorf("registering %q: %w", id, ErrMissingConfig)
	}

	r.mu.RLock()
	_, exists := r.nodes[id]
	r.mu.RUnlock()
	logger := r.getLogger()
	if exists {
		return nil, fmt.Errorf("registering %q: %w", id, ErrDeviceExists)
	}

	// Catalog loading may be slow; other devices stay reachable meanwhile.
	desc, initial, err := Build(BuildRequest{
		ID:           id,
		Type:         cfg.Type,
		Name:         cfg.Name,
		Static:       cfg.Static,
		Manufacturer: r.opts.Manufacturer,
		Catalogs:     cfg.Catalogs,
		OnCatalogError: func(kind CatalogKind, err error) {
			logger.Warn("catalog unavailable, advertising empty", "device_id", id, "catalog", string(kind), "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("registering %q: %w", id, err)
	}

	store := NewStore(initial, StateFields(desc.ResolvedTraits()))
	handler, err := NewHandler(HandlerOptions{
		Descriptor: desc,
		Store:      store,
		CloudSync:  r.opts.CloudSync,
		Forwarder:  r.opts.Forwarder,
		Status:     r.opts.Status,
		Passthru:   cfg.Passthru,
		Topic:      cfg.Topic,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("registering %q: %w", id, err)
	}
	executor := NewExecutor(cfg.Streams, cfg.AuthToken)

	r.mu.Lock()
	if _, exists := r.nodes[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("registering %q: %w", id, ErrDeviceExists)
	}
	node := newNode(desc, store, handler, executor, r.opts.QueueSize, logger)
	r.nodes[id] = node
	r.mu.Unlock()

	logger.Info("media device registered",
		"device_id", id,
		"type", desc.Type,
		"traits", len(desc.Traits))
	r.setStatus(id, StatusReady)

	return node, nil
}

// Deregister stops a device without deleting any persisted data.
// Returns ErrDeviceNotFound if the device is not registered.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	node, ok := r.nodes[id]
	if ok {
		delete(r.nodes, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("deregistering %q: %w", id, ErrDeviceNotFound)
	}

	node.close()
	r.getLogger().Info("media device deregistered", "device_id", id)
	return nil
}

// Remove deregisters a device and runs the removal hook so collaborators
// can delete what they stored for it.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.Deregister(id); err != nil {
		return err
	}
	if r.opts.OnRemove != nil {
		if err := r.opts.OnRemove(ctx, id); err != nil {
			return fmt.Errorf("removing %q: %w", id, err)
		}
	}
	r.getLogger().Info("media device removed", "device_id", id)
	return nil
}

// Get returns a registered device.
// Returns ErrDeviceNotFound if the device is not registered.
func (r *Registry) Get(id string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%q: %w", id, ErrDeviceNotFound)
	}
	return node, nil
}

// List returns all registered devices ordered by ID.
func (r *Registry) List() []*Node {
	r.mu.RLock()
	nodes := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		nodes = append(nodes, n)
	}
	r.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	return nodes
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Deliver queues an inbound flow message for a device.
func (r *Registry) Deliver(ctx context.Context, id string, msg Message) error {
	node, err := r.Get(id)
	if err != nil {
		return err
	}
	return node.Deliver(ctx, msg)
}

// Execute runs a command on a device. ok is false when the device did
// not handle the command.
func (r *Registry) Execute(ctx context.Context, id string, cmd Command) (*ExecutionResult, bool, error) {
	node, err := r.Get(id)
	if err != nil {
		return nil, false, err
	}
	return node.Execute(ctx, cmd)
}

// Close stops every device.
func (r *Registry) Close() {
	r.mu.Lock()
	nodes := r.nodes
	r.nodes = make(map[string]*Node)
	r.mu.Unlock()

	for _, n := range nodes {
		n.close()
	}
	r.getLogger().Info("media registry closed", "devices", len(nodes))
}

func (r *Registry) getLogger() Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

func (r *Registry) setStatus(id string, status Status) {
	if r.opts.Status != nil && id != "" {
		r.opts.Status.SetStatus(id, status)
	}
}
