package service

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"neurosim/internal/codec"
	"neurosim/internal/domain"
	"neurosim/internal/metrics"
	"neurosim/internal/repository"

	"go.uber.org/zap"
)

// StimulationResult is the outcome of one stimulate request
type StimulationResult struct {
	StimulatedID string   `json:"stimulated_neuron_id"`
	Fired        []string `json:"fired_neurons"`
}

// session is one owner's resident network
type session struct {
	mu       sync.Mutex
	net      *domain.Network
	lastUsed time.Time // guarded by NetworkService.mu
}

// NetworkService provides business logic for owner-scoped networks
type NetworkService struct {
	repo     repository.Repository
	eventBus *EventBus
	metrics  *metrics.Collector
	logger   *zap.Logger

	clock   func() time.Time
	newRand func() *rand.Rand

	mu          sync.Mutex // guards sessions, params and autoConnect
	sessions    map[string]*session
	params      domain.Params
	autoConnect domain.AutoConnectParams
}

// ServiceOption configures a NetworkService
type ServiceOption func(*NetworkService)

// WithMetrics records operations on the collector
func WithMetrics(m *metrics.Collector) ServiceOption {
	return func(s *NetworkService) { s.metrics = m }
}

// WithSimulation sets the initial simulation and auto-connect parameters
func WithSimulation(p domain.Params, auto domain.AutoConnectParams) ServiceOption {
	return func(s *NetworkService) {
		s.params = p
		s.autoConnect = auto
	}
}

// WithClock overrides time.Now for every network
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *NetworkService) { s.clock = clock }
}

// WithRandFactory supplies the random source for each new network
func WithRandFactory(f func() *rand.Rand) ServiceOption {
	return func(s *NetworkService) { s.newRand = f }
}

// NewNetworkService creates a new network service
func NewNetworkService(repo repository.Repository, eventBus *EventBus, logger *zap.Logger, opts ...ServiceOption) *NetworkService {
	s := &NetworkService{
		repo:        repo,
		eventBus:    eventBus,
		logger:      logger,
		clock:       time.Now,
		sessions:    make(map[string]*session),
		params:      domain.DefaultParams(),
		autoConnect: domain.DefaultAutoConnectParams(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withNetwork runs fn with exclusive access to the owner's resident network.
// The network is synced with the repository first, so writes made by another
// process (the CLI on the same database) are visible.
func (s *NetworkService) withNetwork(ctx context.Context, owner string, fn func(*domain.Network) error) error {
	if owner == "" {
		return domain.ErrNoOwner
	}

	sess := s.session(owner)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.net.Sync(ctx); err != nil {
		s.storeFailed("load_network", owner, err)
		return err
	}

	return fn(sess.net)
}

func (s *NetworkService) session(owner string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[owner]; ok {
		sess.lastUsed = s.clock()
		return sess
	}

	opts := []domain.Option{
		domain.WithStore(s.repo),
		domain.WithOwner(owner),
		domain.WithParams(s.params),
		domain.WithClock(s.clock),
	}
	if s.newRand != nil {
		opts = append(opts, domain.WithRand(s.newRand()))
	}

	sess := &session{net: domain.NewNetwork(opts...), lastUsed: s.clock()}
	s.sessions[owner] = sess
	s.metrics.SetResidentNetworks(len(s.sessions))
	s.logger.Debug("network session opened", zap.String("owner", owner))
	return sess
}

// EvictIdle drops resident networks unused for longer than idle. Sessions in
// use are skipped. It returns the number evicted.
func (s *NetworkService) EvictIdle(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock().Add(-idle)
	evicted := 0
	for owner, sess := range s.sessions {
		if !sess.lastUsed.Before(cutoff) || !sess.mu.TryLock() {
			continue
		}
		delete(s.sessions, owner)
		sess.mu.Unlock()
		evicted++
	}

	if evicted > 0 {
		s.metrics.SetResidentNetworks(len(s.sessions))
		s.logger.Debug("idle networks evicted", zap.Int("count", evicted), zap.Int("resident", len(s.sessions)))
	}
	return evicted
}

// ResidentOwners returns how many owner networks are held in memory
func (s *NetworkService) ResidentOwners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// AddNeuron creates a neuron at pos (nil for an unpositioned neuron)
func (s *NetworkService) AddNeuron(ctx context.Context, owner string, pos *domain.Position) (domain.Neuron, error) {
	var created domain.Neuron
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		n, err := net.AddNeuron(ctx, pos)
		if err != nil {
			s.storeFailed("save_neuron", owner, err)
			return err
		}
		created = n.Snapshot()
		return nil
	})
	if err != nil {
		return domain.Neuron{}, err
	}

	s.metrics.NeuronsAdded(1)
	s.eventBus.Publish(Event{
		Type:    EventNeuronCreated,
		Owner:   owner,
		Payload: created,
	})
	return created, nil
}

// GetNeuron returns a copy of one resident neuron
func (s *NetworkService) GetNeuron(ctx context.Context, owner, id string) (domain.Neuron, error) {
	var found domain.Neuron
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		n := net.GetNeuron(id)
		if n == nil {
			return fmt.Errorf("%w: %s", domain.ErrNeuronNotFound, id)
		}
		found = n.Snapshot()
		return nil
	})
	return found, err
}

// Connect adds the edge fromID -> toID. Unknown IDs yield ErrNeuronNotFound.
func (s *NetworkService) Connect(ctx context.Context, owner, fromID, toID string) error {
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		ok, err := net.ConnectNeurons(ctx, fromID, toID)
		if err != nil {
			s.storeFailed("save_connection", owner, err)
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s -> %s", domain.ErrNeuronNotFound, fromID, toID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.ConnectionsAdded(1)
	s.eventBus.Publish(Event{
		Type:    EventConnectionCreated,
		Owner:   owner,
		Payload: domain.Connection{FromID: fromID, ToID: toID},
	})
	return nil
}

// Stimulate delivers a stimulus to neuronID, or to a random neuron when
// neuronID is empty, and records a firing event for every neuron that fired
func (s *NetworkService) Stimulate(ctx context.Context, owner, neuronID string) (*StimulationResult, error) {
	result := &StimulationResult{}
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		if neuronID == "" {
			target, fired, err := net.StimulateRandom()
			if err != nil {
				return err
			}
			result.StimulatedID, result.Fired = target.ID, fired
		} else {
			target := net.GetNeuron(neuronID)
			if target == nil {
				return fmt.Errorf("%w: %s", domain.ErrNeuronNotFound, neuronID)
			}
			result.StimulatedID, result.Fired = target.ID, net.StimulateNeuron(target)
		}

		// History write failures do not undo the cascade
		for _, id := range result.Fired {
			if err := net.RecordFiringEvent(ctx, id); err != nil {
				s.storeFailed("firing_event", owner, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveCascade(len(result.Fired))
	if len(result.Fired) > 0 {
		s.logger.Debug("cascade",
			zap.String("owner", owner),
			zap.String("stimulated", result.StimulatedID),
			zap.Int("fired", len(result.Fired)),
		)
	}
	s.eventBus.Publish(Event{
		Type:    EventCascade,
		Owner:   owner,
		Payload: CascadePayload{StimulatedID: result.StimulatedID, Fired: result.Fired},
	})
	return result, nil
}

// AutoConnect wires the owner's network by distance. Fields left unset in
// overrides take the configured defaults.
func (s *NetworkService) AutoConnect(ctx context.Context, owner string, overrides domain.AutoConnectOverrides) (int, error) {
	s.mu.Lock()
	p := overrides.Apply(s.autoConnect)
	s.mu.Unlock()

	var made int
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		var err error
		made, err = net.AutoConnect(ctx, p)
		if err != nil && domain.IsPersistence(err) {
			s.storeFailed("save_connection", owner, err)
		}
		return err
	})
	// Edges made before a storage failure are real; count them either way
	s.metrics.ConnectionsAdded(made)
	if err != nil {
		return made, err
	}

	s.logger.Info("auto-connect finished", zap.String("owner", owner), zap.Int("created", made))
	s.eventBus.Publish(Event{
		Type:    EventAutoConnected,
		Owner:   owner,
		Payload: map[string]int{"created": made},
	})
	return made, nil
}

// GetGraph returns the owner's network for visualization. With reload the
// resident network is rebuilt from the repository, discarding potentials and
// refractory state.
func (s *NetworkService) GetGraph(ctx context.Context, owner string, reload bool) (*domain.Graph, error) {
	var graph *domain.Graph
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		if reload {
			if err := net.LoadFromOwner(ctx, owner); err != nil {
				s.storeFailed("load_network", owner, err)
				return err
			}
		}
		graph = domain.DeriveGraph(net, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reload {
		s.eventBus.Publish(Event{Type: EventNetworkReloaded, Owner: owner})
	}
	return graph, nil
}

// Clear deletes the owner's network from storage and memory
func (s *NetworkService) Clear(ctx context.Context, owner string) error {
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		if err := net.ClearOwnerNetwork(ctx); err != nil {
			s.storeFailed("delete_network", owner, err)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("network cleared", zap.String("owner", owner))
	s.eventBus.Publish(Event{Type: EventNetworkCleared, Owner: owner})
	return nil
}

// Report builds the firing report from the owner's persisted data
func (s *NetworkService) Report(ctx context.Context, owner string) (*domain.Report, error) {
	if owner == "" {
		return nil, domain.ErrNoOwner
	}

	neurons, err := s.repo.LoadNeurons(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load neurons: %w", err)
	}
	conns, err := s.repo.LoadConnections(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	events, err := s.repo.LoadFiringEvents(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load firing events: %w", err)
	}

	return domain.BuildReport(neurons, conns, events), nil
}

// Export writes the owner's resident network in the given format
func (s *NetworkService) Export(ctx context.Context, owner string, exporter codec.Exporter, w io.Writer) error {
	var fragment *domain.NetworkFragment
	err := s.withNetwork(ctx, owner, func(net *domain.Network) error {
		fragment = net.ExportFragment()
		return nil
	})
	if err != nil {
		return err
	}
	return exporter.Export(fragment, w)
}

// Import parses r and merges it into the owner's network
func (s *NetworkService) Import(ctx context.Context, owner string, importer codec.Importer, r io.Reader) (*domain.ImportResult, error) {
	fragment, err := importer.Parse(r)
	if err != nil {
		return nil, err
	}

	var result *domain.ImportResult
	err = s.withNetwork(ctx, owner, func(net *domain.Network) error {
		var err error
		result, err = net.ImportFragment(ctx, fragment)
		return err
	})
	if result != nil {
		s.metrics.NeuronsAdded(result.NeuronsCreated)
		s.metrics.ConnectionsAdded(result.ConnectionsCreated)
	}
	if err != nil {
		s.storeFailed("import", owner, err)
		return result, err
	}

	s.logger.Info("network imported",
		zap.String("owner", owner),
		zap.String("format", importer.Format()),
		zap.Int("neurons", result.NeuronsCreated),
		zap.Int("connections", result.ConnectionsCreated),
	)
	s.eventBus.Publish(Event{Type: EventNetworkImported, Owner: owner, Payload: result})
	return result, nil
}

// ApplySimulation replaces simulation parameters on every resident network
// and on networks loaded later
func (s *NetworkService) ApplySimulation(p domain.Params, auto domain.AutoConnectParams) {
	s.mu.Lock()
	s.params = p
	s.autoConnect = auto
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		sess.net.SetParams(p)
		sess.mu.Unlock()
	}

	s.logger.Info("simulation parameters applied",
		zap.Duration("refractory_period", p.RefractoryPeriod),
		zap.Int("max_cascade_depth", p.MaxCascadeDepth),
		zap.Int("networks", len(sessions)),
	)
}

func (s *NetworkService) storeFailed(op, owner string, err error) {
	if !domain.IsPersistence(err) {
		return
	}
	s.metrics.StoreFailed(op)
	s.logger.Error("storage operation failed",
		zap.String("op", op),
		zap.String("owner", owner),
		zap.Error(err),
	)
}
