package domain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNetworkAddNeuron(t *testing.T) {
	ctx := context.Background()

	t.Run("persists and appends", func(t *testing.T) {
		store := newMemStore()
		net := newTestNetwork(t, "alice", store, newFakeClock())

		n := addAt(t, net, 10, 20)

		if net.Len() != 1 {
			t.Fatalf("expected 1 resident neuron, got %d", net.Len())
		}
		if net.GetNeuron(n.ID) != n {
			t.Error("expected neuron to be resolvable")
		}
		if n.Threshold < MinThreshold || n.Threshold >= MaxThreshold {
			t.Errorf("threshold %f outside [%v, %v)", n.Threshold, MinThreshold, MaxThreshold)
		}
		if got := store.neurons["alice"]; len(got) != 1 || got[0].ID != n.ID {
			t.Errorf("expected neuron persisted for alice, got %v", got)
		}
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())
		a := addAt(t, net, 0, 0)
		b := addAt(t, net, 1, 1)
		c := addAt(t, net, 2, 2)

		got := net.Neurons()
		if got[0] != a || got[1] != b || got[2] != c {
			t.Error("expected neurons in insertion order")
		}
	})

	t.Run("storage failure leaves network untouched", func(t *testing.T) {
		store := newMemStore()
		store.failSave = true
		net := newTestNetwork(t, "alice", store, newFakeClock())

		_, err := net.AddNeuron(ctx, nil)
		if !IsPersistence(err) || !errors.Is(err, errStoreDown) {
			t.Fatalf("expected persistence error, got %v", err)
		}
		if net.Len() != 0 {
			t.Error("expected no resident neuron after failure")
		}
	})

	t.Run("unbound network with store refuses", func(t *testing.T) {
		net := NewNetwork(WithStore(newMemStore()))
		if _, err := net.AddNeuron(ctx, nil); !errors.Is(err, ErrNoOwner) {
			t.Errorf("expected ErrNoOwner, got %v", err)
		}
	})
}

func TestNetworkConnectNeurons(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	net := newTestNetwork(t, "alice", store, newFakeClock())
	a := addAt(t, net, 0, 0)
	b := addAt(t, net, 5, 5)

	t.Run("connects and persists", func(t *testing.T) {
		ok, err := net.ConnectNeurons(ctx, a.ID, b.ID)
		if err != nil || !ok {
			t.Fatalf("ConnectNeurons = %v, %v", ok, err)
		}
		if !a.IsConnectedTo(b.ID) {
			t.Error("expected in-memory edge")
		}
	})

	t.Run("repeat connect stores one edge", func(t *testing.T) {
		if _, err := net.ConnectNeurons(ctx, a.ID, b.ID); err != nil {
			t.Fatal(err)
		}
		if len(a.ConnectedTo) != 1 {
			t.Errorf("expected 1 outgoing edge, got %v", a.ConnectedTo)
		}
		if len(store.conns["alice"]) != 1 {
			t.Errorf("expected 1 persisted edge, got %v", store.conns["alice"])
		}
	})

	t.Run("missing id is a silent no-op", func(t *testing.T) {
		ok, err := net.ConnectNeurons(ctx, a.ID, "missing")
		if err != nil || ok {
			t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
		}
		ok, err = net.ConnectNeurons(ctx, "missing", b.ID)
		if err != nil || ok {
			t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
		}
		if len(store.conns["alice"]) != 1 {
			t.Error("expected nothing persisted for missing ids")
		}
	})

	t.Run("self connection rejected", func(t *testing.T) {
		_, err := net.ConnectNeurons(ctx, a.ID, a.ID)
		if !errors.Is(err, ErrSelfConnection) {
			t.Errorf("expected ErrSelfConnection, got %v", err)
		}
	})

	t.Run("connections listed by source", func(t *testing.T) {
		conns := net.Connections()
		if len(conns) != 1 || conns[0] != (Connection{FromID: a.ID, ToID: b.ID}) {
			t.Errorf("unexpected connections %v", conns)
		}
	})
}

func TestNetworkStimulate(t *testing.T) {
	t.Run("chain cascades", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())
		ctx := context.Background()
		a := addAt(t, net, 0, 0)
		b := addAt(t, net, 0, 0)
		c := addAt(t, net, 0, 0)
		for _, n := range []*Neuron{a, b, c} {
			n.Threshold = 0.1
		}
		net.ConnectNeurons(ctx, a.ID, b.ID)
		net.ConnectNeurons(ctx, b.ID, c.ID)

		assertFired(t, []string{a.ID, b.ID, c.ID}, net.StimulateNeuron(a))
	})

	t.Run("cycle terminates", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())
		ctx := context.Background()
		a := addAt(t, net, 0, 0)
		b := addAt(t, net, 0, 0)
		a.Threshold, b.Threshold = 0.1, 0.1
		net.ConnectNeurons(ctx, a.ID, b.ID)
		net.ConnectNeurons(ctx, b.ID, a.ID)

		assertFired(t, []string{a.ID, b.ID}, net.StimulateNeuron(a))
	})

	t.Run("below threshold returns empty", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())
		a := addAt(t, net, 0, 0)
		a.Threshold = 1.0

		fired := net.StimulateNeuron(a)
		if fired == nil || len(fired) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", fired)
		}
		if a.Potential < MinStimulus || a.Potential >= MaxStimulus {
			t.Errorf("potential %f outside stimulus range", a.Potential)
		}
	})

	t.Run("refractory after firing", func(t *testing.T) {
		clock := newFakeClock()
		net := newTestNetwork(t, "alice", nil, clock)
		a := addAt(t, net, 0, 0)
		a.Threshold = 0.1

		assertFired(t, []string{a.ID}, net.StimulateNeuron(a))
		if fired := net.StimulateNeuron(a); len(fired) != 0 {
			t.Errorf("expected refractory neuron to stay silent, got %v", fired)
		}

		clock.Advance(time.Second)
		assertFired(t, []string{a.ID}, net.StimulateNeuron(a))
	})
}

func TestNetworkRandomSelection(t *testing.T) {
	t.Run("empty network", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())

		if net.GetRandomNeuron() != nil {
			t.Error("expected nil from empty network")
		}
		if _, _, err := net.StimulateRandom(); !errors.Is(err, ErrEmptyNetwork) {
			t.Errorf("expected ErrEmptyNetwork, got %v", err)
		}
	})

	t.Run("picks every neuron eventually", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())
		for i := 0; i < 4; i++ {
			addAt(t, net, 0, 0)
		}

		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			seen[net.GetRandomNeuron().ID] = true
		}
		if len(seen) != 4 {
			t.Errorf("expected all 4 neurons picked, got %d", len(seen))
		}
	})

	t.Run("stimulate random reports the pick", func(t *testing.T) {
		net := newTestNetwork(t, "alice", nil, newFakeClock())
		a := addAt(t, net, 0, 0)
		a.Threshold = 0.1

		picked, fired, err := net.StimulateRandom()
		if err != nil {
			t.Fatal(err)
		}
		if picked != a {
			t.Error("expected the only neuron to be picked")
		}
		assertFired(t, []string{a.ID}, fired)
	})
}

func TestNetworkLoadFromOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock()

	alice := newTestNetwork(t, "alice", store, clock)
	a1 := addAt(t, alice, 0, 0)
	a2 := addAt(t, alice, 1, 1)
	alice.ConnectNeurons(ctx, a1.ID, a2.ID)

	bob := newTestNetwork(t, "bob", store, clock)
	b1 := addAt(t, bob, 3, 3)

	t.Run("repopulates neurons and connections", func(t *testing.T) {
		net := NewNetwork(WithStore(store), WithClock(clock.Now))
		if err := net.LoadFromOwner(ctx, "alice"); err != nil {
			t.Fatal(err)
		}
		if net.Owner() != "alice" || net.Len() != 2 {
			t.Fatalf("expected alice with 2 neurons, got %s with %d", net.Owner(), net.Len())
		}
		loaded := net.GetNeuron(a1.ID)
		if loaded == nil || !loaded.IsConnectedTo(a2.ID) {
			t.Error("expected a1 -> a2 restored")
		}
		if loaded.Threshold != a1.Threshold {
			t.Errorf("expected threshold %f, got %f", a1.Threshold, loaded.Threshold)
		}
		if loaded.Position == nil || *loaded.Position != *a1.Position {
			t.Error("expected position restored")
		}
	})

	t.Run("switching owner replaces state", func(t *testing.T) {
		net := NewNetwork(WithStore(store), WithClock(clock.Now))
		net.LoadFromOwner(ctx, "alice")
		if err := net.LoadFromOwner(ctx, "bob"); err != nil {
			t.Fatal(err)
		}
		if net.GetNeuron(a1.ID) != nil || net.GetNeuron(a2.ID) != nil {
			t.Error("expected alice's neurons gone after loading bob")
		}
		if net.GetNeuron(b1.ID) == nil || net.Len() != 1 {
			t.Error("expected only bob's neuron resident")
		}
	})

	t.Run("load failure leaves network empty", func(t *testing.T) {
		failing := newMemStore()
		failing.failLoad = true
		net := NewNetwork(WithStore(failing))
		net.adopt(NewNeuron("stale", 0.5, nil))

		err := net.LoadFromOwner(ctx, "alice")
		if !IsPersistence(err) {
			t.Fatalf("expected persistence error, got %v", err)
		}
		if net.Len() != 0 {
			t.Error("expected stale neuron discarded")
		}
	})

	t.Run("in-memory network just rebinds", func(t *testing.T) {
		net := NewNetwork()
		net.adopt(NewNeuron("x", 0.5, nil))
		if err := net.LoadFromOwner(ctx, "carol"); err != nil {
			t.Fatal(err)
		}
		if net.Owner() != "carol" || net.Len() != 0 {
			t.Error("expected empty network bound to carol")
		}
	})
}

func TestNetworkSync(t *testing.T) {
	ctx := context.Background()

	t.Run("picks up writes from another process", func(t *testing.T) {
		store := newMemStore()
		clock := newFakeClock()
		server := newTestNetwork(t, "alice", store, clock)
		a := addAt(t, server, 0, 0)

		cli := newTestNetwork(t, "alice", store, clock)
		if err := cli.Sync(ctx); err != nil {
			t.Fatal(err)
		}
		b := addAt(t, cli, 1, 1)
		if ok, err := cli.ConnectNeurons(ctx, a.ID, b.ID); !ok || err != nil {
			t.Fatalf("connect: %v %v", ok, err)
		}

		if err := server.Sync(ctx); err != nil {
			t.Fatal(err)
		}
		if server.Len() != 2 {
			t.Fatalf("expected 2 neurons after sync, got %d", server.Len())
		}
		if !server.GetNeuron(a.ID).IsConnectedTo(b.ID) {
			t.Error("expected connection written elsewhere to be resident")
		}
	})

	t.Run("keeps dynamic state of surviving neurons", func(t *testing.T) {
		store := newMemStore()
		clock := newFakeClock()
		net := newTestNetwork(t, "alice", store, clock)
		a := addAt(t, net, 0, 0)
		a.Potential = 0.25
		a.LastFired = clock.now

		if err := net.Sync(ctx); err != nil {
			t.Fatal(err)
		}
		got := net.GetNeuron(a.ID)
		if got.Potential != 0.25 || !got.LastFired.Equal(clock.now) {
			t.Errorf("expected potential and firing time kept, got %v at %v", got.Potential, got.LastFired)
		}
		if !got.IsRefractory(clock.now) {
			t.Error("expected neuron still refractory after sync")
		}
	})

	t.Run("drops neurons cleared elsewhere", func(t *testing.T) {
		store := newMemStore()
		net := newTestNetwork(t, "alice", store, newFakeClock())
		addAt(t, net, 0, 0)
		if err := store.DeleteOwnerNetwork(ctx, "alice"); err != nil {
			t.Fatal(err)
		}

		if err := net.Sync(ctx); err != nil {
			t.Fatal(err)
		}
		if net.Len() != 0 {
			t.Errorf("expected empty network, got %d neurons", net.Len())
		}
	})

	t.Run("load failure leaves resident state", func(t *testing.T) {
		store := newMemStore()
		net := newTestNetwork(t, "alice", store, newFakeClock())
		addAt(t, net, 0, 0)
		store.failLoad = true

		if err := net.Sync(ctx); !errors.Is(err, errStoreDown) || !IsPersistence(err) {
			t.Errorf("expected persistence error, got %v", err)
		}
		if net.Len() != 1 {
			t.Errorf("expected resident neuron kept, got %d", net.Len())
		}
	})

	t.Run("unbound network", func(t *testing.T) {
		net := NewNetwork(WithStore(newMemStore()))
		if err := net.Sync(ctx); !errors.Is(err, ErrNoOwner) {
			t.Errorf("expected ErrNoOwner, got %v", err)
		}
	})
}

func TestNetworkClearOwnerNetwork(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes only the owner's data", func(t *testing.T) {
		store := newMemStore()
		clock := newFakeClock()
		alice := newTestNetwork(t, "alice", store, clock)
		a1 := addAt(t, alice, 0, 0)
		a2 := addAt(t, alice, 0, 0)
		alice.ConnectNeurons(ctx, a1.ID, a2.ID)
		alice.RecordFiringEvent(ctx, a1.ID)

		bob := newTestNetwork(t, "bob", store, clock)
		b1 := addAt(t, bob, 0, 0)
		bob.RecordFiringEvent(ctx, b1.ID)

		if err := alice.ClearOwnerNetwork(ctx); err != nil {
			t.Fatal(err)
		}
		if alice.Len() != 0 {
			t.Error("expected resident collection cleared")
		}
		if len(store.neurons["alice"])+len(store.conns["alice"])+len(store.events["alice"]) != 0 {
			t.Error("expected alice's stored data removed")
		}
		if len(store.neurons["bob"]) != 1 || len(store.events["bob"]) != 1 {
			t.Error("expected bob's data untouched")
		}
	})

	t.Run("failure propagates and keeps resident state", func(t *testing.T) {
		store := newMemStore()
		net := newTestNetwork(t, "alice", store, newFakeClock())
		addAt(t, net, 0, 0)
		store.failDelete = true

		err := net.ClearOwnerNetwork(ctx)
		if !errors.Is(err, errStoreDown) {
			t.Fatalf("expected store error, got %v", err)
		}
		if net.Len() != 1 {
			t.Error("expected resident neuron kept after failed clear")
		}
	})
}

func TestNetworkRecordFiringEvent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	clock := newFakeClock()
	net := newTestNetwork(t, "alice", store, clock)

	if err := net.RecordFiringEvent(ctx, "n1"); err != nil {
		t.Fatal(err)
	}
	events := store.events["alice"]
	if len(events) != 1 || events[0].NeuronID != "n1" || !events[0].FiredAt.Equal(clock.now) {
		t.Errorf("unexpected events %v", events)
	}

	t.Run("no store is a no-op", func(t *testing.T) {
		if err := NewNetwork().RecordFiringEvent(ctx, "n1"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}

func TestNetworkSetParams(t *testing.T) {
	net := newTestNetwork(t, "alice", nil, newFakeClock())
	n := addAt(t, net, 0, 0)

	net.SetParams(Params{RefractoryPeriod: 3 * time.Second, MaxCascadeDepth: -1})

	if n.RefractoryPeriod != 3*time.Second {
		t.Errorf("expected resident neuron updated, got %s", n.RefractoryPeriod)
	}
	p := net.Params()
	if p.MinStimulus != MinStimulus || p.MaxThreshold != MaxThreshold {
		t.Errorf("expected zero ranges defaulted, got %+v", p)
	}
	if p.MaxCascadeDepth != 0 {
		t.Errorf("expected negative depth clamped to 0, got %d", p.MaxCascadeDepth)
	}
}

func TestNetworkImportFragment(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	net := newTestNetwork(t, "alice", store, newFakeClock())
	existing := addAt(t, net, 0, 0)

	f := NewNetworkFragment()
	f.AddNeuron(NeuronRecord{ID: "n1", Threshold: 0.4, Position: &Position{X: 1, Y: 2}})
	f.AddNeuron(NeuronRecord{ID: "n2"})
	f.AddNeuron(NeuronRecord{ID: existing.ID, Threshold: 0.9})
	f.AddConnection(Connection{FromID: "n1", ToID: "n2"})
	f.AddConnection(Connection{FromID: "n1", ToID: "n2"})
	f.AddConnection(Connection{FromID: "n2", ToID: "n2"})
	f.AddConnection(Connection{FromID: "ghost", ToID: "n1"})

	result, err := net.ImportFragment(ctx, f)
	if err != nil {
		t.Fatal(err)
	}
	if result.NeuronsCreated != 2 || result.ConnectionsCreated != 1 {
		t.Errorf("unexpected result %+v", result)
	}
	if net.GetNeuron("n1").Threshold != 0.4 {
		t.Error("expected imported threshold kept")
	}
	if th := net.GetNeuron("n2").Threshold; th < MinThreshold || th >= MaxThreshold {
		t.Errorf("expected drawn threshold, got %f", th)
	}
	if existing.Threshold == 0.9 {
		t.Error("expected resident neuron not overwritten")
	}

	exported := net.ExportFragment()
	if len(exported.Neurons) != 3 || len(exported.Connections) != 1 {
		t.Errorf("unexpected export %+v", exported)
	}
}
