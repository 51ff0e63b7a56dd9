package session

import (
	"errors"
	"testing"
)

func TestInitialLevels(t *testing.T) {
	s := New()
	if got := s.LevelView(LevelCommodity).Phase; got != PhaseLoading {
		t.Errorf("commodity should start loading, got %v", got)
	}
	if got := s.LevelView(LevelState).Phase; got != PhaseDisabled {
		t.Errorf("state should start disabled, got %v", got)
	}
	if got := s.LevelView(LevelMarket).Phase; got != PhaseDisabled {
		t.Errorf("market should start disabled, got %v", got)
	}
}

func TestCascadeSelectsExactTriple(t *testing.T) {
	s := New()
	tok := s.BeginCommodityLoad()
	if !s.Resolve(tok, []string{"Wheat", "Onion"}, nil) {
		t.Fatal("fresh load should apply")
	}

	tok = s.ChooseCommodity("Wheat")
	if got := s.LevelView(LevelState).Phase; got != PhaseLoading {
		t.Errorf("state should be loading after commodity pick, got %v", got)
	}
	if got := s.LevelView(LevelMarket).Phase; got != PhaseDisabled {
		t.Errorf("market must drop to disabled on commodity pick, got %v", got)
	}
	s.Resolve(tok, []string{"Punjab", "Haryana"}, nil)

	tok = s.ChooseState("Punjab")
	s.Resolve(tok, []string{"Ludhiana", "Amritsar"}, nil)
	s.ChooseMarket("Ludhiana")

	sel := s.Selection()
	if sel.Commodity != "Wheat" || sel.State != "Punjab" || sel.Market != "Ludhiana" {
		t.Errorf("selection must be exactly the picked triple, got %+v", sel)
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	s := New()
	s.Resolve(s.BeginCommodityLoad(), []string{"Wheat", "Rice"}, nil)

	first := s.ChooseCommodity("Wheat")
	second := s.ChooseCommodity("Rice")

	// The newer fetch lands first.
	if !s.Resolve(second, []string{"West Bengal"}, nil) {
		t.Fatal("latest fetch must apply")
	}
	// The slow earlier fetch must not overwrite.
	if s.Resolve(first, []string{"Punjab", "Haryana"}, nil) {
		t.Error("stale fetch must be discarded")
	}
	lv := s.LevelView(LevelState)
	if lv.Phase != PhaseReady || len(lv.Options) != 1 || lv.Options[0] != "West Bengal" {
		t.Errorf("displayed options must match the latest selection, got %+v", lv)
	}
}

func TestReselectSameCommodityRace(t *testing.T) {
	s := New()
	s.Resolve(s.BeginCommodityLoad(), []string{"Onion"}, nil)

	// Same commodity twice in succession still yields two fetches; only the
	// latest may commit.
	first := s.ChooseCommodity("Onion")
	second := s.ChooseCommodity("Onion")
	if s.Resolve(first, []string{"stale"}, nil) {
		t.Error("superseded fetch applied")
	}
	if !s.Resolve(second, []string{"Maharashtra"}, nil) {
		t.Error("latest fetch rejected")
	}
	lv := s.LevelView(LevelState)
	if lv.Phase != PhaseReady || lv.Options[0] != "Maharashtra" {
		t.Errorf("unexpected level %+v", lv)
	}
}

func TestClearCommodityResetsBothLevels(t *testing.T) {
	s := New()
	s.Resolve(s.BeginCommodityLoad(), []string{"Wheat"}, nil)
	s.Resolve(s.ChooseCommodity("Wheat"), []string{"Punjab"}, nil)
	s.Resolve(s.ChooseState("Punjab"), []string{"Ludhiana"}, nil)
	s.ChooseMarket("Ludhiana")

	s.ClearCommodity()
	sel := s.Selection()
	if sel.Commodity != "" || sel.State != "" || sel.Market != "" {
		t.Errorf("clearing commodity must unselect everything, got %+v", sel)
	}
	if got := s.LevelView(LevelState).Phase; got != PhaseDisabled {
		t.Errorf("state level must be disabled, got %v", got)
	}
	if got := s.LevelView(LevelMarket).Phase; got != PhaseDisabled {
		t.Errorf("market level must be disabled, got %v", got)
	}
}

func TestClearStateResetsMarket(t *testing.T) {
	s := New()
	s.Resolve(s.BeginCommodityLoad(), []string{"Wheat"}, nil)
	s.Resolve(s.ChooseCommodity("Wheat"), []string{"Punjab"}, nil)
	s.Resolve(s.ChooseState("Punjab"), []string{"Ludhiana"}, nil)
	s.ChooseMarket("Ludhiana")

	s.ClearState()
	sel := s.Selection()
	if sel.Commodity != "Wheat" || sel.State != "" || sel.Market != "" {
		t.Errorf("clearing state keeps commodity only, got %+v", sel)
	}
	if got := s.LevelView(LevelMarket).Phase; got != PhaseDisabled {
		t.Errorf("market level must be disabled, got %v", got)
	}
}

func TestResolveEmptyAndError(t *testing.T) {
	s := New()
	s.Resolve(s.BeginCommodityLoad(), []string{"Wheat"}, nil)

	tok := s.ChooseCommodity("Wheat")
	s.Resolve(tok, nil, nil)
	if got := s.LevelView(LevelState).Phase; got != PhaseEmpty {
		t.Errorf("zero options is Empty, not Error, got %v", got)
	}

	tok = s.ChooseCommodity("Wheat")
	s.Resolve(tok, nil, errors.New("backend unreachable"))
	lv := s.LevelView(LevelState)
	if lv.Phase != PhaseError || lv.Reason == "" {
		t.Errorf("fetch failure is Error with a message, got %+v", lv)
	}
}

func TestSubmissionSlot(t *testing.T) {
	s := New()
	if !s.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if s.TryAcquire() {
		t.Error("concurrent submission must be blocked")
	}
	s.Release()
	if !s.TryAcquire() {
		t.Error("slot must be reusable after release")
	}
}

func TestManagerStartReplaces(t *testing.T) {
	m := NewManager()
	if m.Get(7) != nil {
		t.Error("unknown chat must have no session")
	}
	a := m.Start(7)
	b := m.Start(7)
	if m.Get(7) != b || a == b {
		t.Error("Start must replace the previous session")
	}
}

func TestStartInvalidatesOutstandingFetch(t *testing.T) {
	m := NewManager()
	old := m.Start(7)
	tok := old.BeginCommodityLoad()

	// A second /predict replaces the session; the first one's load must
	// resolve to nothing rather than produce a second keyboard.
	m.Start(7)
	if old.Resolve(tok, []string{"Wheat"}, nil) {
		t.Error("fetch for a replaced session must be discarded")
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager()
	a := m.GetOrCreate(9)
	if a == nil {
		t.Fatal("GetOrCreate must create a session")
	}
	if m.GetOrCreate(9) != a || m.Get(9) != a {
		t.Error("GetOrCreate must return the existing session")
	}

	// The created session still enforces one request per chat.
	if !a.TryAcquire() {
		t.Fatal("fresh session should acquire")
	}
	if a.TryAcquire() {
		t.Error("second concurrent request must be blocked")
	}
	a.Release()

	started := m.Start(9)
	if m.GetOrCreate(9) != started {
		t.Error("GetOrCreate must not replace a started cascade")
	}
}
