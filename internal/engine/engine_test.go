package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/deathtrace/internal/lexer"
)

func runTrace(t *testing.T, contents string) *Result {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.log")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	eng := New(Config{Path: path, Mode: lexer.Strict})
	result, err := eng.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func deathsByObject(result *Result) map[int64]int64 {
	out := map[int64]int64{}
	for _, d := range result.Deaths {
		out[d.ObjectID] = d.DeathClock
	}
	return out
}

// Scenario A — minimal allocate-and-die.
func TestScenarioA_MinimalAllocateAndDie(t *testing.T) {
	result := runTrace(t, `
M 100 0 1
N 1001 32 200 100 0 5001
E 100 1
`)
	deaths := deathsByObject(result)
	if got, want := len(deaths), 1; got != want {
		t.Fatalf("got %d deaths, want %d: %+v", got, want, deaths)
	}
	if clock, ok := deaths[1001]; !ok || clock != 2 {
		t.Errorf("object 1001: got clock %d ok=%v, want 2", clock, ok)
	}
}

// Scenario B — a static root survives past stream end.
func TestScenarioB_StaticRootSurvival(t *testing.T) {
	result := runTrace(t, `
M 100 0 1
N 1001 32 200 100 0 5001
U 0 1001 300 5001
E 100 1
`)
	if len(result.Deaths) != 0 {
		t.Fatalf("expected no deaths, got %+v", result.Deaths)
	}
}

// Scenario C — chain of three, root leaves the stack, all three die.
func TestScenarioC_ChainOfThreeOneDrop(t *testing.T) {
	result := runTrace(t, `
M 100 0 1
N 1001 16 1 1 0 1
N 1002 16 1 1 0 1
N 1003 16 1 1 0 1
U 1001 1002 1 1
U 1002 1003 1 1
M 200 1001 1
E 200 1
E 100 1
`)
	// Four tick-generating records precede the final reachability check
	// (M100, M200, E200, E100), so the clock at the chain's death is 4.
	deaths := deathsByObject(result)
	for _, id := range []int64{1001, 1002, 1003} {
		clock, ok := deaths[id]
		if !ok {
			t.Errorf("expected object %d to die, deaths=%v", id, deaths)
			continue
		}
		if clock != 4 {
			t.Errorf("object %d: got death clock %d, want 4", id, clock)
		}
	}
}

// Scenario D — a witness delays death past the method exit that would
// otherwise have killed the object.
func TestScenarioD_WitnessDelaysDeath(t *testing.T) {
	result := runTrace(t, `
M 100 0 1
N 1001 24 1 1 0 1
E 100 1
M 110 0 1
W 1001 5 1
E 110 1
`)
	deaths := deathsByObject(result)
	clock, ok := deaths[1001]
	if !ok {
		t.Fatalf("expected object 1001 to eventually die, deaths=%v", deaths)
	}
	if clock != 4 {
		t.Errorf("object 1001: got death clock %d, want 4", clock)
	}
	if clock < 3 {
		t.Errorf("death clock %d must not precede the witness clock 3", clock)
	}
}

// Scenario E — a pre-existing object is referenced but never allocated,
// and is never a candidate for death.
func TestScenarioE_PreExistingObjectNeverDies(t *testing.T) {
	result := runTrace(t, `
M 100 0 1
U 0 7777 300 1
E 100 1
`)
	if len(result.Deaths) != 0 {
		t.Fatalf("expected no deaths, got %+v", result.Deaths)
	}
}

// Scenario F — a re-used id is a brand-new allocation instance; the first
// instance's death is independent of the second instance's survival.
func TestScenarioF_ReusedID(t *testing.T) {
	result := runTrace(t, `
M 100 0 1
N 1001 8 1 1 0 1
E 100 1
M 200 0 1
N 1001 8 1 1 0 1
U 0 1001 1 1
E 200 1
`)
	deaths := deathsByObject(result)
	if len(deaths) != 1 {
		t.Fatalf("expected exactly one death (the first instance), got %+v", deaths)
	}
	if clock, ok := deaths[1001]; !ok || clock != 2 {
		t.Errorf("got %v, want the first instance to die at clock 2", deaths)
	}
}

func TestMethodExitOnEmptyStackIsNoop(t *testing.T) {
	result := runTrace(t, `E 1 1`)
	if len(result.Deaths) != 0 {
		t.Fatalf("expected no deaths, got %+v", result.Deaths)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected the E record to still be echoed, got %+v", result.Events)
	}
}

func TestObjectZeroNeverLive(t *testing.T) {
	result := runTrace(t, `
M 1 0 1
N 0 8 1 1 0 1
E 1 1
`)
	if len(result.Deaths) != 0 {
		t.Fatalf("expected id 0 to never be a death candidate, got %+v", result.Deaths)
	}
}
