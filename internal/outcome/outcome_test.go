package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/world"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(context.Background(), 3, provider.NewMock("gen", "A steady hand at the helm."), entropy.New(7))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestAnalyzeParsesModelOutput(t *testing.T) {
	response := `{
		"stat_changes": {"A": {"econ": 0.05, "war": -0.02, "pop": 0}},
		"relationship_changes": [["A", "B", 0.1], ["B", "C", -0.15]],
		"summary": "A and B formed a trade pact."
	}`
	a := NewAnalyzer(provider.NewMock("gen", response), entropy.New(1))

	out := a.Analyze(context.Background(), testWorld(t), "A: we agree.")
	if out.Summary != "A and B formed a trade pact." {
		t.Errorf("summary = %q", out.Summary)
	}
	if d := out.StatChanges["A"]; d.Econ != 0.05 || d.War != -0.02 || d.Pop != 0 {
		t.Errorf("stat delta for A = %+v", d)
	}
	if len(out.RelationshipChanges) != 2 {
		t.Fatalf("relationship changes = %d, want 2", len(out.RelationshipChanges))
	}
	first := out.RelationshipChanges[0]
	if first.A != "A" || first.B != "B" || first.Delta != 0.1 {
		t.Errorf("first relationship change = %+v", first)
	}
}

func TestAnalyzeDefaultsEmptySummary(t *testing.T) {
	a := NewAnalyzer(provider.NewMock("gen", `{"stat_changes": {}, "relationship_changes": []}`), entropy.New(1))

	out := a.Analyze(context.Background(), testWorld(t), "")
	if out.Summary != defaultSummary {
		t.Errorf("summary = %q, want %q", out.Summary, defaultSummary)
	}
}

func TestAnalyzeFallbackOnFailure(t *testing.T) {
	gen := provider.NewMock("gen", "").WithChatError(errors.New("upstream down"))
	a := NewAnalyzer(gen, entropy.New(3))
	w := testWorld(t)

	out := a.Analyze(context.Background(), w, "A: hmm.")
	if out.Summary != fallbackSummary {
		t.Errorf("summary = %q, want %q", out.Summary, fallbackSummary)
	}
	if len(out.RelationshipChanges) != 0 {
		t.Errorf("fallback produced %d relationship changes, want 0", len(out.RelationshipChanges))
	}
	if len(out.StatChanges) != len(w.Countries) {
		t.Fatalf("fallback covered %d countries, want %d", len(out.StatChanges), len(w.Countries))
	}
	for code, d := range out.StatChanges {
		if d.Econ < -0.05 || d.Econ > 0.05 {
			t.Errorf("country %s econ delta %v out of fallback range", code, d.Econ)
		}
		if d.War < -0.05 || d.War > 0.05 {
			t.Errorf("country %s war delta %v out of fallback range", code, d.War)
		}
		if d.Pop < -500_000 || d.Pop > 500_000 {
			t.Errorf("country %s pop delta %d out of fallback range", code, d.Pop)
		}
	}
}

func TestAnalyzeFallbackOnGarbage(t *testing.T) {
	a := NewAnalyzer(provider.NewMock("gen", "no json here"), entropy.New(3))

	out := a.Analyze(context.Background(), testWorld(t), "")
	if out.Summary != fallbackSummary {
		t.Errorf("summary = %q, want fallback", out.Summary)
	}
}

func TestRelationshipDeltaWireForm(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    RelationshipDelta
		wantErr bool
	}{
		{name: "triple", in: `["A","B",0.1]`, want: RelationshipDelta{A: "A", B: "B", Delta: 0.1}},
		{name: "negative", in: `["B","C",-0.15]`, want: RelationshipDelta{A: "B", B: "C", Delta: -0.15}},
		{name: "too short", in: `["A","B"]`, wantErr: true},
		{name: "not an array", in: `{"a":"A"}`, wantErr: true},
		{name: "wrong delta type", in: `["A","B","big"]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got RelationshipDelta
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}

			round, err := json.Marshal(got)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var again RelationshipDelta
			if err := json.Unmarshal(round, &again); err != nil || again != got {
				t.Errorf("round trip got %+v (%v)", again, err)
			}
		})
	}
}

func TestDecideFollowsVerdict(t *testing.T) {
	e := &world.Event{ID: "E1", Title: "Border Standoff", Description: "Troops massed.", Type: "military"}

	d := NewDecider(provider.NewMock("gen", `{"resolved": true}`), entropy.New(1))
	if !d.Decide(context.Background(), e, "A: stand down. B: agreed.") {
		t.Error("want resolved")
	}

	d = NewDecider(provider.NewMock("gen", `{"resolved": false}`), entropy.New(1))
	if d.Decide(context.Background(), e, "A: no deal.") {
		t.Error("want unresolved")
	}
}

func TestDecideSendsTranscriptTail(t *testing.T) {
	gen := provider.NewMock("gen", `{"resolved": false}`)
	d := NewDecider(gen, entropy.New(1))
	e := &world.Event{ID: "E1", Title: "Grain Shortage"}

	transcript := strings.Repeat("x", transcriptTailLen) + "TAIL-MARKER"
	d.Decide(context.Background(), e, transcript)

	msgs := gen.LastMessages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(msgs))
	}
	if !strings.Contains(msgs[1].Content, "TAIL-MARKER") {
		t.Error("tail of transcript missing from prompt")
	}
	if strings.Contains(msgs[1].Content, strings.Repeat("x", transcriptTailLen)) {
		t.Error("full transcript sent, want tail only")
	}
}

func TestTranscriptTailKeepsRunesIntact(t *testing.T) {
	// Pack the window boundary with multi-byte runes so a byte slice
	// would land mid-rune.
	transcript := strings.Repeat("协", transcriptTailLen)

	tail := transcriptTail(transcript)
	if !utf8.ValidString(tail) {
		t.Error("tail starts mid-rune, invalid UTF-8")
	}
	if len(tail) > transcriptTailLen {
		t.Errorf("tail is %d bytes, want at most %d", len(tail), transcriptTailLen)
	}

	if short := transcriptTail("brief"); short != "brief" {
		t.Errorf("short transcript = %q, want unchanged", short)
	}
}

func TestDecideFallbackIsWeightedCoin(t *testing.T) {
	gen := provider.NewMock("gen", "").WithChatError(errors.New("upstream down"))
	d := NewDecider(gen, entropy.New(11))
	e := &world.Event{ID: "E1", Title: "Water Dispute"}

	resolved := 0
	const trials = 2000
	for i := 0; i < trials; i++ {
		if d.Decide(context.Background(), e, "") {
			resolved++
		}
	}
	ratio := float64(resolved) / trials
	if ratio < 0.3 || ratio > 0.5 {
		t.Errorf("fallback resolve ratio = %v, want near %v", ratio, fallbackResolveChance)
	}
}

func TestAssessFallsBackToVerdict(t *testing.T) {
	a := NewAssessor(provider.NewMock("gen", "").WithChatError(errors.New("upstream down")))
	got := a.Assess(context.Background(), `{}`, "The negotiations were mixed.")
	if got != "The negotiations were mixed." {
		t.Errorf("got %q, want verdict line", got)
	}

	a = NewAssessor(provider.NewMock("gen", "A full narrative assessment."))
	got = a.Assess(context.Background(), `{}`, "verdict")
	if got != "A full narrative assessment." {
		t.Errorf("got %q", got)
	}
}
