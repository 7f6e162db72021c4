package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"nukefarm/internal/client/chaingpt"
	"nukefarm/internal/config"
	"nukefarm/internal/models"
)

type stubScoreClient struct {
	scores  map[string]chaingpt.EventScore
	prompts []string
}

func (s *stubScoreClient) ScoreEvents(ctx context.Context, prompt string) map[string]chaingpt.EventScore {
	s.prompts = append(s.prompts, prompt)
	if s.scores == nil {
		return map[string]chaingpt.EventScore{}
	}
	return s.scores
}

func seedIndexedEvent(repo *stubRepo, id, title string) {
	blob, _ := json.Marshal(Event{ID: id, Title: title})
	repo.events[id] = models.IndexedEvent{
		ID:        id,
		EventData: datatypes.JSON(blob),
	}
}

func intPtr(n int) *int { return &n }

func TestScorerRunBatch(t *testing.T) {
	repo := newStubRepo()
	seedIndexedEvent(repo, "1", "First event")
	seedIndexedEvent(repo, "2", "Second event")
	ai := &stubScoreClient{scores: map[string]chaingpt.EventScore{
		"1": {Title: "First event", Score: intPtr(37)},
		"2": {Title: "Second event", Score: nil},
	}}
	sc := &Scorer{Repo: repo, AI: ai, Config: config.ScorerConfig{BatchSize: 25, FreshnessWindow: 24 * time.Hour}, Logger: zap.NewNop()}

	worked, err := sc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatalf("expected worked=true")
	}
	if len(ai.prompts) != 1 {
		t.Fatalf("expected one AI call, got %d", len(ai.prompts))
	}
	prompt := ai.prompts[0]
	for _, frag := range []string{"1: First event", "2: Second event", "0 and 99"} {
		if !strings.Contains(prompt, frag) {
			t.Fatalf("prompt missing %q:\n%s", frag, prompt)
		}
	}
	one := repo.events["1"]
	if one.PredictabilityScore == nil || *one.PredictabilityScore != 37 || one.LastScoredAt == nil {
		t.Fatalf("event 1 not scored: %#v", one)
	}
	// Null score leaves the row unscored for the next pass.
	if repo.events["2"].PredictabilityScore != nil {
		t.Fatalf("event 2 must remain unscored")
	}
}

func TestScorerNoWork(t *testing.T) {
	repo := newStubRepo()
	seedIndexedEvent(repo, "1", "Fresh")
	now := time.Now().UTC()
	ev := repo.events["1"]
	ev.PredictabilityScore = intPtr(50)
	ev.LastScoredAt = &now
	repo.events["1"] = ev

	ai := &stubScoreClient{}
	sc := &Scorer{Repo: repo, AI: ai, Config: config.ScorerConfig{BatchSize: 25, FreshnessWindow: 24 * time.Hour}, Logger: zap.NewNop()}
	worked, err := sc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if worked {
		t.Fatalf("expected worked=false with nothing stale")
	}
	if len(ai.prompts) != 0 {
		t.Fatalf("AI must not be called with no work")
	}
}

func TestScorerRescoresStale(t *testing.T) {
	repo := newStubRepo()
	seedIndexedEvent(repo, "1", "Stale")
	old := time.Now().UTC().Add(-48 * time.Hour)
	ev := repo.events["1"]
	ev.PredictabilityScore = intPtr(12)
	ev.LastScoredAt = &old
	repo.events["1"] = ev

	ai := &stubScoreClient{scores: map[string]chaingpt.EventScore{"1": {Score: intPtr(61)}}}
	sc := &Scorer{Repo: repo, AI: ai, Config: config.ScorerConfig{BatchSize: 25, FreshnessWindow: 24 * time.Hour}, Logger: zap.NewNop()}
	worked, err := sc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatalf("expected stale row to be rescored")
	}
	if *repo.events["1"].PredictabilityScore != 61 {
		t.Fatalf("score = %d", *repo.events["1"].PredictabilityScore)
	}
}

func TestScorerDrain(t *testing.T) {
	repo := newStubRepo()
	for _, id := range []string{"1", "2", "3"} {
		seedIndexedEvent(repo, id, "Event "+id)
	}
	ai := &stubScoreClient{scores: map[string]chaingpt.EventScore{
		"1": {Score: intPtr(11)},
		"2": {Score: intPtr(22)},
		"3": {Score: intPtr(33)},
	}}
	sc := &Scorer{Repo: repo, AI: ai, Config: config.ScorerConfig{BatchSize: 2, FreshnessWindow: 24 * time.Hour, BatchDelay: time.Millisecond}, Logger: zap.NewNop()}
	if err := sc.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Batch of 2, then 1, then an empty check.
	if len(ai.prompts) != 2 {
		t.Fatalf("expected 2 AI calls, got %d", len(ai.prompts))
	}
	for _, id := range []string{"1", "2", "3"} {
		if repo.events[id].PredictabilityScore == nil {
			t.Fatalf("event %s left unscored", id)
		}
	}
}

func TestScorerListError(t *testing.T) {
	repo := newStubRepo()
	repo.listErr = errors.New("db down")
	sc := &Scorer{Repo: repo, AI: &stubScoreClient{}, Config: config.ScorerConfig{}, Logger: zap.NewNop()}
	if _, err := sc.RunBatch(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScorerEmptyAIResponseStillReportsWork(t *testing.T) {
	repo := newStubRepo()
	seedIndexedEvent(repo, "1", "Unscorable")
	sc := &Scorer{Repo: repo, AI: &stubScoreClient{}, Config: config.ScorerConfig{BatchSize: 25, FreshnessWindow: 24 * time.Hour}, Logger: zap.NewNop()}
	worked, err := sc.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !worked {
		t.Fatalf("a non-empty batch must report worked=true")
	}
	if repo.events["1"].PredictabilityScore != nil {
		t.Fatalf("row must stay unscored")
	}
}

func TestScorerDrainStopsWithoutProgress(t *testing.T) {
	repo := newStubRepo()
	seedIndexedEvent(repo, "1", "Unscorable")
	ai := &stubScoreClient{}
	sc := &Scorer{Repo: repo, AI: ai, Config: config.ScorerConfig{BatchSize: 25, FreshnessWindow: 24 * time.Hour, BatchDelay: time.Millisecond}, Logger: zap.NewNop()}
	if err := sc.Drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The unscored row would be reselected forever; the drain must stop
	// after the round that stored nothing.
	if len(ai.prompts) != 1 {
		t.Fatalf("expected one AI call before the drain ends, got %d", len(ai.prompts))
	}
}
