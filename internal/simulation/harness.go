// Package simulation drives scripted balance runs over the engine and
// aggregates their metrics.
package simulation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/pkg/clock"
)

// Defaults used when a request leaves a field zero.
const (
	DefaultTurns               = 80
	DefaultPerformanceBudgetMs = 2000
	defaultWorkers             = 4
	speakIntent                = "Push forward. Keep the run alive."
	p95Rank                    = 0.95
)

// DefaultWindows are the long-run turn windows.
var DefaultWindows = []int{100, 250, 500}

// actionPriority orders the scripted player's preferences. Lower wins.
var actionPriority = map[engine.ActionType]int{
	engine.ActionFight:          1,
	engine.ActionFlee:           2,
	engine.ActionEvolveSkill:    3,
	engine.ActionChooseDialogue: 4,
	engine.ActionSearch:         5,
	engine.ActionTrain:          6,
	engine.ActionLiveStream:     7,
	engine.ActionTalk:           8,
	engine.ActionMove:           9,
}

const defaultPriority = 10

// RunMetrics summarizes one scripted run.
type RunMetrics struct {
	Seed                 int64          `json:"seed"`
	TurnsRequested       int            `json:"turnsRequested"`
	TurnsPlayed          int            `json:"turnsPlayed"`
	Escaped              bool           `json:"escaped"`
	Survived             bool           `json:"survived"`
	Depth                int            `json:"depth"`
	Level                int            `json:"level"`
	Fame                 float64        `json:"fame"`
	FinalHealth          int            `json:"finalHealth"`
	FinalPressure        int            `json:"finalPressure"`
	AverageTurnMs        float64        `json:"averageTurnMs"`
	P95TurnMs            float64        `json:"p95TurnMs"`
	MaxTurnMs            float64        `json:"maxTurnMs"`
	ActionUsage          map[string]int `json:"actionUsage"`
	FinalArchetype       string         `json:"finalArchetype"`
	ArchetypeTransitions int            `json:"archetypeTransitions"`
}

// Aggregate rolls a batch up.
type Aggregate struct {
	EscapeRate            float64        `json:"escapeRate"`
	SurvivalRate          float64        `json:"survivalRate"`
	AverageFame           float64        `json:"averageFame"`
	AverageLevel          float64        `json:"averageLevel"`
	AverageTurnMs         float64        `json:"averageTurnMs"`
	P95TurnMs             float64        `json:"p95TurnMs"`
	MaxTurnMs             float64        `json:"maxTurnMs"`
	ArchetypeDistribution map[string]int `json:"archetypeDistribution"`
	ActionUsage           map[string]int `json:"actionUsage"`
	DeadActionTypes       []string       `json:"deadActionTypes"`
}

// BatchMetrics is a batch of runs, one per seed, in seed order.
type BatchMetrics struct {
	GeneratedAt string       `json:"generatedAt"`
	Seeds       []int64      `json:"seeds"`
	TurnsPerRun int          `json:"turnsPerRun"`
	Runs        []RunMetrics `json:"runs"`
	Aggregate   Aggregate    `json:"aggregate"`
}

// WindowMetrics is one long-run window.
type WindowMetrics struct {
	Turns int           `json:"turns"`
	Batch *BatchMetrics `json:"batch"`
}

// SuiteSummary is the cross-window verdict.
type SuiteSummary struct {
	DeadActionTypesAcrossWindows []string `json:"deadActionTypesAcrossWindows"`
	WorstP95TurnMs               float64  `json:"worstP95TurnMs"`
	WorstMaxTurnMs               float64  `json:"worstMaxTurnMs"`
	PerformanceBudgetMs          float64  `json:"performanceBudgetMs"`
	WithinPerformanceBudget      bool     `json:"withinPerformanceBudget"`
}

// SuiteMetrics is a long-run suite.
type SuiteMetrics struct {
	GeneratedAt string          `json:"generatedAt"`
	Seeds       []int64         `json:"seeds"`
	Windows     []WindowMetrics `json:"windows"`
	Summary     SuiteSummary    `json:"summary"`
}

// Config contains the dependencies for a Harness
type Config struct {
	Catalog *content.Catalog
	Clock   clock.Clock
	Workers int
}

// Validate checks that all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Catalog == nil {
		vb.RequiredField("catalog")
	}
	if c.Clock == nil {
		vb.RequiredField("clock")
	}
	if c.Workers < 0 {
		vb.InvalidField("workers", "must not be negative")
	}
	return vb.Build()
}

// Harness runs balance simulations
type Harness struct {
	catalog *content.Catalog
	clock   clock.Clock
	workers int
}

// NewHarness creates a simulation harness
func NewHarness(cfg *Config) (*Harness, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = defaultWorkers
	}
	return &Harness{catalog: cfg.Catalog, clock: cfg.Clock, workers: workers}, nil
}

// Run plays one scripted run with hostile spawning off. The run stops
// early on escape or death.
func (h *Harness) Run(ctx context.Context, seed int64, turns int) (*RunMetrics, error) {
	if turns <= 0 {
		turns = DefaultTurns
	}
	game, err := engine.Create(h.catalog, seed)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create engine for seed %d", seed)
	}
	game.State().Config.HostileSpawnPerTurn = 0

	player := game.Player()
	usage := map[string]int{}
	durations := []float64{}
	transitions := 0
	previous := player.ArchetypeHeading

	for turn := 0; turn < turns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeCanceled, "simulation canceled")
		}
		if game.State().Escaped || !player.IsAlive() {
			break
		}
		started := h.clock.Now()
		action := chooseAction(game.AvailableActions(nil), turn)
		usage[string(action.Type())]++
		game.Dispatch(action)
		durations = append(durations, milliseconds(h.clock.Now().Sub(started)))

		if player.ArchetypeHeading != previous {
			transitions++
			previous = player.ArchetypeHeading
		}
	}

	status := game.Status()
	return &RunMetrics{
		Seed:                 seed,
		TurnsRequested:       turns,
		TurnsPlayed:          len(durations),
		Escaped:              game.State().Escaped,
		Survived:             player.IsAlive(),
		Depth:                status.Depth,
		Level:                status.Level,
		Fame:                 player.Features[entities.FeatureFame],
		FinalHealth:          player.Health,
		FinalPressure:        status.Pressure,
		AverageTurnMs:        average(durations),
		P95TurnMs:            percentile(durations, p95Rank),
		MaxTurnMs:            maxOf(durations),
		ActionUsage:          usage,
		FinalArchetype:       player.ArchetypeHeading,
		ArchetypeTransitions: transitions,
	}, nil
}

// Batch runs one independent engine per seed on a bounded worker pool.
// An empty seed list runs the canonical seed.
func (h *Harness) Batch(ctx context.Context, seeds []int64, turns int) (*BatchMetrics, error) {
	if turns <= 0 {
		turns = DefaultTurns
	}
	ordered := append([]int64(nil), seeds...)
	if len(ordered) == 0 {
		ordered = []int64{h.catalog.Contracts.CanonicalSeedV1}
	}

	runs := make([]RunMetrics, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for i, seed := range ordered {
		g.Go(func() error {
			run, err := h.Run(gctx, seed, turns)
			if err != nil {
				return err
			}
			runs[i] = *run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchMetrics{
		GeneratedAt: h.clock.Now().UTC().Format(time.RFC3339),
		Seeds:       ordered,
		TurnsPerRun: turns,
		Runs:        runs,
		Aggregate:   h.aggregate(runs),
	}
	slog.Info("Balance batch finished",
		"seeds", len(ordered),
		"turns", turns,
		"escape_rate", batch.Aggregate.EscapeRate,
		"dead_action_types", len(batch.Aggregate.DeadActionTypes))
	return batch, nil
}

// LongRun runs a batch per distinct window, shortest first, and checks the
// worst p95 turn time against budgetMs.
func (h *Harness) LongRun(ctx context.Context, seeds []int64, windows []int, budgetMs float64) (*SuiteMetrics, error) {
	if len(windows) == 0 {
		windows = DefaultWindows
	}
	if budgetMs <= 0 {
		budgetMs = DefaultPerformanceBudgetMs
	}

	distinct := map[int]bool{}
	ordered := []int{}
	for _, w := range windows {
		w = max(1, w)
		if !distinct[w] {
			distinct[w] = true
			ordered = append(ordered, w)
		}
	}
	sort.Ints(ordered)

	metrics := &SuiteMetrics{Windows: make([]WindowMetrics, 0, len(ordered))}
	dead := map[string]bool{}
	for _, turns := range ordered {
		batch, err := h.Batch(ctx, seeds, turns)
		if err != nil {
			return nil, errors.Wrapf(err, "window %d failed", turns)
		}
		metrics.Seeds = batch.Seeds
		metrics.Windows = append(metrics.Windows, WindowMetrics{Turns: turns, Batch: batch})
		for _, actionType := range batch.Aggregate.DeadActionTypes {
			dead[actionType] = true
		}
		metrics.Summary.WorstP95TurnMs = max(metrics.Summary.WorstP95TurnMs, batch.Aggregate.P95TurnMs)
		metrics.Summary.WorstMaxTurnMs = max(metrics.Summary.WorstMaxTurnMs, batch.Aggregate.MaxTurnMs)
	}

	metrics.Summary.DeadActionTypesAcrossWindows = make([]string, 0, len(dead))
	for actionType := range dead {
		metrics.Summary.DeadActionTypesAcrossWindows = append(metrics.Summary.DeadActionTypesAcrossWindows, actionType)
	}
	sort.Strings(metrics.Summary.DeadActionTypesAcrossWindows)
	metrics.Summary.PerformanceBudgetMs = budgetMs
	metrics.Summary.WithinPerformanceBudget = metrics.Summary.WorstP95TurnMs <= budgetMs
	metrics.GeneratedAt = h.clock.Now().UTC().Format(time.RFC3339)
	return metrics, nil
}

func (h *Harness) aggregate(runs []RunMetrics) Aggregate {
	agg := Aggregate{
		ArchetypeDistribution: map[string]int{},
		ActionUsage:           map[string]int{},
	}
	divisor := float64(max(1, len(runs)))
	turnMs := 0.0
	for _, run := range runs {
		agg.ArchetypeDistribution[run.FinalArchetype]++
		for actionType, count := range run.ActionUsage {
			agg.ActionUsage[actionType] += count
		}
		if run.Escaped {
			agg.EscapeRate++
		}
		if run.Survived {
			agg.SurvivalRate++
		}
		agg.AverageFame += run.Fame
		agg.AverageLevel += float64(run.Level)
		turnMs += run.AverageTurnMs
		agg.P95TurnMs = max(agg.P95TurnMs, run.P95TurnMs)
		agg.MaxTurnMs = max(agg.MaxTurnMs, run.MaxTurnMs)
	}
	agg.EscapeRate /= divisor
	agg.SurvivalRate /= divisor
	agg.AverageFame /= divisor
	agg.AverageLevel /= divisor
	agg.AverageTurnMs = turnMs / divisor
	agg.DeadActionTypes = DeadActionTypes(h.catalog, agg.ActionUsage)
	return agg
}

// DeadActionTypes lists catalogued action types never used, in catalog
// order.
func DeadActionTypes(catalog *content.Catalog, usage map[string]int) []string {
	out := []string{}
	for _, actionType := range catalog.ActionTypes() {
		if usage[actionType] <= 0 {
			out = append(out, actionType)
		}
	}
	return out
}

// chooseAction sorts the legal rows by priority then label and samples one
// of the first three by turn.
func chooseAction(rows []engine.ActionAvailability, turn int) engine.Action {
	legal := []engine.ActionAvailability{}
	for _, row := range rows {
		if row.Available {
			legal = append(legal, row)
		}
	}
	if len(legal) == 0 {
		return engine.Rest{}
	}
	sort.SliceStable(legal, func(i, j int) bool {
		pi, pj := priority(legal[i].ActionType), priority(legal[j].ActionType)
		if pi != pj {
			return pi < pj
		}
		return legal[i].Label < legal[j].Label
	})

	action := legal[min(len(legal)-1, turn%3)].Action()
	if _, ok := action.(engine.Speak); ok {
		return engine.Speak{IntentText: speakIntent}
	}
	return action
}

func priority(actionType engine.ActionType) int {
	if p, ok := actionPriority[actionType]; ok {
		return p
	}
	return defaultPriority
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func percentile(values []float64, rank float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	index := int(float64(len(sorted)-1) * rank)
	return sorted[min(len(sorted)-1, max(0, index))]
}

func maxOf(values []float64) float64 {
	out := 0.0
	for _, v := range values {
		out = max(out, v)
	}
	return out
}
