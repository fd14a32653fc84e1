// Package grades evaluates students subject by subject as a stream of scores.
// A student whose average falls below the passing score fails; once too many
// students have failed the evaluation stops.
package grades

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/vnykmshr/chanflow/pkg/common/logger"
	"github.com/vnykmshr/chanflow/pkg/common/suspend"
	"github.com/vnykmshr/chanflow/pkg/common/validation"
	"github.com/vnykmshr/chanflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/chanflow/pkg/scheduling/task"
	"github.com/vnykmshr/chanflow/pkg/streaming/channel"
)

// AverageSubject is the subject of the score closing every student evaluation.
const AverageSubject = "Average"

// ErrTooManyFailures ends an evaluation once FailureThreshold students failed.
var ErrTooManyFailures = errors.New("too many failed students")

// FailedError reports a student whose average is below the passing score.
type FailedError struct {
	Student string
	Average float64
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("%s failed with average %.1f", e.Student, e.Average)
}

// Score is one item of the evaluation stream.
type Score struct {
	Student string
	Subject string
	Value   float64
	Failed  bool
}

func (s Score) String() string {
	line := fmt.Sprintf("     %s : %.0f", s.Subject, s.Value)
	if s.Failed {
		line += " (failed)"
	}
	return line
}

// Scorer grades one student in one subject, from 0 to 100.
type Scorer func(student, subject string) float64

// SeededScorer returns a Scorer drawing uniform integer scores from a
// generator seeded with seed, so runs with the same seed agree.
func SeededScorer(seed uint64) Scorer {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed))
	return func(string, string) float64 {
		mu.Lock()
		defer mu.Unlock()
		return float64(r.IntN(101))
	}
}

// Config configures a Grader.
type Config struct {
	Students         []string
	Subjects         []string
	PassingScore     float64
	FailureThreshold int

	// Delay is waited before every subject score.
	Delay  time.Duration
	Scorer Scorer
	Logger zerolog.Logger
}

// Summary describes the evaluated students.
type Summary struct {
	Evaluated int
	Failed    int
	Mean      float64
	StdDev    float64
	Median    float64
}

// Grader runs evaluations. A Grader is meant for a single Run.
type Grader struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	averages []float64
	failed   int
}

// New validates cfg and returns a Grader.
func New(cfg Config) (*Grader, error) {
	err := errors.Join(
		validation.ValidateNonEmpty("grades", "Students", cfg.Students),
		validation.ValidateNonEmpty("grades", "Subjects", cfg.Subjects),
		validation.ValidateRange("grades", "PassingScore", cfg.PassingScore, 0, 100),
		validation.ValidatePositive("grades", "FailureThreshold", cfg.FailureThreshold),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Scorer == nil {
		cfg.Scorer = SeededScorer(uint64(time.Now().UnixNano()))
	}

	return &Grader{
		cfg: cfg,
		log: logger.WithComponent(cfg.Logger, "grades"),
	}, nil
}

// Scores returns the evaluation stream: the subject scores of each student in
// order, each group closed by the AverageSubject score. The stream fails once
// FailureThreshold students have failed.
func (g *Grader) Scores(s *task.Scope) channel.ReceiveChannel[Score] {
	students := pipeline.FromSlice(s, g.cfg.Students, pipeline.Named("students"))
	buffered := pipeline.Buffer(s, students, len(g.cfg.Students))

	return pipeline.FlatMapConcat(s, buffered, func(student string) channel.ReceiveChannel[Score] {
		return pipeline.Catch(s, g.evaluate(s, student), g.recoverFailure, pipeline.Named("failures"))
	}, pipeline.Named("evaluations"))
}

// Run collects the evaluation stream into fn and returns the summary. It
// returns an error matching ErrTooManyFailures when the threshold is reached.
func (g *Grader) Run(ctx context.Context, s *task.Scope, fn func(Score) error) (Summary, error) {
	err := pipeline.ForEach(ctx, g.Scores(s), fn)

	var failed *FailedError
	if errors.As(err, &failed) {
		err = fmt.Errorf("%w: %d of %d", ErrTooManyFailures, g.Summary().Failed, len(g.cfg.Students))
		g.log.Warn().Err(err).Msg("evaluation stopped")
	}
	return g.Summary(), err
}

// Summary returns the statistics of the students evaluated so far.
func (g *Grader) Summary() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()

	sum := Summary{Evaluated: len(g.averages), Failed: g.failed}
	if len(g.averages) == 0 {
		return sum
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(g.averages, nil)
	sorted := slices.Clone(g.averages)
	slices.Sort(sorted)
	sum.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return sum
}

func (g *Grader) evaluate(s *task.Scope, student string) channel.ReceiveChannel[Score] {
	return pipeline.Produce(s, func(ctx context.Context, emit pipeline.Emitter[Score]) error {
		values := make([]float64, 0, len(g.cfg.Subjects))
		for _, subject := range g.cfg.Subjects {
			if err := suspend.Delay(ctx, g.cfg.Delay); err != nil {
				return err
			}
			v := g.cfg.Scorer(student, subject)
			values = append(values, v)
			if err := emit(Score{Student: student, Subject: subject, Value: v}); err != nil {
				return err
			}
		}

		avg := stat.Mean(values, nil)
		g.record(avg)
		if avg < g.cfg.PassingScore {
			return &FailedError{Student: student, Average: avg}
		}
		return emit(Score{Student: student, Subject: AverageSubject, Value: avg})
	}, pipeline.Named("evaluate"))
}

// recoverFailure turns a failed student into a failed average score until the
// failure threshold is reached.
func (g *Grader) recoverFailure(err error) (Score, bool) {
	var failed *FailedError
	if !errors.As(err, &failed) {
		return Score{}, false
	}

	g.mu.Lock()
	g.failed++
	n := g.failed
	g.mu.Unlock()

	g.log.Debug().Str("student", failed.Student).Float64("average", failed.Average).Int("failed", n).Msg("student failed")
	if n >= g.cfg.FailureThreshold {
		return Score{}, false
	}
	return Score{Student: failed.Student, Subject: AverageSubject, Value: failed.Average, Failed: true}, true
}

func (g *Grader) record(avg float64) {
	g.mu.Lock()
	g.averages = append(g.averages, avg)
	g.mu.Unlock()
}
