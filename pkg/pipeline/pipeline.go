// Package pipeline runs a batch of landmark files through normalization and
// cohort statistics.
//
// The process consists of several steps:
// 1. Loading each subject from its landmark file
// 2. Normalizing subjects into the PICS frame in parallel
// 3. Collating same-named landmarks across subjects
// 4. Summarizing row widths and tilt angles for the cohort
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"pelvicpics/internal/logging"
	"pelvicpics/pkg/config"
	"pelvicpics/pkg/landmarkio"
	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/pics"
	"pelvicpics/pkg/statistics"
)

// Params holds the inputs of a run
type Params struct {
	// Inputs are landmark files (FCSV, MRML, ACSV) or directories of ACSV
	// files, one subject each
	Inputs []string

	// Config holds naming, frame, scaling and statistics settings.
	// Nil means config.DefaultConfig().
	Config *config.Config
}

// Result is the outcome of a run
type Result struct {
	// Subjects are the normalized subjects in input order
	Subjects []*pelvis.Subject

	// Verifications holds the SCIPP angle check of each subject
	Verifications []pics.Verification

	// Collection holds the collated landmark statistics
	Collection *statistics.StatCollection

	// Group holds row width and tilt statistics
	Group *statistics.SubjectGroupStatistics

	// Mean is a subject built from the averaged landmarks, with its own
	// gaps and widths computed
	Mean *pelvis.Subject

	// Skipped lists inputs dropped because they failed to load or normalize
	Skipped []string
}

// Pipeline runs the batch
type Pipeline struct {
	params     *Params
	cfg        *config.Config
	naming     pelvis.Naming
	normalizer *pics.Normalizer
	logger     *zap.Logger
}

// New validates the configuration and prepares a pipeline
func New(params *Params, logger *zap.Logger) (*Pipeline, error) {
	logger = logging.OrNop(logger)
	cfg := params.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	naming, err := cfg.PelvisNaming()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.NormalizerOptions()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		params:     params,
		cfg:        cfg,
		naming:     naming,
		normalizer: pics.NewNormalizer(opts, logger),
		logger:     logger,
	}, nil
}

// Process runs the complete pipeline
func (p *Pipeline) Process(ctx context.Context) (*Result, error) {
	if len(p.params.Inputs) == 0 {
		return nil, errors.New("no input files")
	}

	// Step 1: load and normalize every subject
	p.logger.Info("normalizing subjects",
		zap.Int("subjects", len(p.params.Inputs)),
		zap.Int("cores", p.cfg.Processing.NumCores))
	outcomes, err := p.normalizeInParallel(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			if !p.cfg.Processing.SkipInvalidSubjects {
				errs = append(errs, o.err)
				continue
			}
			p.logger.Error("skipping subject", zap.String("input", p.params.Inputs[i]), zap.Error(o.err))
			res.Skipped = append(res.Skipped, p.params.Inputs[i])
			continue
		}
		res.Subjects = append(res.Subjects, o.subject)
		res.Verifications = append(res.Verifications, o.result.Verification)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to normalize subjects: %w", errors.Join(errs...))
	}
	if len(res.Subjects) == 0 {
		return nil, errors.New("no subject could be normalized")
	}

	// Step 2: collate landmarks
	p.logger.Info("collating landmarks", zap.Int("subjects", len(res.Subjects)))
	res.Collection, err = statistics.Aggregate(res.Subjects, p.cfg.StatisticsOptions(), p.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to collate landmarks: %w", err)
	}

	// Step 3: cohort widths and tilt
	res.Group = statistics.NewSubjectGroupStatistics()
	res.Group.AddSubjects(res.Subjects)

	// Step 4: the averaged subject
	res.Mean = res.Collection.MeanSubject("mean", p.naming)
	props := pelvis.Properties{
		AxialIndex: p.normalizer.Options().Coding.ISIndex(),
		CreateIIS:  p.cfg.Statistics.CreateIIS,
	}
	if err := res.Mean.ComputeProperties(props, p.logger); err != nil {
		return nil, fmt.Errorf("failed to build mean subject: %w", err)
	}

	return res, nil
}

type outcome struct {
	subject *pelvis.Subject
	result  *pics.Result
	err     error
}

// normalizeInParallel loads and normalizes each input on its own goroutine,
// at most NumCores at a time. Outcomes are returned in input order.
func (p *Pipeline) normalizeInParallel(ctx context.Context) ([]outcome, error) {
	total := len(p.params.Inputs)
	outcomes := make([]outcome, total)

	type indexed struct {
		idx int
		outcome
	}
	resultChan := make(chan indexed, total)
	sem := semaphore.NewWeighted(int64(p.cfg.Processing.NumCores))
	loader := landmarkio.NewLoader(p.naming, p.logger)

	started := 0
	var acquireErr error
	for i, input := range p.params.Inputs {
		if err := ctx.Err(); err != nil {
			acquireErr = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = err
			break
		}
		started++
		go func(idx int, path string) {
			defer sem.Release(1)
			var o outcome
			o.subject, o.err = loader.LoadFile(path)
			if o.err == nil {
				o.result, o.err = p.normalizer.Normalize(o.subject)
			}
			if o.err != nil {
				o.err = fmt.Errorf("%s: %w", path, o.err)
			}
			resultChan <- indexed{idx: idx, outcome: o}
		}(i, input)
	}

	// Collect results
	for completed := 0; completed < started; completed++ {
		r := <-resultChan
		outcomes[r.idx] = r.outcome
		p.logger.Debug("subject normalized",
			zap.String("input", p.params.Inputs[r.idx]),
			zap.Int("completed", completed+1),
			zap.Int("total", total))
	}
	if acquireErr != nil {
		return nil, fmt.Errorf("normalization cancelled: %w", acquireErr)
	}
	return outcomes, nil
}

// NormalizeSubject normalizes one in-memory subject with the frame, scaling
// and IIS settings of cfg
func NormalizeSubject(s *pelvis.Subject, cfg *config.Config, logger *zap.Logger) (*pics.Result, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	opts, err := cfg.NormalizerOptions()
	if err != nil {
		return nil, err
	}
	return pics.NewNormalizer(opts, logger).Normalize(s)
}
