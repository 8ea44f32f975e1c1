package pkgfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/open-edge-platform/rpm-fetch/internal/mirrorlist"
	"github.com/open-edge-platform/rpm-fetch/internal/ospackage"
	"github.com/open-edge-platform/rpm-fetch/internal/ospackage/rpmutils"
	"github.com/open-edge-platform/rpm-fetch/internal/progress"
	"github.com/open-edge-platform/rpm-fetch/internal/storage"
	"github.com/open-edge-platform/rpm-fetch/internal/utils/logger"
)

// errLostRace marks an attempt that completed after another mirror won.
var errLostRace = errors.New("another mirror finished first")

// MirrorSource produces the ordered mirror list for a run.
type MirrorSource interface {
	Fetch(ctx context.Context, release, arch string) ([]mirrorlist.Mirror, error)
}

// Options configures a Fetcher.
type Options struct {
	// Workers is the number of mirrors raced concurrently. Values below 2
	// try one mirror at a time, in list order.
	Workers int

	// MaxMirrors caps how many mirrors are tried. Zero tries all of them.
	MaxMirrors int

	// AttemptTimeout bounds a single mirror attempt. Zero means no limit.
	AttemptTimeout time.Duration

	// Progress creates a sink per attempt. Nil disables progress.
	Progress progress.Factory

	// Verifier checks each completed download before it is stored.
	Verifier *rpmutils.Verifier
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeExhausted
)

func (o Outcome) String() string {
	if o == OutcomeSucceeded {
		return "succeeded"
	}
	return "all-mirrors-exhausted"
}

// RunResult describes a finished run.
type RunResult struct {
	RunID     string
	Spec      ospackage.PackageSpec
	Outcome   Outcome
	SavedPath string
	Bytes     int64
	Winner    *Attempt
	Attempts  []Attempt       // in mirror-list order
	Failures  []MirrorFailure // in mirror-list order
}

// Fetcher downloads one package from the first mirror that delivers it.
type Fetcher struct {
	mirrors MirrorSource
	client  Doer
	store   *storage.Store
	opts    Options
}

// New returns a Fetcher that stores the package in store.
func New(mirrors MirrorSource, client Doer, store *storage.Store, opts Options) *Fetcher {
	if opts.Progress == nil {
		opts.Progress = progress.NopFactory
	}
	return &Fetcher{mirrors: mirrors, client: client, store: store, opts: opts}
}

// Run fetches the mirror list and downloads spec. A mirror-list failure is
// returned as is and no result is produced. When every mirror fails the
// result is returned together with an *AllMirrorsExhaustedError.
func (f *Fetcher) Run(ctx context.Context, spec ospackage.PackageSpec) (*RunResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	res := &RunResult{RunID: uuid.NewString(), Spec: spec}
	log := logger.Logger().With("run", res.RunID)

	mirrors, err := f.mirrors.Fetch(ctx, spec.ReleaseTag, spec.Arch)
	if err != nil {
		return nil, fmt.Errorf("fetching mirror list: %w", err)
	}
	if len(mirrors) == 0 {
		return nil, mirrorlist.ErrNoMirrorsAvailable
	}
	if f.opts.MaxMirrors > 0 && len(mirrors) > f.opts.MaxMirrors {
		mirrors = mirrors[:f.opts.MaxMirrors]
	}
	log.Infof("downloading %s from up to %d mirrors", spec.FileName(), len(mirrors))

	if f.opts.Workers > 1 {
		f.race(ctx, spec, mirrors, res)
	} else {
		f.sequential(ctx, spec, mirrors, res)
	}

	if res.Winner != nil {
		res.Outcome = OutcomeSucceeded
		log.Infof("saved %s (%d bytes) from %s", res.SavedPath, res.Bytes, res.Winner.Mirror.Label())
		return res, nil
	}

	res.Outcome = OutcomeExhausted
	if ctx.Err() != nil {
		return res, fmt.Errorf("fetch interrupted after %d mirrors: %w", len(res.Failures), ctx.Err())
	}
	exhausted := &AllMirrorsExhaustedError{Failures: res.Failures}
	log.Errorf("tried %d mirrors, none delivered %s: %s", len(res.Failures), spec.FileName(), exhausted.Summary())
	return res, exhausted
}

// commitFunc stores a verified object and reports whether it became the
// run's result.
type commitFunc func(obj *storage.Object) (bool, error)

func (f *Fetcher) sequential(ctx context.Context, spec ospackage.PackageSpec, mirrors []mirrorlist.Mirror, res *RunResult) {
	log := logger.Logger().With("run", res.RunID)
	commit := func(obj *storage.Object) (bool, error) {
		return true, obj.Commit()
	}

	for i, m := range mirrors {
		if ctx.Err() != nil {
			return
		}
		log.Infof("[%d/%d] trying mirror %s", i+1, len(mirrors), m.Label())
		a, err := f.tryMirror(ctx, spec, m, commit)
		res.Attempts = append(res.Attempts, a)
		if err == nil {
			f.setWinner(res, a)
			return
		}
		log.Warnf("mirror %s failed: %v", m.Label(), err)
		res.Failures = append(res.Failures, MirrorFailure{Mirror: m, Reason: err})
	}
}

func (f *Fetcher) race(ctx context.Context, spec ospackage.PackageSpec, mirrors []mirrorlist.Mirror, res *RunResult) {
	log := logger.Logger().With("run", res.RunID)
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		index  int
		mirror mirrorlist.Mirror
	}
	type outcome struct {
		attempt   Attempt
		err       error
		tried     bool
		cancelled bool // failed after another mirror had already won
	}

	var (
		mu       sync.Mutex
		won      bool
		outcomes = make([]outcome, len(mirrors))
	)
	commit := func(obj *storage.Object) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		if won {
			return false, nil
		}
		if err := obj.Commit(); err != nil {
			return false, err
		}
		won = true
		cancel()
		return true, nil
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := min(f.opts.Workers, len(mirrors))
	log.Debugf("racing %d mirrors with %d workers", len(mirrors), workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				a, err := f.tryMirror(raceCtx, spec, j.mirror, commit)
				mu.Lock()
				cancelled := err != nil && won
				mu.Unlock()
				outcomes[j.index] = outcome{attempt: a, err: err, tried: true, cancelled: cancelled}
				if err != nil && !cancelled {
					log.Warnf("mirror %s failed: %v", j.mirror.Label(), err)
				}
			}
		}()
	}

feed:
	for i, m := range mirrors {
		select {
		case jobs <- job{index: i, mirror: m}:
		case <-raceCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for _, o := range outcomes {
		switch {
		case !o.tried:
		case o.err == nil:
			res.Attempts = append(res.Attempts, o.attempt)
			f.setWinner(res, o.attempt)
		case o.cancelled:
		default:
			res.Attempts = append(res.Attempts, o.attempt)
			res.Failures = append(res.Failures, MirrorFailure{Mirror: o.attempt.Mirror, Reason: o.err})
		}
	}
}

func (f *Fetcher) setWinner(res *RunResult, a Attempt) {
	w := a
	res.Winner = &w
	res.Bytes = a.BytesReceived
	res.SavedPath = f.store.Path(res.Spec.FileName())
}

// tryMirror runs one attempt into a fresh storage object. The object is
// committed only when the download is complete and verified; otherwise it
// is aborted and nothing is stored.
func (f *Fetcher) tryMirror(ctx context.Context, spec ospackage.PackageSpec, m mirrorlist.Mirror, commit commitFunc) (Attempt, error) {
	url := ospackage.BuildURL(m.BaseURL, spec)

	actx := ctx
	if f.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, f.opts.AttemptTimeout)
		defer cancel()
	}

	// The object outlives attempt cancellation; only Abort or Commit end it.
	obj, err := f.store.NewObject(context.WithoutCancel(ctx), spec.FileName())
	if err != nil {
		a := Attempt{Mirror: m, URL: url, Status: Failed, Reason: err, BytesExpected: -1}
		return a, err
	}
	session := f.opts.Verifier.Begin(spec)

	a, err := Download(actx, f.client, m, url, f.opts.Progress(m.Label()), io.MultiWriter(obj, session))
	if err != nil {
		session.Abort()
		obj.Abort()
		return a, err
	}

	fail := func(err error) (Attempt, error) {
		obj.Abort()
		a.Status, a.Reason = Failed, err
		return a, err
	}
	if err := session.Close(); err != nil {
		return fail(err)
	}
	ok, err := commit(obj)
	if err != nil {
		return fail(fmt.Errorf("storing package: %w", err))
	}
	if !ok {
		return fail(errLostRace)
	}
	return a, nil
}

// Report renders the run for the report file.
func (r *RunResult) Report() logger.StringListReport {
	rep := logger.StringListReport{Title: r.Spec.FileName()}
	rep.Add("run=%s outcome=%s", r.RunID, r.Outcome)
	for _, a := range r.Attempts {
		line := fmt.Sprintf("mirror=%s status=%s bytes=%d/%d elapsed=%s", a.Mirror.Label(), a.Status, a.BytesReceived, a.BytesExpected, a.Elapsed.Round(time.Millisecond))
		if a.Reason != nil {
			line += fmt.Sprintf(" kind=%s reason=%q", Kind(a.Reason), a.Reason.Error())
		}
		rep.Add("%s", line)
	}
	if r.SavedPath != "" {
		rep.Add("saved=%s", r.SavedPath)
	}
	return rep
}
