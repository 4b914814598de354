// Package sweep orchestrates one inactivity run: fetch usage data from every
// enabled vendor, classify, merge, and notify.
package sweep

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/itinfra/seatsweep/pkg/license"
	"github.com/itinfra/seatsweep/pkg/notify"
	"github.com/itinfra/seatsweep/pkg/vendors"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything Run needs for a single sweep.
type Config struct {
	Sources []vendors.UsageSource

	NotifyAfterDays int // inactivity days before a warning DM
	RemoveAfterDays int // inactivity days before the removal rollup; should exceed NotifyAfterDays

	Dispatcher   *notify.Dispatcher
	AdminChannel string // recipient of the removal rollup

	// NotificationsEnabled is the master kill-switch. When false no chat
	// call is made and the counters reflect classification only.
	NotificationsEnabled bool

	Concurrency int    // concurrent warning DMs, defaults to 3 if <= 0
	Log         Logger // optional; nil = no logging

	// OnVendorDone is called after each vendor's classification completes
	// (from fetch goroutines). Nil = no callback.
	OnVendorDone func(vendor string, result license.Result, err error)
}

// Result is the aggregate outcome of one sweep.
type Result struct {
	Warned            int `json:"warned"`
	WarnFailed        int `json:"warnFailed"`
	RemovalCandidates int `json:"removalCandidates"`
}

// vendorOutcome pairs one vendor's classification with its failure, if any.
type vendorOutcome struct {
	name   string
	result license.Result
	err    error
}

// Run executes one sweep. Vendor failures are isolated: a source that errors
// contributes nothing and the run continues. Only configuration problems
// abort before I/O.
func Run(ctx context.Context, cfg Config) (Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	if err := validate(cfg); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	log.Infof("sweep %s starting with %d source(s)", runID, len(cfg.Sources))

	outcomes := collectVendorResults(ctx, cfg, log)

	var perVendor []license.Result
	for _, o := range outcomes {
		if o.err != nil {
			log.Errorf("sweep %s: source %s failed, contributing nothing: %v", runID, o.name, o.err)
			continue
		}
		log.Infof("sweep %s: %s classified %d to notify, %d to remove",
			runID, o.name, len(o.result.ToNotify), len(o.result.ToRemove))
		perVendor = append(perVendor, o.result)
	}

	merged := license.Merge(perVendor...)
	res := Result{RemovalCandidates: len(merged.ToRemove)}

	if !cfg.NotificationsEnabled {
		log.Infof("sweep %s: notifications disabled, skipping dispatch (%d notify, %d remove)",
			runID, len(merged.ToNotify), len(merged.ToRemove))
		return res, nil
	}

	res.Warned, res.WarnFailed = dispatchWarnings(ctx, cfg, merged.ToNotify)

	// The rollup goes out only after every DM outcome has been collected so
	// the returned counters are accurate.
	if err := cfg.Dispatcher.SendRemovalReport(ctx, cfg.AdminChannel, merged.ToRemove, cfg.RemoveAfterDays, serviceLabel(cfg.Sources)); err != nil {
		log.Errorf("sweep %s: removal report failed: %v", runID, err)
	}

	log.Infof("sweep %s done: warned=%d warnFailed=%d removalCandidates=%d",
		runID, res.Warned, res.WarnFailed, res.RemovalCandidates)
	return res, nil
}

func validate(cfg Config) error {
	if cfg.NotifyAfterDays <= 0 {
		return &license.ConfigError{Field: "notifyAfterDays", Err: fmt.Errorf("must be positive, got %d", cfg.NotifyAfterDays)}
	}
	if cfg.RemoveAfterDays <= 0 {
		return &license.ConfigError{Field: "removeAfterDays", Err: fmt.Errorf("must be positive, got %d", cfg.RemoveAfterDays)}
	}
	if cfg.NotificationsEnabled && cfg.Dispatcher == nil {
		return &license.ConfigError{Field: "dispatcher", Err: fmt.Errorf("required when notifications are enabled")}
	}
	return nil
}

// collectVendorResults runs every source concurrently: roster plus both
// activity windows fetched per vendor, then classification. Slice order
// matches cfg.Sources so merge order is deterministic.
func collectVendorResults(ctx context.Context, cfg Config, log Logger) []vendorOutcome {
	outcomes := make([]vendorOutcome, len(cfg.Sources))

	var wg sync.WaitGroup
	for i, src := range cfg.Sources {
		wg.Add(1)
		go func(i int, src vendors.UsageSource) {
			defer wg.Done()
			result, err := sweepVendor(ctx, src, cfg.NotifyAfterDays, cfg.RemoveAfterDays, log)
			outcomes[i] = vendorOutcome{name: src.Name(), result: result, err: err}
			if cfg.OnVendorDone != nil {
				cfg.OnVendorDone(src.Name(), result, err)
			}
		}(i, src)
	}
	wg.Wait()

	return outcomes
}

// sweepVendor fetches one vendor's roster and both activity windows, then
// classifies. The two activity fetches are independent and run concurrently.
func sweepVendor(ctx context.Context, src vendors.UsageSource, notifyDays, removeDays int, log Logger) (license.Result, error) {
	notifyWindow, err := license.ComputeWindow(notifyDays)
	if err != nil {
		return license.Result{}, err
	}
	removeWindow, err := license.ComputeWindow(removeDays)
	if err != nil {
		return license.Result{}, err
	}

	roster, err := src.FetchRoster(ctx)
	if err != nil {
		return license.Result{}, err
	}
	log.Debugf("%s: roster has %d monitored identities", src.Name(), len(roster))

	var (
		wg                           sync.WaitGroup
		notifyRecords, removeRecords []license.ActivityRecord
		notifyErr, removeErr         error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		notifyRecords, notifyErr = src.FetchActivity(ctx, notifyWindow)
	}()
	go func() {
		defer wg.Done()
		removeRecords, removeErr = src.FetchActivity(ctx, removeWindow)
	}()
	wg.Wait()

	if notifyErr != nil {
		return license.Result{}, notifyErr
	}
	if removeErr != nil {
		return license.Result{}, removeErr
	}

	return license.Classify(roster, notifyRecords, removeRecords), nil
}

// dispatchWarnings DMs every notify-tier identity through a small worker
// pool, tallying outcomes. All sends are awaited before returning.
func dispatchWarnings(ctx context.Context, cfg Config, ids []license.Identity) (warned, failed int) {
	if len(ids) == 0 {
		return 0, 0
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	idChan := make(chan license.Identity, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idChan {
				ok := cfg.Dispatcher.SendWarning(ctx, id, cfg.NotifyAfterDays, serviceNameFor(cfg.Sources, id))
				mu.Lock()
				if ok {
					warned++
				} else {
					failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		idChan <- id
	}
	close(idChan)
	wg.Wait()

	return warned, failed
}

// serviceNameFor names the service an identity's warning should mention,
// based on the vendor that first reported it.
func serviceNameFor(sources []vendors.UsageSource, id license.Identity) string {
	for _, s := range sources {
		if s.Name() == id.Source {
			return s.DisplayName()
		}
	}
	return serviceLabel(sources)
}

// serviceLabel joins the display names of all sources, for messages that
// cover the merged cross-vendor result.
func serviceLabel(sources []vendors.UsageSource) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.DisplayName())
	}
	if len(names) == 0 {
		return "licensed tools"
	}
	return strings.Join(names, " / ")
}
