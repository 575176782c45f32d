package syncer

import (
	"context"
	"drive-mirror/internal/models"
	"drive-mirror/internal/reconcile"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const KindScopeBusy = "scope_busy"

type Reconciler interface {
	SyncFolders(ctx context.Context, rc *reconcile.RunContext, parentID string) (*reconcile.Result, error)
	SyncImages(ctx context.Context, rc *reconcile.RunContext, folderID string) (*reconcile.Result, error)
}

type FolderLister interface {
	ListFoldersByParent(ctx context.Context, parentID string) ([]models.Folder, error)
}

type Journal interface {
	StartRun(ctx context.Context, id uuid.UUID, kind string, scope string, startedAt time.Time) error
	FinishRun(ctx context.Context, id uuid.UUID, state string, finishedAt time.Time, report interface{}) error
}

type Notifier interface {
	Publish(event models.SyncEvent)
}

// Deps wires an Orchestrator. Guard and Pacer default to an in-process guard
// and no pacing; Journal and Notifier are optional.
type Deps struct {
	Reconciler Reconciler
	Folders    FolderLister
	Root       RootResolver
	Guard      Guard
	Pacer      Pacer
	Journal    Journal
	Notifier   Notifier
}

// Orchestrator sequences structure sync and per-folder content sync.
type Orchestrator struct {
	rec      Reconciler
	folders  FolderLister
	root     RootResolver
	guard    Guard
	pacer    Pacer
	journal  Journal
	notifier Notifier

	mu     sync.Mutex
	active map[uuid.UUID]*reconcile.RunContext
}

func New(d Deps) *Orchestrator {
	if d.Guard == nil {
		d.Guard = NewMemGuard()
	}
	if d.Pacer == nil {
		d.Pacer = noPacer{}
	}
	return &Orchestrator{
		rec:      d.Reconciler,
		folders:  d.Folders,
		root:     d.Root,
		guard:    d.Guard,
		pacer:    d.Pacer,
		journal:  d.Journal,
		notifier: d.Notifier,
		active:   map[uuid.UUID]*reconcile.RunContext{},
	}
}

type run struct {
	rc       *reconcile.RunContext
	root     string
	machine  *machine
	report   *models.RunReport
	releases []func()
}

// SyncStructure reconciles the top-level folders under the root.
func (o *Orchestrator) SyncStructure(ctx context.Context) (*models.ScopeReport, error) {
	root, err := o.root.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	r, err := o.begin(ctx, models.ScopeKindStructure, "structure:"+root)
	if err != nil {
		return nil, err
	}
	defer o.finish(ctx, r)

	rep := o.structurePhase(ctx, r, root)
	if rep.Success {
		r.machine.to(StateDone)
	}
	return &rep, nil
}

// SyncFolder reconciles the images of one folder.
func (o *Orchestrator) SyncFolder(ctx context.Context, folderID string) (*models.ScopeReport, error) {
	r, err := o.begin(ctx, models.ScopeKindFolder, "folder:"+folderID)
	if err != nil {
		return nil, err
	}
	defer o.finish(ctx, r)

	r.machine.to(StateSyncContent)
	rep := o.reconcileScope(ctx, r, models.ScopeKindFolder, folderID, "", func(ctx context.Context) (*reconcile.Result, error) {
		return o.rec.SyncImages(ctx, r.rc, folderID)
	})
	r.report.Folders = append(r.report.Folders, rep)

	if rep.Success {
		r.machine.to(StateDone)
	} else {
		r.report.Error = rep.Error
		r.machine.to(StateFailed)
	}
	return &rep, nil
}

// SyncAll runs structure sync and then every folder's content sync.
func (o *Orchestrator) SyncAll(ctx context.Context) (*models.RunReport, error) {
	r, err := o.beginAll(ctx)
	if err != nil {
		return nil, err
	}
	o.runAll(ctx, r)
	return r.report, nil
}

// StartAll acquires the scope and runs SyncAll in the background on a
// context detached from ctx. The channel yields the final report.
func (o *Orchestrator) StartAll(ctx context.Context) (uuid.UUID, <-chan *models.RunReport, error) {
	r, err := o.beginAll(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}

	done := make(chan *models.RunReport, 1)
	bg := context.WithoutCancel(ctx)
	go func() {
		o.runAll(bg, r)
		done <- r.report
		close(done)
	}()
	return r.rc.ID, done, nil
}

// Cancel flags an active run. It stops before the next folder.
func (o *Orchestrator) Cancel(runID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	rc, ok := o.active[runID]
	if ok {
		rc.Cancel()
	}
	return ok
}

func (o *Orchestrator) beginAll(ctx context.Context) (*run, error) {
	root, err := o.root.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	r, err := o.begin(ctx, models.ScopeKindAll, "all:"+root, "structure:"+root)
	if err != nil {
		return nil, err
	}
	r.root = root
	return r, nil
}

func (o *Orchestrator) runAll(ctx context.Context, r *run) {
	defer o.finish(ctx, r)

	if rep := o.structurePhase(ctx, r, r.root); !rep.Success {
		return
	}

	r.machine.to(StateSyncContent)
	folders, err := o.folders.ListFoldersByParent(context.WithoutCancel(ctx), r.root)
	if err != nil {
		r.report.Error = fmt.Sprintf("load folders: %v", err)
		r.machine.to(StateFailed)
		return
	}

	for i, f := range folders {
		if r.rc.Cancelled() || ctx.Err() != nil {
			o.cancelRemaining(r, folders[i:])
			break
		}
		if err := o.pacer.Wait(ctx); err != nil || r.rc.Cancelled() {
			o.cancelRemaining(r, folders[i:])
			break
		}
		r.report.Folders = append(r.report.Folders, o.folderPhase(ctx, r, f))
	}
	r.machine.to(StateDone)
}

func (o *Orchestrator) structurePhase(ctx context.Context, r *run, root string) models.ScopeReport {
	r.machine.to(StateSyncStructure)
	rep := o.reconcileScope(ctx, r, models.ScopeKindStructure, root, "", func(ctx context.Context) (*reconcile.Result, error) {
		return o.rec.SyncFolders(ctx, r.rc, root)
	})
	r.report.Structure = &rep

	if !rep.Success {
		r.report.Error = rep.Error
		r.machine.to(StateFailed)
	}
	return rep
}

// folderPhase syncs one folder of a full run. A folder already being synced
// by a separate trigger is reported busy rather than waited for.
func (o *Orchestrator) folderPhase(ctx context.Context, r *run, f models.Folder) models.ScopeReport {
	release, ok, err := o.guard.TryAcquire(ctx, "folder:"+f.ID)
	if err != nil || !ok {
		if err == nil {
			err = ErrScopeBusy
		}
		rep := models.ScopeReport{
			Scope:      "folder:" + f.ID,
			Kind:       models.ScopeKindFolder,
			FolderID:   f.ID,
			FolderName: f.Name,
			Error:      err.Error(),
			ErrorKind:  KindScopeBusy,
		}
		scopeFailures.WithLabelValues(models.ScopeKindFolder, rep.ErrorKind).Inc()
		o.notify(r, models.EventScopeSynced, rep)
		return rep
	}
	defer release()

	return o.reconcileScope(ctx, r, models.ScopeKindFolder, f.ID, f.Name, func(ctx context.Context) (*reconcile.Result, error) {
		return o.rec.SyncImages(ctx, r.rc, f.ID)
	})
}

func (o *Orchestrator) cancelRemaining(r *run, folders []models.Folder) {
	r.rc.Logger().Warnf("run cancelled, skipping %d folders", len(folders))
	for _, f := range folders {
		r.report.Folders = append(r.report.Folders, models.ScopeReport{
			Scope:      "folder:" + f.ID,
			Kind:       models.ScopeKindFolder,
			FolderID:   f.ID,
			FolderName: f.Name,
			Error:      "cancelled",
			ErrorKind:  reconcile.KindCancelled,
		})
	}
}

// reconcileScope runs fn on a context that ignores cancellation, so a
// started scope always completes or rolls back on its own.
func (o *Orchestrator) reconcileScope(ctx context.Context, r *run, kind, id, name string, fn func(context.Context) (*reconcile.Result, error)) models.ScopeReport {
	start := time.Now()
	res, err := fn(context.WithoutCancel(ctx))
	elapsed := time.Since(start)

	rep := models.ScopeReport{
		Scope:           kind + ":" + id,
		Kind:            kind,
		DurationSeconds: elapsed.Seconds(),
	}
	if kind == models.ScopeKindFolder {
		rep.FolderID = id
		rep.FolderName = name
	}
	scopeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())

	logger := r.rc.Logger().WithFields(log.Fields{"kind": kind, "scope_id": id})
	if err != nil {
		rep.Error = err.Error()
		rep.ErrorKind = reconcile.ErrorKind(err)
		scopeFailures.WithLabelValues(kind, rep.ErrorKind).Inc()
		logger.Errorf("scope sync failed: %v", err)
	} else {
		rep.Success = true
		rep.Inserted = res.Inserted
		rep.Updated = res.Updated
		rep.Deleted = res.Deleted
		rep.CascadedImages = res.CascadedImages
		rep.Moved = res.Moved
		rep.RenameFailures = res.RenameFailures
		rep.TotalRemote = res.TotalRemote
		changesTotal.WithLabelValues(kind, "inserted").Add(float64(res.Inserted))
		changesTotal.WithLabelValues(kind, "updated").Add(float64(res.Updated))
		changesTotal.WithLabelValues(kind, "deleted").Add(float64(res.Deleted))
	}

	o.notify(r, models.EventScopeSynced, rep)
	return rep
}

// begin acquires every scope key or none of them.
func (o *Orchestrator) begin(ctx context.Context, kind string, scopes ...string) (*run, error) {
	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, scope := range scopes {
		release, ok, err := o.guard.TryAcquire(ctx, scope)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("acquire %s: %w", scope, err)
		}
		if !ok {
			releaseAll()
			return nil, fmt.Errorf("%w: %s", ErrScopeBusy, scope)
		}
		releases = append(releases, release)
	}

	rc := reconcile.NewRunContext(scopes[0])
	r := &run{
		rc:      rc,
		machine: newMachine(),
		report: &models.RunReport{
			RunID:     rc.ID,
			Kind:      kind,
			State:     string(StateInit),
			Folders:   []models.ScopeReport{},
			StartedAt: time.Now().UTC(),
		},
		releases: releases,
	}

	o.mu.Lock()
	o.active[rc.ID] = rc
	o.mu.Unlock()

	if o.journal != nil {
		if err := o.journal.StartRun(ctx, rc.ID, kind, rc.Scope, r.report.StartedAt); err != nil {
			rc.Logger().Warnf("failed to journal run start: %v", err)
		}
	}
	rc.Logger().WithField("kind", kind).Info("sync run started")
	o.notify(r, models.EventRunStarted, map[string]string{"kind": kind, "scope": rc.Scope})
	return r, nil
}

func (o *Orchestrator) finish(ctx context.Context, r *run) {
	rep := r.report
	rep.State = string(r.machine.state)
	rep.FinishedAt = time.Now().UTC()
	rep.DurationSeconds = rep.FinishedAt.Sub(rep.StartedAt).Seconds()

	var totals models.Totals
	for _, s := range rep.Reports() {
		totals.Inserted += s.Inserted
		totals.Updated += s.Updated
		totals.Deleted += s.Deleted
		switch {
		case s.Success:
		case s.ErrorKind == reconcile.KindCancelled:
			totals.Cancelled++
		default:
			totals.Failed++
		}
	}
	rep.Totals = totals

	runsTotal.WithLabelValues(rep.Kind, rep.State).Inc()
	if o.journal != nil {
		if err := o.journal.FinishRun(context.WithoutCancel(ctx), rep.RunID, rep.State, rep.FinishedAt, rep); err != nil {
			r.rc.Logger().Warnf("failed to journal run finish: %v", err)
		}
	}

	o.mu.Lock()
	delete(o.active, r.rc.ID)
	o.mu.Unlock()

	for i := len(r.releases) - 1; i >= 0; i-- {
		r.releases[i]()
	}

	r.rc.Logger().WithFields(log.Fields{
		"state":    rep.State,
		"inserted": totals.Inserted,
		"updated":  totals.Updated,
		"deleted":  totals.Deleted,
		"failed":   totals.Failed,
		"duration": rep.DurationSeconds,
	}).Info("sync run finished")
	o.notify(r, models.EventRunFinished, rep)
}

func (o *Orchestrator) notify(r *run, eventType string, payload interface{}) {
	if o.notifier == nil {
		return
	}
	o.notifier.Publish(models.SyncEvent{
		EventType: eventType,
		RunID:     r.rc.ID,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	})
}
