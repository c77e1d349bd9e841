package graph

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/JordanCoin/openfoia/internal/config"
	"github.com/JordanCoin/openfoia/internal/extract"
	"github.com/JordanCoin/openfoia/internal/merge"
	"github.com/JordanCoin/openfoia/internal/normalize"
	"github.com/JordanCoin/openfoia/internal/resolve"
	"github.com/JordanCoin/openfoia/internal/storage"
	"github.com/JordanCoin/openfoia/pkg/types"
)

// ErrEngineStopped is returned by Ingest after Shutdown.
var ErrEngineStopped = errors.New("graph: engine stopped")

// Engine runs the ingestion pipeline. Normalization, extraction, and
// merging are pure per document and run on a worker pool; resolution,
// relationship building, and the store commit run on a single committer
// goroutine in ingestion order, so the graph only ever has one writer
// and alias accumulation is reproducible.
type Engine struct {
	cfg      config.PipelineConfig
	store    storage.GraphStore
	registry *extract.Registry
	merger   *merge.Merger
	resolver *resolve.Resolver
	builder  *Builder

	jobs    chan *job
	results chan *stageResult

	workerWG    sync.WaitGroup
	committerWG sync.WaitGroup

	// commitMu serialises graph writes: the committer holds it per
	// document, operator merges take it for their duration.
	commitMu sync.Mutex

	mu      sync.Mutex
	nextSeq uint64
	stopped bool
}

type job struct {
	seq  uint64
	raw  normalize.RawDocument
	done chan *types.DocumentStatus
}

// stageResult is what the worker stages hand the committer. A failed
// document still produces one, so commit sequencing never stalls on it.
type stageResult struct {
	job     *job
	doc     *types.Document
	merged  []types.MergedMention
	signals []types.RelationSignal
	gaps    []string
	err     error
}

// NewEngine assembles the pipeline around a store and an extractor
// registry.
func NewEngine(cfg config.PipelineConfig, store storage.GraphStore, registry *extract.Registry) *Engine {
	resolver := resolve.NewResolver(cfg.FuzzyThreshold)
	return &Engine{
		cfg:      cfg,
		store:    store,
		registry: registry,
		merger:   merge.NewMerger(cfg.OverlapFraction),
		resolver: resolver,
		builder:  NewBuilder(cfg.CooccurrenceWindow, resolver),
		jobs:     make(chan *job, cfg.QueueSize),
		results:  make(chan *stageResult, cfg.QueueSize),
	}
}

// Start seeds the resolver from the store and launches the workers and
// the committer.
func (e *Engine) Start(ctx context.Context) error {
	entities, err := e.store.LoadEntities(ctx)
	if err != nil {
		return fmt.Errorf("graph: load entities: %w", err)
	}
	e.resolver.Load(entities)
	log.Printf("graph: engine starting with %d known entities, %d workers", len(entities), e.cfg.Workers)

	for i := 0; i < e.cfg.Workers; i++ {
		e.workerWG.Add(1)
		go e.worker(ctx, i)
	}
	e.committerWG.Add(1)
	go e.committer()
	return nil
}

// Shutdown drains in-flight documents and stops the engine. Documents
// not committed within the timeout are abandoned; their commits either
// landed atomically or not at all.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.mu.Unlock()

	close(e.jobs)
	e.workerWG.Wait()
	close(e.results)

	done := make(chan struct{})
	go func() {
		e.committerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(e.cfg.ShutdownTimeout):
		return fmt.Errorf("graph: shutdown timed out after %s", e.cfg.ShutdownTimeout)
	}
}

// Ingest queues one raw document and blocks until it is committed or
// marked failed. Safe to call from multiple goroutines; commit order
// follows call order.
func (e *Engine) Ingest(ctx context.Context, raw normalize.RawDocument) (*types.DocumentStatus, error) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, ErrEngineStopped
	}
	e.nextSeq++
	j := &job{seq: e.nextSeq, raw: raw, done: make(chan *types.DocumentStatus, 1)}
	e.jobs <- j
	e.mu.Unlock()

	select {
	case status := <-j.done:
		return status, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MergeEntities performs an operator-initiated entity merge. It takes the
// same write lock as document commits, so it never interleaves with one.
func (e *Engine) MergeEntities(ctx context.Context, survivingID, absorbedID, actor string) (*types.MergeRecord, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	record, err := e.store.MergeEntities(ctx, survivingID, absorbedID, actor)
	if err != nil {
		return nil, err
	}
	e.resolver.ApplyMerge(survivingID, absorbedID)
	log.Printf("graph: merged entity %s into %s (actor %s)", absorbedID, survivingID, actor)
	return record, nil
}

// worker runs the pure stages: normalize, extract, merge.
func (e *Engine) worker(ctx context.Context, workerID int) {
	defer e.workerWG.Done()

	for j := range e.jobs {
		e.results <- e.process(ctx, workerID, j)
	}
}

func (e *Engine) process(ctx context.Context, workerID int, j *job) *stageResult {
	res := &stageResult{job: j}
	docID := j.raw.ID

	e.setStatus(types.DocumentStatus{DocumentID: docID, Status: types.DocPending})

	doc, err := normalize.Normalize(j.raw)
	if err != nil {
		log.Printf("graph: worker %d: normalization of %s failed: %v", workerID, docID, err)
		res.err = err
		return res
	}
	res.doc = doc
	e.setStatus(types.DocumentStatus{DocumentID: docID, Status: types.DocNormalized})

	var raw []types.Mention
	for _, extractor := range e.registry.Extractors() {
		out, err := extractor.Extract(ctx, doc)
		if err != nil {
			if errors.Is(err, extract.ErrExtractorUnavailable) {
				log.Printf("graph: worker %d: extractor %s unavailable for %s: %v",
					workerID, extractor.Name(), docID, err)
				res.gaps = append(res.gaps, extractor.Name())
				continue
			}
			res.err = fmt.Errorf("graph: extractor %s on %s: %w", extractor.Name(), docID, err)
			return res
		}
		raw = append(raw, out.Mentions...)
		res.signals = append(res.signals, out.Relations...)
	}

	res.merged = e.merger.Merge(raw)
	e.setStatus(types.DocumentStatus{DocumentID: docID, Status: types.DocExtracted, ExtractorGaps: res.gaps})
	return res
}

// committer applies stage results to the graph strictly in ingestion
// order. Results arriving out of order wait in the pending map.
func (e *Engine) committer() {
	defer e.committerWG.Done()

	pending := make(map[uint64]*stageResult)
	var next uint64 = 1

	for res := range e.results {
		pending[res.job.seq] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			e.commit(r)
			next++
		}
	}
}

func (e *Engine) commit(res *stageResult) {
	docID := res.job.raw.ID
	finish := func(st types.DocumentStatus) {
		e.setStatus(st)
		res.job.done <- &st
	}

	if res.err != nil {
		finish(types.DocumentStatus{
			DocumentID:    docID,
			Status:        types.DocFailed,
			Reason:        res.err.Error(),
			ExtractorGaps: res.gaps,
		})
		return
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	// Database operations run on a background context so a cancelled
	// caller cannot interrupt a commit halfway.
	ctx := context.Background()

	spans, err := e.store.MentionSpans(ctx, docID)
	if err != nil {
		finish(types.DocumentStatus{
			DocumentID: docID, Status: types.DocFailed,
			Reason: fmt.Sprintf("load prior mentions: %v", err),
		})
		return
	}
	seen := make(map[resolve.SpanKey]bool, len(spans))
	for _, s := range spans {
		seen[resolve.KeyFor(s)] = true
	}

	resolution := e.resolver.Resolve(res.merged, seen)
	e.setStatus(types.DocumentStatus{DocumentID: docID, Status: types.DocResolved, ExtractorGaps: res.gaps})

	summary := buildSummary(res.merged, res.signals)
	commit := &storage.DocumentCommit{
		Document:      res.doc,
		ExtractorGaps: res.gaps,
		Summary:       summary,
		Edges:         e.builder.Build(resolution.Mentions, res.signals),
	}
	commit.NewEntities = resolution.NewEntities
	for _, a := range resolution.NewAliases {
		commit.NewAliases = append(commit.NewAliases, storage.EntityAlias{EntityID: a.EntityID, Alias: a.Alias})
	}
	for _, m := range resolution.Mentions {
		commit.Mentions = append(commit.Mentions, storage.MentionRecord{EntityID: m.EntityID, Mention: m.Mention})
	}

	var commitErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 100 * time.Millisecond
			log.Printf("graph: retrying commit of %s in %v (attempt %d)", docID, backoff, attempt)
			time.Sleep(backoff)
		}
		commitErr = e.store.CommitDocument(ctx, commit)
		if commitErr == nil {
			break
		}
	}
	if commitErr != nil {
		log.Printf("graph: commit of %s failed permanently: %v", docID, commitErr)
		finish(types.DocumentStatus{
			DocumentID:    docID,
			Status:        types.DocFailed,
			Reason:        commitErr.Error(),
			ExtractorGaps: res.gaps,
		})
		return
	}

	// The index only learns about new entities and aliases once they are
	// durable.
	e.resolver.Apply(resolution)

	st := types.DocumentStatus{DocumentID: docID, Status: types.DocCommitted, ExtractorGaps: res.gaps, Summary: summary}
	res.job.done <- &st
}

// setStatus records pipeline progress; failures here are logged, not
// fatal, since the status table is advisory.
func (e *Engine) setStatus(st types.DocumentStatus) {
	if err := e.store.SetDocumentStatus(context.Background(), st); err != nil {
		log.Printf("graph: status update for %s failed: %v", st.DocumentID, err)
	}
}
