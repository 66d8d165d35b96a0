package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"annotext/internal/annotate"
	"annotext/internal/blockid"
	"annotext/internal/config"
	"annotext/internal/crawler"
	"annotext/internal/document"
	"annotext/internal/editor"
	"annotext/internal/extractor"
	"annotext/internal/generator"
	"annotext/internal/git"
	"annotext/internal/lifecycle"
	"annotext/internal/matcher"
	"annotext/internal/storage"
)

// IncrementalSync annotates changed documents, tracks the logical words that
// disappeared since the last stored rendition and records the new rendition.
type IncrementalSync struct {
	Config *config.Config

	// WriteBack rewrites each processed file with its annotated rendition.
	WriteBack bool

	store     *storage.SQLiteStore
	matcher   *matcher.Trie
	extractor *extractor.Extractor
	generator *generator.HTMLGenerator
}

// DocumentResult summarises one processed document.
type DocumentResult struct {
	Path      string
	Annotated int
	Blocks    blockid.Result
	Deleted   []lifecycle.Deletion
	Changed   bool
	Removed   bool
}

type updatePlan struct {
	Changes    []string
	FullResync bool
}

func NewIncrementalSync(cfg *config.Config, store *storage.SQLiteStore, m *matcher.Trie) *IncrementalSync {
	if cfg == nil {
		cfg = config.Default()
	}
	return &IncrementalSync{
		Config:    cfg,
		store:     store,
		matcher:   m,
		extractor: extractor.NewExtractor(nil),
		generator: generator.NewHTMLGenerator(),
	}
}

func (s *IncrementalSync) Run(ctx context.Context, force bool) ([]DocumentResult, error) {
	plan, err := s.detectChangesStage(force)
	if err != nil {
		return nil, err
	}
	if len(plan.Changes) == 0 && !plan.FullResync {
		fmt.Println("✅ No changes detected.")
		return nil, nil
	}

	if plan.FullResync {
		return s.fullScanStage(ctx)
	}

	var results []DocumentResult
	for _, change := range plan.Changes {
		path := filepath.Join(s.Config.Project.Root, change)
		var res *DocumentResult
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			res, err = s.RemoveDocument(ctx, change)
			if err != nil {
				return results, err
			}
		} else {
			res, err = s.SyncDocument(ctx, path)
			if err != nil {
				log.Printf("⚠️ Failed to sync %s: %v", change, err)
				continue
			}
		}
		results = append(results, *res)
	}
	report(results)
	return results, nil
}

func (s *IncrementalSync) detectChangesStage(force bool) (*updatePlan, error) {
	changes, err := git.GetChangedFiles(s.Config.Project.Root, "HEAD")
	if err != nil {
		if !force {
			return nil, fmt.Errorf("failed to get git changes: %w", err)
		}
		log.Printf("Warning: git change detection unavailable: %v", err)
	}

	var docs []string
	for _, c := range changes {
		if crawler.IsDocument(c) {
			docs = append(docs, c)
		}
	}

	fullResync := force && len(docs) == 0
	if fullResync {
		fmt.Println("🧭 No document changes detected. Running full sync over the project (--force).")
	} else if len(docs) > 0 {
		fmt.Printf("📝 Detected %d changed documents.\n", len(docs))
	}

	return &updatePlan{Changes: docs, FullResync: fullResync}, nil
}

func (s *IncrementalSync) fullScanStage(ctx context.Context) ([]DocumentResult, error) {
	var results []DocumentResult
	cr := crawler.NewCrawler(s.extractor)
	err := cr.ScanProject(s.Config.Project.Root, func(path string, tree *document.Tree) {
		res, err := s.process(ctx, path, tree)
		if err != nil {
			log.Printf("⚠️ Failed to sync %s: %v", path, err)
			return
		}
		results = append(results, *res)
	})
	if err != nil {
		return results, fmt.Errorf("full scan failed: %w", err)
	}
	report(results)
	return results, nil
}

// SyncDocument extracts, annotates and records the document at path.
func (s *IncrementalSync) SyncDocument(ctx context.Context, path string) (*DocumentResult, error) {
	tree, err := s.extractor.ExtractFromFile(path)
	if err != nil {
		return nil, err
	}
	return s.process(ctx, path, tree)
}

// RemoveDocument reports every word of a deleted document and forgets it.
func (s *IncrementalSync) RemoveDocument(ctx context.Context, key string) (*DocumentResult, error) {
	prev, err := s.previousStage(ctx, key)
	if err != nil {
		return nil, err
	}
	res := &DocumentResult{Path: key, Removed: true}
	if prev == nil {
		return res, nil
	}

	res.Deleted = s.tracker().Diff(prev, document.NewTree(nil))
	if err := s.store.DeleteDocument(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to forget %s: %w", key, err)
	}
	res.Changed = true
	return res, nil
}

func (s *IncrementalSync) process(ctx context.Context, path string, tree *document.Tree) (*DocumentResult, error) {
	key := s.documentKey(path)
	res := &DocumentResult{Path: key}

	prev, err := s.previousStage(ctx, key)
	if err != nil {
		return nil, err
	}

	ed := editor.New(tree)
	if _, err := annotate.Attach(ed, s.matcher); err != nil {
		return nil, err
	}
	tracker := s.tracker()
	tracker.Attach(ed)

	assigner := blockid.New(s.Config.Blocks.Prefix, blockid.WithAttribute(s.Config.Blocks.Attribute))
	if err := ed.Update(func(t *document.Tree) error {
		if s.Config.Blocks.AutoAssign {
			res.Blocks = assigner.Assign(t)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to settle %s: %w", key, err)
	}

	current := ed.Tree()
	for _, leaf := range current.Leaves() {
		if current.Kind(leaf) == document.KindAnnotated {
			res.Annotated++
		}
	}

	if prev != nil {
		res.Deleted = tracker.Diff(prev, current)
	}
	if err := s.registerStage(ctx, current); err != nil {
		return nil, err
	}

	rendered, err := s.generator.RenderString(current)
	if err != nil {
		return nil, err
	}
	if res.Changed, err = s.store.SaveDocument(ctx, key, rendered); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", key, err)
	}
	if s.WriteBack && res.Changed {
		if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return res, nil
}

func (s *IncrementalSync) previousStage(ctx context.Context, key string) (*document.Tree, error) {
	stored, found, err := s.store.LoadDocument(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous rendition of %s: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	prev, err := s.extractor.Extract(ctx, []byte(stored))
	if err != nil {
		return nil, fmt.Errorf("failed to parse previous rendition of %s: %w", key, err)
	}
	return prev, nil
}

func (s *IncrementalSync) registerStage(ctx context.Context, r document.Reader) error {
	for _, ns := range s.Config.Tracking.Namespaces {
		found := lifecycle.CollectIDs(r, ns.Attribute)
		ids := make([]string, 0, len(found))
		for id := range found {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		if err := s.store.RegisterWords(ctx, ns.Name, ids); err != nil {
			return fmt.Errorf("failed to register %s ids: %w", ns.Name, err)
		}
	}
	return nil
}

func (s *IncrementalSync) tracker() *lifecycle.Tracker {
	var opts []lifecycle.Option
	if s.Config.Tracking.DedupePerCycle {
		opts = append(opts, lifecycle.WithCycleDedupe())
	}
	return lifecycle.New(s.store, s.Config.Tracking.Namespaces, opts...)
}

func (s *IncrementalSync) documentKey(path string) string {
	rel, err := filepath.Rel(s.Config.Project.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func report(results []DocumentResult) {
	var annotated, generated, deleted, changed int
	for _, r := range results {
		annotated += r.Annotated
		generated += r.Blocks.Generated
		deleted += len(r.Deleted)
		if r.Changed {
			changed++
		}
	}
	fmt.Printf("📊 Synced %d documents (%d changed).\n", len(results), changed)
	fmt.Printf("  -> Annotated spans: %d, new block ids: %d, deleted words: %d\n", annotated, generated, deleted)
}
