package sandbox

import (
	"context"
	"fmt"
	"html"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/browserpike/backend/internal/shared/id"
	"github.com/dop251/goja"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Areas under a bundle's URL space
const (
	AreaDoc   = "doc"
	AreaFiles = "files"
)

// Release reasons
const (
	ReasonReleased  = "released"
	ReasonSelection = "selection"
	ReasonSession   = "session"
	ReasonExpired   = "expired"
	ReasonCapacity  = "capacity"
)

// Archive is the decoded container a bundle is built from
type Archive interface {
	Files() []string
	Has(name string) bool
	Read(name string) ([]byte, error)
}

// Recorder receives bundle lifecycle events
type Recorder interface {
	BundleBuilt(mode string)
	BundleReleased(reason string)
}

// ReleaseFunc observes every dropped bundle. It runs after the store lock is
// released, so it may call back into the store.
type ReleaseFunc func(bundleID id.BundleID, reason string)

type release struct {
	bundleID id.BundleID
	reason   string
}

// Entry is one in-memory object served under a bundle
type Entry struct {
	Data        []byte
	ContentType string
}

// Bundle is an archive made runnable: every file entry has a local
// reference URL, and the entry document carries the interception shim
type Bundle struct {
	ID          id.BundleID       `json:"id"`
	EntryPoint  string            `json:"entry_point"`
	DocumentURL string            `json:"document_url"`
	Refs        map[string]string `json:"refs"`
	HTML        string            `json:"-"`
	Created     time.Time         `json:"created"`

	files map[string]*Entry
	shim  *goja.Program
}

// Options configures a Store
type Options struct {
	Prefix       string
	MaxBundles   int
	TTL          time.Duration
	ProbeTimeout time.Duration
	Logger       *zap.Logger
	Recorder     Recorder
}

// Store holds live bundles in memory. Expired bundles are dropped lazily and
// the oldest bundle is evicted when capacity is reached.
type Store struct {
	prefix     string
	maxBundles int
	ttl        time.Duration
	runtime    *Runtime
	logger     *zap.Logger
	recorder   Recorder
	now        func() time.Time

	mu        sync.Mutex
	bundles   map[id.BundleID]*Bundle
	order     []id.BundleID
	onRelease ReleaseFunc
	pending   []release
}

// NewStore creates a bundle store
func NewStore(opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = "/sandbox"
	}
	if opts.MaxBundles <= 0 {
		opts.MaxBundles = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Store{
		prefix:     strings.TrimSuffix(opts.Prefix, "/"),
		maxBundles: opts.MaxBundles,
		ttl:        opts.TTL,
		runtime:    NewRuntime(opts.ProbeTimeout),
		logger:     opts.Logger,
		recorder:   opts.Recorder,
		now:        time.Now,
		bundles:    make(map[id.BundleID]*Bundle),
	}
}

// OnRelease registers fn to observe released bundles
func (s *Store) OnRelease(fn ReleaseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRelease = fn
}

// unlock releases the store lock and reports the bundles dropped while it
// was held
func (s *Store) unlock() {
	pending, fn := s.pending, s.onRelease
	s.pending = nil
	s.mu.Unlock()

	if fn == nil {
		return
	}
	for _, r := range pending {
		fn(r.bundleID, r.reason)
	}
}

// Build materialises every file entry of archive and rewrites entryPoint so
// its fetch and importScripts calls resolve to those copies
func (s *Store) Build(archive Archive, entryPoint string) (*Bundle, error) {
	return s.build(archive, entryPoint, "build")
}

func (s *Store) build(archive Archive, entryPoint, mode string) (*Bundle, error) {
	if !archive.Has(entryPoint) {
		return nil, faults.Newf(faults.KindEntryNotFound, "sandbox.build", entryPoint, "entry point %q not in archive", entryPoint)
	}

	bundleID := id.NewBundleID()
	root := s.prefix + "/" + string(bundleID)
	docRoot := root + "/" + AreaDoc + "/"
	filesRoot := root + "/" + AreaFiles + "/"

	names := archive.Files()
	b := &Bundle{
		ID:          bundleID,
		EntryPoint:  entryPoint,
		DocumentURL: docRoot + escapePath(entryPoint),
		Refs:        make(map[string]string, len(names)),
		files:       make(map[string]*Entry, len(names)),
	}

	for _, name := range names {
		data, err := archive.Read(name)
		if err != nil {
			return nil, err
		}
		b.files[name] = &Entry{Data: data, ContentType: contentType(name, data)}
		b.Refs[name] = filesRoot + escapePath(name)
	}

	script, err := buildShim(b.Refs, docRoot, filesRoot)
	if err != nil {
		return nil, fmt.Errorf("render shim: %w", err)
	}
	if b.shim, err = s.runtime.Compile("shim.js", script); err != nil {
		return nil, err
	}
	b.HTML = inject(string(b.files[entryPoint].Data), script)
	b.Created = s.now()

	s.put(b)
	if s.recorder != nil {
		s.recorder.BundleBuilt(mode)
	}
	s.logger.Info("sandbox bundle built",
		zap.String("bundle", string(b.ID)),
		zap.String("entry_point", entryPoint),
		zap.Int("files", len(names)),
		zap.String("mode", mode),
	)
	return b, nil
}

func (s *Store) put(b *Bundle) {
	s.mu.Lock()
	defer s.unlock()

	s.expireLocked()
	for len(s.order) >= s.maxBundles {
		s.dropLocked(s.order[0], ReasonCapacity)
	}
	s.bundles[b.ID] = b
	s.order = append(s.order, b.ID)
}

// Get returns a live bundle
func (s *Store) Get(bundleID id.BundleID) (*Bundle, bool) {
	s.mu.Lock()
	defer s.unlock()

	s.expireLocked()
	b, ok := s.bundles[bundleID]
	return b, ok
}

// Release drops a bundle and its in-memory objects
func (s *Store) Release(bundleID id.BundleID, reason string) bool {
	s.mu.Lock()
	defer s.unlock()

	return s.dropLocked(bundleID, reason)
}

// Len returns the number of live bundles
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bundles)
}

func (s *Store) expireLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for len(s.order) > 0 {
		b := s.bundles[s.order[0]]
		if b.Created.After(cutoff) {
			return
		}
		s.dropLocked(b.ID, ReasonExpired)
	}
}

func (s *Store) dropLocked(bundleID id.BundleID, reason string) bool {
	if _, ok := s.bundles[bundleID]; !ok {
		return false
	}
	delete(s.bundles, bundleID)
	for i, other := range s.order {
		if other == bundleID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.pending = append(s.pending, release{bundleID: bundleID, reason: reason})
	if s.recorder != nil {
		s.recorder.BundleReleased(reason)
	}
	s.logger.Debug("sandbox bundle released", zap.String("bundle", string(bundleID)), zap.String("reason", reason))
	return true
}

// Open returns the object served at area/entry of a bundle. The document
// area serves the rewritten entry point at its own name and plain entry
// bytes everywhere else, so relative references from the page resolve.
func (s *Store) Open(bundleID id.BundleID, area, entry string) (*Entry, error) {
	b, ok := s.Get(bundleID)
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "sandbox.open", string(bundleID), "no bundle %s", bundleID)
	}

	entry = strings.TrimPrefix(entry, "/")
	if area == AreaDoc && entry == b.EntryPoint {
		return &Entry{Data: []byte(b.HTML), ContentType: "text/html; charset=utf-8"}, nil
	}
	if area != AreaDoc && area != AreaFiles {
		return nil, faults.Newf(faults.KindNotFound, "sandbox.open", area, "unknown area %q", area)
	}

	e, ok := b.files[entry]
	if !ok {
		return nil, faults.Newf(faults.KindEntryNotFound, "sandbox.open", entry, "no entry %q in bundle %s", entry, bundleID)
	}
	return e, nil
}

// Probe runs the bundle's shim in the embedded engine and reports where a
// fetch of ref from the entry document would go
func (s *Store) Probe(ctx context.Context, bundleID id.BundleID, ref string) (*ProbeResult, error) {
	b, ok := s.Get(bundleID)
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "sandbox.probe", string(bundleID), "no bundle %s", bundleID)
	}
	return s.runtime.Probe(ctx, b.shim, b.DocumentURL, ref)
}

// ProbeImports reports where importScripts(refs...) from a worker of the
// entry document would load each script
func (s *Store) ProbeImports(ctx context.Context, bundleID id.BundleID, refs []string) (*ImportResult, error) {
	b, ok := s.Get(bundleID)
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "sandbox.probe", string(bundleID), "no bundle %s", bundleID)
	}
	return s.runtime.ProbeImports(ctx, b.shim, b.DocumentURL, refs)
}

// Launch is the play presentation: open DocumentURL in Target
type Launch struct {
	BundleID    id.BundleID `json:"bundle_id"`
	DocumentURL string      `json:"document_url"`
	Target      string      `json:"target"`
}

// Play builds a bundle for the play entry. replace selects the current view
// (_self) instead of a new top-level view (_blank).
func (s *Store) Play(archive Archive, entryPoint string, replace bool) (*Launch, error) {
	b, err := s.build(archive, entryPoint, "play")
	if err != nil {
		return nil, err
	}

	target := "_blank"
	if replace {
		target = "_self"
	}
	return &Launch{BundleID: b.ID, DocumentURL: b.DocumentURL, Target: target}, nil
}

// LivePreview is the framed presentation shown in the overlay panel
type LivePreview struct {
	BundleID    id.BundleID `json:"bundle_id"`
	DocumentURL string      `json:"document_url"`
	FrameHTML   string      `json:"frame_html"`
	Title       string      `json:"title"`
	NewTabURL   string      `json:"new_tab_url"`
}

// frameSandbox runs the preview with the server's origin but never lets it
// navigate the page around it
const frameSandbox = "allow-scripts allow-same-origin allow-forms allow-pointer-lock allow-popups allow-modals allow-downloads"

// Preview builds a bundle for entryPoint and wraps it in an iframe
func (s *Store) Preview(archive Archive, entryPoint, title string) (*LivePreview, error) {
	b, err := s.build(archive, entryPoint, "preview")
	if err != nil {
		return nil, err
	}

	src := html.EscapeString(b.DocumentURL)
	frame := fmt.Sprintf(`<iframe src="%s" title="%s" sandbox="%s" style="width:100%%; height:100%%; border:none;" allow="fullscreen; autoplay; gamepad"></iframe>`,
		src, html.EscapeString(title), frameSandbox)

	return &LivePreview{
		BundleID:    b.ID,
		DocumentURL: b.DocumentURL,
		FrameHTML:   frame,
		Title:       title,
		NewTabURL:   b.DocumentURL,
	}, nil
}

// contentType prefers the extension, then sniffs the bytes
func contentType(name string, data []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return mimetype.Detect(data).String()
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
