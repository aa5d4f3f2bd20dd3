package inspect

import (
	"context"
	"time"

	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/remote"
	"github.com/browserpike/backend/internal/shared/faults"
	"go.uber.org/zap"
)

const noteUnavailable = "Could not load linked text file."

// Source fetches archive and note bytes from the repository
type Source interface {
	Archive(ctx context.Context, url string) (*remote.Object, error)
	Fetch(ctx context.Context, url string, kind remote.Kind) (*remote.Object, error)
	Resolve(path string) string
}

// Recorder receives inspection outcomes
type Recorder interface {
	RecordInspection(outcome string, size int64)
}

// Surface is what the preview area shows. External siblings take precedence
// over anything inside the archive.
type Surface struct {
	Image     *Asset `json:"image,omitempty"`
	Note      *Note  `json:"note,omitempty"`
	NoteError string `json:"note_error,omitempty"`
}

// Result is one completed inspection
type Result struct {
	Path           string         `json:"path"`
	FileName       string         `json:"file_name"`
	Title          string         `json:"title"`
	Size           int64          `json:"size"`
	Uploaded       *time.Time     `json:"uploaded,omitempty"`
	Classification Classification `json:"classification"`
	Siblings       Siblings       `json:"siblings"`
	Surface        Surface        `json:"surface"`

	// Archive stays in memory for sandbox builds
	Archive *Archive `json:"-"`
}

// Inspector fetches, decodes and classifies archives
type Inspector struct {
	source   Source
	logger   *zap.Logger
	recorder Recorder
}

// New creates an inspector. recorder may be nil.
func New(source Source, logger *zap.Logger, recorder Recorder) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inspector{source: source, logger: logger, recorder: recorder}
}

// Inspect fetches the archive at path and classifies it against root. Every
// call re-fetches and re-decodes; nothing is cached between selections.
func (i *Inspector) Inspect(ctx context.Context, path string, root *tree.Node) (*Result, error) {
	start := time.Now()

	obj, err := i.source.Archive(ctx, i.source.Resolve(path))
	if err != nil {
		err = faults.Reclassify(err, faults.KindArchiveFetch, "inspect.fetch", path)
		i.record(faults.KindOf(err).String(), 0)
		return nil, err
	}

	archive, err := Decode(path, obj.Body)
	if err != nil {
		i.record(faults.KindArchiveDecode.String(), obj.Size())
		return nil, err
	}
	archive.LastModified = obj.LastModified

	rawBase := ArchiveBase(path)
	base := decodeName(rawBase)

	res := &Result{
		Path:           path,
		FileName:       decodeName(tree.Base(path)),
		Title:          tree.FormatName(rawBase),
		Size:           archive.Size,
		Classification: Classify(archive.Entries(), base),
		Siblings:       FindSiblings(root, path, rawBase, i.source.Resolve),
		Archive:        archive,
	}
	if !obj.LastModified.IsZero() {
		t := obj.LastModified
		res.Uploaded = &t
	}

	res.Surface = i.surface(ctx, res.Siblings)

	i.record("ok", archive.Size)
	i.logger.Info("archive inspected",
		zap.String("path", path),
		zap.Int64("size", archive.Size),
		zap.Int("entries", len(res.Classification.Entries)),
		zap.String("preview", string(res.Classification.Preview.Kind)),
		zap.String("play", res.Classification.Play),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// surface loads the external image reference and note. A note that cannot
// be fetched becomes an inline message, not a failed inspection.
func (i *Inspector) surface(ctx context.Context, s Siblings) Surface {
	out := Surface{Image: s.Image}
	if s.Text == nil {
		return out
	}

	obj, err := i.source.Fetch(ctx, s.Text.URL, remote.KindText)
	if err != nil {
		i.logger.Warn("linked text file unavailable", zap.String("path", s.Text.Path), zap.Error(err))
		out.NoteError = noteUnavailable
		return out
	}
	out.Note = ParseNote(DecodeText(obj.Body))
	return out
}

func (i *Inspector) record(outcome string, size int64) {
	if i.recorder != nil {
		i.recorder.RecordInspection(outcome, size)
	}
}
