package gate

import (
	"context"
	"strings"

	"github.com/browserpike/backend/internal/domain/tree"
	"github.com/browserpike/backend/internal/shared/faults"
	"go.uber.org/zap"
)

// Source reads small text files from the repository
type Source interface {
	Text(ctx context.Context, url string) (string, error)
	Resolve(path string) string
}

// Recorder receives unlock outcomes
type Recorder interface {
	RecordUnlock(outcome string)
}

// Gate checks folder passwords against the _password.txt stored in the
// folder. The secret travels in plaintext and is compared as-is; this keeps
// casual visitors out and nothing more.
type Gate struct {
	source   Source
	logger   *zap.Logger
	recorder Recorder
}

// New creates a gate. recorder may be nil.
func New(source Source, logger *zap.Logger, recorder Recorder) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{source: source, logger: logger, recorder: recorder}
}

// Unlock grants folder to state when attempt matches the folder's password.
// A folder already in state is granted without fetching anything.
func (g *Gate) Unlock(ctx context.Context, state *AccessState, folder, attempt string) (bool, error) {
	folder = normalize(folder)
	if state.Unlocked(folder) {
		g.record("already_unlocked")
		return true, nil
	}

	url := g.source.Resolve(folder + "/" + tree.PasswordFile)
	secret, err := g.source.Text(ctx, url)
	if err != nil {
		g.record("unavailable")
		g.logger.Warn("password file unavailable", zap.String("folder", folder), zap.Error(err))
		return false, faults.New(faults.KindPasswordFileUnavailable, "gate.unlock", folder, err)
	}

	if attempt != strings.TrimSpace(secret) {
		g.record("denied")
		return false, nil
	}

	state.add(folder)
	g.record("granted")
	g.logger.Info("folder unlocked", zap.String("folder", folder))
	return true, nil
}

func (g *Gate) record(outcome string) {
	if g.recorder != nil {
		g.recorder.RecordUnlock(outcome)
	}
}

// LockedAncestor returns the nearest folder above path that holds a
// password file and is not yet unlocked in state. A protected folder that is
// itself the target also counts.
func LockedAncestor(root *tree.Node, state *AccessState, path string) (string, bool) {
	parts := tree.Segments(path)
	node := root
	locked := ""

	for i, part := range parts {
		node = node.Children[part]
		if node == nil {
			break
		}
		if !node.Has(tree.PasswordFile) {
			continue
		}
		folder := strings.Join(parts[:i+1], "/")
		if !state.Unlocked(folder) {
			locked = folder
		}
	}

	return locked, locked != ""
}

func normalize(folder string) string {
	return strings.Trim(folder, "/")
}
