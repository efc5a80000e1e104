// Package scanner walks the input tree and yields candidate source files.
//
// Two layouts are recognized: legacy disc structures (a folder containing a
// VIDEO_TS subdirectory with .VOB content files) and loose container files.
// Each candidate carries a context label derived from its containing folder,
// used later for grouping and naming.
package scanner

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"keepsake/internal/logging"
)

// discDirName is the fixed subdirectory name that marks a legacy disc rip.
const discDirName = "VIDEO_TS"

// Candidate is one playable source file discovered under the input root.
type Candidate struct {
	Path    string
	Context string
}

// Filename returns the candidate's base name.
func (c Candidate) Filename() string {
	return filepath.Base(c.Path)
}

// Scanner discovers source files beneath a root directory.
type Scanner struct {
	root            string
	legacyMinBytes  int64
	generalMinBytes int64
	extensions      map[string]struct{}
	logger          *slog.Logger
}

// New constructs a scanner for root. Files at or below the size thresholds
// are treated as authoring artifacts and skipped.
func New(root string, legacyMinBytes, generalMinBytes int64, extensions []string, logger *slog.Logger) *Scanner {
	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = struct{}{}
	}
	return &Scanner{
		root:            root,
		legacyMinBytes:  legacyMinBytes,
		generalMinBytes: generalMinBytes,
		extensions:      extSet,
		logger:          logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan walks the tree and returns all candidates in path order. Unreadable
// entries are logged and skipped; the walk itself only fails when the root
// is unusable.
func (s *Scanner) Scan() ([]Candidate, error) {
	var candidates []Candidate

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == s.root {
				return walkErr
			}
			s.logger.Warn("skipping unreadable entry", logging.String("path", path), logging.Error(walkErr))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		candidate, ok := s.classify(path, entry)
		if ok {
			candidates = append(candidates, candidate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Path < candidates[j].Path })
	return candidates, nil
}

func (s *Scanner) classify(path string, entry fs.DirEntry) (Candidate, bool) {
	parent := filepath.Dir(path)
	legacy := filepath.Base(parent) == discDirName
	ext := strings.ToLower(filepath.Ext(path))

	var minBytes int64
	switch {
	case legacy && ext == ".vob":
		minBytes = s.legacyMinBytes
	case !legacy:
		if _, ok := s.extensions[ext]; !ok {
			return Candidate{}, false
		}
		minBytes = s.generalMinBytes
	default:
		// Inside VIDEO_TS only .VOB files carry content; IFO/BUP are indexes.
		return Candidate{}, false
	}

	info, err := entry.Info()
	if err != nil {
		s.logger.Warn("skipping unstatable file", logging.String("path", path), logging.Error(err))
		return Candidate{}, false
	}
	if info.Size() <= minBytes {
		return Candidate{}, false
	}

	return Candidate{Path: path, Context: ContextLabel(path)}, true
}

// ContextLabel names the grouping folder for a source file: the folder
// holding the VIDEO_TS directory for legacy disc files, otherwise the
// direct parent.
func ContextLabel(path string) string {
	dir := filepath.Dir(path)
	if filepath.Base(dir) == discDirName {
		dir = filepath.Dir(dir)
	}
	return filepath.Base(dir)
}
