package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is matched by every NotFoundError
var ErrNotFound = errors.New("dataset file not found")

// NotFoundError names the path a load attempted
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset file not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// Dataset kinds accepted by Loader.Load
const (
	KindReal      = "real"
	KindSynthetic = "synthetic"
)

// Loader resolves dataset kinds to files under DataDir. It never fetches anything remotely.
type Loader struct {
	DataDir       string
	RealFile      string
	SyntheticFile string
	logger        *logrus.Logger
}

func NewLoader(dataDir, realFile, syntheticFile string, logger *logrus.Logger) *Loader {
	return &Loader{
		DataDir:       dataDir,
		RealFile:      realFile,
		SyntheticFile: syntheticFile,
		logger:        logger,
	}
}

// Kind normalizes a dataset identifier: "real" in any case, everything else is synthetic
func Kind(name string) string {
	if strings.EqualFold(name, KindReal) {
		return KindReal
	}
	return KindSynthetic
}

// Path returns the file backing a dataset kind
func (l *Loader) Path(kind string) string {
	if Kind(kind) == KindReal {
		return filepath.Join(l.DataDir, l.RealFile)
	}
	return filepath.Join(l.DataDir, l.SyntheticFile)
}

// Available reports which dataset kinds have a file on disk
func (l *Loader) Available() map[string]bool {
	out := make(map[string]bool, 2)
	for _, kind := range []string{KindReal, KindSynthetic} {
		_, err := os.Stat(l.Path(kind))
		out[kind] = err == nil
	}
	return out
}

// Load reads the dataset for kind
func (l *Loader) Load(kind string) (*RawTable, error) {
	path := l.Path(kind)
	l.logger.Infof("Loading %s dataset from %s", Kind(kind), path)
	return l.LoadFile(path)
}

// LoadFile reads a delimited file from an explicit path
func (l *Loader) LoadFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := ReadCSV(f, path)
	if err != nil {
		return nil, err
	}
	l.logger.Debugf("Read %d rows, %d columns from %s", len(raw.Rows), len(raw.Header), path)
	return raw, nil
}
