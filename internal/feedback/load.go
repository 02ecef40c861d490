package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrNoRequests is returned when a load finds no feedback requests at all.
var ErrNoRequests = errors.New("no feedback requests found")

// maxParallelReads bounds concurrent file reads during a directory load.
const maxParallelReads = 8

// envelope is the wrapped export shape: {"requests": [...]}.
type envelope struct {
	Requests []Request `json:"requests" yaml:"requests"`
}

// Loader reads feedback request exports from disk.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a Loader. A nil logger discards log output.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadPaths loads every path, which may be a file or a directory of export
// files. Results keep path order, then file name order within a directory.
// Returns ErrNoRequests when nothing could be loaded.
func (l *Loader) LoadPaths(ctx context.Context, paths ...string) ([]Request, error) {
	var all []Request
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Debug("data path does not exist", zap.String("path", p))
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		var reqs []Request
		if info.IsDir() {
			reqs, err = l.LoadDir(ctx, p)
		} else {
			reqs, err = ParseFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		all = append(all, reqs...)
	}

	if len(all) == 0 {
		return nil, ErrNoRequests
	}
	return all, nil
}

// LoadDir reads all .json, .yaml and .yml files in dir concurrently. Files
// that fail to parse are skipped and logged. A missing directory yields no
// requests and no error.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]Request, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !IsExportFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	results := make([][]Request, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reqs, err := ParseFile(path)
			if err != nil {
				l.logger.Warn("skipping unreadable feedback file",
					zap.String("path", path), zap.Error(err))
				return nil
			}
			results[i] = reqs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Request
	for _, reqs := range results {
		out = append(out, reqs...)
	}
	l.logger.Debug("loaded feedback directory",
		zap.String("dir", dir), zap.Int("files", len(files)), zap.Int("requests", len(out)))
	return out, nil
}

// ParseFile reads a single export file. JSON and YAML files may hold one
// request, a list of requests, or an object with a "requests" list.
func ParseFile(path string) ([]Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

// IsExportFile reports whether the loader reads files named like name.
func IsExportFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeJSON(data []byte) ([]Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var reqs []Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if env.Requests != nil {
		return env.Requests, nil
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []Request{req}, nil
}

func decodeYAML(data []byte) ([]Request, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var reqs []Request
		if err := doc.Decode(&reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	case yaml.MappingNode:
		var env envelope
		if err := doc.Decode(&env); err != nil {
			return nil, err
		}
		if env.Requests != nil {
			return env.Requests, nil
		}
		var req Request
		if err := doc.Decode(&req); err != nil {
			return nil, err
		}
		return []Request{req}, nil
	default:
		return nil, fmt.Errorf("unexpected YAML document kind %d", doc.Kind)
	}
}

// FindRequest returns the request with the given ID, or nil.
func FindRequest(requests []Request, id string) *Request {
	for i := range requests {
		if requests[i].ID == id {
			return &requests[i]
		}
	}
	return nil
}
