// Package reportarchive rotates and compresses deadlock report files
// once they cross a size threshold, so a flaky test suite that keeps
// tripping the detector doesn't leave an ever-growing NO_DEADLOCKS file
// behind.
package reportarchive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Policy decides whether and how a report file should be archived.
type Policy interface {
	ShouldRotate(path string, size int64) bool
	SelectAlgorithm(size int64) Algorithm
}

// SizePolicy rotates once a report file exceeds MinSize, choosing a
// faster algorithm for smaller files and zstd once a file is large
// enough that ratio matters more than speed.
type SizePolicy struct {
	MinSize    int64
	ZstdAbove  int64
	lz4        LZ4
	snappyAlgo Snappy
}

// NewSizePolicy builds a SizePolicy with the given thresholds in bytes.
func NewSizePolicy(minSize, zstdAbove int64) *SizePolicy {
	return &SizePolicy{MinSize: minSize, ZstdAbove: zstdAbove}
}

func (p *SizePolicy) ShouldRotate(_ string, size int64) bool {
	return size >= p.MinSize
}

func (p *SizePolicy) SelectAlgorithm(size int64) Algorithm {
	if size >= p.ZstdAbove {
		return &ZSTD{}
	}
	if size >= p.MinSize*4 {
		return p.lz4
	}
	return p.snappyAlgo
}

// Engine rotates a single report file: when it crosses the configured
// policy's threshold, the current contents are compressed into a dated
// sibling file and the original is truncated so new reports keep
// appending to a fresh, small file.
type Engine struct {
	policy Policy
}

// NewEngine builds an Engine using policy. A nil policy defaults to
// NewSizePolicy(1<<20, 16<<20) (rotate above 1MiB, prefer zstd above
// 16MiB).
func NewEngine(policy Policy) *Engine {
	if policy == nil {
		policy = NewSizePolicy(1<<20, 16<<20)
	}
	return &Engine{policy: policy}
}

// RotateIfNeeded checks path's size against the engine's policy and, if
// it should rotate, compresses the current contents into
// "<path>.<unix-nano>.<algorithm>" and truncates path. Returns the
// archive path written, or "" if no rotation occurred.
func (e *Engine) RotateIfNeeded(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	if !e.policy.ShouldRotate(path, info.Size()) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	algo := e.policy.SelectAlgorithm(info.Size())
	compressed, err := algo.Compress(data)
	if err != nil {
		return "", fmt.Errorf("reportarchive: compress with %s: %w", algo.Name(), err)
	}

	archivePath := fmt.Sprintf("%s.%d.%s", path, now.UnixNano(), algo.Name())
	if err := os.WriteFile(archivePath, compressed, 0o644); err != nil {
		return "", fmt.Errorf("reportarchive: write archive: %w", err)
	}

	if err := os.Truncate(path, 0); err != nil {
		return "", fmt.Errorf("reportarchive: truncate source: %w", err)
	}

	return archivePath, nil
}

// Restore decompresses an archive file previously written by
// RotateIfNeeded, inferring the algorithm from its extension.
func Restore(archivePath string) ([]byte, error) {
	ext := filepath.Ext(archivePath)
	var algo Algorithm
	switch ext {
	case ".lz4":
		algo = LZ4{}
	case ".snappy":
		algo = Snappy{}
	case ".zstd":
		algo = &ZSTD{}
	default:
		return nil, fmt.Errorf("reportarchive: unrecognized archive extension %q", ext)
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, err
	}
	return algo.Decompress(data)
}
