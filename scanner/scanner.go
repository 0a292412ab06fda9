// Package scanner finds query files below a set of paths.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultExtensions are the suffixes treated as query files in directories.
var DefaultExtensions = []string{".tgrep", ".tgrep2", ".q"}

type FileInfo struct {
	Path string
	Size int64
}

type Scanner struct {
	rootDir    string
	extensions []string
}

func New(rootDir string, extensions ...string) *Scanner {
	return &Scanner{
		rootDir:    rootDir,
		extensions: extensions,
	}
}

// Scan walks the root directory and returns matching files sorted by path.
// A root that is a regular file is returned as is, whatever its extension.
func (s *Scanner) Scan() ([]FileInfo, error) {
	info, err := os.Stat(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", s.rootDir, err)
	}
	if !info.IsDir() {
		return []FileInfo{{Path: s.rootDir, Size: info.Size()}}, nil
	}

	var files []FileInfo
	err = filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !s.isTargetFile(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Path: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ScanAll scans several roots and concatenates the results in root order.
func ScanAll(roots []string, extensions ...string) ([]FileInfo, error) {
	var all []FileInfo
	for _, root := range roots {
		files, err := New(root, extensions...).Scan()
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	return all, nil
}

func (s *Scanner) isTargetFile(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, targetExt := range s.extensions {
		if ext == targetExt {
			return true
		}
	}
	return false
}
