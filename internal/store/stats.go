package store

import (
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TypeStats summarizes the files stored under one table type directory.
type TypeStats struct {
	Type   string
	Files  int
	SizeMB float64
}

// TableInfo describes one table type: its partition count and the columns
// of a sample partition.
type TableInfo struct {
	Type    string
	Files   int
	Columns []string
}

// Tables lists the table type directories present under DataDir.
func (s *ParquetStore) Tables() ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var types []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			types = append(types, e.Name())
		}
	}
	sort.Strings(types)
	return types, nil
}

// Stats counts the Parquet files and their total size per table type.
// Sizes are in megabytes rounded to two decimals.
func (s *ParquetStore) Stats() ([]TypeStats, error) {
	types, err := s.Tables()
	if err != nil {
		return nil, err
	}
	var out []TypeStats
	for _, t := range types {
		files, size, err := walkPartitions(filepath.Join(s.DataDir, t), nil)
		if err != nil {
			return nil, err
		}
		mb := float64(size) / (1024 * 1024)
		out = append(out, TypeStats{
			Type:   t,
			Files:  files,
			SizeMB: math.Round(mb*100) / 100,
		})
	}
	return out, nil
}

// Info returns per-type file counts with the column names of the first
// readable partition.
func (s *ParquetStore) Info() ([]TableInfo, error) {
	types, err := s.Tables()
	if err != nil {
		return nil, err
	}
	var out []TableInfo
	for _, t := range types {
		var sample string
		files, _, err := walkPartitions(filepath.Join(s.DataDir, t), func(path string) {
			if sample == "" {
				sample = path
			}
		})
		if err != nil {
			return nil, err
		}
		info := TableInfo{Type: t, Files: files}
		if sample != "" {
			if cols, err := sampleColumns(sample); err != nil {
				s.log.Warn("cannot read sample partition", "path", sample, "error", err)
			} else {
				info.Columns = cols
			}
		}
		out = append(out, info)
	}
	return out, nil
}

func walkPartitions(root string, visit func(path string)) (files int, size int64, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != partitionExt {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files++
		size += fi.Size()
		if visit != nil {
			visit(path)
		}
		return nil
	})
	return files, size, err
}

func sampleColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return fileColumns(f, st.Size())
}
