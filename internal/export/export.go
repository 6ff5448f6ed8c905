// Package export writes preprocessed digits to disk as 8-bit PNGs and lists
// what has been written.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Brownie44l1/mnist-api/internal/digit"
)

const (
	timeLayout = "20060102_150405"

	// maxSameSecond bounds how many digits with one label can be saved
	// within a single second.
	maxSameSecond = 1000
)

// Saved describes one exported image.
type Saved struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Label int    `json:"label"`
}

// Denormalize maps a tensor back to an 8-bit grayscale image, truncating
// value*255 toward zero.
func Denormalize(t *digit.Tensor) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, digit.Size, digit.Size))
	for i, v := range t {
		switch {
		case v <= 0 || math.IsNaN(float64(v)):
			img.Pix[i] = 0
		case v >= 1:
			img.Pix[i] = 255
		default:
			img.Pix[i] = uint8(v * 255)
		}
	}
	return img
}

// FileName returns <YYYYMMDD_HHMMSS>_label<digit>.png for the given moment.
func FileName(now time.Time, label int) string {
	return fmt.Sprintf("%s_label%d.png", now.Format(timeLayout), label)
}

// ParseLabel extracts the label from a name produced by FileName, with or
// without the _<n> suffix Save adds on collision.
func ParseLabel(name string) (int, bool) {
	i := strings.LastIndex(name, "_label")
	if i < 0 || !strings.HasSuffix(name, ".png") {
		return 0, false
	}
	rest := strings.TrimSuffix(name[i+len("_label"):], ".png")
	rest, _, _ = strings.Cut(rest, "_")
	label, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return label, true
}

type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Save encodes t as PNG and writes it under the store directory.
func (s *Store) Save(t *digit.Tensor, label int, now time.Time) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Denormalize(t)); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	name := FileName(now, label)
	for n := 1; ; n++ {
		path := filepath.Join(s.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) && n < maxSameSecond {
			name = fmt.Sprintf("%s_label%d_%d.png", now.Format(timeLayout), label, n)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, f.Close()
	}
}

// Recent returns up to n saved images, newest first. A missing directory
// yields an empty list.
func (s *Store) Recent(n int) ([]Saved, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return []Saved{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read export dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if len(names) > n {
		names = names[:n]
	}

	saved := make([]Saved, 0, len(names))
	for _, name := range names {
		label, ok := ParseLabel(name)
		if !ok {
			label = -1
		}
		saved = append(saved, Saved{Name: name, Path: filepath.Join(s.Dir, name), Label: label})
	}
	return saved, nil
}
