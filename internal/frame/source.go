package frame

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/obstacle-mcp/internal/imaging"
)

// Source supplies the frame to analyse at tick time. A false return means
// "not ready yet" (camera not producing) and is not an error.
type Source interface {
	CurrentFrame() (*Frame, bool)
}

// StillSource holds the latest frame pushed by the host application.
// Safe for concurrent use.
type StillSource struct {
	latest   atomic.Pointer[Frame]
	sequence atomic.Uint64
}

// NewStillSource returns an empty source; CurrentFrame reports not-ready
// until the first Set.
func NewStillSource() *StillSource {
	return &StillSource{}
}

// Set publishes f as the current frame, stamping its sequence number and
// capture time. f must not be modified afterwards.
func (s *StillSource) Set(f *Frame) {
	if f == nil {
		s.latest.Store(nil)
		return
	}
	f.Sequence = s.sequence.Add(1)
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	s.latest.Store(f)
}

// SetImage converts img and publishes it.
func (s *StillSource) SetImage(img image.Image) {
	s.Set(FromImage(img))
}

// Clear drops the current frame.
func (s *StillSource) Clear() { s.latest.Store(nil) }

// CurrentFrame returns the most recently published frame.
func (s *StillSource) CurrentFrame() (*Frame, bool) {
	f := s.latest.Load()
	return f, f != nil
}

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// DirSource replays the image files of a directory in name order, one per
// call, wrapping around at the end. The directory is re-listed on every call
// so a capture process can keep dropping files into it.
//
// Decoded frames are cached for files still present in the directory only;
// entries for files that disappear from a listing are evicted.
type DirSource struct {
	dir      string
	cache    *imaging.ImageCache
	maxWidth int
	log      logrus.FieldLogger

	mu       sync.Mutex
	next     int
	sequence uint64
}

// NewDirSource checks that dir is a readable directory.
// maxWidth bounds the frame width (0 disables downscaling).
func NewDirSource(dir string, maxWidth int, log logrus.FieldLogger) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("frame dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("frame dir: %s is not a directory", dir)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DirSource{
		dir:      dir,
		cache:    imaging.NewImageCache(),
		maxWidth: maxWidth,
		log:      log.WithField("frame_dir", dir),
	}, nil
}

// CurrentFrame decodes the next file. An empty directory or an unreadable
// file yields not-ready for this call.
func (s *DirSource) CurrentFrame() (*Frame, bool) {
	files, err := s.list()
	if err != nil {
		s.log.WithError(err).Warn("failed to list frame directory")
		return nil, false
	}
	if n := s.cache.Retain(files); n > 0 {
		s.log.WithField("evicted", n).Debug("dropped cached frames no longer on disk")
	}
	if len(files) == 0 {
		return nil, false
	}

	s.mu.Lock()
	if s.next >= len(files) {
		s.next = 0
	}
	path := files[s.next]
	s.next++
	s.sequence++
	seq := s.sequence
	s.mu.Unlock()

	img, err := s.cache.Load(path)
	if err != nil {
		s.log.WithError(err).WithField("file", filepath.Base(path)).Warn("skipping unreadable frame")
		return nil, false
	}

	f := FromImage(imaging.FitWidth(img, s.maxWidth))
	f.CapturedAt = time.Now()
	f.Sequence = seq
	return f, true
}

func (s *DirSource) list() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	return files, nil
}
