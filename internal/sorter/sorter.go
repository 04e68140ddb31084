// Package sorter files scanned receipts into month folders.
package sorter

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/schollz/progressbar/v3"

	"github.com/zombor/spesen/internal/period"
	"github.com/zombor/spesen/internal/receipt"
)

// Target folders for files that do not go into a month folder
const (
	UnsortedDir   = "_Unsortiert"
	DuplicatesDir = "_Duplikate"
)

// Extensions are the file types the sorter picks up
var Extensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".bmp", ".gif"}

// DateSource tells where the date of a file came from
type DateSource string

const (
	SourceFilename DateSource = "filename"
	SourceMetadata DateSource = "metadata"
	SourceMtime    DateSource = "mtime"
)

// Options configures a sort run
type Options struct {
	Recursive bool
	UseMtime  bool
	Style     string
	Move      bool
	// SkipDuplicates keeps only the first file of each duplicate group
	SkipDuplicates bool
	// DuplicatesFolder moves the other files of a group into _Duplikate
	DuplicatesFolder bool
}

// File is a scanned receipt
type File struct {
	Path   string
	Hash   string
	Date   time.Time
	Source DateSource
}

// Dated reports whether a date was found for the file
func (f File) Dated() bool {
	return f.Source != ""
}

// Plan is the outcome of analysing a folder
type Plan struct {
	Files      []File
	Unknown    []File
	Duplicates []File
	// Groups maps hashes found more than once to their paths
	Groups map[string][]string
	Unique int
}

// Folders returns the month folders of the plan with their file counts, sorted by month
func (p *Plan) Folders(style string) []FolderCount {
	counts := make(map[period.Month]int)
	for _, f := range p.Files {
		counts[period.Of(f.Date)]++
	}

	months := make([]period.Month, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	slices.SortFunc(months, func(a, b period.Month) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return int(a.Month) - int(b.Month)
	})

	folders := make([]FolderCount, len(months))
	for i, m := range months {
		folders[i] = FolderCount{Name: period.FolderName(m.Year, m.Month, style), Files: counts[m]}
	}
	return folders
}

// FolderCount is the number of files going into a folder
type FolderCount struct {
	Name  string
	Files int
}

// Result counts the outcome of Apply
type Result struct {
	Done       int
	Duplicates int
	Errors     int
}

// Sorter scans folders and files receipts into month folders
type Sorter struct {
	opts     Options
	progress io.Writer
}

// New returns a Sorter. progress receives the progress bar; nil disables it.
func New(opts Options, progress io.Writer) *Sorter {
	if opts.Style == "" {
		opts.Style = period.StyleGerman
	}
	return &Sorter{opts: opts, progress: progress}
}

// Scan lists the supported files in dir in lexical order
func Scan(dir string, recursive bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && slices.Contains(Extensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// DateOf finds the date of a receipt file: file name first, then EXIF, then
// the modification time when useMtime is set
func DateOf(path string, useMtime bool) (time.Time, DateSource, bool) {
	if t, ok := period.FromFilename(filepath.Base(path)); ok {
		return t, SourceFilename, true
	}
	if t, ok := exifDate(path); ok {
		return t, SourceMetadata, true
	}
	if useMtime {
		if info, err := os.Stat(path); err == nil {
			return info.ModTime(), SourceMtime, true
		}
	}
	return time.Time{}, "", false
}

func exifDate(path string) (time.Time, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".tiff":
	default:
		return time.Time{}, false
	}

	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Plan scans dir, detects duplicates and dates every file
func (s *Sorter) Plan(dir string) (*Plan, error) {
	paths, err := Scan(dir, s.opts.Recursive)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Groups: make(map[string][]string)}
	seen := make(map[string]bool)
	for _, path := range paths {
		hash, err := receipt.HashFile(path)
		if err != nil {
			slog.Warn("Failed to hash file", "path", path, "error", err)
		} else {
			plan.Groups[hash] = append(plan.Groups[hash], path)
		}

		file := File{Path: path, Hash: hash}
		if hash != "" && (s.opts.SkipDuplicates || s.opts.DuplicatesFolder) {
			if seen[hash] {
				plan.Duplicates = append(plan.Duplicates, file)
				continue
			}
			seen[hash] = true
		}

		if t, source, ok := DateOf(path, s.opts.UseMtime); ok {
			file.Date, file.Source = t, source
			plan.Files = append(plan.Files, file)
		} else {
			plan.Unknown = append(plan.Unknown, file)
		}
	}

	plan.Unique = len(plan.Groups)
	for hash, group := range plan.Groups {
		if len(group) < 2 {
			delete(plan.Groups, hash)
		}
	}
	return plan, nil
}

// Apply copies or moves the planned files below outputDir
func (s *Sorter) Apply(plan *Plan, outputDir string) Result {
	var res Result

	total := len(plan.Files) + len(plan.Unknown)
	if s.opts.DuplicatesFolder {
		total += len(plan.Duplicates)
	}
	var bar *progressbar.ProgressBar
	if s.progress != nil {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Sortiere Belege..."),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(s.progress)
			}),
		)
	}
	step := func() {
		if bar != nil {
			bar.Add(1)
		}
	}

	for _, f := range plan.Files {
		m := period.Of(f.Date)
		if err := s.place(f.Path, filepath.Join(outputDir, period.FolderName(m.Year, m.Month, s.opts.Style))); err != nil {
			res.Errors++
		} else {
			res.Done++
		}
		step()
	}

	for _, f := range plan.Unknown {
		if err := s.place(f.Path, filepath.Join(outputDir, UnsortedDir)); err != nil {
			res.Errors++
		} else {
			res.Done++
		}
		step()
	}

	if s.opts.DuplicatesFolder {
		for _, f := range plan.Duplicates {
			if err := s.place(f.Path, filepath.Join(outputDir, DuplicatesDir)); err != nil {
				res.Errors++
			} else {
				res.Duplicates++
			}
			step()
		}
	}

	return res
}

func (s *Sorter) place(path, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("Failed to create folder", "dir", dir, "error", err)
		return err
	}

	target, err := receipt.UniquePath(dir, filepath.Base(path))
	if err != nil {
		slog.Error("Failed to pick target", "path", path, "error", err)
		return err
	}

	if s.opts.Move {
		err = receipt.MoveFile(path, target)
	} else {
		err = receipt.CopyFile(path, target)
	}
	if err != nil {
		slog.Error("Failed to sort file", "path", path, "target", target, "error", err)
		return err
	}

	slog.Debug("Sorted file", "path", path, "target", target)
	return nil
}
