package beancount

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/starling-sync/pkg/pathutil"
)

// Repository defines the interface for Beancount file operations.
type Repository interface {
	// ReadEntries reads the note and balance directives of a ledger and its includes
	ReadEntries(path string) ([]Entry, error)

	// AppendEntries appends entries to a ledger file
	AppendEntries(path string, entries []Entry, comment ...string) error
}

var (
	reInclude = regexp.MustCompile(`^include\s+"([^"]+)"`)
	reNote    = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+note\s+(\S+)\s+"((?:[^"\\]|\\.)*)"`)
	reBalance = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+balance\s+(\S+)\s+(-?[\d.,]+)\s+([A-Z][A-Z0-9'._-]*)`)
)

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
	}
}

// ReadEntries reads note and balance directives from a ledger file,
// following include directives relative to the including file.
// A missing top-level ledger yields no entries.
func (r *FileSystemRepository) ReadEntries(path string) ([]Entry, error) {
	if !r.pathResolver.FileExists(path) {
		return nil, nil
	}

	visited := make(map[string]bool)
	var entries []Entry
	if err := r.readFile(path, visited, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *FileSystemRepository) readFile(path string, visited map[string]bool, entries *[]Entry) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if visited[abs] {
		return nil
	}
	visited[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	var includes []string
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()

		if m := reInclude.FindStringSubmatch(line); m != nil {
			includes = append(includes, m[1])
			continue
		}

		if m := reNote.FindStringSubmatch(line); m != nil {
			date, err := time.Parse(DateLayout, m[1])
			if err != nil {
				return fmt.Errorf("%s:%d: invalid date: %w", abs, lineno, err)
			}
			comment, err := strconv.Unquote(`"` + m[3] + `"`)
			if err != nil {
				comment = m[3]
			}
			*entries = append(*entries, Note{
				Meta:    Metadata{Source: abs, Ordinal: lineno},
				Date:    date,
				Account: m[2],
				Comment: comment,
			})
			continue
		}

		if m := reBalance.FindStringSubmatch(line); m != nil {
			date, err := time.Parse(DateLayout, m[1])
			if err != nil {
				return fmt.Errorf("%s:%d: invalid date: %w", abs, lineno, err)
			}
			number, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", ""))
			if err != nil {
				return fmt.Errorf("%s:%d: invalid amount: %w", abs, lineno, err)
			}
			*entries = append(*entries, Balance{
				Meta:    Metadata{Source: abs, Ordinal: lineno},
				Date:    date,
				Account: m[2],
				Amount:  Amount{Number: number, Currency: m[4]},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ledger %s: %w", abs, err)
	}

	for _, inc := range includes {
		pattern := inc
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(filepath.Dir(abs), pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", inc, err)
		}
		for _, match := range matches {
			if err := r.readFile(match, visited, entries); err != nil {
				return err
			}
		}
	}

	return nil
}

// AppendEntries appends entries to a ledger file.
// It creates the file and its parent directory if they don't exist.
func (r *FileSystemRepository) AppendEntries(path string, entries []Entry, comment ...string) error {
	if len(entries) == 0 {
		return nil
	}

	if err := r.pathResolver.EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	// Prepare content to append
	var content string
	if len(comment) > 0 && comment[0] != "" {
		content += fmt.Sprintf("\n%s\n", comment[0])
	}
	content += "\n"
	for _, e := range entries {
		content += Format(e) + "\n"
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}
