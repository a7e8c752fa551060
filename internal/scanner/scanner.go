package scanner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/contextweaver/contextweaver/internal/config"
)

// defaultExcludeDirs are directories never walked regardless of config.
var defaultExcludeDirs = []string{
	".git", "node_modules", "vendor", "dist", "build", ".next",
	"target", "__pycache__", ".venv", "venv", ".idea", ".vscode",
	"coverage", ".cache", ".contextweaver",
}

// sensitiveFilePatterns exclude secrets and credentials even if a user's
// ignore config forgets to.
var sensitiveFilePatterns = []string{
	"*.pem", "*.key", "*.pfx", "*.p12", "id_rsa", "id_ed25519",
	".env", ".env.*", "*.env", "credentials.json", "*.secret",
}

var defaultExcludeFiles = []string{
	"*.min.js", "*.min.css", "*.map", "*.lock", "package-lock.json",
	"yarn.lock", "pnpm-lock.yaml", "go.sum", "*.pyc", "*.pyo",
	"*.class", "*.o", "*.so", "*.dll", "*.exe", "*.bin",
}

// Scanner discovers indexable files under a project root.
type Scanner struct {
	gitignoreCache *lru.Cache[string, *gitignore.GitIgnore]
	cacheMu        sync.RWMutex
}

// New creates a Scanner with a bounded per-directory gitignore cache.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.GitIgnore](256)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// Scan walks opts.RootDir and streams discovered files on the returned
// channel. The channel is closed when the walk completes or ctx is
// canceled.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	absRoot, err := filepath.Abs(opts.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize == 0 {
		maxFileSize = DefaultMaxFileSize
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan ScanResult, workers*4)

	go func() {
		defer close(results)
		s.scan(ctx, absRoot, opts, maxFileSize, results)

		if opts.Submodules != nil && opts.Submodules.Enabled {
			submodules, err := DiscoverSubmodules(absRoot, *opts.Submodules)
			if err != nil {
				select {
				case results <- ScanResult{Error: fmt.Errorf("discover submodules: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
			for _, sub := range submodules {
				select {
				case <-ctx.Done():
					return
				default:
				}
				s.scanSubmodule(ctx, absRoot, sub.Path, opts, maxFileSize, results)
			}
		}
	}()

	return results, nil
}

func (s *Scanner) scan(ctx context.Context, absRoot string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	_ = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			results <- ScanResult{Error: fmt.Errorf("walk %s: %w", path, err)}
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.shouldExcludeDir(relPath, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if !opts.FollowSymlinks && d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if s.shouldExcludeFile(relPath, absRoot, opts) {
			return nil
		}

		if len(opts.IncludePatterns) > 0 && !s.matchesAnyPattern(relPath, opts.IncludePatterns) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			results <- ScanResult{Error: fmt.Errorf("stat %s: %w", path, statErr)}
			return nil
		}
		if info.Size() > maxFileSize {
			return nil
		}
		if info.Size() == 0 {
			return nil
		}

		if s.isBinaryFile(path) {
			return nil
		}

		language := DetectLanguage(relPath)
		results <- ScanResult{File: &FileInfo{
			Path:        filepath.ToSlash(relPath),
			AbsPath:     path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentType: DetectContentType(language),
			Language:    language,
			IsGenerated: s.isGeneratedFile(path),
		}}
		return nil
	})
}

func (s *Scanner) scanSubmodule(ctx context.Context, absRoot, submodulePath string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	subAbs := filepath.Join(absRoot, submodulePath)
	if !IsInitialized(subAbs) {
		return
	}

	subOpts := *opts
	subOpts.Submodules = nil

	_ = filepath.WalkDir(subAbs, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}

		relToSub, relErr := filepath.Rel(subAbs, path)
		if relErr != nil {
			return nil
		}
		relToRoot := filepath.ToSlash(filepath.Join(submodulePath, relToSub))
		if relToSub == "." {
			return nil
		}

		if d.IsDir() {
			if s.shouldExcludeDir(relToSub, &subOpts) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.shouldExcludeFile(relToSub, subAbs, &subOpts) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil || info.Size() > maxFileSize || info.Size() == 0 {
			return nil
		}
		if s.isBinaryFile(path) {
			return nil
		}

		language := DetectLanguage(relToRoot)
		results <- ScanResult{File: &FileInfo{
			Path:        relToRoot,
			AbsPath:     path,
			Size:        info.Size(),
			ModTime:     info.ModTime(),
			ContentType: DetectContentType(language),
			Language:    language,
			IsGenerated: s.isGeneratedFile(path),
			Submodule:   submodulePath,
		}}
		return nil
	})
}

func (s *Scanner) shouldExcludeDir(relPath string, opts *ScanOptions) bool {
	base := filepath.Base(relPath)
	for _, d := range defaultExcludeDirs {
		if base == d {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(relPath)); matched {
			return true
		}
	}
	for _, pattern := range opts.IgnorePatterns {
		if matched, _ := doublestar.Match(pattern, filepath.ToSlash(relPath)); matched {
			return true
		}
	}
	return false
}

func (s *Scanner) shouldExcludeFile(relPath, absRoot string, opts *ScanOptions) bool {
	base := filepath.Base(relPath)
	slashPath := filepath.ToSlash(relPath)

	for _, pattern := range sensitiveFilePatterns {
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	for _, pattern := range defaultExcludeFiles {
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	for _, pattern := range opts.ExcludePatterns {
		if matched, _ := doublestar.Match(pattern, slashPath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	for _, pattern := range opts.IgnorePatterns {
		if matched, _ := doublestar.Match(pattern, slashPath); matched {
			return true
		}
	}

	if opts.RespectGitignore && s.isGitignored(relPath, absRoot) {
		return true
	}

	return false
}

func (s *Scanner) matchesAnyPattern(relPath string, patterns []string) bool {
	slashPath := filepath.ToSlash(relPath)
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, slashPath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// isBinaryFile reports whether a file looks binary by checking its first
// 512 bytes for a NUL byte, the same heuristic used by git and file(1).
func (s *Scanner) isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}

	return bytes.Contains(buf[:n], []byte{0})
}

var generatedFileMarkers = []string{
	"// Code generated", "// DO NOT EDIT", "/* DO NOT EDIT",
	"# Generated by", "<!-- AUTO-GENERATED -->",
	"// Generated by", "/* Generated by",
}

// isGeneratedFile reports whether a file's first 1KB carries a
// code-generation marker comment.
func (s *Scanner) isGeneratedFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}

	content := string(buf[:n])
	for _, marker := range generatedFileMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// isGitignored checks whether relPath is matched by the root .gitignore
// or any nested .gitignore between the root and the file's directory.
func (s *Scanner) isGitignored(relPath, absRoot string) bool {
	if matcher := s.getGitignoreMatcher(absRoot); matcher != nil && matcher.MatchesPath(relPath) {
		return true
	}

	dir := filepath.Dir(relPath)
	if dir == "." {
		return false
	}

	parts := strings.Split(filepath.ToSlash(dir), "/")
	currentDir := absRoot
	currentRel := ""
	for _, part := range parts {
		currentDir = filepath.Join(currentDir, part)
		if currentRel == "" {
			currentRel = part
		} else {
			currentRel = currentRel + "/" + part
		}

		matcher := s.getGitignoreMatcher(currentDir)
		if matcher == nil {
			continue
		}
		nested := strings.TrimPrefix(filepath.ToSlash(relPath), currentRel+"/")
		if matcher.MatchesPath(nested) {
			return true
		}
	}

	return false
}

func (s *Scanner) getGitignoreMatcher(dir string) *gitignore.GitIgnore {
	s.cacheMu.RLock()
	matcher, ok := s.gitignoreCache.Get(dir)
	s.cacheMu.RUnlock()
	if ok {
		return matcher
	}

	path := filepath.Join(dir, ".gitignore")
	parsed, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		parsed = nil
	}

	s.cacheMu.Lock()
	s.gitignoreCache.Add(dir, parsed)
	s.cacheMu.Unlock()

	return parsed
}

// HashFile returns the SHA256 of a file's contents, used to detect
// content changes independent of mtime (some filesystems/CI checkouts
// don't preserve mtimes reliably).
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
