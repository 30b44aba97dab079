// Package backup snapshots files before a patch mutates them, so a bad
// apply can be undone. Snapshots are numbered directories under
// .patchvet-backup/ in the tree root, each with a JSON manifest.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

const backupDirName = ".patchvet-backup"

// Manager creates and restores snapshots for one tree.
type Manager struct {
	mu   sync.Mutex
	root string
}

type manifest struct {
	CreatedAt time.Time      `json:"created_at"`
	Files     []manifestFile `json:"files"`
}

type manifestFile struct {
	Path    string `json:"path"` // tree-relative, forward slashes
	Existed bool   `json:"existed"`
	Mode    uint32 `json:"mode,omitempty"`
}

// NewManager validates the tree root and returns a manager for it.
func NewManager(treeRoot string) (*Manager, error) {
	abs, err := filepath.Abs(treeRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve tree root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("tree root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tree root %s is not a directory", abs)
	}
	return &Manager{root: abs}, nil
}

// Snapshot copies the current state of the given tree-relative paths into a
// new numbered snapshot. Paths that do not exist yet are recorded so Restore
// can remove them. Returns the snapshot number.
func (m *Manager) Snapshot(rels []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, err := m.nextSeq()
	if err != nil {
		return 0, err
	}
	dir := m.seqDir(seq)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create snapshot dir: %w", err)
	}

	man := manifest{CreatedAt: time.Now()}
	seen := make(map[string]bool)
	for _, rel := range rels {
		rel = filepath.ToSlash(rel)
		if rel == "" || seen[rel] {
			continue
		}
		seen[rel] = true

		src := filepath.Join(m.root, filepath.FromSlash(rel))
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			man.Files = append(man.Files, manifestFile{Path: rel})
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", rel, err)
		}
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
			return 0, fmt.Errorf("snapshot %s: %w", rel, err)
		}
		man.Files = append(man.Files, manifestFile{Path: rel, Existed: true, Mode: uint32(info.Mode().Perm())})
	}

	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0644); err != nil {
		return 0, fmt.Errorf("write manifest: %w", err)
	}
	return seq, nil
}

// Latest returns the highest snapshot number, or 0 when none exist.
func (m *Manager) Latest() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seqs, err := m.listSeqs()
	if err != nil || len(seqs) == 0 {
		return 0, err
	}
	return seqs[len(seqs)-1], nil
}

// Restore puts every file of the snapshot back: files that existed are
// copied over the current versions, files that did not are removed. The
// snapshot itself is kept.
func (m *Manager) Restore(seq int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.seqDir(seq)
	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return fmt.Errorf("snapshot %d: %w", seq, err)
	}
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return fmt.Errorf("snapshot %d manifest: %w", seq, err)
	}

	for _, f := range man.Files {
		target := filepath.Join(m.root, filepath.FromSlash(f.Path))
		if !f.Existed {
			if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("restore %s: %w", f.Path, err)
			}
			continue
		}
		mode := os.FileMode(f.Mode)
		if mode == 0 {
			mode = 0644
		}
		src := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := copyFile(src, target, mode); err != nil {
			return fmt.Errorf("restore %s: %w", f.Path, err)
		}
	}
	return nil
}

func (m *Manager) seqDir(seq int) string {
	return filepath.Join(m.root, backupDirName, strconv.Itoa(seq))
}

func (m *Manager) nextSeq() (int, error) {
	seqs, err := m.listSeqs()
	if err != nil {
		return 0, err
	}
	if len(seqs) == 0 {
		return 1, nil
	}
	return seqs[len(seqs)-1] + 1, nil
}

func (m *Manager) listSeqs() ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, backupDirName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var seqs []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n > 0 {
			seqs = append(seqs, n)
		}
	}
	sort.Ints(seqs)
	return seqs, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
