package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sokinpui/mdalign/internal/fs"
	"github.com/sokinpui/mdalign/model"
)

const (
	stateDirName  = ".mdalign"
	stateFileName = "state.toml"
	ObjectsDir    = "objects"
)

// ErrChanged reports a file that was modified after the run being
// reverted or redone.
var ErrChanged = errors.New("file changed since the recorded run")

// Operation records one file rewritten by a run. Before and After are
// the SHA-256 of the content, which also name the stored snapshots.
type Operation struct {
	Path   string `toml:"path"`
	Before string `toml:"before"`
	After  string `toml:"after"`
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	Timestamp  int64       `toml:"timestamp"`
	Operations []Operation `toml:"operations"`
}

// State represents the entire state file.
type State struct {
	CurrentIndex int            `toml:"current_index"`
	History      []HistoryEntry `toml:"history"`
}

// Manager handles the lifecycle of the state file.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the git repository
// containing the working directory, or the working directory itself.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return Open(rootDir)
}

// Open creates and loads a state manager keeping its files under rootDir.
func Open(rootDir string) (*Manager, error) {
	stateDir := filepath.Join(rootDir, stateDirName)
	if err := os.MkdirAll(filepath.Join(stateDir, ObjectsDir), 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}
	if _, err := os.Stat(m.statePath); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if _, err := toml.DecodeFile(m.statePath, m.state); err != nil {
		return fmt.Errorf("invalid state file %s: %w", m.statePath, err)
	}
	if m.state.CurrentIndex < -1 || m.state.CurrentIndex >= len(m.state.History) {
		return fmt.Errorf("invalid state file %s: current_index %d out of range", m.statePath, m.state.CurrentIndex)
	}
	return nil
}

func (m *Manager) save() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.state); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(m.statePath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Write records a run that rewrote the given files. Entries after the
// current position are discarded.
func (m *Manager) Write(changes []model.FileChange) error {
	ops := make([]Operation, 0, len(changes))
	for _, c := range changes {
		before, err := m.storeObject(c.Original)
		if err != nil {
			return err
		}
		after, err := m.storeObject(c.Content)
		if err != nil {
			return err
		}
		ops = append(ops, Operation{Path: c.Path, Before: before, After: after})
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Path < ops[j].Path
	})

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	})
	m.state.CurrentIndex++
	return m.save()
}

// GetOperationsToRevert gets the last operations and moves the history
// pointer back.
func (m *Manager) GetOperationsToRevert() ([]Operation, error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil
	}
	ops := m.state.History[m.state.CurrentIndex].Operations
	m.state.CurrentIndex--
	return ops, m.save()
}

// GetOperationsToRedo gets the next operations and moves the history
// pointer forward.
func (m *Manager) GetOperationsToRedo() ([]Operation, error) {
	nextIndex := m.state.CurrentIndex + 1
	if nextIndex >= len(m.state.History) {
		return nil, nil
	}
	m.state.CurrentIndex = nextIndex
	return m.state.History[m.state.CurrentIndex].Operations, m.save()
}

// Revert restores the content a file had before op. The file must still
// hold the content op produced.
func (m *Manager) Revert(op Operation) error {
	return m.restore(op.Path, op.After, op.Before)
}

// Redo applies op again. The file must still hold the content op started
// from.
func (m *Manager) Redo(op Operation) error {
	return m.restore(op.Path, op.Before, op.After)
}

func (m *Manager) restore(path, expected, target string) error {
	current, err := fs.GetFileSHA256(path)
	if err != nil {
		return err
	}
	if current != expected {
		return fmt.Errorf("%s: %w", path, ErrChanged)
	}
	content, err := m.loadObject(target)
	if err != nil {
		return err
	}
	return fs.WriteFile(path, content)
}

func (m *Manager) storeObject(content string) (string, error) {
	hash := fs.HashContent(content)
	path := filepath.Join(m.StateDir, ObjectsDir, hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return hash, nil
}

func (m *Manager) loadObject(hash string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.StateDir, ObjectsDir, hash))
	if err != nil {
		return "", fmt.Errorf("load snapshot %s: %w", hash, err)
	}
	if fs.HashContent(string(data)) != hash {
		return "", fmt.Errorf("snapshot %s is corrupt", hash)
	}
	return string(data), nil
}
