package nvim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neovim/go-client/nvim"

	"github.com/sokinpui/mdalign/model"
)

// ErrNoInstance reports that no running Neovim could be found.
var ErrNoInstance = errors.New("no running Neovim instance: set NVIM_LISTEN_ADDRESS or run from a Neovim terminal")

// Manager handles the connection and interaction with a Neovim instance.
type Manager struct {
	nvim *nvim.Nvim
}

// Address returns the socket of the Neovim instance to talk to.
func Address() string {
	if addr := os.Getenv("NVIM_LISTEN_ADDRESS"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM")
}

// New connects to the running Neovim instance at addr.
func New(addr string) (*Manager, error) {
	if addr == "" {
		return nil, ErrNoInstance
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// processSequentially is a generic helper function to run a set of jobs sequentially.
func processSequentially[T any](
	items []T,
	processFn func(item T) (path string, success bool),
	progressCb func(int),
) (succeeded, failed []string) {
	for i, item := range items {
		path, success := processFn(item)
		if success {
			succeeded = append(succeeded, path)
		} else {
			failed = append(failed, path)
		}
		if progressCb != nil {
			progressCb(i + 1)
		}
	}
	return succeeded, failed
}

// ApplyChanges loads each file into a buffer and replaces its lines with
// the rewritten content. Buffers are left modified and unsaved.
func (m *Manager) ApplyChanges(changes []model.FileChange, progressCb func(int)) (updated, failed []string) {
	processFn := func(change model.FileChange) (string, bool) {
		return change.Path, m.updateBuffer(change.Path, change.Content) == nil
	}
	return processSequentially(changes, processFn, progressCb)
}

func (m *Manager) updateBuffer(filePath, content string) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	b := m.nvim.NewBatch()
	b.Command(fmt.Sprintf("edit %s", escapePath(absPath)))
	b.SetBufferLines(0, 0, -1, true, bufferLines(content))
	return b.Execute()
}

// bufferLines splits content into buffer lines. A final newline is
// implied by Neovim and does not add an empty line.
func bufferLines(content string) [][]byte {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	out := make([][]byte, len(lines))
	for i, s := range lines {
		out[i] = []byte(s)
	}
	return out
}

// escapePath escapes characters that are special in an Ex file argument.
func escapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch r {
		case ' ', '\\', '%', '#', '|', '"':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
