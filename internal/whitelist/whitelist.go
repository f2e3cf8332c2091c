// Package whitelist implements a client access policy backed by a
// line-oriented file of allowed client ids. The file is re-read when it
// changes on disk, so access can be granted or revoked without a restart.
package whitelist

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"git.sr.ht/~jakintosh/attest/pkg/authority"
)

// Whitelist is an authority.ClientAccessPolicy. A client id is allowed when
// it appears on its own line in the backing file; blank lines and '#'
// comments are ignored.
type Whitelist struct {
	path string

	mu        sync.RWMutex
	clientIDs map[string]struct{}
}

var _ authority.ClientAccessPolicy = (*Whitelist)(nil)

// Load reads the whitelist once, without watching for changes.
func Load(path string) (*Whitelist, error) {
	w := &Whitelist{path: path}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Watch reads the whitelist and reloads it whenever the file changes.
func Watch(path string) (*Whitelist, error) {
	w, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := watchFile(path, func() {
		if err := w.reload(); err != nil {
			log.Printf("couldn't reload client whitelist: %v\n", err)
			return
		}
		log.Printf("reloaded client whitelist from %s\n", path)
	}); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Whitelist) IsAllowed(clientID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, allowed := w.clientIDs[clientID]
	return allowed
}

func (w *Whitelist) reload() error {
	file, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("couldn't open whitelist: %v", err)
	}
	defer file.Close()

	clientIDs := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		clientIDs[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("couldn't read whitelist: %v", err)
	}

	w.mu.Lock()
	w.clientIDs = clientIDs
	w.mu.Unlock()
	return nil
}
