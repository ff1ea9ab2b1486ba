package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nestor/internal/domain"
)

// FileJokeHistoryRepository escribe un archivo JSONL por ejecución:
// <dir>/<YYYY-MM-DD>/<HHMMSS>_<session>.jsonl. Cada Append agrega una línea.
type FileJokeHistoryRepository struct {
	mu   sync.Mutex
	path string
}

func NewFileJokeHistoryRepository(dir, sessionID string, now time.Time) *FileJokeHistoryRepository {
	name := fmt.Sprintf("%s_%s.jsonl", now.Format("150405"), sessionID)
	return &FileJokeHistoryRepository{
		path: filepath.Join(dir, now.Format("2006-01-02"), name),
	}
}

// Path devuelve la ruta del archivo de historial.
func (r *FileJokeHistoryRepository) Path() string {
	return r.path
}

func (r *FileJokeHistoryRepository) Append(_ context.Context, turn domain.JokeTurn) error {
	line, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// ListBySession lee el archivo de esta ejecución y filtra por sesión.
func (r *FileJokeHistoryRepository) ListBySession(_ context.Context, sessionID string) ([]domain.JokeTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.JokeTurn{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	turns := []domain.JokeTurn{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var turn domain.JokeTurn
		if err := json.Unmarshal(sc.Bytes(), &turn); err != nil {
			return nil, fmt.Errorf("decode history line: %w", err)
		}
		if turn.SessionID == sessionID {
			turns = append(turns, turn)
		}
	}
	return turns, sc.Err()
}
