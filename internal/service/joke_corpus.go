package service

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"nestor/internal/domain"
)

const fallbackCorpusPath = "toolkit/data/sitcom.json"

var (
	ErrEmptyCorpus   = errors.New("joke corpus is empty")
	ErrInvalidCorpus = errors.New("invalid joke corpus")
)

// LoadCorpus lee blagues desde .jsonl (un objeto por línea) o .json (lista o {"items": [...]}).
// Si path no existe prueba toolkit/data/sitcom.json. Devuelve la ruta efectivamente usada.
func LoadCorpus(path string, logger *zap.Logger) ([]domain.JokeItem, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "toolkit/data/sitcom.jsonl"
	}
	if _, err := os.Stat(path); err != nil {
		logger.Warn("corpus path not found, trying fallback", zap.String("missing", path), zap.String("fallback", fallbackCorpusPath))
		path = fallbackCorpusPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read corpus: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var items []domain.JokeItem
	if strings.HasSuffix(path, ".jsonl") {
		items, err = parseJSONL(data)
	} else {
		items, err = parseJSON(data)
	}
	if err != nil {
		return nil, path, err
	}
	logger.Info("corpus loaded", zap.String("path", path), zap.Int("count", len(items)))
	return items, path, nil
}

func parseJSONL(data []byte) ([]domain.JokeItem, error) {
	var items []domain.JokeItem
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var item domain.JokeItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCorpus, line, err)
		}
		items = append(items, item)
	}
	return items, sc.Err()
}

func parseJSON(data []byte) ([]domain.JokeItem, error) {
	var items []domain.JokeItem
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Items []domain.JokeItem `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: expected a list of objects", ErrInvalidCorpus)
	}
	return wrapped.Items, nil
}
