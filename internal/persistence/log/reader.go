package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"gaia.world/internal/sim/world"
)

// ListFiles returns <prefix>-*.jsonl.zst files in dir, oldest hour first.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	// Hour stamps sort lexically.
	sort.Strings(out)
	return out, nil
}

// ReadLines decompresses every file in order and calls fn with each line.
func ReadLines(files []string, fn func(line []byte) error) error {
	for _, p := range files {
		if err := readFile(p, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func readFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadTicks loads every tick entry under <worldDir>/events in journal order.
func ReadTicks(worldDir string) ([]world.TickLogEntry, error) {
	files, err := ListFiles(filepath.Join(worldDir, "events"), "events")
	if err != nil {
		return nil, err
	}
	var out []world.TickLogEntry
	err = ReadLines(files, func(line []byte) error {
		var e world.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
