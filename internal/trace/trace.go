// Package trace loads recorded sensor readings from JSONL files for
// offline replay.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/AtsuiOcha/overheat-punisher/internal/hud/stub"
	"github.com/AtsuiOcha/overheat-punisher/internal/hudfeed"
)

// maxLineBytes bounds a single trace line; kill feeds are small, so
// anything past this is a corrupt file rather than a real reading.
const maxLineBytes = 1 << 20

// Result holds a decoded trace. Dropped counts lines that were valid
// JSON but failed reading validation, matching what the live poll
// path would have discarded.
type Result struct {
	Readings []stub.Reading
	Dropped  int
}

// Load reads a JSONL trace file. Blank lines are skipped; lines that
// are not valid JSON abort the load with the offending line number,
// since a half-written file should fail loudly rather than replay a
// truncated round.
func Load(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	res := &Result{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var wire hudfeed.WireReading
		if err := json.Unmarshal(line, &wire); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}

		snap, err := wire.Snapshot()
		if err != nil {
			res.Dropped++
			continue
		}
		phase, err := wire.Phase()
		if err != nil {
			res.Dropped++
			continue
		}
		res.Readings = append(res.Readings, stub.Reading{Snapshot: *snap, Phase: phase})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return res, nil
}
