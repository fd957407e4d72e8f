// Package output holds the per-server line logs captured from managed
// process stdout/stderr pipes. The buffer is append-only for the duration
// of a run and is reset when the same id is started again.
package output

import "sync"

// Source tags where a captured line came from.
type Source string

const (
	Stdout Source = "stdout"
	Stderr Source = "stderr"
)

// Line is one captured output line. Seq is the insertion position within
// the current run, starting at 0.
type Line struct {
	Seq    int    `json:"seq"`
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Buffer stores ordered output lines per server id. All methods are safe
// for concurrent use; the mutex is held only for the map operation, never
// while reading pipes.
type Buffer struct {
	mu    sync.Mutex
	lines map[string][]Line
}

func NewBuffer() *Buffer {
	return &Buffer{lines: make(map[string][]Line)}
}

// Reset discards any previous run's lines for id and starts an empty log.
func (b *Buffer) Reset(id string) {
	b.mu.Lock()
	b.lines[id] = make([]Line, 0, 64)
	b.mu.Unlock()
}

// Append adds one line to the log for id. Ids that were never Reset get a
// log implicitly, so late writers (a monitor racing a restart) never panic.
func (b *Buffer) Append(id string, src Source, text string) {
	b.mu.Lock()
	ls := b.lines[id]
	b.lines[id] = append(ls, Line{Seq: len(ls), Text: text, Source: src})
	b.mu.Unlock()
}

// Snapshot returns a copy of all lines captured so far for id, in write
// order. Unknown ids yield an empty slice, not an error.
func (b *Buffer) Snapshot(id string) []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Line(nil), b.lines[id]...)
}

// Since returns a copy of the lines with Seq >= from. The port detector's
// log probe uses it to scan only lines it has not seen yet.
func (b *Buffer) Since(id string, from int) []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.lines[id]
	if from < 0 {
		from = 0
	}
	if from >= len(ls) {
		return nil
	}
	return append([]Line(nil), ls[from:]...)
}

// Len reports the number of lines captured so far for id.
func (b *Buffer) Len(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines[id])
}
