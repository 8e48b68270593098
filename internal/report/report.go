// Package report formats sweep results into a comparison table.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Row is one finalized line of the comparison table. A row exists only
// once both variants' trials for its concurrency level have completed.
type Row struct {
	Consumers       int     `json:"consumers"`
	LuaMs           int64   `json:"lua_ms"`
	RedlockMs       int64   `json:"redlock_ms"`
	PercentDiff     float64 `json:"percent_diff"`
	LuaTimedOut     bool    `json:"lua_timed_out,omitempty"`
	RedlockTimedOut bool    `json:"redlock_timed_out,omitempty"`
}

// PercentDiff computes the relative slowdown of the Redlock trial against
// the Lua trial. A zero Lua result (timeout or no signal) yields 0 rather
// than dividing by zero.
func PercentDiff(luaMs, redlockMs int64) float64 {
	if luaMs <= 0 {
		return 0
	}
	return float64(redlockMs-luaMs) / float64(luaMs) * 100
}

// WriteHeader prints the fixed table header.
func WriteHeader(w io.Writer) {
	fmt.Fprintf(w, "%-10s | %-10s | %-15s | %-10s\n",
		"Consumers", "Lua (ms)", "Redlock (ms)", "Diff (%)")
	fmt.Fprintln(w, strings.Repeat("-", 55))
}

// WriteRow prints one formatted row. Timed-out trials print as 0, the
// same degraded value the diff guard keys off.
func WriteRow(w io.Writer, row Row) {
	fmt.Fprintf(w, "%-10d | %-10d | %-15d | %8.2f%%\n",
		row.Consumers, row.LuaMs, row.RedlockMs, row.PercentDiff)
}

// Write renders a complete table for the given rows.
func Write(w io.Writer, rows []Row) {
	WriteHeader(w)
	for _, row := range rows {
		WriteRow(w, row)
	}
}

// WriteJSON writes the rows as indented JSON.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rows)
}
