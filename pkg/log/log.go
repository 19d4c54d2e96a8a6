// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//   - verbosity levels
//   - global verbosity setting that can be used by multiple packages
//   - ability to cache recent output in memory
package log

import (
	"flag"
	"fmt"
	"io"
	golog "log"
	"strings"
	"sync"
	"time"
)

var (
	flagV       = flag.Int("vv", 0, "verbosity")
	mu          sync.Mutex
	cache       *ring
	prependTime = true // for testing
)

// ring keeps the most recent lines, but no more than maxMem bytes in total.
type ring struct {
	lines  []string
	pos    int
	mem    int
	maxMem int
}

func (r *ring) add(line string) {
	r.mem -= len(r.lines[r.pos])
	r.lines[r.pos] = line
	r.mem += len(line)
	r.pos = (r.pos + 1) % len(r.lines)
	// The line just added is always kept, even if it alone exceeds maxMem.
	for i := 0; i < len(r.lines)-1 && r.mem > r.maxMem; i++ {
		old := (r.pos + i) % len(r.lines)
		r.mem -= len(r.lines[old])
		r.lines[old] = ""
	}
	if r.mem < 0 {
		panic("log cache size underflow")
	}
}

func (r *ring) output() string {
	buf := new(strings.Builder)
	for i := range r.lines {
		line := r.lines[(r.pos+i)%len(r.lines)]
		if line == "" {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// EnableLogCaching enables in memory caching of log output.
// Caches up to maxLines, but no more than maxMem bytes.
// Cached output can later be queried with CachedLogOutput.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cache != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	cache = &ring{
		lines:  make([]string, maxLines),
		maxMem: maxMem,
	}
}

// CachedLogOutput retrieves cached log output.
func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	if cache == nil {
		return ""
	}
	return cache.output()
}

// V reports whether messages of verbosity v are printed.
func V(v int) bool {
	return v <= *flagV
}

// SetVerbosity overrides the -vv flag value.
func SetVerbosity(v int) {
	*flagV = v
}

// SetOutput redirects printed messages, cached output is not affected.
func SetOutput(w io.Writer) {
	golog.SetOutput(w)
}

// Logf prints the message if v is within the verbosity level.
// Messages of level 0 and 1 are also cached regardless of verbosity,
// so that the context of a failure can be shown later.
func Logf(v int, msg string, args ...interface{}) {
	mu.Lock()
	doLog := V(v)
	if cache != nil && v <= 1 {
		timeStr := ""
		if prependTime {
			timeStr = time.Now().Format("2006/01/02 15:04:05 ")
		}
		cache.add(fmt.Sprintf(timeStr+msg, args...))
	}
	mu.Unlock()

	if doLog {
		golog.Printf(msg, args...)
	}
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}
