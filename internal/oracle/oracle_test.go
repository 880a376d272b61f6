package oracle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hazyhaar/deathtrace/internal/lexer"
)

func TestBuilder_AllocFreePair(t *testing.T) {
	reordered := []lexer.Record{
		{Tag: lexer.TagMethodEntry},
		{Tag: lexer.TagAlloc, Obj: 1001, Size: 32, SiteID: 200, Thread: 5001, TypeID: 100},
		{Tag: lexer.TagMethodExit},
		{Tag: lexer.TagDeath, Obj: 1001, Thread: 5001, Clock: 2},
	}

	b := NewBuilder(false)
	var txt, csv bytes.Buffer
	stats, err := b.Build(reordered, &txt, &csv)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Allocs != 1 || stats.Frees != 1 {
		t.Fatalf("got stats %+v, want 1 alloc and 1 free", stats)
	}

	txtLines := strings.Split(strings.TrimSpace(txt.String()), "\n")
	if len(txtLines) != 2 {
		t.Fatalf("got %d text lines, want 2: %q", len(txtLines), txt.String())
	}
	if !strings.Contains(txtLines[0], "alloc(id=1001, size=32, site=200, thread=5001)") {
		t.Errorf("unexpected alloc line: %q", txtLines[0])
	}
	if !strings.Contains(txtLines[1], "free(id=1001, size=32, site=200, thread=5001)") {
		t.Errorf("unexpected free line: %q", txtLines[1])
	}

	csvLines := strings.Split(strings.TrimSpace(csv.String()), "\n")
	if len(csvLines) != 3 { // header + 2 rows
		t.Fatalf("got %d csv lines, want 3: %q", len(csvLines), csv.String())
	}
	if csvLines[0] != "timestamp,event_type,object_id,size,site_id,thread_id,type_id" {
		t.Errorf("unexpected csv header: %q", csvLines[0])
	}
}

func TestBuilder_PreExistingFreeOmittedByDefault(t *testing.T) {
	reordered := []lexer.Record{
		{Tag: lexer.TagDeath, Obj: 7777, Thread: 1, Clock: 1},
	}
	b := NewBuilder(false)
	var txt, csv bytes.Buffer
	stats, err := b.Build(reordered, &txt, &csv)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Frees != 0 || stats.UnresolvedFreeDrop != 1 {
		t.Fatalf("got stats %+v, want the pre-existing free dropped", stats)
	}
	if txt.Len() != 0 {
		t.Errorf("expected no text output, got %q", txt.String())
	}
}

func TestBuilder_PreExistingFreeIncludedWhenConfigured(t *testing.T) {
	reordered := []lexer.Record{
		{Tag: lexer.TagDeath, Obj: 7777, Thread: 1, Clock: 1},
	}
	b := NewBuilder(true)
	var txt, csv bytes.Buffer
	stats, err := b.Build(reordered, &txt, &csv)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DiagnosticFrees != 1 || stats.Frees != 1 {
		t.Fatalf("got stats %+v, want one diagnostic free", stats)
	}
	if !strings.Contains(txt.String(), "free(id=7777, size=0, site=0, thread=0)") {
		t.Errorf("unexpected text output: %q", txt.String())
	}
}

func TestBuilder_EveryFreeHasAnEarlierAlloc(t *testing.T) {
	reordered := []lexer.Record{
		{Tag: lexer.TagAlloc, Obj: 1, Size: 8, Thread: 1},
		{Tag: lexer.TagAlloc, Obj: 2, Size: 8, Thread: 1},
		{Tag: lexer.TagDeath, Obj: 1, Thread: 1, Clock: 5},
		{Tag: lexer.TagDeath, Obj: 2, Thread: 1, Clock: 6},
	}
	b := NewBuilder(false)
	var txt, csv bytes.Buffer
	if _, err := b.Build(reordered, &txt, &csv); err != nil {
		t.Fatalf("Build: %v", err)
	}

	seenAlloc := map[int64]bool{}
	for _, line := range strings.Split(strings.TrimSpace(txt.String()), "\n") {
		if strings.Contains(line, "alloc(id=1,") {
			seenAlloc[1] = true
		}
		if strings.Contains(line, "alloc(id=2,") {
			seenAlloc[2] = true
		}
		if strings.Contains(line, "free(id=1,") && !seenAlloc[1] {
			t.Fatal("free for object 1 appeared before its alloc")
		}
		if strings.Contains(line, "free(id=2,") && !seenAlloc[2] {
			t.Fatal("free for object 2 appeared before its alloc")
		}
	}
}
