package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelOf(t *testing.T) {
	for _, tc := range []struct {
		line string
		want Level
	}{
		{"[info] Found 3 files\n", LInfo},
		{"[warn] plot a__1: dropped 2 polygons\n", LWarn},
		{"no level here\n", ""},
		{"[unterminated\n", ""},
	} {
		if got := levelOf([]byte(tc.line)); got != tc.want {
			t.Errorf("levelOf(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestMinLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf, true)
	defer SetMinLevel(LProgress)

	SetMinLevel(LInfo)
	Printf("[progress] Processing %d of %d", 1, 2)
	Printf("[info] Finished %s", "a.laz")
	Println("[error] engine failed")

	out := buf.String()
	if strings.Contains(out, "Processing") {
		t.Errorf("progress record not filtered: %q", out)
	}
	if !strings.Contains(out, "[info] Finished a.laz\n") {
		t.Errorf("info record missing: %q", out)
	}
	if !strings.Contains(out, "[error] engine failed\n") {
		t.Errorf("error record missing: %q", out)
	}

	buf.Reset()
	SetMinLevel(LProgress)
	Printf("[progress] Processing %d of %d", 2, 2)
	if buf.String() != "[progress] Processing 2 of 2\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestTimePrefix(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf, false)
	defer SetOutput(buf, true)

	Println("[info] hello")
	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.HasSuffix(out, "] 0:00:00 [info] hello\n") {
		t.Errorf("unexpected prefix: %q", out)
	}
}

func TestStep(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf, true)

	done := Step("Merging tiles")
	done()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatal(lines)
	}
	if lines[0] != "[step] Starting: Merging tiles" {
		t.Error(lines[0])
	}
	if !strings.HasPrefix(lines[1], "[step] Finished: Merging tiles in ") {
		t.Error(lines[1])
	}
}
