package debug

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func initForTest(t *testing.T, lvl int, json bool) (string, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "system_log.txt")
	var out bytes.Buffer
	Init(Options{Level: lvl, File: path, MaxSizeMB: 1, JSON: json})
	SetOutput(&out)
	t.Cleanup(func() {
		_ = Close()
		Init(Options{})
		SetOutput(os.Stdout)
	})
	return path, &out
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestInfo_WritesTextLineToFile(t *testing.T) {
	path, _ := initForTest(t, LevelInfo, false)

	Info("Image captured and saved as: %s", "images/image_20210101_010101.jpg")

	got := readLog(t, path)
	re := regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3} - INFO - Image captured and saved as: images/image_20210101_010101.jpg\n$`)
	if !re.MatchString(got) {
		t.Errorf("unexpected log line: %q", got)
	}
}

func TestError_LevelName(t *testing.T) {
	path, _ := initForTest(t, LevelInfo, false)

	Error(errors.New("Failed to capture image from webcam"))

	got := readLog(t, path)
	if !strings.Contains(got, " - ERROR - Failed to capture image from webcam") {
		t.Errorf("log = %q", got)
	}
}

func TestJSONFile(t *testing.T) {
	path, _ := initForTest(t, LevelInfo, true)

	Info("hello %d", 42)

	got := readLog(t, path)
	if !strings.Contains(got, `"message":"hello 42"`) || !strings.Contains(got, `"level":"info"`) {
		t.Errorf("expected raw JSON entry, got %q", got)
	}
}

func TestLevelGating(t *testing.T) {
	path, _ := initForTest(t, LevelInfo, false)

	Info("kept")
	Live("dropped live")
	Verbose("dropped verbose")
	Trace("dropped trace")

	got := readLog(t, path)
	if !strings.Contains(got, "kept") {
		t.Errorf("info message missing: %q", got)
	}
	if strings.Contains(got, "dropped") {
		t.Errorf("messages above level leaked: %q", got)
	}
}

func TestTraceLevelEnablesAll(t *testing.T) {
	path, _ := initForTest(t, LevelTrace, false)

	Live("live msg")
	Verbose("verbose msg")
	Trace("trace msg")
	GPIO("ReadPin", 17, true)

	got := readLog(t, path)
	for _, want := range []string{"live msg", "verbose msg", "trace msg", "GPIO ReadPin pin=17 value=true"} {
		if !strings.Contains(got, want) {
			t.Errorf("log missing %q: %q", want, got)
		}
	}
	if !strings.Contains(got, " - DEBUG - verbose msg") {
		t.Errorf("verbose should be logged as DEBUG: %q", got)
	}
}

func TestLevelOff_NoOutput(t *testing.T) {
	_, out := initForTest(t, LevelOff, false)

	Info("silent")
	Error(errors.New("silent error"))

	if out.Len() != 0 {
		t.Errorf("expected no console output, got %q", out.String())
	}
}

func TestSetOutput_ConsoleReceivesLines(t *testing.T) {
	_, out := initForTest(t, LevelInfo, false)

	Info("to console")

	if !strings.Contains(out.String(), "to console") {
		t.Errorf("console = %q", out.String())
	}
}

func TestLevel(t *testing.T) {
	initForTest(t, LevelLive, false)

	if Level() != LevelLive {
		t.Errorf("Level = %d, want %d", Level(), LevelLive)
	}
}

func TestSummary_FramedTitle(t *testing.T) {
	path, _ := initForTest(t, LevelInfo, false)

	Summary("motion: Motion detected")

	lines := strings.Split(strings.TrimSpace(readLog(t, path)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.HasSuffix(lines[1], " - INFO -   motion: Motion detected") {
		t.Errorf("title line = %q", lines[1])
	}
}
