package linestore

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	apperrors "github.com/agbru/linemax/internal/errors"
)

func linesOf(s *Store) []string {
	out := make([]string, s.Len())
	for i := range out {
		out[i] = string(s.Line(i))
	}
	return out
}

func TestLoad(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		lim   Limits
		want  []string
	}{
		{
			name:  "scenario lines with empty line",
			input: "abc\nZ\n\nhello\n",
			lim:   Limits{MaxLines: 4},
			want:  []string{"abc", "Z", "", "hello"},
		},
		{
			name:  "max lines caps the read",
			input: "one\ntwo\nthree\nfour\nfive\n",
			lim:   Limits{MaxLines: 2},
			want:  []string{"one", "two"},
		},
		{
			name:  "cap larger than file",
			input: "a\nb\n",
			lim:   Limits{MaxLines: 100},
			want:  []string{"a", "b"},
		},
		{
			name:  "final line without newline",
			input: "a\nlast",
			lim:   Limits{MaxLines: 10},
			want:  []string{"a", "last"},
		},
		{
			name:  "empty input",
			input: "",
			lim:   Limits{MaxLines: 10},
			want:  []string{},
		},
		{
			name:  "zero max lines",
			input: "a\nb\n",
			lim:   Limits{MaxLines: 0},
			want:  []string{},
		},
		{
			name:  "carriage return is content",
			input: "ab\r\n",
			lim:   Limits{MaxLines: 1},
			want:  []string{"ab\r"},
		},
		{
			name:  "long line truncated to cap minus guard",
			input: "abcdefgh\nxy\n",
			lim:   Limits{MaxLines: 5, MaxLineLength: 4},
			want:  []string{"abc", "xy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := Load(strings.NewReader(tt.input), tt.lim)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			got := linesOf(s)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %q, want %d %q", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoad_LineLongerThanReadBuffer(t *testing.T) {
	t.Parallel()
	long := bytes.Repeat([]byte{'x'}, readBufferSize*2+17)
	input := append(append(long, '\n'), []byte("tail\n")...)

	s, err := Load(bytes.NewReader(input), Limits{MaxLines: 10})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if got := len(s.Line(0)); got != DefaultMaxLineLength-1 {
		t.Errorf("first line length = %d, want %d", got, DefaultMaxLineLength-1)
	}
	if string(s.Line(1)) != "tail" {
		t.Errorf("second line = %q, want tail", s.Line(1))
	}
}

func TestLoad_ArenaBudgetExceeded(t *testing.T) {
	t.Parallel()
	_, err := Load(strings.NewReader("aaaa\nbbbb\n"), Limits{MaxLines: 10, MaxArenaBytes: 6})

	var allocErr apperrors.AllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
}

func TestLoad_ReadError(t *testing.T) {
	t.Parallel()
	_, err := Load(iotest.ErrReader(errors.New("disk gone")), Limits{MaxLines: 3})

	var ioErr apperrors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestLoad_DoesNotPreallocateMaxLines(t *testing.T) {
	t.Parallel()
	s, err := Load(strings.NewReader("a\nb\n"), Limits{MaxLines: 1_000_000})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cap(s.offs) > 64 {
		t.Errorf("offset table capacity %d grew toward max_lines instead of lines read", cap(s.offs))
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(path, []byte("x\ny\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path, Limits{MaxLines: 5})
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	_, err = LoadFile(filepath.Join(dir, "missing.txt"), Limits{MaxLines: 5})
	var ioErr apperrors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist in chain, got %v", err)
	}
}
