package pdftext

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
)

type fakeRunner struct {
	stdout, stderr string
	err            error
	calls          [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func newTestExtractor(t *testing.T, cfg Config, native string, nativeErr error) (*Extractor, *fakeRunner, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7 stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{}
	e := NewExtractor(cfg, nil).WithRunner(r)
	e.native = func(string, int) (string, int, error) { return native, 3, nativeErr }
	e.pageCount = func(string) (int, error) { return 12, nil }
	return e, r, path
}

func TestExtract_MissingFile(t *testing.T) {
	e := NewExtractor(Config{}, nil)

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))

	var xerr *common.ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err should wrap ErrNotExist: %v", err)
	}
}

func TestExtract_NativeText(t *testing.T) {
	e, r, path := newTestExtractor(t, Config{EnableFallback: true}, "Market size\r\n\r\n\r\n\r\nGrew 8%   ", nil)

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodNative || res.Pages != 12 {
		t.Errorf("method=%s pages=%d", res.Method, res.Pages)
	}
	if res.Text != "Market size\n\nGrew 8%" {
		t.Errorf("text = %q", res.Text)
	}
	if len(r.calls) != 0 {
		t.Errorf("fallback should not run: %v", r.calls)
	}
}

func TestExtract_FallbackToPdftotext(t *testing.T) {
	e, r, path := newTestExtractor(t, Config{EnableFallback: true, MaxPages: 5}, "  \n ", nil)
	r.stdout = "page one\fpage two\f"

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Method != MethodPdftotext {
		t.Errorf("method = %s", res.Method)
	}
	if res.Text != "page one\n\npage two" {
		t.Errorf("text = %q", res.Text)
	}
	want := []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", "-l", "5", path, "-"}
	if diff := cmp.Diff(want, r.calls[0]); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
}

func TestExtract_NoTextWithoutFallback(t *testing.T) {
	e, _, path := newTestExtractor(t, Config{}, "", errors.New("boom"))

	res, err := e.Extract(context.Background(), path)

	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err = %v, want ErrNoText", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("native failure should be recorded as a warning")
	}
}

func TestExtract_FallbackCommandFails(t *testing.T) {
	e, r, path := newTestExtractor(t, Config{EnableFallback: true}, "", nil)
	r.err = errors.New("exit status 1")
	r.stderr = "Syntax Error: Couldn't read xref table"

	_, err := e.Extract(context.Background(), path)

	var xerr *common.ExtractionError
	if !errors.As(err, &xerr) || xerr.Path != path {
		t.Fatalf("err = %v, want ExtractionError for %s", err, path)
	}
}

func TestExtract_InvalidPDFWhenValidating(t *testing.T) {
	e, _, path := newTestExtractor(t, Config{ValidatePDF: true}, "text", nil)
	e.pageCount = func(string) (int, error) { return 0, errors.New("xref corrupted") }

	if _, err := e.Extract(context.Background(), path); err == nil {
		t.Fatal("expected validation error")
	}

	e.cfg.ValidatePDF = false
	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract without validation: %v", err)
	}
	if res.Pages != 3 {
		t.Errorf("pages = %d, want native count", res.Pages)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"trailing spaces", "a  \t\nb ", "a\nb"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"form feed", "p1\fp2", "p1\n\np2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
