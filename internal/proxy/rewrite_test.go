package proxy

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestRewriteURIHost_ReplacesHostOccurrences(t *testing.T) {
	body := `{"nextUri":"http://backend1:8080/v1/statement/queued/x/1","id":"x"}`
	r := rewriteURIHost(strings.NewReader(body), "http://backend1:8080", "https://gw.example.com")

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"nextUri":"https://gw.example.com/v1/statement/queued/x/1","id":"x"}`
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRewriteURIHost_PassthroughWhenHostsEqual(t *testing.T) {
	body := `{"nextUri":"http://same:8080/x"}`
	r := rewriteURIHost(strings.NewReader(body), "http://same:8080", "http://same:8080")
	out, _ := io.ReadAll(r)
	if string(out) != body {
		t.Fatalf("expected passthrough, got %q", out)
	}
}

func TestRewriteURIHost_PreservesUnrelatedFieldsByteForByte(t *testing.T) {
	body := `{"columns":[{"name":"a","type":"bigint"}],"data":[[1],[2]],"stats":{"state":"FINISHED"}}`
	r := rewriteURIHost(strings.NewReader(body), "http://backend1:8080", "https://gw.example.com")
	out, _ := io.ReadAll(r)
	if string(out) != body {
		t.Fatalf("unrelated fields should pass through unchanged, got %q", out)
	}
}

func TestStreamReplacer_HandlesMatchSpanningReadBoundaries(t *testing.T) {
	full := "prefix-http://backend1:8080/tail-suffix"
	old := "http://backend1:8080"
	new := "https://gw"

	// Feed the reader in tiny chunks so a match straddles multiple reads.
	chunks := make([]io.Reader, 0, len(full))
	for i := 0; i < len(full); i++ {
		chunks = append(chunks, strings.NewReader(full[i:i+1]))
	}
	src := io.MultiReader(chunks...)

	sr := newStreamReplacer(src, old, new)
	out, err := io.ReadAll(sr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := strings.ReplaceAll(full, old, new)
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestStreamReplacer_SmallDestinationBuffer(t *testing.T) {
	full := "aaaaOLDbbbbOLDcccc"
	sr := newStreamReplacer(bytes.NewReader([]byte(full)), "OLD", "NEWVALUE")

	var out bytes.Buffer
	buf := make([]byte, 3) // deliberately tiny to exercise the leftover path
	for {
		n, err := sr.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	want := strings.ReplaceAll(full, "OLD", "NEWVALUE")
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}
