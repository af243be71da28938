package chat

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("alice\r\nhello world\n\nlast"), 16)

	want := []string{"alice", "hello world", "", "last"}
	for _, w := range want {
		got, err := readLine(r, 0)
		if err != nil {
			t.Fatalf("reading %q: %v", w, err)
		}
		if got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
	}
	if _, err := readLine(r, 0); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadLine_LongLineAcrossBuffers(t *testing.T) {
	long := strings.Repeat("y", 100)
	r := bufio.NewReaderSize(strings.NewReader(long+"\nnext\n"), 16)

	got, err := readLine(r, 0)
	if err != nil || got != long {
		t.Fatalf("got %q, %v", got, err)
	}
	if got, _ := readLine(r, 0); got != "next" {
		t.Fatalf("got %q, want next", got)
	}
}

func TestReadLine_TooLong(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(strings.Repeat("z", 100)+"\n"), 16)
	if _, err := readLine(r, 32); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}
