package checksum

import (
	"strings"
	"testing"
)

func TestSumReaderMatchesSum(t *testing.T) {
	data := "the quick brown fox"
	got, n, err := SumReader(strings.NewReader(data))
	if err != nil {
		t.Fatalf("SumReader: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("n = %d, want %d", n, len(data))
	}
	if got != Sum([]byte(data)) {
		t.Errorf("digest mismatch: %s vs %s", got, Sum([]byte(data)))
	}
}

func TestValid(t *testing.T) {
	if !Valid(Sum(nil)) {
		t.Error("digest of empty input should be valid")
	}
	for _, s := range []string{"", "abc", strings.Repeat("G", 64), strings.Repeat("A", 64)} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true", s)
		}
	}
}
