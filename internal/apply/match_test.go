package apply

import "testing"

func TestFindHunk(t *testing.T) {
	file := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	tests := []struct {
		name       string
		body       []string
		want       int
		radius     int
		maxFuzz    int
		wantPos    int
		wantOffset int
		wantFuzz   int
		wantOK     bool
	}{
		{"exact at declared", []string{"beta", "gamma"}, 1, 10, 2, 1, 0, 0, true},
		{"offset forward", []string{"delta", "epsilon"}, 1, 10, 2, 3, 2, 0, true},
		{"offset backward", []string{"alpha", "beta"}, 3, 10, 2, 0, -3, 0, true},
		{"outside radius", []string{"epsilon"}, 0, 2, 2, 0, 0, 0, false},
		{"not present", []string{"zeta"}, 0, 10, 2, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, offset, fuzz, ok := findHunk(file, tt.body, tt.want, tt.radius, tt.maxFuzz)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if pos != tt.wantPos || offset != tt.wantOffset || fuzz != tt.wantFuzz {
				t.Errorf("pos/offset/fuzz = %d/%d/%d, want %d/%d/%d",
					pos, offset, fuzz, tt.wantPos, tt.wantOffset, tt.wantFuzz)
			}
		})
	}
}

func TestFindHunk_FuzzLevels(t *testing.T) {
	file := []string{"  indented  ", "plain"}

	// Trailing whitespace differs: needs level 1.
	_, _, fuzz, ok := findHunk(file, []string{"  indented"}, 0, 5, 2)
	if !ok || fuzz != fuzzRStrip {
		t.Errorf("trailing-ws match: ok=%v fuzz=%d, want ok at level %d", ok, fuzz, fuzzRStrip)
	}

	// Leading whitespace differs too: needs level 2.
	_, _, fuzz, ok = findHunk(file, []string{"indented"}, 0, 5, 2)
	if !ok || fuzz != fuzzStrip {
		t.Errorf("full-strip match: ok=%v fuzz=%d, want ok at level %d", ok, fuzz, fuzzStrip)
	}

	// With exact-only matching neither succeeds.
	if _, _, _, ok = findHunk(file, []string{"indented"}, 0, 5, fuzzExact); ok {
		t.Errorf("exact-only match succeeded, want failure")
	}
}

func TestFindHunk_CRTolerated(t *testing.T) {
	file := []string{"one\r", "two\r"}
	pos, _, fuzz, ok := findHunk(file, []string{"one", "two"}, 0, 0, 0)
	if !ok || pos != 0 || fuzz != fuzzExact {
		t.Errorf("CRLF file vs LF body: ok=%v pos=%d fuzz=%d, want exact match at 0", ok, pos, fuzz)
	}
}

func TestFindHunk_PrefersSmallestOffset(t *testing.T) {
	// The body occurs twice; the occurrence nearest the declared position wins.
	file := []string{"x", "dup", "x", "x", "dup", "x"}
	pos, offset, _, ok := findHunk(file, []string{"dup"}, 3, 10, 0)
	if !ok || pos != 4 || offset != 1 {
		t.Errorf("pos/offset = %d/%d, want 4/1 (nearest occurrence)", pos, offset)
	}
}

func TestClosestCandidate(t *testing.T) {
	file := []string{"aaaa", "ctx before", "body drifted", "ctx after", "bbbb"}
	line, ratio := closestCandidate(file, []string{"ctx before", "original body", "ctx after"}, 0, 10)
	if line != 2 {
		t.Errorf("line = %d, want 2", line)
	}
	if ratio < 0.5 {
		t.Errorf("ratio = %.2f, want most lines matching", ratio)
	}

	if line, _ := closestCandidate(nil, []string{"x"}, 0, 10); line != 0 {
		t.Errorf("empty file: line = %d, want 0", line)
	}
}
