package value

import "testing"

func TestSubstrBoundaries(t *testing.T) {
	s := NewString("hello world")

	whole, err := Substr(s, 0, StrLen(s))
	if err != nil || string(Bytes(whole)) != "hello world" {
		t.Errorf("substr(s,0,len(s)) = %q, %v, want the whole string", Bytes(whole), err)
	}

	empty, err := Substr(s, 3, 0)
	if err != nil || string(Bytes(empty)) != "" {
		t.Errorf("substr(s,i,0) = %q, %v, want \"\"", Bytes(empty), err)
	}

	mid, err := Substr(s, 6, 5)
	if err != nil || string(Bytes(mid)) != "world" {
		t.Errorf("substr(s,6,5) = %q, %v, want \"world\"", Bytes(mid), err)
	}
}

func TestSubstrOutOfRangeErrors(t *testing.T) {
	s := NewString("abc")
	cases := []struct {
		name         string
		start, length int
	}{
		{"start-negative", -1, 0},
		{"start-past-end", 4, 0},
		{"length-negative", 0, -1},
		{"start-plus-length-overflow", 2, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Substr(s, c.start, c.length); err == nil {
				t.Errorf("Substr(%d, %d) should have failed", c.start, c.length)
			}
		})
	}
}

func TestFindNegativeOffsetAndNotFound(t *testing.T) {
	s := NewString("abcabc")
	if idx := Find(s, []byte("bc"), 0); idx != 1 {
		t.Errorf("Find from 0 = %d, want 1", idx)
	}
	if idx := Find(s, []byte("bc"), -3); idx != 4 {
		t.Errorf("Find from -3 = %d, want 4", idx)
	}
	if idx := Find(s, []byte("zz"), 0); idx != -1 {
		t.Errorf("Find of missing needle = %d, want -1", idx)
	}
}

func TestSplitRejectsEmptySeparator(t *testing.T) {
	s := NewString("a,b,c")
	if _, err := Split(s, nil); err == nil {
		t.Error("split with empty separator should fail")
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	cases := []string{"a,b,c", ",", "leading,", ",trailing", "single", ""}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			parts, err := Split(NewString(s), []byte(","))
			if err != nil {
				t.Fatalf("split failed: %v", err)
			}
			joined, err := Join(parts, []byte(","))
			if err != nil {
				t.Fatalf("join failed: %v", err)
			}
			if string(Bytes(joined)) != s {
				t.Errorf("split(%q).join(\",\") = %q, want %q", s, Bytes(joined), s)
			}
		})
	}
}

func TestSplitIncludesEmptyPieces(t *testing.T) {
	parts, err := Split(NewString(",a,,b,"), []byte(","))
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	want := []string{"", "a", "", "b", ""}
	if len(parts) != len(want) {
		t.Fatalf("got %d pieces, want %d", len(parts), len(want))
	}
	for i, w := range want {
		if string(Bytes(parts[i])) != w {
			t.Errorf("piece %d = %q, want %q", i, Bytes(parts[i]), w)
		}
	}
}

func TestRepeatAndCase(t *testing.T) {
	r, err := Repeat(NewString("ab"), 3)
	if err != nil || string(Bytes(r)) != "ababab" {
		t.Errorf("repeat(ab,3) = %q, %v", Bytes(r), err)
	}
	if _, err := Repeat(NewString("x"), -1); err == nil {
		t.Error("repeat with negative count should fail")
	}
	if got := string(Bytes(ToUpper(NewString("AbC123")))); got != "ABC123" {
		t.Errorf("ToUpper = %q", got)
	}
	if got := string(Bytes(ToLower(NewString("AbC123")))); got != "abc123" {
		t.Errorf("ToLower = %q", got)
	}
}
