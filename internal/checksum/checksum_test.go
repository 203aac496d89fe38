package checksum

import "testing"

func TestSum_KnownDigest(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %q, want %q", got, empty)
	}
}

func TestSumString_MatchesSum(t *testing.T) {
	text := "{{Glossary(\"HTML\")}}\n"
	if SumString(text) != Sum([]byte(text)) {
		t.Error("SumString and Sum disagree")
	}
	if SumString("a") == SumString("b") {
		t.Error("different inputs should not collide")
	}
}
