package matcheval

import "testing"

func decryptedFixture() []byte {
	d := make([]byte, 33)
	d[0] = 0x02
	for i := 1; i < 33; i++ {
		d[i] = byte(i)
	}
	return d
}

func TestIsLeakedEmptyPrefixes(t *testing.T) {
	if IsLeaked(nil, decryptedFixture()) {
		t.Fatal("empty prefix list must never be leaked")
	}
	if IsLeaked([][]byte{}, decryptedFixture()) {
		t.Fatal("empty prefix list must never be leaked")
	}
}

func TestIsLeakedMatchesEvenTag(t *testing.T) {
	d := decryptedFixture()
	t0, _ := Tags(d)
	if !IsLeaked([][]byte{t0[:16]}, d) {
		t.Fatal("expected match against T0 prefix")
	}
}

func TestIsLeakedMatchesOddTag(t *testing.T) {
	d := decryptedFixture()
	_, t1 := Tags(d)
	if !IsLeaked([][]byte{t1[:10]}, d) {
		t.Fatal("expected match against T1 prefix")
	}
}

func TestIsLeakedNoMatch(t *testing.T) {
	d := decryptedFixture()
	unrelated := make([]byte, 16)
	for i := range unrelated {
		unrelated[i] = 0xFF
	}
	if IsLeaked([][]byte{unrelated}, d) {
		t.Fatal("unrelated prefix should not match")
	}
}

func TestIsLeakedPrefixLongerThanTagDoesNotMatch(t *testing.T) {
	d := decryptedFixture()
	t0, _ := Tags(d)
	oversized := append(t0[:], 0x00)
	if IsLeaked([][]byte{oversized}, d) {
		t.Fatal("a prefix longer than the tag can never be a prefix of it")
	}
}
