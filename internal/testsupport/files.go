package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixturePath returns the absolute path of a shared fixture under
// internal/testsupport/testdata.
func FixturePath(t testing.TB, name string) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("locate fixture %s: caller unavailable", name)
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

// ReadFixture returns the bytes of a shared fixture.
func ReadFixture(t testing.TB, name string) []byte {
	t.Helper()

	data, err := os.ReadFile(FixturePath(t, name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// LoadFixture decodes a shared JSON fixture into a generic value.
func LoadFixture(t testing.TB, name string) any {
	t.Helper()

	var payload any
	if err := json.Unmarshal(ReadFixture(t, name), &payload); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return payload
}
