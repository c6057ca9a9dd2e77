package testsupport_test

import (
	"testing"

	"festsync/internal/testsupport"
)

func TestFixturesResolveIndependentOfWorkingDirectory(t *testing.T) {
	t.Chdir(t.TempDir())

	page, ok := testsupport.LoadFixture(t, "page_1.json").(map[string]any)
	if !ok || len(page) == 0 {
		t.Fatalf("expected a decoded page object, got %T", page)
	}
	if len(testsupport.ReadFixture(t, "title.html")) == 0 {
		t.Fatal("title fixture is empty")
	}
}
