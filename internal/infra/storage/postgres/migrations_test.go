package postgres

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/vietddude/datafeed/internal/infra/storage/postgres/migrations"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected embedded migrations")
	}

	data, err := fs.ReadFile(migrations.FS, files[0])
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	sql := string(data)
	if !strings.Contains(sql, "-- +goose Up") || !strings.Contains(sql, "datafeed_cursors") {
		t.Errorf("unexpected migration content:\n%s", sql)
	}
}
