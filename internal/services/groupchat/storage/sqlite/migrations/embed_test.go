package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	tests := []struct {
		name string
		fsys fs.FS
		root string
		want int
	}{
		{name: "journal", fsys: JournalFS, root: "journal", want: 2},
		{name: "readmodel", fsys: ReadModelFS, root: "readmodel", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := fs.ReadDir(tt.fsys, tt.root)
			if err != nil {
				t.Fatalf("read %s migrations: %v", tt.root, err)
			}
			var count int
			for _, entry := range entries {
				if !strings.HasSuffix(entry.Name(), ".sql") {
					continue
				}
				count++
				content, err := fs.ReadFile(tt.fsys, tt.root+"/"+entry.Name())
				if err != nil {
					t.Fatalf("read %s: %v", entry.Name(), err)
				}
				if !strings.Contains(string(content), "-- +migrate Up") {
					t.Fatalf("%s has no up section", entry.Name())
				}
			}
			if count != tt.want {
				t.Fatalf("expected %d migrations, got %d", tt.want, count)
			}
		})
	}
}
