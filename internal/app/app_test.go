package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/petercsiba/dumpsheet/internal/connectors"
)

// The serve wiring opens the call-log database through package connectors
// alone; the sqlite driver must register from that import, not from anything
// this package (or the binary) pulls in.
func TestCallLogDatabaseOpensFromWiring(t *testing.T) {
	db, err := connectors.OpenDB(filepath.Join(t.TempDir(), "connectors.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	log := connectors.NewCallLog(db)
	rec := connectors.CallRecording{
		CallSID:     "CA1",
		PhoneNumber: "+15551234567",
		S3Key:       "CA1.wav",
		CreatedAt:   time.Now().UTC(),
	}
	if err := log.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := log.Get(context.Background(), "CA1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
}
