package connectors

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/mattn/go-sqlite3"
)

// ObjectStore persists call-recording audio objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body []byte, metadata map[string]string) error
}

// S3Store stores recordings in an S3 bucket, one object per call SID.
type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

func (s *S3Store) Put(ctx context.Context, key string, contentType string, body []byte, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return fmt.Errorf("putting recording object %s: %w", key, err)
	}
	return nil
}

// CallRecording is one archived call recording.
type CallRecording struct {
	CallSID     string
	PhoneNumber string
	ProperName  string
	S3Key       string
	Blake3Hash  string
	SizeBytes   int64
	CreatedAt   time.Time
}

// CallLogger records archived recordings.
type CallLogger interface {
	Insert(ctx context.Context, rec CallRecording) error
}

// OpenDB opens the connector sqlite database and bootstraps its schema.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening call log db: %w", err)
	}

	_, err = db.Exec(`
	PRAGMA busy_timeout  = 10000;
	PRAGMA journal_mode  = WAL;
	PRAGMA synchronous   = NORMAL;
	PRAGMA foreign_keys  = ON;

	create table if not exists call_recordings (
		call_sid     text primary key not null,
		phone_number text not null,
		proper_name  text not null,
		s3_key       text not null,
		blake3_hash  text not null,
		size_bytes   integer not null,
		created_at   text not null
	);`)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping call log schema: %w", err)
	}

	return db, nil
}

// CallLog is the sqlite-backed call recording log.
type CallLog struct {
	db *sql.DB
}

func NewCallLog(db *sql.DB) *CallLog {
	return &CallLog{db: db}
}

func (l *CallLog) Insert(ctx context.Context, rec CallRecording) error {
	_, err := l.db.ExecContext(ctx, `
		insert into call_recordings
			(call_sid, phone_number, proper_name, s3_key, blake3_hash, size_bytes, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (call_sid) do nothing`,
		rec.CallSID,
		rec.PhoneNumber,
		rec.ProperName,
		rec.S3Key,
		rec.Blake3Hash,
		rec.SizeBytes,
		rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("persisting call recording %s: %w", rec.CallSID, err)
	}
	return nil
}

// Get returns an archived recording by call SID.
func (l *CallLog) Get(ctx context.Context, callSID string) (CallRecording, error) {
	rec := CallRecording{}
	var createdAt string

	err := l.db.
		QueryRowContext(ctx, `
			select call_sid, phone_number, proper_name, s3_key, blake3_hash, size_bytes, created_at
			from call_recordings where call_sid = $1`,
			callSID,
		).
		Scan(&rec.CallSID, &rec.PhoneNumber, &rec.ProperName, &rec.S3Key, &rec.Blake3Hash, &rec.SizeBytes, &createdAt)
	if err != nil {
		return rec, fmt.Errorf("get call recording %s: %w", callSID, err)
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}
