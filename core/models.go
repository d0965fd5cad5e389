package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceIDHash derives a compact numeric identifier for a source string.
// Stable across runs; used to stamp vector index rows with provenance.
func SourceIDHash(sourceID string) uint32 {
	h, _ := blake2b.New(4, nil)
	h.Write([]byte(sourceID))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint32(sum)
}

// Role codes identify the speaker of a message. They are stored as compact
// byte codes in vector index rows.
const (
	RoleUser      byte = 0
	RoleAssistant byte = 1
	RoleSystem    byte = 2
	RoleTool      byte = 3
)

// RoleCodeFromString maps a role label to its compact byte code.
// Both "assistant" and the historical "agent" label map to RoleAssistant.
func RoleCodeFromString(role string) (byte, bool) {
	switch role {
	case "user":
		return RoleUser, true
	case "assistant", "agent":
		return RoleAssistant, true
	case "system":
		return RoleSystem, true
	case "tool":
		return RoleTool, true
	default:
		return 0, false
	}
}

// MessageRecord is a conversation message as fetched from a message store.
// Records are read-only snapshots for the indexing pipeline; the pipeline
// never mutates them.
type MessageRecord struct {
	Id           ID
	Role         string
	Contents     string
	CreatedAt    int64 // Unix milliseconds; 0 when unknown
	AgentId      uint64
	WorkspaceId  uint64 // 0 when the message has no workspace
	SourceIdHash uint32
	InsertedAt   time.Time
}

// JobStatus is the lifecycle state of an embedding job.
type JobStatus int

const (
	// JobPending means the job row exists but the pass has not started.
	JobPending JobStatus = iota + 1
	// JobRunning means the pass is actively embedding.
	JobRunning
	// JobCompleted means the pass finished and the index was saved.
	JobCompleted
	// JobFailed means the pass errored or was cancelled.
	JobFailed
)

// String returns the lowercase status label.
func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobRecord is the persisted lifecycle row for one embedding pass.
// At most one non-terminal row exists per (StorePath, ModelName) pair;
// a new pass for the same pair supersedes the previous row via upsert.
type JobRecord struct {
	Id             ID
	StorePath      string
	ModelName      string
	Status         JobStatus
	TotalCount     int64
	CompletedCount int64
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
