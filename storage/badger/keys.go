package badger

import (
	"fmt"
)

// Key prefixes for different data types
const (
	messageRecordPrefix = "msgrec"
	messageRecordIDSeq  = "msgrecseq"
	jobRecordPrefix     = "embjob"
	jobRecordIDPrefix   = "embjobid"
	jobRecordIDSeq      = "embjobseq"
)

// makeMessageRecordKey generates a key for a message record by ID.
func makeMessageRecordKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s:%020d", messageRecordPrefix, id))
}

// makeJobTupleKey generates the primary job key for a (store path, model)
// pair. At most one job row exists per pair; the pipe separator cannot
// appear in model names.
func makeJobTupleKey(storePath, modelName string) []byte {
	return []byte(fmt.Sprintf("%s:%s|%s", jobRecordPrefix, storePath, modelName))
}

// makeJobIDKey generates the secondary key mapping a job ID to its tuple key.
func makeJobIDKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s:%020d", jobRecordIDPrefix, id))
}
