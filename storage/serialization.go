// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/poiesic/recall/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalMessageRecord serializes a MessageRecord to bytes.
func MarshalMessageRecord(record *core.MessageRecord) []byte {
	buf := make([]byte, core.MessageRecordMUS.Size(*record))
	core.MessageRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalMessageRecord deserializes a MessageRecord from bytes.
func UnmarshalMessageRecord(data []byte) (*core.MessageRecord, error) {
	record, _, err := core.MessageRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalJobRecord serializes a JobRecord to bytes.
func MarshalJobRecord(record *core.JobRecord) []byte {
	buf := make([]byte, core.JobRecordMUS.Size(*record))
	core.JobRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalJobRecord deserializes a JobRecord from bytes.
func UnmarshalJobRecord(data []byte) (*core.JobRecord, error) {
	record, _, err := core.JobRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}
