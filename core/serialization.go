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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted core types. Hand-written against the
// mus-go primitive serializers; field order is part of the on-disk format
// and must not change.
var (
	IDMUS            = idMUS{}
	MessageRecordMUS = messageRecordMUS{}
	JobRecordMUS     = jobRecordMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

type messageRecordMUS struct{}

func (messageRecordMUS) Marshal(v MessageRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.Role, bs[n:])
	n += ord.String.Marshal(v.Contents, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt, bs[n:])
	n += varint.Uint64.Marshal(v.AgentId, bs[n:])
	n += varint.Uint64.Marshal(v.WorkspaceId, bs[n:])
	n += varint.Uint32.Marshal(v.SourceIdHash, bs[n:])
	n += varint.Int64.Marshal(v.InsertedAt.UnixMicro(), bs[n:])
	return n
}

func (messageRecordMUS) Unmarshal(bs []byte) (v MessageRecord, n int, err error) {
	var (
		n1       int
		id       uint64
		inserted int64
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)
	v.Role, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Contents, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.AgentId, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.WorkspaceId, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceIdHash, n1, err = varint.Uint32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	inserted, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt = time.UnixMicro(inserted).UTC()
	return
}

func (messageRecordMUS) Size(v MessageRecord) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.Role)
	size += ord.String.Size(v.Contents)
	size += varint.Int64.Size(v.CreatedAt)
	size += varint.Uint64.Size(v.AgentId)
	size += varint.Uint64.Size(v.WorkspaceId)
	size += varint.Uint32.Size(v.SourceIdHash)
	size += varint.Int64.Size(v.InsertedAt.UnixMicro())
	return size
}

type jobRecordMUS struct{}

func (jobRecordMUS) Marshal(v JobRecord, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(v.Id), bs)
	n += ord.String.Marshal(v.StorePath, bs[n:])
	n += ord.String.Marshal(v.ModelName, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += varint.Int64.Marshal(v.TotalCount, bs[n:])
	n += varint.Int64.Marshal(v.CompletedCount, bs[n:])
	n += ord.String.Marshal(v.ErrorMessage, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (jobRecordMUS) Unmarshal(bs []byte) (v JobRecord, n int, err error) {
	var (
		n1      int
		id      uint64
		status  int
		created int64
		updated int64
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Id = ID(id)
	v.StorePath, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ModelName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status = JobStatus(status)
	v.TotalCount, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CompletedCount, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ErrorMessage, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	created, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt = time.UnixMicro(created).UTC()
	updated, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = time.UnixMicro(updated).UTC()
	return
}

func (jobRecordMUS) Size(v JobRecord) (size int) {
	size = varint.Uint64.Size(uint64(v.Id))
	size += ord.String.Size(v.StorePath)
	size += ord.String.Size(v.ModelName)
	size += varint.Int.Size(int(v.Status))
	size += varint.Int64.Size(v.TotalCount)
	size += varint.Int64.Size(v.CompletedCount)
	size += ord.String.Size(v.ErrorMessage)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}
