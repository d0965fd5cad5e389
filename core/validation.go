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

import "fmt"

// ValidateMessageRecord checks that a MessageRecord is well formed before it
// is written to a store.
func ValidateMessageRecord(record *MessageRecord) error {
	if record == nil {
		return ErrInvalidMessageRecord
	}
	if record.Contents == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessageRecord, ErrEmptyContent)
	}
	if _, ok := RoleCodeFromString(record.Role); !ok {
		return fmt.Errorf("%w: %w: %q", ErrInvalidMessageRecord, ErrInvalidRole, record.Role)
	}
	return nil
}
