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

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessageRecord indicates a MessageRecord failed validation.
	ErrInvalidMessageRecord = errors.New("invalid message record")

	// ErrEmptyContent indicates the Contents field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidRole indicates an unknown role label.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidJobTransition indicates a job status change that the
	// lifecycle does not allow.
	ErrInvalidJobTransition = errors.New("invalid job status transition")
)
