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


// Package storage provides the storage abstraction layer for tubescribe.
//
// Two interfaces decouple persistence from the rest of the system:
//
//   - KV: expiring key-value entries used by the caches and rate limiters
//   - VectorBackend: per-source vector index snapshots with exclusive updates
//
// Implementations live in sub-packages:
//
//   - storage/badger: BadgerDB, in-process or on a local directory
//   - storage/redis: a Redis server shared by many processes
//   - storage/file: snapshot files on a shared filesystem, guarded by file locks
//
// Internal package constructors (newKV, newVectorStore, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Key Layout
//
// KV-backed stores share one key layout:
//
//	vecidx:<source>               encoded vectors
//	vecmeta:<source>              chunk list (JSON)
//	transcript:<source>           cached transcript (JSON)
//	summary:<source>              cached summary text
//	ratelimit:<action>:<caller>   fixed-window counter
//
// # Thread Safety
//
// All implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
