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

// Package search answers retrieval queries against the vector index of one
// ingested source.
//
// FindRelevant validates the source identifier and the query, opens the
// source's index and returns the top-k chunks ranked by cosine similarity.
// Callers pick k by use: QuestionTopK for answering a question,
// DeepDiveTopK for a topic deep dive, ActionPointsTopK for action points.
package search
