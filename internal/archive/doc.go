/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package archive implements the character file (.cha) format.
// A character file is a zip container holding exactly two entries: <basename>.dat with the
// serialized sheet and log.txt with the session log. Entries are never updated in place: a
// write drops the old entry and adds a fresh one, and the whole container is replaced on disk
// through a temporary file and rename. Writes to the same path are serialized by a Locker.
package archive
