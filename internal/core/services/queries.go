// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services holds the read side of the application. This file defines
// the BigQuery queries used by the services.
package services

const (
	// QryFindNarrativeById selects a single narrative by its id.
	QryFindNarrativeById = "SELECT * FROM `%s` WHERE id = @id ORDER BY create_date DESC LIMIT 1"

	// QryGetNarrativeScene selects one scene of a narrative by sequence number.
	QryGetNarrativeScene = "SELECT s.sequence_number, s.start, s.`end`, s.setting, s.description, s.characters, s.dialogue " +
		"FROM `%s`, UNNEST(scenes) AS s WHERE id = @id AND s.sequence_number = @sequence LIMIT 1"

	// QryListNarratives selects the most recent narratives, newest first.
	QryListNarratives = "SELECT * FROM `%s` ORDER BY create_date DESC LIMIT @limit"
)
