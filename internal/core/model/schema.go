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

package model

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var narrativeSchema = sync.OnceValue(func() string {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	data, err := json.Marshal(r.Reflect(&NarrativeDocument{}))
	if err != nil {
		return "{}"
	}
	return string(data)
})

// NarrativeSchemaJSON returns the JSON schema of NarrativeDocument, reflected
// once and embedded into prompts.
func NarrativeSchemaJSON() string {
	return narrativeSchema()
}
