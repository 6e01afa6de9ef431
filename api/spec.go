// Copyright 2015 Comcast Cable Communications Management, LLC
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
//
// End Copyright

package api

// openAPIDocument is the static document served at GET /spec. It is
// intentionally hand-maintained rather than generated: the handler
// surface is small and stable enough that a generator would be more
// ceremony than the document itself.
var openAPIDocument = map[string]interface{}{
	"openapi": "3.0.0",
	"info": map[string]interface{}{
		"title":   "ecs-scheduler",
		"version": "1.0.0",
	},
	"paths": map[string]interface{}{
		"/jobs": map[string]interface{}{
			"get":  map[string]interface{}{"summary": "List jobs", "parameters": []string{"skip", "count"}},
			"post": map[string]interface{}{"summary": "Create a job"},
		},
		"/jobs/{id}": map[string]interface{}{
			"get":    map[string]interface{}{"summary": "Get a job"},
			"put":    map[string]interface{}{"summary": "Partially update a job"},
			"delete": map[string]interface{}{"summary": "Delete a job"},
		},
	},
}
