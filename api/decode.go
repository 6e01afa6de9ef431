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

import (
	"bytes"
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v2"
)

// errUnknownSyntax mirrors the teacher's UnknownSyntax: a body that is
// neither recognizably JSON nor YAML.
var errUnknownSyntax = errors.New("body is neither JSON nor YAML")

// maybeYAML reports whether bs contains a newline, the same crude but
// effective signal service.MaybeYAML uses: a JSON job body posted on a
// single line never qualifies, while a YAML document almost always
// does.
func maybeYAML(bs []byte) bool {
	i := bytes.IndexByte(bs, '\n')
	return 0 <= i && i < len(bs)
}

// unmarshalFlexible decodes bs into v, content-sniffing JSON first and
// YAML second, following service.Unmarshal: operators posting a job
// definition by hand often reach for YAML, but the API and stored
// representation are JSON throughout.
func unmarshalFlexible(bs []byte, v interface{}) error {
	if len(bs) == 0 {
		return errUnknownSyntax
	}
	if bs[0] == '{' {
		return json.Unmarshal(bs, v)
	}
	if maybeYAML(bs) {
		return yaml.Unmarshal(bs, v)
	}
	return errUnknownSyntax
}

// presentFields decodes bs into a generic map using the same
// content-sniffing rule, returning the set of top-level keys it
// carried. PUT uses this to implement field-wise merge: a key absent
// from the payload must leave the stored job's value untouched, which
// a plain struct-to-struct decode can't distinguish from "explicitly
// set to the zero value".
func presentFields(bs []byte) (map[string]bool, error) {
	m := make(map[string]interface{})
	if err := unmarshalFlexible(bs, &m); err != nil {
		return nil, err
	}
	present := make(map[string]bool, len(m))
	for k := range m {
		present[k] = true
	}
	return present, nil
}
