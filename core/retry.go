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

package core

import "time"

// retryBackoff is the pause before a single retried I/O attempt.
const retryBackoff = 10 * time.Millisecond

// RetryOnce runs op, and if it fails, waits retryBackoff and tries op
// exactly one more time, mirroring storage/dynamodb.go's bounded
// "for i := 0; i < 1; i++" retry-then-give-up loop. label identifies
// the call site in the retry-attempt log line. Every store backend
// wraps its driver/client round trips in RetryOnce before giving up
// and surfacing a BackendUnavailableError.
func RetryOnce(ctx *Context, label string, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}
	Log(WARN|STORE, ctx, label, "error", err, "retry", 0)
	time.Sleep(retryBackoff)
	return op()
}
