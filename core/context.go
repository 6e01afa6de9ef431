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

import (
	"context"
	"time"
)

// Context carries a request- or fire-scoped correlation id, a deadline,
// and the Logger this call tree should use. It is threaded explicitly
// through store/trigger/launcher/engine calls rather than riding the
// stdlib context.Context, following the teacher's style of passing an
// explicit *Context as the first real argument of every call.
type Context struct {
	Go         context.Context
	CorrelationId string
	Verbosity  LogLevel
	logger     Logger
	logProps   map[string]interface{}
}

// NewContext returns a Context with the given correlation id and the
// default logger.
func NewContext(corrId string) *Context {
	return &Context{
		Go:            context.Background(),
		CorrelationId: corrId,
		Verbosity:     EVERYTHING,
		logger:        DefaultLogger,
		logProps:      make(map[string]interface{}),
	}
}

// WithTimeout returns a derived Context whose Go deadline is bounded by d.
func (c *Context) WithTimeout(d time.Duration) (*Context, context.CancelFunc) {
	goCtx, cancel := context.WithTimeout(c.Go, d)
	derived := *c
	derived.Go = goCtx
	return &derived, cancel
}

// WithProp returns a derived Context carrying an additional log property
// that will be attached to every Log call made through it.
func (c *Context) WithProp(key string, val interface{}) *Context {
	derived := *c
	derived.logProps = make(map[string]interface{}, len(c.logProps)+1)
	for k, v := range c.logProps {
		derived.logProps[k] = v
	}
	derived.logProps[key] = val
	return &derived
}

// Logger returns the Logger this context should emit through, falling
// back to DefaultLogger.
func (c *Context) Logger() Logger {
	if c == nil || c.logger == nil {
		return DefaultLogger
	}
	return c.logger
}

// WithLogger returns a derived Context that logs through l.
func (c *Context) WithLogger(l Logger) *Context {
	derived := *c
	derived.logger = l
	return &derived
}
