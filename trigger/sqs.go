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

package trigger

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Comcast/ecs-scheduler/core"
)

// QueueDepth is the built-in "sqs" trigger evaluator: it probes a
// queue's approximate depth and computes ceil(depth/messagesPerTask).
type QueueDepth struct {
	client *sqs.Client
	// urls caches queueName -> queue URL, since GetQueueUrl rarely
	// changes and every fire would otherwise pay an extra round trip.
	urls map[string]string
}

func NewQueueDepth(client *sqs.Client) *QueueDepth {
	return &QueueDepth{client: client, urls: make(map[string]string)}
}

func (q *QueueDepth) queueURL(ctx context.Context, name string) (string, error) {
	if url, ok := q.urls[name]; ok {
		return url, nil
	}
	out, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", err
	}
	url := aws.ToString(out.QueueUrl)
	q.urls[name] = url
	return url, nil
}

func (q *QueueDepth) Evaluate(ctx context.Context, tr *core.Trigger) (int, error) {
	if tr.QueueName == "" {
		return 0, fmt.Errorf("sqs trigger: queueName required")
	}
	if tr.MessagesPerTask < 1 {
		return 0, fmt.Errorf("sqs trigger: messagesPerTask must be >= 1")
	}

	url, err := q.queueURL(ctx, tr.QueueName)
	if err != nil {
		return 0, fmt.Errorf("sqs trigger: resolve queue %s: %w", tr.QueueName, err)
	}

	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("sqs trigger: get attributes: %w", err)
	}

	raw := out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	depth, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("sqs trigger: parse depth %q: %w", raw, err)
	}
	if depth <= 0 {
		return 0, nil
	}
	return int(math.Ceil(float64(depth) / float64(tr.MessagesPerTask))), nil
}
