package metrics

import (
	"context"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/imrishuroy/wishwall/internal/aws"
	"github.com/imrishuroy/wishwall/internal/logging"
)

// CloudWatch publishes each event as a custom metric. Publishing errors are
// logged and never reach the caller.
type CloudWatch struct {
	client    aws.CloudWatchAPI
	namespace string
	nowFunc   func() time.Time
}

// NewCloudWatch returns a recorder writing to namespace.
func NewCloudWatch(client aws.CloudWatchAPI, namespace string) *CloudWatch {
	return &CloudWatch{
		client:    client,
		namespace: namespace,
		nowFunc:   time.Now,
	}
}

func (c *CloudWatch) WishCreated(ctx context.Context)   { c.put(ctx, "WishesCreated", 1) }
func (c *CloudWatch) QuotaRejected(ctx context.Context) { c.put(ctx, "WishQuotaRejected", 1) }
func (c *CloudWatch) ReleaseFailed(ctx context.Context) { c.put(ctx, "ReleaseFailures", 1) }

func (c *CloudWatch) WishesReleased(ctx context.Context, n int) {
	c.put(ctx, "WishesReleased", float64(n))
}

func (c *CloudWatch) put(ctx context.Context, name string, value float64) {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &c.namespace,
		MetricData: []cwtypes.MetricDatum{{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(value),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  sdkaws.Time(c.nowFunc()),
		}},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("put metric data failed", zap.String("metric", name), zap.Error(err))
	}
}
