package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, m.err
}

func TestPrometheus_Counters(t *testing.T) {
	p := NewPrometheus()
	ctx := context.Background()

	p.WishCreated(ctx)
	p.WishCreated(ctx)
	p.QuotaRejected(ctx)
	p.WishesReleased(ctx, 7)
	p.ReleaseFailed(ctx)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.created))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.quotaRejected))
	assert.Equal(t, 7.0, testutil.ToFloat64(p.released))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.releaseRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.releaseRuns.WithLabelValues("failed")))

	w := httptest.NewRecorder()
	p.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wishwall_wishes_released_total 7")
}

func TestCloudWatch_PutsMetric(t *testing.T) {
	mock := &mockCloudWatch{}
	c := NewCloudWatch(mock, "WishWall")

	c.WishesReleased(context.Background(), 12)
	require.Len(t, mock.inputs, 1)
	in := mock.inputs[0]
	assert.Equal(t, "WishWall", *in.Namespace)
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, "WishesReleased", *in.MetricData[0].MetricName)
	assert.Equal(t, 12.0, *in.MetricData[0].Value)
}

func TestCloudWatch_SwallowsErrors(t *testing.T) {
	mock := &mockCloudWatch{err: errors.New("throttled")}
	c := NewCloudWatch(mock, "WishWall")
	assert.NotPanics(t, func() { c.WishCreated(context.Background()) })
	assert.Len(t, mock.inputs, 1)
}

func TestMulti(t *testing.T) {
	mock := &mockCloudWatch{}
	p := NewPrometheus()
	m := Multi{p, NewCloudWatch(mock, "ns"), Nop{}}

	m.WishCreated(context.Background())
	m.QuotaRejected(context.Background())
	assert.Equal(t, 1.0, testutil.ToFloat64(p.created))
	assert.Len(t, mock.inputs, 2)
}
