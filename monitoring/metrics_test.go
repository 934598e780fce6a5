package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectStreamMetrics(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	monitor := NewMonitor(db, "TicketApproved", "TicketRejected")

	mock.ExpectXLen("TicketApproved").SetVal(12)
	mock.ExpectXLen("TicketRejected").SetErr(errors.New("no such key"))

	monitor.collectStreamMetrics(context.Background())

	assert.Equal(t, float64(12), testutil.ToFloat64(streamBacklog.WithLabelValues("TicketApproved")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackScan(t *testing.T) {
	var m *Monitor

	before := testutil.ToFloat64(scanResults.WithLabelValues("day1", "SUCCESS"))
	m.TrackScan("day1", "SUCCESS", 20*time.Millisecond)
	m.TrackScan("day1", "SUCCESS", 20*time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(scanResults.WithLabelValues("day1", "SUCCESS")))
}
