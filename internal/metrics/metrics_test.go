package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTransferCountsByOutcome(t *testing.T) {
	c := NewCollector()

	c.RecordTransfer("send", 2*time.Second, nil)
	c.RecordTransfer("send", time.Second, errors.New("rejected"))
	c.RecordTransfer("swap", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transferCounter.WithLabelValues("send", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transferCounter.WithLabelValues("send", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transferCounter.WithLabelValues("swap", "success")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.RecordTransfer("send", time.Second, nil)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.transferCounter.WithLabelValues("send", "success")))
	assert.NotNil(t, b.Registry())
}
