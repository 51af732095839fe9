package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TrainingMetrics exposes training progress as Prometheus collectors.
type TrainingMetrics struct {
	trainSteps   prometheus.Counter
	batchLoss    prometheus.Gauge
	testLoss     prometheus.Gauge
	testAccuracy prometheus.Gauge
}

// NewTrainingMetrics builds the collectors and registers them with reg.
func NewTrainingMetrics(reg prometheus.Registerer) *TrainingMetrics {
	m := &TrainingMetrics{
		trainSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradnet_train_steps_total",
			Help: "Number of completed training steps.",
		}),
		batchLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradnet_batch_loss",
			Help: "Mean loss of the most recent training batch.",
		}),
		testLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradnet_test_loss",
			Help: "Mean loss of the most recent evaluation.",
		}),
		testAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradnet_test_accuracy",
			Help: "Accuracy of the most recent evaluation.",
		}),
	}
	reg.MustRegister(m.trainSteps, m.batchLoss, m.testLoss, m.testAccuracy)
	return m
}

// ObserveTrainStep records one completed training batch.
func (m *TrainingMetrics) ObserveTrainStep(meanLoss float64) {
	m.trainSteps.Inc()
	m.batchLoss.Set(meanLoss)
}

// ObserveEvaluation records an evaluation pass.
func (m *TrainingMetrics) ObserveEvaluation(meanLoss, accuracy float64) {
	m.testLoss.Set(meanLoss)
	m.testAccuracy.Set(accuracy)
}
