package network

import (
	"github.com/mkowalik/gradnet/loss"
	"github.com/mkowalik/gradnet/tensor"
)

// BackpropNetwork drives a Network with a loss function: train runs
// forward, loss gradient, backward and update; test runs forward in test
// mode and reports the mean loss.
type BackpropNetwork struct {
	*Network
	loss    loss.Loss
	metrics *TrainingMetrics
}

// NewBackprop creates a backpropagation network with the default
// cross-entropy loss.
func NewBackprop(name string) *BackpropNetwork {
	return &BackpropNetwork{
		Network: New(name),
		loss:    loss.NewCrossEntropy(),
	}
}

// SetLoss replaces the loss function.
func (n *BackpropNetwork) SetLoss(l loss.Loss) {
	n.loss = l
}

// Loss returns the installed loss function.
func (n *BackpropNetwork) Loss() loss.Loss {
	return n.loss
}

// SetMetrics attaches a metrics sink recording every training step. Pass
// nil to detach.
func (n *BackpropNetwork) SetMetrics(m *TrainingMetrics) {
	n.metrics = m
}

// Train runs one optimization step on a batch and returns the mean loss
// over the batch.
func (n *BackpropNetwork) Train(x, target *tensor.Tensor, lr, decay float64) float64 {
	n.Forward(x, false)
	predictions := n.Predictions()

	dy := n.loss.Gradient(target, predictions)
	n.Backward(dy)
	n.Update(lr, decay)

	meanLoss := n.loss.Mean(target, predictions)
	if n.metrics != nil {
		n.metrics.ObserveTrainStep(meanLoss)
	}
	return meanLoss
}

// Test runs a forward pass in test mode (dropout bypassed) and returns the
// mean loss.
func (n *BackpropNetwork) Test(x, target *tensor.Tensor) float64 {
	n.Forward(x, true)
	return n.loss.Mean(target, n.Predictions())
}

// Accuracy runs a forward pass in test mode and returns the fraction of
// columns whose argmax matches the one-hot target.
func (n *BackpropNetwork) Accuracy(x, target *tensor.Tensor) float64 {
	n.Forward(x, true)
	correct := n.CountCorrectPredictions(target, n.Predictions())
	return float64(correct) / float64(x.Cols)
}
