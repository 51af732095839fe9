package optimize

import (
	"math"

	"github.com/mkowalik/gradnet/tensor"
)

// GradientDescent is the plain rule delta = lr * grad.
type GradientDescent struct {
	delta *tensor.Tensor
}

func NewGradientDescent(rows, cols int) *GradientDescent {
	return &GradientDescent{delta: tensor.New(rows, cols)}
}

func (o *GradientDescent) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "gradient descent")
	for i := range o.delta.Data {
		o.delta.Data[i] = lr * grad.Data[i]
	}
	return o.delta
}

func (*GradientDescent) Name() string { return "GradientDescent" }

// Momentum keeps a decaying velocity: v := mu*v + lr*grad, delta = v.
type Momentum struct {
	mu float64
	v  *tensor.Tensor
}

func NewMomentum(rows, cols int) *Momentum {
	return NewMomentumRate(rows, cols, 0.9)
}

func NewMomentumRate(rows, cols int, mu float64) *Momentum {
	return &Momentum{mu: mu, v: tensor.New(rows, cols)}
}

func (o *Momentum) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "momentum")
	for i := range o.v.Data {
		o.v.Data[i] = o.mu*o.v.Data[i] + lr*grad.Data[i]
	}
	return o.v
}

func (*Momentum) Name() string { return "Momentum" }

// AdaGrad accumulates squared gradients:
// G += grad^2, delta = lr * grad / sqrt(G + eps).
type AdaGrad struct {
	eps   float64
	g     *tensor.Tensor
	delta *tensor.Tensor
}

func NewAdaGrad(rows, cols int) *AdaGrad {
	return &AdaGrad{
		eps:   1e-8,
		g:     tensor.New(rows, cols),
		delta: tensor.New(rows, cols),
	}
}

func (o *AdaGrad) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "adagrad")
	for i := range o.g.Data {
		o.g.Data[i] += grad.Data[i] * grad.Data[i]
		o.delta.Data[i] = lr * grad.Data[i] / math.Sqrt(o.g.Data[i]+o.eps)
	}
	return o.delta
}

func (*AdaGrad) Name() string { return "AdaGrad" }

// RMSProp keeps a decaying average of squared gradients:
// E := rho*E + (1-rho)*grad^2, delta = lr * grad / sqrt(E + eps).
type RMSProp struct {
	rho   float64
	eps   float64
	eg    *tensor.Tensor
	delta *tensor.Tensor
}

func NewRMSProp(rows, cols int) *RMSProp {
	return &RMSProp{
		rho:   0.9,
		eps:   1e-8,
		eg:    tensor.New(rows, cols),
		delta: tensor.New(rows, cols),
	}
}

func (o *RMSProp) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "rmsprop")
	for i := range o.eg.Data {
		o.eg.Data[i] = o.rho*o.eg.Data[i] + (1-o.rho)*grad.Data[i]*grad.Data[i]
		o.delta.Data[i] = lr * grad.Data[i] / math.Sqrt(o.eg.Data[i]+o.eps)
	}
	return o.delta
}

func (*RMSProp) Name() string { return "RMSProp" }

// AdaDelta scales updates by the ratio of two decaying averages: squared
// previous updates over squared gradients. The learning rate is unused.
type AdaDelta struct {
	rho   float64
	eps   float64
	eg    *tensor.Tensor
	ed    *tensor.Tensor
	d     *tensor.Tensor
	delta *tensor.Tensor
}

func NewAdaDelta(rows, cols int) *AdaDelta {
	return &AdaDelta{
		rho:   0.9,
		eps:   1e-8,
		eg:    tensor.New(rows, cols),
		ed:    tensor.New(rows, cols),
		d:     tensor.New(rows, cols),
		delta: tensor.New(rows, cols),
	}
}

func (o *AdaDelta) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "adadelta")
	for i := range o.eg.Data {
		o.eg.Data[i] = o.rho*o.eg.Data[i] + (1-o.rho)*grad.Data[i]*grad.Data[i]
		// Squared-update average lags one step behind.
		o.ed.Data[i] = o.rho*o.ed.Data[i] + (1-o.rho)*o.d.Data[i]*o.d.Data[i]
		o.d.Data[i] = -math.Sqrt(o.ed.Data[i]+o.eps) / math.Sqrt(o.eg.Data[i]+o.eps) * grad.Data[i]
		o.delta.Data[i] = -o.d.Data[i]
	}
	return o.delta
}

func (*AdaDelta) Name() string { return "AdaDelta" }

// Adam keeps bias-corrected first and second moment estimates.
type Adam struct {
	beta1  float64
	beta2  float64
	eps    float64
	beta1t float64
	beta2t float64
	m      *tensor.Tensor
	v      *tensor.Tensor
	delta  *tensor.Tensor
}

func NewAdam(rows, cols int) *Adam {
	return &Adam{
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		beta1t: 0.9,
		beta2t: 0.999,
		m:      tensor.New(rows, cols),
		v:      tensor.New(rows, cols),
		delta:  tensor.New(rows, cols),
	}
}

func (o *Adam) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "adam")
	for i := range o.m.Data {
		o.m.Data[i] = o.beta1*o.m.Data[i] + (1-o.beta1)*grad.Data[i]
		o.v.Data[i] = o.beta2*o.v.Data[i] + (1-o.beta2)*grad.Data[i]*grad.Data[i]
		mHat := o.m.Data[i] / (1 - o.beta1t)
		vHat := o.v.Data[i] / (1 - o.beta2t)
		o.delta.Data[i] = lr * mHat / (math.Sqrt(vHat) + o.eps)
	}
	o.beta1t *= o.beta1
	o.beta2t *= o.beta2
	return o.delta
}

func (*Adam) Name() string { return "Adam" }

// GradPID treats the gradient as a control error and combines proportional,
// integral and derivative terms. The three rates are derived from the single
// learning rate: p = lr^4, i = lr, d = lr^3.
type GradPID struct {
	decay    float64
	edx      *tensor.Tensor
	gradPrev *tensor.Tensor
	delta    *tensor.Tensor
}

func NewGradPID(rows, cols int) *GradPID {
	return &GradPID{
		decay:    0.9,
		edx:      tensor.New(rows, cols),
		gradPrev: tensor.New(rows, cols),
		delta:    tensor.New(rows, cols),
	}
}

func (o *GradPID) ComputeUpdate(p, grad *tensor.Tensor, lr float64) *tensor.Tensor {
	assertSameSize(p, grad, "gradpid")
	pRate := lr * lr * lr * lr
	iRate := lr
	dRate := lr * lr * lr
	for i := range o.edx.Data {
		o.edx.Data[i] = o.decay*o.edx.Data[i] + (1-o.decay)*grad.Data[i]
		deltaP := pRate * grad.Data[i]
		deltaI := iRate * o.edx.Data[i]
		deltaD := dRate * (grad.Data[i] - o.gradPrev.Data[i])
		o.delta.Data[i] = deltaP + deltaI + deltaD
		o.gradPrev.Data[i] = grad.Data[i]
	}
	return o.delta
}

func (*GradPID) Name() string { return "GradPID" }
