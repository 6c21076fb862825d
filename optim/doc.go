// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the Trainer that updates network parameters from
// their accumulated gradients.
//
// # Overview
//
// One Trainer implements every update rule:
//   - SGD: stochastic gradient descent with optional momentum
//   - Nesterov: SGD with Nesterov momentum
//   - Adagrad, Windowgrad, Adadelta: per-weight adaptive rates
//   - Adam: adaptive moments with bias correction
//
// Gradients accumulate in the parameter Volumes, one example at a time. The
// rule fires on every BatchSize-th example with the accumulated gradient
// divided by the batch size, after adding L1 and L2 weight decay.
//
// # Basic Usage
//
//	trainer := optim.New(optim.Config{
//	    Method:       optim.Adadelta,
//	    LearningRate: 0.01,
//	    BatchSize:    10,
//	    L2Decay:      0.001,
//	})
//	trainer.BindNet(net)
//
//	for _, s := range samples {
//	    stats, err := trainer.Train(s.Input, nn.ClassTarget(s.Label))
//	    if err != nil {
//	        return err
//	    }
//	    _ = stats.Loss
//	}
//
// # Custom Models
//
// Any ParamSource can be trained with Step: run Forward and Backward on the
// model yourself, then call Step with the cost of the example.
//
//	trainer.Bind(model)
//	cost := model.ForwardBackward(x)
//	trainer.Step(cost)
package optim
