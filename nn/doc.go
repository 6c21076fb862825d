// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layer catalog and the Net that chains layers into
// a pipeline.
//
// # Overview
//
// Every layer implements Forward and Backward over Volumes. The catalog:
//   - Input: declares the network input shape
//   - FullyConn, Conv, Deconv: trainable layers with filters and biases
//   - Pool, Unpool: spatial max pooling and its inverse
//   - Relu, Sigmoid, Tanh, Maxout: activations
//   - Dropout, LRN: regularization and local response normalization
//   - Softmax, SVM, Regression, HeteroscedasticRegression: loss layers
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/volnet/nn"
//	    "github.com/born-ml/volnet/volume"
//	)
//
//	func main() {
//	    net, trainer, err := nn.ParseNet(`[
//	        {"type": "input", "input_width": 1, "input_height": 1, "input_depth": 2},
//	        {"type": "fc", "neuron_count": 6, "activation": "tanh"},
//	        {"type": "softmax", "class_count": 2}
//	    ]`, rand.New(rand.NewSource(1)))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    x, _ := volume.FromSlice(1, 1, 2, []float64{0.3, -0.5})
//	    probs := net.Forward(x, false)
//	    _ = trainer // optim.Config from the description
//	}
//
// Layers can also be added one at a time with Net.AddLayer, which
// initializes each layer from the output shape of the one before it.
package nn
