package nn

import "fmt"

type targetKind int

const (
	targetClass targetKind = iota + 1
	targetVector
	targetDim
)

// Target is the supervision signal handed to a LossLayer. It is one of:
//   - a class index (Softmax, SVM),
//   - a full vector of regression values,
//   - a single (dimension, value) pair, which only trains that output.
type Target struct {
	kind   targetKind
	class  int
	values []float64
	dim    int
	val    float64
}

// ClassTarget returns a class-index target.
func ClassTarget(class int) Target {
	return Target{kind: targetClass, class: class}
}

// VectorTarget returns a full regression target.
func VectorTarget(values []float64) Target {
	return Target{kind: targetVector, values: values}
}

// DimTarget returns a target for a single output dimension.
func DimTarget(dim int, val float64) Target {
	return Target{kind: targetDim, dim: dim, val: val}
}

// IsClass reports whether t carries a class index.
func (t Target) IsClass() bool { return t.kind == targetClass }

// Class returns the class index. It panics for non-class targets.
func (t Target) Class() int {
	if t.kind != targetClass {
		panic(fmt.Sprintf("Target.Class: target is not a class index (%s)", t))
	}
	return t.class
}

// Values returns the regression vector, or nil.
func (t Target) Values() []float64 { return t.values }

// Dim returns the single dimension and value of a DimTarget.
func (t Target) Dim() (int, float64, bool) {
	return t.dim, t.val, t.kind == targetDim
}

// String implements fmt.Stringer.
func (t Target) String() string {
	switch t.kind {
	case targetClass:
		return fmt.Sprintf("class(%d)", t.class)
	case targetVector:
		return fmt.Sprintf("vector(%v)", t.values)
	case targetDim:
		return fmt.Sprintf("dim(%d=%g)", t.dim, t.val)
	default:
		return "target(empty)"
	}
}
